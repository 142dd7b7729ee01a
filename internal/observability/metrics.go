package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	leasesCreated    prometheus.Counter
	leasesTerminated prometheus.Counter
	leaseConflicts   prometheus.Counter
	paymentsRecorded prometheus.Counter
	lateFeesAssessed prometheus.Counter
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rentledger_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rentledger_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	leasesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rentledger_leases_created_total",
		Help: "Leases opened through the lifecycle facade.",
	})
	leasesTerminated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rentledger_leases_terminated_total",
		Help: "Leases terminated through the lifecycle facade.",
	})
	leaseConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rentledger_lease_conflicts_total",
		Help: "Lease creations rejected by the one-active-lease invariant.",
	})
	paymentsRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rentledger_payments_recorded_total",
		Help: "Payments appended to the ledger.",
	})
	lateFees := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rentledger_late_fees_assessed_total",
		Help: "Payments recorded with a late fee attached.",
	})
	registry.MustRegister(requests, duration, leasesCreated, leasesTerminated, leaseConflicts, paymentsRecorded, lateFees)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		leasesCreated:    leasesCreated,
		leasesTerminated: leasesTerminated,
		leaseConflicts:   leaseConflicts,
		paymentsRecorded: paymentsRecorded,
		lateFeesAssessed: lateFees,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// LeaseCreated increments the lease creation counter.
func (m *Metrics) LeaseCreated() {
	if m != nil {
		m.leasesCreated.Inc()
	}
}

// LeaseTerminated increments the lease termination counter.
func (m *Metrics) LeaseTerminated() {
	if m != nil {
		m.leasesTerminated.Inc()
	}
}

// LeaseConflict increments the duplicate-active-lease rejection counter.
func (m *Metrics) LeaseConflict() {
	if m != nil {
		m.leaseConflicts.Inc()
	}
}

// PaymentRecorded increments the ledger append counter.
func (m *Metrics) PaymentRecorded(lateFee bool) {
	if m == nil {
		return
	}
	m.paymentsRecorded.Inc()
	if lateFee {
		m.lateFeesAssessed.Inc()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
