package lifecyclehttp

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the engine API.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/leases", func(r chi.Router) {
		r.Get("/", h.ListLeases)
		r.Post("/", h.CreateLease)
		r.Get("/{id}", h.GetLease)
		r.Post("/{id}/terminate", h.TerminateLease)
		r.Get("/{id}/balance", h.OutstandingBalance)
		r.Get("/{id}/payments", h.ListPayments)
		r.Get("/{id}/payments.csv", h.ExportPayments)
	})

	r.Route("/units", func(r chi.Router) {
		r.Get("/{id}", h.GetUnit)
		r.Get("/{id}/active-lease", h.ActiveLeaseForUnit)
		r.Post("/{id}/maintenance", h.SetUnitMaintenance)
		r.Post("/{id}/vacant", h.SetUnitVacant)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/", h.RecordPayment)
		r.Get("/{id}", h.GetPayment)
		r.Post("/{id}/status", h.UpdatePaymentStatus)
	})
}
