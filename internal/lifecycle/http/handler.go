package lifecyclehttp

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/havenstead/rentledger/internal/leasing"
	"github.com/havenstead/rentledger/internal/ledger"
	"github.com/havenstead/rentledger/internal/lifecycle"
	"github.com/havenstead/rentledger/internal/platform/httpx"
	"github.com/havenstead/rentledger/internal/shared"
)

// Handler translates the JSON API onto the lifecycle facade.
type Handler struct {
	logger      *slog.Logger
	facade      *lifecycle.Facade
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
	now         func() time.Time
}

// NewHandler constructs the API handler. The idempotency store may be nil
// when dedup is handled upstream.
func NewHandler(logger *slog.Logger, facade *lifecycle.Facade, idempotency *shared.IdempotencyStore) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		facade:      facade,
		idempotency: idempotency,
		validator:   validator.New(),
		now:         time.Now,
	}
}

func (h *Handler) CreateLease(w http.ResponseWriter, r *http.Request) {
	var req leasing.CreateLeaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	lease, err := h.facade.CreateLease(r.Context(), req)
	if err != nil {
		h.logger.Warn("create lease failed", slog.Int64("unit_id", req.UnitID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, lease)
}

func (h *Handler) TerminateLease(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.facade.TerminateLease(r.Context(), id); err != nil {
		h.logger.Warn("terminate lease failed", slog.Int64("lease_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "terminated"})
}

func (h *Handler) GetLease(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	lease, err := h.facade.GetLease(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, lease)
}

func (h *Handler) ListLeases(w http.ResponseWriter, r *http.Request) {
	page := shared.NewPagination(queryInt(r, "page", 1), queryInt(r, "per_page", 50), 0)
	req := leasing.ListLeasesRequest{
		Limit:  page.PerPage,
		Offset: page.Offset(),
	}
	if v := r.URL.Query().Get("unit_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.UnitID = &id
		}
	}
	if v := r.URL.Query().Get("tenant_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.TenantID = &id
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := leasing.LeaseStatus(v)
		if status != leasing.LeaseStatusActive && status != leasing.LeaseStatusTerminated {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("unknown lease status %q", v))
			return
		}
		req.Status = &status
	}

	leases, total, err := h.facade.ListLeases(r.Context(), req)
	if err != nil {
		h.logger.Error("list leases failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"leases":     leases,
		"pagination": shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) ActiveLeaseForUnit(w http.ResponseWriter, r *http.Request) {
	unitID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	lease, err := h.facade.ActiveLeaseForUnit(r.Context(), unitID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if lease == nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", fmt.Sprintf("unit %d has no active lease", unitID))
		return
	}
	httpx.JSON(w, http.StatusOK, lease)
}

func (h *Handler) GetUnit(w http.ResponseWriter, r *http.Request) {
	unitID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	unit, err := h.facade.GetUnit(r.Context(), unitID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, unit)
}

func (h *Handler) SetUnitMaintenance(w http.ResponseWriter, r *http.Request) {
	unitID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.facade.SetUnitMaintenance(r.Context(), unitID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(leasing.UnitStatusMaintenance)})
}

func (h *Handler) SetUnitVacant(w http.ResponseWriter, r *http.Request) {
	unitID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.facade.SetUnitVacant(r.Context(), unitID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(leasing.UnitStatusVacant)})
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req ledger.RecordPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if key := r.Header.Get("Idempotency-Key"); key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, "payments"); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	payment, err := h.facade.RecordPayment(r.Context(), req)
	if err != nil {
		h.logger.Warn("record payment failed", slog.Int64("lease_id", req.LeaseID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	var req ledger.UpdatePaymentStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	payment, err := h.facade.UpdatePaymentStatus(r.Context(), id, req.Status, req.TransactionRef)
	if err != nil {
		h.logger.Warn("update payment status failed", slog.Int64("payment_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	payment, err := h.facade.GetPayment(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	leaseID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	page := shared.NewPagination(queryInt(r, "page", 1), queryInt(r, "per_page", 50), 0)
	payments, total, err := h.facade.ListPayments(r.Context(), ledger.ListPaymentsRequest{
		LeaseID: leaseID,
		Limit:   page.PerPage,
		Offset:  page.Offset(),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"payments":   payments,
		"pagination": shared.NewPagination(page.Page, page.PerPage, total),
	})
}

func (h *Handler) ExportPayments(w http.ResponseWriter, r *http.Request) {
	leaseID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=lease-%d-payments.csv", leaseID))
	if err := h.facade.ExportPayments(r.Context(), w, leaseID); err != nil {
		h.logger.Error("export payments failed", slog.Int64("lease_id", leaseID), slog.Any("error", err))
	}
}

func (h *Handler) OutstandingBalance(w http.ResponseWriter, r *http.Request) {
	leaseID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	asOf := h.now()
	if v := r.URL.Query().Get("as_of"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}

	balance, err := h.facade.OutstandingBalance(r.Context(), leaseID, asOf)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid id")
		return 0, false
	}
	return id, true
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
