package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/iho/goreconcile/internal/adapter/http/dto"
	"github.com/iho/goreconcile/internal/usecase"
)

// Retrier re-runs an operation when the database reports a transient
// conflict such as a deadlock.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// ReconcileHandler handles reconciliation requests.
type ReconcileHandler struct {
	reconcileUseCase *usecase.ReconcileUseCase
	retrier          Retrier
}

// NewReconcileHandler creates a new ReconcileHandler.
func NewReconcileHandler(reconcileUseCase *usecase.ReconcileUseCase, retrier Retrier) *ReconcileHandler {
	return &ReconcileHandler{reconcileUseCase: reconcileUseCase, retrier: retrier}
}

func withRetry(ctx context.Context, retrier Retrier, operation func() error) error {
	if retrier == nil {
		return operation()
	}
	return retrier.Retry(ctx, operation)
}

// Reconcile handles POST /api/v1/reconciliations.
func (h *ReconcileHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	var req dto.ReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if len(req.LineIDs) == 0 {
		writeError(w, http.StatusBadRequest, "validation failed", "line_ids are required")
		return
	}

	var result *usecase.ReconcileResult
	err := withRetry(r.Context(), h.retrier, func() error {
		var opErr error
		result, opErr = h.reconcileUseCase.Reconcile(r.Context(), req.ToUseCaseInput())
		return opErr
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reconcile", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconcileFromResult(result))
}

// Remove handles POST /api/v1/reconciliations/remove.
func (h *ReconcileHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req dto.RemoveReconciliationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if len(req.LineIDs) == 0 {
		writeError(w, http.StatusBadRequest, "validation failed", "line_ids are required")
		return
	}

	err := withRetry(r.Context(), h.retrier, func() error {
		return h.reconcileUseCase.RemoveReconciliation(r.Context(), req.ToUseCaseInput())
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to remove reconciliation", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
