package handler

import (
	"encoding/json"
	"net/http"

	"github.com/iho/goreconcile/internal/adapter/http/dto"
	"github.com/iho/goreconcile/internal/usecase"
)

// PaymentHandler handles payment registration requests.
type PaymentHandler struct {
	paymentUseCase *usecase.PaymentUseCase
	retrier        Retrier
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentUseCase *usecase.PaymentUseCase, retrier Retrier) *PaymentHandler {
	return &PaymentHandler{paymentUseCase: paymentUseCase, retrier: retrier}
}

// Register handles POST /api/v1/payments.
func (h *PaymentHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	switch usecase.PaymentType(req.PaymentType) {
	case usecase.PaymentInbound, usecase.PaymentOutbound:
	default:
		writeError(w, http.StatusBadRequest, "validation failed", "payment_type must be inbound or outbound")
		return
	}

	if req.JournalID == "" || req.PartnerAccountID == "" {
		writeError(w, http.StatusBadRequest, "validation failed", "journal_id and partner_account_id are required")
		return
	}

	var result *usecase.RegisterPaymentResult
	err := withRetry(r.Context(), h.retrier, func() error {
		var opErr error
		result, opErr = h.paymentUseCase.RegisterPayment(r.Context(), req.ToUseCaseInput())
		return opErr
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to register payment", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentFromResult(result))
}
