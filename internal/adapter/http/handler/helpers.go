package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iho/goreconcile/internal/adapter/http/dto"
	"github.com/iho/goreconcile/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrEntryNotFound),
		errors.Is(err, domain.ErrLineNotFound),
		errors.Is(err, domain.ErrPartialNotFound),
		errors.Is(err, domain.ErrFullNotFound),
		errors.Is(err, domain.ErrAccountNotFound),
		errors.Is(err, domain.ErrJournalNotFound),
		errors.Is(err, domain.ErrCompanyNotFound),
		errors.Is(err, domain.ErrCurrencyNotFound),
		errors.Is(err, domain.ErrTaxNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrEntryNotDraft),
		errors.Is(err, domain.ErrEntryNotPosted),
		errors.Is(err, domain.ErrPostedEntryImmutable),
		errors.Is(err, domain.ErrReopenNotAllowed),
		errors.Is(err, domain.ErrLinkedToReconciliation),
		errors.Is(err, domain.ErrLockedPeriod):
		return http.StatusConflict

	case errors.Is(err, domain.ErrUnbalancedEntry),
		errors.Is(err, domain.ErrEmptyEntry),
		errors.Is(err, domain.ErrMixedCompanies),
		errors.Is(err, domain.ErrDebitCreditExclusive),
		errors.Is(err, domain.ErrNegativeAmount),
		errors.Is(err, domain.ErrCurrencyWithoutAmount),
		errors.Is(err, domain.ErrCurrencySignMismatch),
		errors.Is(err, domain.ErrDeprecatedAccount),
		errors.Is(err, domain.ErrJournalAccountNotAllowed),
		errors.Is(err, domain.ErrMissingSequence),
		errors.Is(err, domain.ErrNoSequenceConfigured),
		errors.Is(err, domain.ErrReconciliationScopeViolation),
		errors.Is(err, domain.ErrIncompatibleCurrencySet),
		errors.Is(err, domain.ErrAccountNotReconcilable),
		errors.Is(err, domain.ErrMissingExchangeSetup),
		errors.Is(err, domain.ErrMissingCashBasisJournal),
		errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}
