package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/iho/goreconcile/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrEntryNotFound, http.StatusNotFound},
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrLineNotFound), http.StatusNotFound},
		{domain.ErrEntryNotDraft, http.StatusConflict},
		{domain.ErrPostedEntryImmutable, http.StatusConflict},
		{domain.ErrLockedPeriod, http.StatusConflict},
		{domain.ErrLinkedToReconciliation, http.StatusConflict},
		{domain.ErrUnbalancedEntry, http.StatusBadRequest},
		{domain.ErrReconciliationScopeViolation, http.StatusBadRequest},
		{domain.ErrAccountNotReconcilable, http.StatusBadRequest},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := mapDomainError(tc.err); got != tc.want {
			t.Errorf("mapDomainError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
