package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartialReconcile links exactly one debit line and one credit line with the
// amount matched between them. Immutable once created.
type PartialReconcile struct {
	ID           string
	DebitLineID  string
	CreditLineID string

	// Amount is always in the functional currency, AmountCurrency in the
	// shared foreign currency when the match was currency-driven.
	Amount         decimal.Decimal
	AmountCurrency decimal.Decimal
	CurrencyID     string

	FullReconcileID string

	// MaxDate is the later of the two matched lines' dates.
	MaxDate   time.Time
	CreatedAt time.Time
}

// Validate enforces the partial-level invariant: a strictly positive amount.
func (p *PartialReconcile) Validate() error {
	if !p.Amount.IsPositive() && !p.AmountCurrency.IsPositive() {
		return ErrInvalidAmount
	}

	return nil
}

// Touches reports whether the partial links the given line.
func (p *PartialReconcile) Touches(lineID string) bool {
	return p.DebitLineID == lineID || p.CreditLineID == lineID
}

// FullReconcile is the closure record over a connected cluster of lines whose
// residuals sum to zero. ExchangeEntryID references the exchange-difference
// entry generated to close a residual currency gap, if any.
type FullReconcile struct {
	ID              string
	Name            string
	PartialIDs      []string
	LineIDs         []string
	ExchangeEntryID string
	CreatedAt       time.Time
}
