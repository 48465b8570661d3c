package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Line is a single debit-or-credit record owned by exactly one Entry.
//
// AmountResidual tracks the unsettled portion of the balance in the
// functional currency, AmountResidualCurrency the same in the line's foreign
// currency. Both start at the full amount and are monotonically reduced in
// absolute value by matching.
type Line struct {
	ID        string
	EntryID   string
	AccountID string
	Name      string

	Debit  decimal.Decimal
	Credit decimal.Decimal

	AmountCurrency decimal.Decimal
	CurrencyID     string

	AmountResidual         decimal.Decimal
	AmountResidualCurrency decimal.Decimal
	Reconciled             bool
	FullReconcileID        string

	TaxIDs      []string
	TaxLineID   string
	TaxExigible bool

	Date         time.Time
	DateMaturity time.Time
	PartnerID    string
	CompanyID    string

	CreatedAt time.Time
}

// Balance is debit minus credit in the functional currency.
func (l *Line) Balance() decimal.Decimal {
	return l.Debit.Sub(l.Credit)
}

// Validate enforces the line-level invariants: non-negative sides, debit and
// credit mutually exclusive, and foreign-amount consistency.
func (l *Line) Validate() error {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return ErrNegativeAmount
	}

	if l.Debit.IsPositive() && l.Credit.IsPositive() {
		return ErrDebitCreditExclusive
	}

	if !l.AmountCurrency.IsZero() && l.CurrencyID == "" {
		return ErrCurrencyWithoutAmount
	}

	if (l.AmountCurrency.IsPositive() && l.Credit.IsPositive()) ||
		(l.AmountCurrency.IsNegative() && l.Debit.IsPositive()) {
		return ErrCurrencySignMismatch
	}

	return nil
}

// InitResiduals seeds the residual fields from the line amounts.
func (l *Line) InitResiduals() {
	l.AmountResidual = l.Balance()
	l.AmountResidualCurrency = l.AmountCurrency
	l.Reconciled = false
}

// MaturityOrDate is the ordering key of the matching queues.
func (l *Line) MaturityOrDate() time.Time {
	if !l.DateMaturity.IsZero() {
		return l.DateMaturity
	}
	return l.Date
}

// HasOpenResidual reports whether anything remains to match on the line.
func (l *Line) HasOpenResidual() bool {
	return !l.AmountResidual.IsZero() || !l.AmountResidualCurrency.IsZero()
}
