package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryState is the journal entry state machine: draft -> posted, and back to
// draft only when the journal allows reopening.
type EntryState string

const (
	EntryStateDraft  EntryState = "draft"
	EntryStatePosted EntryState = "posted"
)

// Entry is a balanced group of Lines forming one transaction. The human
// identifier Name stays empty until the first post assigns it from the
// journal's sequence.
type Entry struct {
	ID        string
	Name      string
	Ref       string
	Date      time.Time
	JournalID string
	CompanyID string
	State     EntryState
	Lines     []*Line

	// MatchedPercentage stores the composite settlement percentage used as
	// fallback by cash-basis recognition when line currencies diverge.
	MatchedPercentage decimal.Decimal

	// TaxCashBasisRecID ties a generated cash-basis entry back to the partial
	// reconciliation that produced it, for idempotent re-derivation.
	TaxCashBasisRecID string

	ReversalOfID    string
	ReversalEntryID string
	AutoReverse     bool
	ReverseDate     time.Time

	CreatedAt time.Time
	PostedAt  time.Time
}

// Totals returns the summed debit and credit over all lines.
func (e *Entry) Totals() (debit, credit decimal.Decimal) {
	for _, line := range e.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}

	return debit, credit
}

// AssertBalanced checks the entry-level invariant within the given tolerance.
func (e *Entry) AssertBalanced(tolerance decimal.Decimal) error {
	debit, credit := e.Totals()
	if debit.Sub(credit).Abs().GreaterThan(tolerance) {
		return ErrUnbalancedEntry
	}

	return nil
}

// LineByID finds a line of this entry.
func (e *Entry) LineByID(id string) *Line {
	for _, line := range e.Lines {
		if line.ID == id {
			return line
		}
	}

	return nil
}

// ReversedLines builds unsaved copies of the entry's lines with debit and
// credit swapped and the foreign amount negated.
func (e *Entry) ReversedLines() []*Line {
	reversed := make([]*Line, 0, len(e.Lines))
	for _, line := range e.Lines {
		reversed = append(reversed, &Line{
			AccountID:      line.AccountID,
			Name:           line.Name,
			Debit:          line.Credit,
			Credit:         line.Debit,
			AmountCurrency: line.AmountCurrency.Neg(),
			CurrencyID:     line.CurrencyID,
			TaxIDs:         append([]string(nil), line.TaxIDs...),
			TaxLineID:      line.TaxLineID,
			TaxExigible:    line.TaxExigible,
			DateMaturity:   line.DateMaturity,
			PartnerID:      line.PartnerID,
			CompanyID:      line.CompanyID,
		})
	}

	return reversed
}

// HasReconciledLines reports whether any line carries a reconciliation link.
func (e *Entry) HasReconciledLines(partialsByLine map[string]int) bool {
	for _, line := range e.Lines {
		if partialsByLine[line.ID] > 0 {
			return true
		}
	}

	return false
}
