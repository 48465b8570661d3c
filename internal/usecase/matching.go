package usecase

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
)

// MatchField selects which residual the matching engine consumes.
type MatchField int

const (
	// MatchFieldResidual matches on the functional-currency residual.
	MatchFieldResidual MatchField = iota
	// MatchFieldResidualCurrency matches on the foreign-currency residual.
	MatchFieldResidualCurrency
)

// PartialSpec describes one partial reconciliation produced by the matching
// engine but not yet persisted. Amount is always functional; AmountCurrency
// is set only when both lines correlate in one foreign currency.
type PartialSpec struct {
	DebitLine  *domain.Line
	CreditLine *domain.Line

	Amount         decimal.Decimal
	AmountCurrency decimal.Decimal
	CurrencyID     string

	MaxDate time.Time
}

// MatchResult is the outcome of one engine run. Residuals on the input lines
// have been reduced in place; Leftover holds the lines still open.
type MatchResult struct {
	Field      MatchField
	CurrencyID string
	Partials   []PartialSpec
	Leftover   []*domain.Line
}

// ToleranceFunc returns the rounding tolerance for a currency; the empty
// string keys the functional currency.
type ToleranceFunc func(currencyID string) decimal.Decimal

// MatchLines runs the greedy two-pointer matching over open lines sharing one
// account. The engine is stateless: it only mutates the residual fields of
// the lines it was handed, the caller persists.
func MatchLines(lines []*domain.Line, account *domain.Account, companyCurrencyID string, tol ToleranceFunc) (*MatchResult, error) {
	open := make([]*domain.Line, 0, len(lines))
	for _, line := range lines {
		if line.HasOpenResidual() {
			open = append(open, line)
		}
	}

	if len(open) == 0 {
		return &MatchResult{}, nil
	}

	field, matchCurrency, err := selectMatchField(open, account, companyCurrencyID)
	if err != nil {
		return nil, err
	}

	residualOn := func(l *domain.Line) decimal.Decimal {
		if field == MatchFieldResidualCurrency {
			return l.AmountResidualCurrency
		}
		return l.AmountResidual
	}

	toleranceOn := func(l *domain.Line) decimal.Decimal {
		if field == MatchFieldResidualCurrency {
			return tol(l.CurrencyID)
		}
		return tol("")
	}

	var debits, credits []*domain.Line
	for _, line := range open {
		switch {
		case residualOn(line).IsPositive():
			debits = append(debits, line)
		case residualOn(line).IsNegative():
			credits = append(credits, line)
		}
	}

	sortQueue(debits)
	sortQueue(credits)

	// Index-based iteration over the sorted arenas: the head stays in place
	// with an updated residual until fully consumed on the matching field.
	result := &MatchResult{Field: field, CurrencyID: matchCurrency}

	di, ci := 0, 0
	for di < len(debits) && ci < len(credits) {
		d, c := debits[di], credits[ci]

		tmpResidual := decimal.Min(d.AmountResidual, c.AmountResidual.Neg())
		tmpResidualCurrency := decimal.Min(d.AmountResidualCurrency, c.AmountResidualCurrency.Neg())

		spec := PartialSpec{
			DebitLine:  d,
			CreditLine: c,
			Amount:     tmpResidual,
			MaxDate:    laterDate(d.Date, c.Date),
		}

		switch {
		case field == MatchFieldResidualCurrency:
			spec.AmountCurrency = tmpResidualCurrency
			spec.CurrencyID = matchCurrency
		case d.CurrencyID != "" && d.CurrencyID == c.CurrencyID:
			spec.AmountCurrency = tmpResidualCurrency
			spec.CurrencyID = d.CurrencyID
		}

		d.AmountResidual = d.AmountResidual.Sub(tmpResidual)
		d.AmountResidualCurrency = d.AmountResidualCurrency.Sub(tmpResidualCurrency)
		c.AmountResidual = c.AmountResidual.Add(tmpResidual)
		c.AmountResidualCurrency = c.AmountResidualCurrency.Add(tmpResidualCurrency)

		if residualOn(d).Abs().LessThanOrEqual(toleranceOn(d)) {
			settleOnField(d, field)
			di++
		}

		if residualOn(c).Abs().LessThanOrEqual(toleranceOn(c)) {
			settleOnField(c, field)
			ci++
		}

		result.Partials = append(result.Partials, spec)
	}

	result.Leftover = append(result.Leftover, debits[di:]...)
	result.Leftover = append(result.Leftover, credits[ci:]...)

	return result, nil
}

// selectMatchField picks the residual the queues are consumed on: the
// foreign-currency residual when the account forces a secondary currency and
// every candidate line carries a value in it, or when all lines share one
// foreign currency; the functional residual otherwise.
func selectMatchField(lines []*domain.Line, account *domain.Account, companyCurrencyID string) (MatchField, string, error) {
	if account.CurrencyID != "" && account.CurrencyID != companyCurrencyID {
		allCarry := true
		for _, line := range lines {
			if line.CurrencyID != "" && line.CurrencyID != account.CurrencyID {
				return 0, "", domain.ErrIncompatibleCurrencySet
			}
			if line.CurrencyID == "" || line.AmountCurrency.IsZero() {
				allCarry = false
			}
		}

		if allCarry {
			return MatchFieldResidualCurrency, account.CurrencyID, nil
		}

		return MatchFieldResidual, "", nil
	}

	shared := lines[0].CurrencyID
	if shared != "" && shared != companyCurrencyID {
		for _, line := range lines {
			if line.CurrencyID != shared || line.AmountCurrency.IsZero() {
				return MatchFieldResidual, "", nil
			}
		}

		return MatchFieldResidualCurrency, shared, nil
	}

	return MatchFieldResidual, "", nil
}

// sortQueue orders a matching queue by maturity date ascending, tie-broken by
// currency then line ID for determinism.
func sortQueue(queue []*domain.Line) {
	sort.SliceStable(queue, func(i, j int) bool {
		a, b := queue[i], queue[j]
		if !a.MaturityOrDate().Equal(b.MaturityOrDate()) {
			return a.MaturityOrDate().Before(b.MaturityOrDate())
		}
		if a.CurrencyID != b.CurrencyID {
			return a.CurrencyID < b.CurrencyID
		}
		return a.ID < b.ID
	})
}

// settleOnField snaps a consumed residual to exactly zero and recomputes the
// line's settlement flag.
func settleOnField(line *domain.Line, field MatchField) {
	if field == MatchFieldResidualCurrency {
		line.AmountResidualCurrency = decimal.Zero
	} else {
		line.AmountResidual = decimal.Zero
	}

	line.Reconciled = line.AmountResidual.IsZero() &&
		(line.CurrencyID == "" || line.AmountResidualCurrency.IsZero())
}

func laterDate(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
