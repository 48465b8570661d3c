package usecase_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

func flatTolerance(string) decimal.Decimal {
	return decimal.New(1, -5)
}

func openLine(id, debit, credit, currencyID, amountCurrency string, maturity time.Time) *domain.Line {
	line := &domain.Line{
		ID:           id,
		AccountID:    "acc-rec",
		Debit:        dec(debit),
		Credit:       dec(credit),
		CurrencyID:   currencyID,
		Date:         day(2024, time.January, 10),
		DateMaturity: maturity,
		CompanyID:    "co-1",
	}
	if amountCurrency != "" {
		line.AmountCurrency = dec(amountCurrency)
	}
	line.InitResiduals()
	return line
}

func TestMatchLines_EqualPair(t *testing.T) {
	account := &domain.Account{ID: "acc-rec", Type: domain.AccountTypeReceivable, Reconcile: true}
	d := openLine("l-d", "100", "", "", "", time.Time{})
	c := openLine("l-c", "", "100", "", "", time.Time{})

	res, err := usecase.MatchLines([]*domain.Line{d, c}, account, "USD", flatTolerance)
	require.NoError(t, err)

	require.Len(t, res.Partials, 1)
	assert.Equal(t, "l-d", res.Partials[0].DebitLine.ID)
	assert.Equal(t, "l-c", res.Partials[0].CreditLine.ID)
	assert.True(t, res.Partials[0].Amount.Equal(dec("100")))
	assert.Empty(t, res.Leftover)

	assert.True(t, d.AmountResidual.IsZero())
	assert.True(t, c.AmountResidual.IsZero())
	assert.True(t, d.Reconciled)
	assert.True(t, c.Reconciled)
}

func TestMatchLines_ConsumesCreditsByMaturity(t *testing.T) {
	account := &domain.Account{ID: "acc-rec", Type: domain.AccountTypeReceivable, Reconcile: true}
	d := openLine("l-d", "150", "", "", "", time.Time{})
	late := openLine("l-late", "", "90", "", "", day(2024, time.March, 31))
	early := openLine("l-early", "", "60", "", "", day(2024, time.February, 28))

	res, err := usecase.MatchLines([]*domain.Line{d, late, early}, account, "USD", flatTolerance)
	require.NoError(t, err)

	require.Len(t, res.Partials, 2)
	assert.Equal(t, "l-early", res.Partials[0].CreditLine.ID)
	assert.True(t, res.Partials[0].Amount.Equal(dec("60")))
	assert.Equal(t, "l-late", res.Partials[1].CreditLine.ID)
	assert.True(t, res.Partials[1].Amount.Equal(dec("90")))

	assert.Empty(t, res.Leftover)
	assert.True(t, d.Reconciled)
}

func TestMatchLines_LeftoverStaysOpen(t *testing.T) {
	account := &domain.Account{ID: "acc-rec", Type: domain.AccountTypeReceivable, Reconcile: true}
	d := openLine("l-d", "150", "", "", "", time.Time{})
	c := openLine("l-c", "", "100", "", "", time.Time{})

	res, err := usecase.MatchLines([]*domain.Line{d, c}, account, "USD", flatTolerance)
	require.NoError(t, err)

	require.Len(t, res.Partials, 1)
	assert.True(t, res.Partials[0].Amount.Equal(dec("100")))

	require.Len(t, res.Leftover, 1)
	assert.Equal(t, "l-d", res.Leftover[0].ID)
	assert.True(t, d.AmountResidual.Equal(dec("50")))
	assert.False(t, d.Reconciled)
	assert.True(t, c.Reconciled)
}

func TestMatchLines_SharedForeignCurrency(t *testing.T) {
	account := &domain.Account{ID: "acc-rec", Type: domain.AccountTypeReceivable, Reconcile: true}
	d := openLine("l-d", "100", "", "EUR", "80", time.Time{})
	c := openLine("l-c", "", "90", "EUR", "-80", time.Time{})

	res, err := usecase.MatchLines([]*domain.Line{d, c}, account, "USD", flatTolerance)
	require.NoError(t, err)

	assert.Equal(t, usecase.MatchFieldResidualCurrency, res.Field)
	assert.Equal(t, "EUR", res.CurrencyID)

	require.Len(t, res.Partials, 1)
	assert.True(t, res.Partials[0].Amount.Equal(dec("90")))
	assert.True(t, res.Partials[0].AmountCurrency.Equal(dec("80")))
	assert.Equal(t, "EUR", res.Partials[0].CurrencyID)

	// both sides consumed on the foreign field, functional difference remains
	assert.True(t, d.AmountResidualCurrency.IsZero())
	assert.True(t, c.AmountResidualCurrency.IsZero())
	assert.True(t, d.AmountResidual.Equal(dec("10")))
	assert.True(t, c.AmountResidual.IsZero())
}

func TestMatchLines_MixedCurrenciesFallBackToFunctional(t *testing.T) {
	account := &domain.Account{ID: "acc-rec", Type: domain.AccountTypeReceivable, Reconcile: true}
	d := openLine("l-d", "100", "", "EUR", "80", time.Time{})
	c := openLine("l-c", "", "100", "", "", time.Time{})

	res, err := usecase.MatchLines([]*domain.Line{d, c}, account, "USD", flatTolerance)
	require.NoError(t, err)

	assert.Equal(t, usecase.MatchFieldResidual, res.Field)

	require.Len(t, res.Partials, 1)
	assert.True(t, res.Partials[0].Amount.Equal(dec("100")))
	assert.True(t, res.Partials[0].AmountCurrency.IsZero())
	assert.Empty(t, res.Partials[0].CurrencyID)
}

func TestMatchLines_ForcedAccountCurrencyConflict(t *testing.T) {
	account := &domain.Account{ID: "acc-fx", Type: domain.AccountTypeReceivable, Reconcile: true, CurrencyID: "EUR"}
	d := openLine("l-d", "100", "", "GBP", "70", time.Time{})
	c := openLine("l-c", "", "100", "EUR", "-80", time.Time{})

	_, err := usecase.MatchLines([]*domain.Line{d, c}, account, "USD", flatTolerance)
	require.ErrorIs(t, err, domain.ErrIncompatibleCurrencySet)
}

func TestMatchLines_IgnoresSettledLines(t *testing.T) {
	account := &domain.Account{ID: "acc-rec", Type: domain.AccountTypeReceivable, Reconcile: true}
	settled := openLine("l-s", "100", "", "", "", time.Time{})
	settled.AmountResidual = decimal.Zero
	settled.Reconciled = true

	res, err := usecase.MatchLines([]*domain.Line{settled}, account, "USD", flatTolerance)
	require.NoError(t, err)
	assert.Empty(t, res.Partials)
	assert.Empty(t, res.Leftover)
}
