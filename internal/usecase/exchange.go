package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
)

// createExchangeEntry books the rate difference left on lines whose foreign
// residual reached zero while a functional residual remains. Each such line
// gets a fix line cancelling the remainder on its own account, with the
// counterpart on the gain or loss account, and is immediately matched against
// its fix line so the cluster can close.
func (uc *ReconcileUseCase) createExchangeEntry(
	ctx context.Context,
	tx Transaction,
	candidates []*domain.Line,
	company *domain.Company,
) (*domain.Entry, []*domain.PartialReconcile, error) {
	if company.ExchangeJournalID == "" || company.GainAccountID == "" || company.LossAccountID == "" {
		return nil, nil, domain.ErrMissingExchangeSetup
	}

	var maxDate time.Time
	inputs := make([]LineInput, 0, 2*len(candidates))
	for _, line := range candidates {
		residual := line.AmountResidual
		maxDate = laterDate(maxDate, line.Date)

		// A positive leftover is credited away, so the counterpart is a loss.
		diffAccountID := company.LossAccountID
		if residual.IsNegative() {
			diffAccountID = company.GainAccountID
		}

		inputs = append(inputs,
			LineInput{
				AccountID:  line.AccountID,
				Name:       "currency exchange rate difference",
				Debit:      decimal.Max(residual.Neg(), decimal.Zero),
				Credit:     decimal.Max(residual, decimal.Zero),
				CurrencyID: line.CurrencyID,
				PartnerID:  line.PartnerID,
			},
			LineInput{
				AccountID: diffAccountID,
				Name:      "currency exchange rate difference",
				Debit:     decimal.Max(residual, decimal.Zero),
				Credit:    decimal.Max(residual.Neg(), decimal.Zero),
				PartnerID: line.PartnerID,
			},
		)
	}

	entry, err := uc.entries.createWithinTx(ctx, tx, CreateEntryInput{
		JournalID: company.ExchangeJournalID,
		Ref:       "exchange difference",
		Date:      company.ClampToLockDate(maxDate),
		Lines:     inputs,
	}, true)
	if err != nil {
		return nil, nil, err
	}

	if err := uc.entries.postWithinTx(ctx, tx, entry); err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()

	var partials []*domain.PartialReconcile
	for i, line := range candidates {
		fix := entry.Lines[2*i]
		residual := line.AmountResidual

		partial := &domain.PartialReconcile{
			ID:         uc.idGen.Generate(),
			CurrencyID: line.CurrencyID,
			Amount:     residual.Abs(),
			MaxDate:    laterDate(line.Date, entry.Date),
			CreatedAt:  now,
		}

		if residual.IsPositive() {
			partial.DebitLineID = line.ID
			partial.CreditLineID = fix.ID
		} else {
			partial.DebitLineID = fix.ID
			partial.CreditLineID = line.ID
		}

		if err := partial.Validate(); err != nil {
			return nil, nil, err
		}

		if err := uc.reconRepo.CreatePartial(ctx, tx, partial); err != nil {
			return nil, nil, err
		}

		partials = append(partials, partial)

		for _, l := range []*domain.Line{line, fix} {
			l.AmountResidual = decimal.Zero
			l.AmountResidualCurrency = decimal.Zero
			l.Reconciled = true

			if err := uc.lineRepo.UpdateResiduals(ctx, tx, l); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := uc.emitGeneratorEvent(ctx, tx, entry, domain.GeneratorKindExchange); err != nil {
		return nil, nil, err
	}

	return entry, partials, nil
}
