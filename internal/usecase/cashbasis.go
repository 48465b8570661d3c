package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
)

// cashBasisContext carries everything the cash-basis generator needs that
// must be captured before the matching pass creates new partials.
type cashBasisContext struct {
	entriesByID  map[string]*domain.Entry
	lineToEntry  map[string]string
	accountsByID map[string]*domain.Account
	taxesByID    map[string]*domain.Tax
	partials     []*domain.PartialReconcile
	pctBefore    map[string]decimal.Decimal
}

// loadCashBasisContext loads the entries behind the seed lines together with
// their accounts, taxes and pre-existing partials, and snapshots each entry's
// settlement percentage.
func (uc *ReconcileUseCase) loadCashBasisContext(
	ctx context.Context,
	tx Transaction,
	seed []*domain.Line,
) (*cashBasisContext, error) {
	entryIDs := make([]string, 0, len(seed))
	seen := map[string]bool{}
	for _, line := range seed {
		if !seen[line.EntryID] {
			seen[line.EntryID] = true
			entryIDs = append(entryIDs, line.EntryID)
		}
	}
	entryIDs = uniqueSorted(entryIDs)

	entries, err := uc.entryRepo.GetByIDsForUpdate(ctx, tx, entryIDs)
	if err != nil {
		return nil, err
	}

	cbc := &cashBasisContext{
		entriesByID:  make(map[string]*domain.Entry, len(entries)),
		lineToEntry:  map[string]string{},
		accountsByID: map[string]*domain.Account{},
		taxesByID:    map[string]*domain.Tax{},
		pctBefore:    map[string]decimal.Decimal{},
	}

	var accountIDs, taxIDs, recPayLineIDs []string
	accountSeen, taxSeen := map[string]bool{}, map[string]bool{}
	for _, entry := range entries {
		cbc.entriesByID[entry.ID] = entry
		for _, line := range entry.Lines {
			cbc.lineToEntry[line.ID] = entry.ID

			if !accountSeen[line.AccountID] {
				accountSeen[line.AccountID] = true
				accountIDs = append(accountIDs, line.AccountID)
			}

			for _, id := range line.TaxIDs {
				if !taxSeen[id] {
					taxSeen[id] = true
					taxIDs = append(taxIDs, id)
				}
			}
			if line.TaxLineID != "" && !taxSeen[line.TaxLineID] {
				taxSeen[line.TaxLineID] = true
				taxIDs = append(taxIDs, line.TaxLineID)
			}
		}
	}

	accounts, err := uc.accountRepo.GetByIDs(ctx, accountIDs)
	if err != nil {
		return nil, err
	}
	for _, account := range accounts {
		cbc.accountsByID[account.ID] = account
	}

	if len(taxIDs) > 0 {
		taxes, err := uc.taxRepo.GetByIDs(ctx, taxIDs)
		if err != nil {
			return nil, err
		}
		for _, tax := range taxes {
			cbc.taxesByID[tax.ID] = tax
		}
	}

	for _, entry := range entries {
		for _, line := range entry.Lines {
			if account := cbc.accountsByID[line.AccountID]; account != nil && account.Type.CashBasis() {
				recPayLineIDs = append(recPayLineIDs, line.ID)
			}
		}
	}

	if len(recPayLineIDs) > 0 {
		partials, err := uc.reconRepo.GetPartialsByLineIDs(ctx, tx, uniqueSorted(recPayLineIDs))
		if err != nil {
			return nil, err
		}
		cbc.partials = partials
	}

	for _, entry := range entries {
		cbc.pctBefore[entry.ID] = matchedPercentage(entry, cbc.accountsByID, cbc.partials)
	}

	return cbc, nil
}

// matchedPercentage computes how much of an entry's receivable/payable total
// has been settled. When those lines share one foreign currency the ratio is
// taken over foreign amounts; a partial lacking that currency falls back to
// the percentage stored on the entry.
func matchedPercentage(entry *domain.Entry, accountsByID map[string]*domain.Account, partials []*domain.PartialReconcile) decimal.Decimal {
	var recPay []*domain.Line
	for _, line := range entry.Lines {
		if account := accountsByID[line.AccountID]; account != nil && account.Type.CashBasis() {
			recPay = append(recPay, line)
		}
	}

	if len(recPay) == 0 {
		return decimal.NewFromInt(1)
	}

	sharedCurrency := recPay[0].CurrencyID
	for _, line := range recPay {
		if line.CurrencyID != sharedCurrency || line.AmountCurrency.IsZero() {
			sharedCurrency = ""
			break
		}
	}

	totalAmount := decimal.Zero
	totalReconciled := decimal.Zero
	for _, line := range recPay {
		if sharedCurrency != "" {
			totalAmount = totalAmount.Add(line.AmountCurrency.Abs())
		} else {
			totalAmount = totalAmount.Add(line.Balance().Abs())
		}

		for _, p := range partials {
			if !p.Touches(line.ID) {
				continue
			}

			if sharedCurrency != "" {
				if p.CurrencyID != sharedCurrency {
					return entry.MatchedPercentage
				}
				totalReconciled = totalReconciled.Add(p.AmountCurrency.Abs())
			} else {
				totalReconciled = totalReconciled.Add(p.Amount)
			}
		}
	}

	if totalAmount.IsZero() {
		return decimal.NewFromInt(1)
	}

	return totalReconciled.Div(totalAmount)
}

// createCashBasisEntries recognizes the deferred taxes of every entry touched
// by the new partials, proportionally to how much the settlement percentage
// moved. One generated entry per source entry, posted immediately.
func (uc *ReconcileUseCase) createCashBasisEntries(
	ctx context.Context,
	tx Transaction,
	newPartials []*domain.PartialReconcile,
	cbc *cashBasisContext,
	company *domain.Company,
	functional *domain.Currency,
) ([]*domain.Entry, error) {
	allPartials := append(append([]*domain.PartialReconcile{}, cbc.partials...), newPartials...)

	var generated []*domain.Entry
	processed := map[string]bool{}

	for _, p := range newPartials {
		for _, lineID := range []string{p.DebitLineID, p.CreditLineID} {
			entryID, ok := cbc.lineToEntry[lineID]
			if !ok || processed[entryID] {
				continue
			}
			processed[entryID] = true

			entry := cbc.entriesByID[entryID]
			pctBefore := cbc.pctBefore[entryID]
			pctAfter := matchedPercentage(entry, cbc.accountsByID, allPartials)

			created, err := uc.createCashBasisEntry(ctx, tx, entry, p, pctBefore, pctAfter, cbc, company, functional)
			if err != nil {
				return nil, err
			}

			if err := uc.entryRepo.UpdateMatchedPercentage(ctx, tx, entry.ID, pctAfter); err != nil {
				return nil, err
			}
			entry.MatchedPercentage = pctAfter

			if created != nil {
				generated = append(generated, created)
			}
		}
	}

	return generated, nil
}

// createCashBasisEntry builds the recognition entry for one source entry: the
// newly settled share of each deferred tax line moves to the tax's cash-basis
// account, base lines mirror on the base account for reporting. Returns nil
// when every delta rounds to zero.
func (uc *ReconcileUseCase) createCashBasisEntry(
	ctx context.Context,
	tx Transaction,
	source *domain.Entry,
	partial *domain.PartialReconcile,
	pctBefore, pctAfter decimal.Decimal,
	cbc *cashBasisContext,
	company *domain.Company,
	functional *domain.Currency,
) (*domain.Entry, error) {
	var inputs []LineInput

	for _, line := range source.Lines {
		if line.TaxExigible {
			continue
		}

		// Newly settled share of the line, in the functional currency.
		amount := line.Balance().Mul(pctAfter).Sub(line.Balance().Mul(pctBefore))
		rounded := functional.Round(amount)
		if rounded.IsZero() {
			continue
		}

		var amountCurrency decimal.Decimal
		if line.CurrencyID != "" {
			amountCurrency = line.AmountCurrency.Mul(pctAfter.Sub(pctBefore))
		}

		if line.TaxLineID != "" {
			tax := cbc.taxesByID[line.TaxLineID]
			if tax == nil || !tax.CashBasisTax() {
				continue
			}

			inputs = append(inputs,
				cashBasisLine(line.AccountID, line.Name, rounded.Neg(), amountCurrency.Neg(), line.CurrencyID, nil, line.TaxLineID),
				cashBasisLine(tax.CashBasisAccountID, line.Name, rounded, amountCurrency, line.CurrencyID, nil, line.TaxLineID),
			)
			continue
		}

		tax := firstCashBasisTax(line.TaxIDs, cbc.taxesByID)
		if tax == nil || tax.CashBasisBaseAccountID == "" {
			continue
		}

		inputs = append(inputs,
			cashBasisLine(tax.CashBasisBaseAccountID, line.Name, rounded.Neg(), amountCurrency.Neg(), line.CurrencyID, line.TaxIDs, ""),
			cashBasisLine(tax.CashBasisBaseAccountID, line.Name, rounded, amountCurrency, line.CurrencyID, line.TaxIDs, ""),
		)
	}

	if len(inputs) == 0 {
		return nil, nil
	}

	if company.CashBasisJournalID == "" {
		return nil, domain.ErrMissingCashBasisJournal
	}

	entry, err := uc.entries.createWithinTx(ctx, tx, CreateEntryInput{
		JournalID:         company.CashBasisJournalID,
		Ref:               fmt.Sprintf("cash basis of %s", source.Name),
		Date:              company.ClampToLockDate(partial.MaxDate),
		TaxCashBasisRecID: partial.ID,
		Lines:             inputs,
	}, true)
	if err != nil {
		return nil, err
	}

	if err := uc.entries.postWithinTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.emitGeneratorEvent(ctx, tx, entry, domain.GeneratorKindCashBasis); err != nil {
		return nil, err
	}

	return entry, nil
}

// cashBasisLine maps a signed balance onto a debit-or-credit line input with
// tax recognition already settled.
func cashBasisLine(accountID, name string, balance, amountCurrency decimal.Decimal, currencyID string, taxIDs []string, taxLineID string) LineInput {
	in := LineInput{
		AccountID:   accountID,
		Name:        name,
		TaxIDs:      taxIDs,
		TaxLineID:   taxLineID,
		TaxExigible: boolPtr(true),
	}

	if balance.IsNegative() {
		in.Credit = balance.Neg()
	} else {
		in.Debit = balance
	}

	if currencyID != "" && !amountCurrency.IsZero() {
		in.CurrencyID = currencyID
		in.AmountCurrency = amountCurrency
	}

	return in
}

func firstCashBasisTax(ids []string, taxesByID map[string]*domain.Tax) *domain.Tax {
	for _, id := range ids {
		if tax := taxesByID[id]; tax != nil && tax.CashBasisTax() {
			return tax
		}
	}

	return nil
}
