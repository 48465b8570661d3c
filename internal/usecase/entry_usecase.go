package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/infrastructure/metrics"
)

// EntryUseCase handles the journal entry lifecycle: create, post, reverse,
// reopen and delete.
type EntryUseCase struct {
	txManager    TransactionManager
	entryRepo    EntryRepository
	lineRepo     LineRepository
	reconRepo    ReconcileRepository
	accountRepo  AccountRepository
	journalRepo  JournalRepository
	companyRepo  CompanyRepository
	currencyRepo CurrencyRepository
	taxRepo      TaxRepository
	sequences    SequenceService
	converter    CurrencyConverter
	outboxRepo   OutboxRepository
	idGen        IDGenerator
	metrics      *metrics.Metrics
}

// NewEntryUseCase creates a new EntryUseCase.
func NewEntryUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	lineRepo LineRepository,
	reconRepo ReconcileRepository,
	accountRepo AccountRepository,
	journalRepo JournalRepository,
	companyRepo CompanyRepository,
	currencyRepo CurrencyRepository,
	taxRepo TaxRepository,
	sequences SequenceService,
	converter CurrencyConverter,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	m *metrics.Metrics,
) *EntryUseCase {
	return &EntryUseCase{
		txManager:    txManager,
		entryRepo:    entryRepo,
		lineRepo:     lineRepo,
		reconRepo:    reconRepo,
		accountRepo:  accountRepo,
		journalRepo:  journalRepo,
		companyRepo:  companyRepo,
		currencyRepo: currencyRepo,
		taxRepo:      taxRepo,
		sequences:    sequences,
		converter:    converter,
		outboxRepo:   outboxRepo,
		idGen:        idGen,
		metrics:      m,
	}
}

// LineInput represents one line of an entry to create.
type LineInput struct {
	AccountID      string
	Name           string
	Debit          decimal.Decimal
	Credit         decimal.Decimal
	AmountCurrency decimal.Decimal
	CurrencyID     string
	TaxIDs         []string
	TaxLineID      string
	TaxExigible    *bool
	DateMaturity   time.Time
	PartnerID      string
}

// CreateEntryInput represents input for creating a draft entry.
type CreateEntryInput struct {
	JournalID   string
	Ref         string
	Date        time.Time
	AutoReverse bool
	ReverseDate time.Time
	Lines       []LineInput

	// TaxCashBasisRecID links a generated cash-basis entry back to the partial
	// reconciliation it was derived from. Empty for ordinary entries.
	TaxCashBasisRecID string
}

// CreateEntry creates a draft entry after validating every line against its
// account, the journal control lists and the balance invariant.
func (uc *EntryUseCase) CreateEntry(ctx context.Context, input CreateEntryInput) (*domain.Entry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	entry, err := uc.createWithinTx(ctx, tx, input, false)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesCreated.Inc()
	}

	return entry, nil
}

// createWithinTx builds and persists a draft entry inside the caller's
// transaction. skipBalance is used by generated entries that balance by
// construction after per-line currency rounding.
func (uc *EntryUseCase) createWithinTx(ctx context.Context, tx Transaction, input CreateEntryInput, skipBalance bool) (*domain.Entry, error) {
	journal, err := uc.journalRepo.GetByID(ctx, input.JournalID)
	if err != nil {
		return nil, err
	}

	company, err := uc.companyRepo.GetByID(ctx, journal.CompanyID)
	if err != nil {
		return nil, err
	}

	functional, err := uc.currencyRepo.GetByID(ctx, company.CurrencyID)
	if err != nil {
		return nil, err
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	now := time.Now().UTC()

	entry := &domain.Entry{
		ID:                uc.idGen.Generate(),
		Ref:               input.Ref,
		Date:              date,
		JournalID:         journal.ID,
		CompanyID:         company.ID,
		State:             domain.EntryStateDraft,
		AutoReverse:       input.AutoReverse,
		ReverseDate:       input.ReverseDate,
		TaxCashBasisRecID: input.TaxCashBasisRecID,
		CreatedAt:         now,
	}

	lines, err := uc.buildLines(ctx, entry, journal, company, input.Lines, now)
	if err != nil {
		return nil, err
	}
	entry.Lines = lines

	if !skipBalance {
		if err := entry.AssertBalanced(functional.Tolerance()); err != nil {
			return nil, err
		}
	}

	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// buildLines validates the line inputs and materializes domain lines: account
// checks, journal control lists, forced account currency fill-in and the
// cash-basis default for tax exigibility.
func (uc *EntryUseCase) buildLines(
	ctx context.Context,
	entry *domain.Entry,
	journal *domain.Journal,
	company *domain.Company,
	inputs []LineInput,
	now time.Time,
) ([]*domain.Line, error) {
	cashBasisTaxes, err := uc.cashBasisTaxSet(ctx, inputs)
	if err != nil {
		return nil, err
	}

	lines := make([]*domain.Line, 0, len(inputs))
	for _, in := range inputs {
		account, err := uc.accountRepo.GetByID(ctx, in.AccountID)
		if err != nil {
			return nil, err
		}

		if account.Deprecated {
			return nil, domain.ErrDeprecatedAccount
		}

		if account.CompanyID != company.ID {
			return nil, domain.ErrMixedCompanies
		}

		if !journal.AccountAllowed(account) {
			return nil, domain.ErrJournalAccountNotAllowed
		}

		line := &domain.Line{
			ID:             uc.idGen.Generate(),
			EntryID:        entry.ID,
			AccountID:      account.ID,
			Name:           in.Name,
			Debit:          in.Debit,
			Credit:         in.Credit,
			AmountCurrency: in.AmountCurrency,
			CurrencyID:     in.CurrencyID,
			TaxIDs:         append([]string(nil), in.TaxIDs...),
			TaxLineID:      in.TaxLineID,
			Date:           entry.Date,
			DateMaturity:   in.DateMaturity,
			PartnerID:      in.PartnerID,
			CompanyID:      company.ID,
			CreatedAt:      now,
		}

		// An account with a forced secondary currency records every line in
		// that currency; fill in the foreign amount when the caller did not.
		if account.CurrencyID != "" && account.CurrencyID != company.CurrencyID && line.CurrencyID == "" {
			converted, err := uc.converter.Convert(ctx, line.Balance(), company.CurrencyID, account.CurrencyID, company.ID, entry.Date)
			if err != nil {
				return nil, err
			}

			line.CurrencyID = account.CurrencyID
			line.AmountCurrency = converted
		}

		if in.TaxExigible != nil {
			line.TaxExigible = *in.TaxExigible
		} else {
			line.TaxExigible = !lineTouchesCashBasisTax(line, cashBasisTaxes)
		}

		if err := line.Validate(); err != nil {
			return nil, err
		}

		line.InitResiduals()
		lines = append(lines, line)
	}

	return lines, nil
}

// cashBasisTaxSet resolves which of the referenced taxes defer recognition to
// payment time.
func (uc *EntryUseCase) cashBasisTaxSet(ctx context.Context, inputs []LineInput) (map[string]bool, error) {
	seen := make(map[string]bool)

	var ids []string
	for _, in := range inputs {
		for _, id := range in.TaxIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}

		if in.TaxLineID != "" && !seen[in.TaxLineID] {
			seen[in.TaxLineID] = true
			ids = append(ids, in.TaxLineID)
		}
	}

	if len(ids) == 0 {
		return map[string]bool{}, nil
	}

	taxes, err := uc.taxRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	cashBasis := make(map[string]bool, len(taxes))
	for _, tax := range taxes {
		cashBasis[tax.ID] = tax.CashBasisTax()
	}

	return cashBasis, nil
}

func lineTouchesCashBasisTax(line *domain.Line, cashBasis map[string]bool) bool {
	if line.TaxLineID != "" && cashBasis[line.TaxLineID] {
		return true
	}

	for _, id := range line.TaxIDs {
		if cashBasis[id] {
			return true
		}
	}

	return false
}

// PostEntry moves a draft entry to posted, assigning its name from the
// journal sequence on first post.
func (uc *EntryUseCase) PostEntry(ctx context.Context, id string) (*domain.Entry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.postWithinTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesPosted.Inc()
	}

	return entry, nil
}

// postWithinTx runs the posting checks and state change inside the caller's
// transaction. The entry must have been loaded with its lines.
func (uc *EntryUseCase) postWithinTx(ctx context.Context, tx Transaction, entry *domain.Entry) error {
	if entry.State != domain.EntryStateDraft {
		return domain.ErrEntryNotDraft
	}

	if len(entry.Lines) == 0 {
		return domain.ErrEmptyEntry
	}

	journal, err := uc.journalRepo.GetByID(ctx, entry.JournalID)
	if err != nil {
		return err
	}

	company, err := uc.companyRepo.GetByID(ctx, entry.CompanyID)
	if err != nil {
		return err
	}

	functional, err := uc.currencyRepo.GetByID(ctx, company.CurrencyID)
	if err != nil {
		return err
	}

	if err := entry.AssertBalanced(functional.Tolerance()); err != nil {
		return err
	}

	if company.DateLocked(entry.Date) {
		return domain.ErrLockedPeriod
	}

	// The name survives a reopen; only the first post draws from the sequence.
	name := entry.Name
	if name == "" || name == "/" {
		if journal.SequenceCode == "" {
			return domain.ErrMissingSequence
		}

		name, err = uc.sequences.Next(ctx, tx, journal.SequenceCode)
		if err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	if err := uc.entryRepo.UpdatePosted(ctx, tx, entry.ID, name, now); err != nil {
		return err
	}

	entry.Name = name
	entry.State = domain.EntryStatePosted
	entry.PostedAt = now

	lineIDs := make([]string, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		lineIDs = append(lineIDs, line.ID)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   entry.ID,
		AggregateType: domain.AggregateTypeEntry,
		EventType:     domain.EventTypeEntryPosted,
		Payload: map[string]any{
			"entry_id":   entry.ID,
			"name":       entry.Name,
			"journal_id": entry.JournalID,
			"line_ids":   lineIDs,
		},
		CreatedAt: now,
	}

	return uc.outboxRepo.Create(ctx, tx, event)
}

// UpdateEntryInput represents input for updating a draft entry.
type UpdateEntryInput struct {
	Ref   *string
	Date  *time.Time
	Lines []LineInput
}

// UpdateEntry rewrites a draft entry. Posted entries only change through the
// state operations.
func (uc *EntryUseCase) UpdateEntry(ctx context.Context, id string, input UpdateEntryInput) (*domain.Entry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if entry.State != domain.EntryStateDraft {
		return nil, domain.ErrPostedEntryImmutable
	}

	journal, err := uc.journalRepo.GetByID(ctx, entry.JournalID)
	if err != nil {
		return nil, err
	}

	company, err := uc.companyRepo.GetByID(ctx, entry.CompanyID)
	if err != nil {
		return nil, err
	}

	functional, err := uc.currencyRepo.GetByID(ctx, company.CurrencyID)
	if err != nil {
		return nil, err
	}

	if input.Ref != nil {
		entry.Ref = *input.Ref
	}

	if input.Date != nil {
		entry.Date = *input.Date
	}

	if input.Lines != nil {
		lines, err := uc.buildLines(ctx, entry, journal, company, input.Lines, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		entry.Lines = lines
	}

	if err := entry.AssertBalanced(functional.Tolerance()); err != nil {
		return nil, err
	}

	if err := uc.entryRepo.UpdateDraft(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := uc.entryRepo.ReplaceLines(ctx, tx, entry.ID, entry.Lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return entry, nil
}

// UpdateLineMaturity changes the maturity date of a line. Allowed on posted
// entries too: the maturity is a bookkeeping field with no effect on balance
// or residuals, only on matching order.
func (uc *EntryUseCase) UpdateLineMaturity(ctx context.Context, lineID string, maturity time.Time) (*domain.Line, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	lines, err := uc.lineRepo.GetByIDsForUpdate(ctx, tx, []string{lineID})
	if err != nil {
		return nil, err
	}

	if len(lines) == 0 {
		return nil, domain.ErrLineNotFound
	}

	if err := uc.lineRepo.UpdateMaturity(ctx, tx, lineID, maturity); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	line := lines[0]
	line.DateMaturity = maturity

	return line, nil
}

// UnlinkEntry deletes a draft entry. Entries with reconciled lines must be
// unreconciled first; posted entries must be reopened first.
func (uc *EntryUseCase) UnlinkEntry(ctx context.Context, id string) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return err
	}

	if entry.State != domain.EntryStateDraft {
		return domain.ErrPostedEntryImmutable
	}

	lineIDs := make([]string, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		lineIDs = append(lineIDs, line.ID)
	}

	partials, err := uc.reconRepo.GetPartialsByLineIDs(ctx, tx, lineIDs)
	if err != nil {
		return err
	}

	if len(partials) > 0 {
		return domain.ErrLinkedToReconciliation
	}

	if err := uc.entryRepo.Delete(ctx, tx, entry.ID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// CancelEntry moves a posted entry back to draft when the journal allows it.
// The assigned name is kept for the next post.
func (uc *EntryUseCase) CancelEntry(ctx context.Context, id string) (*domain.Entry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if entry.State != domain.EntryStatePosted {
		return nil, domain.ErrEntryNotPosted
	}

	journal, err := uc.journalRepo.GetByID(ctx, entry.JournalID)
	if err != nil {
		return nil, err
	}

	if !journal.UpdatePosted {
		return nil, domain.ErrReopenNotAllowed
	}

	if err := uc.entryRepo.UpdateState(ctx, tx, entry.ID, domain.EntryStateDraft); err != nil {
		return nil, err
	}

	entry.State = domain.EntryStateDraft

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return entry, nil
}

// ReverseEntryInput represents input for reversing a posted entry.
type ReverseEntryInput struct {
	Date      time.Time
	JournalID string
}

// ReverseEntry creates and posts the mirror image of a posted entry: debit
// and credit swapped, foreign amounts negated. Both entries stay linked.
func (uc *EntryUseCase) ReverseEntry(ctx context.Context, id string, input ReverseEntryInput) (*domain.Entry, error) {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	reversal, err := uc.reverseWithinTx(ctx, tx, id, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.EntriesReversed.Inc()
	}

	return reversal, nil
}

func (uc *EntryUseCase) reverseWithinTx(ctx context.Context, tx Transaction, id string, input ReverseEntryInput) (*domain.Entry, error) {
	entry, err := uc.entryRepo.GetByIDForUpdate(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if entry.State != domain.EntryStatePosted {
		return nil, domain.ErrEntryNotPosted
	}

	journalID := input.JournalID
	if journalID == "" {
		journalID = entry.JournalID
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	lineInputs := make([]LineInput, 0, len(entry.Lines))
	for _, line := range entry.ReversedLines() {
		lineInputs = append(lineInputs, LineInput{
			AccountID:      line.AccountID,
			Name:           line.Name,
			Debit:          line.Debit,
			Credit:         line.Credit,
			AmountCurrency: line.AmountCurrency,
			CurrencyID:     line.CurrencyID,
			TaxIDs:         line.TaxIDs,
			TaxLineID:      line.TaxLineID,
			TaxExigible:    boolPtr(line.TaxExigible),
			DateMaturity:   line.DateMaturity,
			PartnerID:      line.PartnerID,
		})
	}

	reversal, err := uc.createWithinTx(ctx, tx, CreateEntryInput{
		JournalID: journalID,
		Ref:       fmt.Sprintf("reversal of: %s", entry.Name),
		Date:      date,
		Lines:     lineInputs,
	}, false)
	if err != nil {
		return nil, err
	}

	reversal.ReversalOfID = entry.ID
	if err := uc.entryRepo.SetReversal(ctx, tx, entry.ID, reversal.ID); err != nil {
		return nil, err
	}
	entry.ReversalEntryID = reversal.ID

	if err := uc.postWithinTx(ctx, tx, reversal); err != nil {
		return nil, err
	}

	return reversal, nil
}

// RunScheduledReversals reverses every auto-reverse entry whose reverse date
// has passed, each in its own transaction.
func (uc *EntryUseCase) RunScheduledReversals(ctx context.Context, asOf time.Time) ([]*domain.Entry, error) {
	due, err := uc.entryRepo.ListDueAutoReversals(ctx, asOf)
	if err != nil {
		return nil, err
	}

	var reversals []*domain.Entry
	for _, entry := range due {
		reversal, err := uc.ReverseEntry(ctx, entry.ID, ReverseEntryInput{Date: entry.ReverseDate})
		if err != nil {
			return reversals, err
		}

		reversals = append(reversals, reversal)
	}

	return reversals, nil
}

// GetEntry retrieves an entry by ID.
func (uc *EntryUseCase) GetEntry(ctx context.Context, id string) (*domain.Entry, error) {
	return uc.entryRepo.GetByID(ctx, id)
}

func boolPtr(b bool) *bool {
	return &b
}
