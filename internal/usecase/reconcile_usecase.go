package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/infrastructure/metrics"
)

const fullReconcileSequenceCode = "account.reconcile"

// ReconcileUseCase handles matching open lines, write-off generation, closure
// detection and the removal of existing reconciliations.
type ReconcileUseCase struct {
	txManager    TransactionManager
	entryRepo    EntryRepository
	lineRepo     LineRepository
	reconRepo    ReconcileRepository
	accountRepo  AccountRepository
	companyRepo  CompanyRepository
	currencyRepo CurrencyRepository
	taxRepo      TaxRepository
	sequences    SequenceService
	outboxRepo   OutboxRepository
	idGen        IDGenerator
	entries      *EntryUseCase
	metrics      *metrics.Metrics
}

// NewReconcileUseCase creates a new ReconcileUseCase.
func NewReconcileUseCase(
	txManager TransactionManager,
	entryRepo EntryRepository,
	lineRepo LineRepository,
	reconRepo ReconcileRepository,
	accountRepo AccountRepository,
	companyRepo CompanyRepository,
	currencyRepo CurrencyRepository,
	taxRepo TaxRepository,
	sequences SequenceService,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	entries *EntryUseCase,
	m *metrics.Metrics,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		txManager:    txManager,
		entryRepo:    entryRepo,
		lineRepo:     lineRepo,
		reconRepo:    reconRepo,
		accountRepo:  accountRepo,
		companyRepo:  companyRepo,
		currencyRepo: currencyRepo,
		taxRepo:      taxRepo,
		sequences:    sequences,
		outboxRepo:   outboxRepo,
		idGen:        idGen,
		entries:      entries,
		metrics:      m,
	}
}

// WriteOffInput describes where the unmatched remainder should be booked.
type WriteOffInput struct {
	JournalID string
	AccountID string
	Label     string
}

// ReconcileInput represents input for reconciling a set of open lines.
type ReconcileInput struct {
	LineIDs  []string
	WriteOff *WriteOffInput
}

// ReconcileResult reports everything one reconciliation pass produced.
type ReconcileResult struct {
	Partials         []*domain.PartialReconcile
	FullReconcile    *domain.FullReconcile
	WriteOffEntry    *domain.Entry
	ExchangeEntry    *domain.Entry
	CashBasisEntries []*domain.Entry
}

// Reconcile matches the given lines against each other, books a write-off for
// the remainder when asked to, generates the settlement side effects and
// closes the cluster when nothing is left open. The whole pass is one
// transaction.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, input ReconcileInput) (*ReconcileResult, error) {
	start := time.Now()

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	result, err := uc.reconcileWithinTx(ctx, tx, input)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.ReconciliationsStarted.Inc()
		uc.metrics.PartialsCreated.Add(float64(len(result.Partials)))
		if result.FullReconcile != nil {
			uc.metrics.FullReconciliations.Inc()
		}
		if result.WriteOffEntry != nil {
			uc.metrics.GeneratedEntries.WithLabelValues(domain.GeneratorKindWriteOff).Inc()
		}
		if result.ExchangeEntry != nil {
			uc.metrics.GeneratedEntries.WithLabelValues(domain.GeneratorKindExchange).Inc()
		}
		if n := len(result.CashBasisEntries); n > 0 {
			uc.metrics.GeneratedEntries.WithLabelValues(domain.GeneratorKindCashBasis).Add(float64(n))
		}
		uc.metrics.ReconciliationDuration.Observe(time.Since(start).Seconds())
	}

	return result, nil
}

// reconcileWithinTx runs the full reconciliation pass inside the caller's
// transaction.
func (uc *ReconcileUseCase) reconcileWithinTx(ctx context.Context, tx Transaction, input ReconcileInput) (*ReconcileResult, error) {
	if len(input.LineIDs) == 0 {
		return &ReconcileResult{}, nil
	}

	// 1. Lock the lines in sorted order (deadlock prevention).
	lineIDs := uniqueSorted(input.LineIDs)

	lines, err := uc.lineRepo.GetByIDsForUpdate(ctx, tx, lineIDs)
	if err != nil {
		return nil, err
	}

	if len(lines) != len(lineIDs) {
		return nil, domain.ErrLineNotFound
	}

	// 2. Scope checks: one account, one company, reconcile allowed.
	account, company, err := uc.validateScope(ctx, lines)
	if err != nil {
		return nil, err
	}

	functional, err := uc.currencyRepo.GetByID(ctx, company.CurrencyID)
	if err != nil {
		return nil, err
	}

	tol, err := uc.toleranceTable(ctx, functional, lines, account)
	if err != nil {
		return nil, err
	}

	// 3. Snapshot the settlement percentages before any new partial exists.
	var cbCtx *cashBasisContext
	if account.Type.CashBasis() {
		cbCtx, err = uc.loadCashBasisContext(ctx, tx, lines)
		if err != nil {
			return nil, err
		}
	}

	result := &ReconcileResult{}

	// 4. Run the matching engine and persist its partials.
	matchRes, err := uc.matchAndPersist(ctx, tx, lines, account, company, tol, result)
	if err != nil {
		return nil, err
	}

	// 5. Book the write-off and feed its counterpart line back into matching.
	if len(matchRes.Leftover) > 0 && input.WriteOff != nil {
		writeoffLine, err := uc.createWriteOff(ctx, tx, matchRes.Leftover, account, matchRes, input.WriteOff, result)
		if err != nil {
			return nil, err
		}

		pool := append(append([]*domain.Line{}, matchRes.Leftover...), writeoffLine)
		if _, err := uc.matchAndPersist(ctx, tx, pool, account, company, tol, result); err != nil {
			return nil, err
		}

		lines = append(lines, writeoffLine)
	}

	// 6. Generate cash-basis tax entries for the settled portion.
	if cbCtx != nil && len(result.Partials) > 0 {
		entries, err := uc.createCashBasisEntries(ctx, tx, result.Partials, cbCtx, company, functional)
		if err != nil {
			return nil, err
		}
		result.CashBasisEntries = entries
	}

	// 7. Close the cluster when every residual reaches zero.
	full, exchange, err := uc.checkFullReconcile(ctx, tx, lines, company)
	if err != nil {
		return nil, err
	}
	result.FullReconcile = full
	result.ExchangeEntry = exchange

	return result, nil
}

// validateScope checks that the lines share one account and one company and
// that the account allows matching.
func (uc *ReconcileUseCase) validateScope(ctx context.Context, lines []*domain.Line) (*domain.Account, *domain.Company, error) {
	accountID := lines[0].AccountID
	companyID := lines[0].CompanyID
	for _, line := range lines {
		if line.AccountID != accountID || line.CompanyID != companyID {
			return nil, nil, domain.ErrReconciliationScopeViolation
		}
	}

	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	if !account.ReconcileEligible() {
		return nil, nil, domain.ErrAccountNotReconcilable
	}

	company, err := uc.companyRepo.GetByID(ctx, companyID)
	if err != nil {
		return nil, nil, err
	}

	return account, company, nil
}

// toleranceTable preloads the rounding tolerance of every currency in play.
// Unknown codes fall back to the functional tolerance.
func (uc *ReconcileUseCase) toleranceTable(ctx context.Context, functional *domain.Currency, lines []*domain.Line, account *domain.Account) (ToleranceFunc, error) {
	table := map[string]decimal.Decimal{"": functional.Tolerance()}

	seen := map[string]bool{"": true, functional.ID: true}
	ids := []string{}
	for _, line := range lines {
		if line.CurrencyID != "" && !seen[line.CurrencyID] {
			seen[line.CurrencyID] = true
			ids = append(ids, line.CurrencyID)
		}
	}
	if account.CurrencyID != "" && !seen[account.CurrencyID] {
		ids = append(ids, account.CurrencyID)
	}

	for _, id := range ids {
		currency, err := uc.currencyRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		table[id] = currency.Tolerance()
	}
	table[functional.ID] = functional.Tolerance()

	return func(currencyID string) decimal.Decimal {
		if t, ok := table[currencyID]; ok {
			return t
		}
		return table[""]
	}, nil
}

// matchAndPersist runs one engine pass over the pool, persists the resulting
// partials and the reduced residuals, and appends to the running result.
func (uc *ReconcileUseCase) matchAndPersist(
	ctx context.Context,
	tx Transaction,
	pool []*domain.Line,
	account *domain.Account,
	company *domain.Company,
	tol ToleranceFunc,
	result *ReconcileResult,
) (*MatchResult, error) {
	matchRes, err := MatchLines(pool, account, company.CurrencyID, tol)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for _, spec := range matchRes.Partials {
		partial := &domain.PartialReconcile{
			ID:             uc.idGen.Generate(),
			DebitLineID:    spec.DebitLine.ID,
			CreditLineID:   spec.CreditLine.ID,
			Amount:         spec.Amount,
			AmountCurrency: spec.AmountCurrency,
			CurrencyID:     spec.CurrencyID,
			MaxDate:        spec.MaxDate,
			CreatedAt:      now,
		}

		if err := partial.Validate(); err != nil {
			return nil, err
		}

		if err := uc.reconRepo.CreatePartial(ctx, tx, partial); err != nil {
			return nil, err
		}

		result.Partials = append(result.Partials, partial)
	}

	touched := map[string]bool{}
	for _, spec := range matchRes.Partials {
		for _, line := range []*domain.Line{spec.DebitLine, spec.CreditLine} {
			if touched[line.ID] {
				continue
			}
			touched[line.ID] = true

			if err := uc.lineRepo.UpdateResiduals(ctx, tx, line); err != nil {
				return nil, err
			}
		}
	}

	return matchRes, nil
}

// createWriteOff books the unmatched remainder on the write-off account and
// returns the posted counterpart line on the reconciled account.
func (uc *ReconcileUseCase) createWriteOff(
	ctx context.Context,
	tx Transaction,
	leftover []*domain.Line,
	account *domain.Account,
	matchRes *MatchResult,
	input *WriteOffInput,
	result *ReconcileResult,
) (*domain.Line, error) {
	residual := decimal.Zero
	residualCurrency := decimal.Zero
	for _, line := range leftover {
		residual = residual.Add(line.AmountResidual)
		residualCurrency = residualCurrency.Add(line.AmountResidualCurrency)
	}

	label := input.Label
	if label == "" {
		label = "write-off"
	}

	var currencyID string
	var counterpartCurrency, writeoffCurrency decimal.Decimal
	if matchRes.Field == MatchFieldResidualCurrency {
		currencyID = matchRes.CurrencyID
		counterpartCurrency = residualCurrency.Neg()
		writeoffCurrency = residualCurrency
	}

	// The counterpart cancels the leftover on the reconciled account; the
	// write-off account takes the same amount on the leftover's side.
	counterpart := LineInput{
		AccountID:      account.ID,
		Name:           label,
		Debit:          decimal.Max(residual.Neg(), decimal.Zero),
		Credit:         decimal.Max(residual, decimal.Zero),
		AmountCurrency: counterpartCurrency,
		CurrencyID:     currencyID,
	}

	writeoff := LineInput{
		AccountID:      input.AccountID,
		Name:           label,
		Debit:          decimal.Max(residual, decimal.Zero),
		Credit:         decimal.Max(residual.Neg(), decimal.Zero),
		AmountCurrency: writeoffCurrency,
		CurrencyID:     currencyID,
	}

	entry, err := uc.entries.createWithinTx(ctx, tx, CreateEntryInput{
		JournalID: input.JournalID,
		Ref:       label,
		Date:      time.Now().UTC(),
		Lines:     []LineInput{counterpart, writeoff},
	}, true)
	if err != nil {
		return nil, err
	}

	if err := uc.entries.postWithinTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	result.WriteOffEntry = entry
	if err := uc.emitGeneratorEvent(ctx, tx, entry, domain.GeneratorKindWriteOff); err != nil {
		return nil, err
	}

	for _, line := range entry.Lines {
		if line.AccountID == account.ID {
			return line, nil
		}
	}

	return nil, domain.ErrLineNotFound
}

// checkFullReconcile expands the connected cluster around the given lines and
// closes it when every residual is zero, generating an exchange-difference
// entry first when only functional residuals remain on currency lines.
func (uc *ReconcileUseCase) checkFullReconcile(
	ctx context.Context,
	tx Transaction,
	seed []*domain.Line,
	company *domain.Company,
) (*domain.FullReconcile, *domain.Entry, error) {
	component, partials, err := uc.expandComponent(ctx, tx, seed)
	if err != nil {
		return nil, nil, err
	}

	if len(partials) == 0 {
		return nil, nil, nil
	}

	// A line already assigned to a full reconciliation means the cluster was
	// closed by an earlier call; closing it again would reassign its partials
	// and burn a sequence number.
	for _, line := range component {
		if line.FullReconcileID != "" {
			return nil, nil, nil
		}
	}

	var exchangeCandidates []*domain.Line
	for _, line := range component {
		if !line.HasOpenResidual() {
			continue
		}

		if line.CurrencyID != "" && line.AmountResidualCurrency.IsZero() && !line.AmountResidual.IsZero() {
			exchangeCandidates = append(exchangeCandidates, line)
			continue
		}

		// Genuinely open: no closure.
		return nil, nil, nil
	}

	var exchangeEntry *domain.Entry
	if len(exchangeCandidates) > 0 {
		entry, exchangePartials, err := uc.createExchangeEntry(ctx, tx, exchangeCandidates, company)
		if err != nil {
			return nil, nil, err
		}

		exchangeEntry = entry
		partials = append(partials, exchangePartials...)
		for _, line := range entry.Lines {
			component[line.ID] = line
		}
	}

	now := time.Now().UTC()

	name, err := uc.sequences.Next(ctx, tx, fullReconcileSequenceCode)
	if err != nil {
		return nil, nil, err
	}

	full := &domain.FullReconcile{
		ID:        uc.idGen.Generate(),
		Name:      name,
		CreatedAt: now,
	}

	if exchangeEntry != nil {
		full.ExchangeEntryID = exchangeEntry.ID
	}

	lineIDs := make([]string, 0, len(component))
	for id := range component {
		lineIDs = append(lineIDs, id)
	}
	sort.Strings(lineIDs)
	full.LineIDs = lineIDs

	partialIDs := make([]string, 0, len(partials))
	for _, p := range partials {
		partialIDs = append(partialIDs, p.ID)
	}
	sort.Strings(partialIDs)
	full.PartialIDs = partialIDs

	if err := uc.reconRepo.CreateFull(ctx, tx, full); err != nil {
		return nil, nil, err
	}

	if err := uc.reconRepo.AssignFull(ctx, tx, partialIDs, full.ID); err != nil {
		return nil, nil, err
	}

	if err := uc.lineRepo.SetFullReconcile(ctx, tx, lineIDs, full.ID); err != nil {
		return nil, nil, err
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   full.ID,
		AggregateType: domain.AggregateTypeFullReconcile,
		EventType:     domain.EventTypeReconciliationClosed,
		Payload: map[string]any{
			"full_reconcile_id": full.ID,
			"name":              full.Name,
			"line_ids":          full.LineIDs,
		},
		CreatedAt: now,
	}

	if err := uc.outboxRepo.Create(ctx, tx, event); err != nil {
		return nil, nil, err
	}

	return full, exchangeEntry, nil
}

// expandComponent walks partials transitively from the seed lines until the
// connected cluster stops growing.
func (uc *ReconcileUseCase) expandComponent(
	ctx context.Context,
	tx Transaction,
	seed []*domain.Line,
) (map[string]*domain.Line, []*domain.PartialReconcile, error) {
	component := make(map[string]*domain.Line, len(seed))
	for _, line := range seed {
		component[line.ID] = line
	}

	partialSeen := map[string]bool{}
	var partials []*domain.PartialReconcile

	frontier := make([]string, 0, len(component))
	for id := range component {
		frontier = append(frontier, id)
	}
	sort.Strings(frontier)

	for len(frontier) > 0 {
		batch, err := uc.reconRepo.GetPartialsByLineIDs(ctx, tx, frontier)
		if err != nil {
			return nil, nil, err
		}

		var next []string
		for _, p := range batch {
			if partialSeen[p.ID] {
				continue
			}
			partialSeen[p.ID] = true
			partials = append(partials, p)

			for _, id := range []string{p.DebitLineID, p.CreditLineID} {
				if _, ok := component[id]; !ok {
					next = append(next, id)
				}
			}
		}

		if len(next) == 0 {
			break
		}

		next = uniqueSorted(next)
		loaded, err := uc.lineRepo.GetByIDsForUpdate(ctx, tx, next)
		if err != nil {
			return nil, nil, err
		}

		for _, line := range loaded {
			component[line.ID] = line
		}

		frontier = next
	}

	return component, partials, nil
}

// RemoveReconciliationInput represents input for undoing reconciliations.
type RemoveReconciliationInput struct {
	LineIDs []string
}

// RemoveReconciliation deletes every partial touching the given lines,
// restores the residuals, dissolves affected full reconciliations and
// reverses the entries generated at settlement time. Lines with no
// reconciliation are left untouched.
func (uc *ReconcileUseCase) RemoveReconciliation(ctx context.Context, input RemoveReconciliationInput) error {
	if len(input.LineIDs) == 0 {
		return nil
	}

	lineIDs := uniqueSorted(input.LineIDs)

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	partials, err := uc.reconRepo.GetPartialsByLineIDs(ctx, tx, lineIDs)
	if err != nil {
		return err
	}

	if len(partials) == 0 {
		return tx.Commit(ctx)
	}

	// 1. Lock every line either side of the partials, in sorted order.
	idSet := map[string]bool{}
	for _, p := range partials {
		idSet[p.DebitLineID] = true
		idSet[p.CreditLineID] = true
	}
	allIDs := make([]string, 0, len(idSet))
	for id := range idSet {
		allIDs = append(allIDs, id)
	}
	sort.Strings(allIDs)

	lines, err := uc.lineRepo.GetByIDsForUpdate(ctx, tx, allIDs)
	if err != nil {
		return err
	}

	lineByID := make(map[string]*domain.Line, len(lines))
	for _, line := range lines {
		lineByID[line.ID] = line
	}

	partialIDs := make([]string, 0, len(partials))
	for _, p := range partials {
		partialIDs = append(partialIDs, p.ID)
	}

	// 2. Reverse the cash-basis entries derived from these partials.
	cashBasisEntries, err := uc.entryRepo.GetByCashBasisRecIDs(ctx, tx, partialIDs)
	if err != nil {
		return err
	}

	for _, entry := range cashBasisEntries {
		if _, err := uc.entries.reverseWithinTx(ctx, tx, entry.ID, ReverseEntryInput{}); err != nil {
			return err
		}
	}

	// 3. Dissolve full reconciliations, reversing exchange entries.
	fullSeen := map[string]bool{}
	for _, line := range lines {
		if line.FullReconcileID == "" || fullSeen[line.FullReconcileID] {
			continue
		}
		fullSeen[line.FullReconcileID] = true

		full, err := uc.reconRepo.GetFullByID(ctx, tx, line.FullReconcileID)
		if err != nil {
			return err
		}

		if full.ExchangeEntryID != "" {
			if _, err := uc.entries.reverseWithinTx(ctx, tx, full.ExchangeEntryID, ReverseEntryInput{}); err != nil {
				return err
			}
		}

		if err := uc.lineRepo.ClearFullReconcile(ctx, tx, full.ID); err != nil {
			return err
		}

		if err := uc.reconRepo.DeleteFull(ctx, tx, full.ID); err != nil {
			return err
		}
	}

	// 4. Restore the residuals the partials had consumed.
	for _, p := range partials {
		debit := lineByID[p.DebitLineID]
		credit := lineByID[p.CreditLineID]
		if debit == nil || credit == nil {
			return domain.ErrLineNotFound
		}

		debit.AmountResidual = debit.AmountResidual.Add(p.Amount)
		credit.AmountResidual = credit.AmountResidual.Sub(p.Amount)

		if p.CurrencyID != "" {
			if debit.CurrencyID == p.CurrencyID {
				debit.AmountResidualCurrency = debit.AmountResidualCurrency.Add(p.AmountCurrency)
			}
			if credit.CurrencyID == p.CurrencyID {
				credit.AmountResidualCurrency = credit.AmountResidualCurrency.Sub(p.AmountCurrency)
			}
		}
	}

	for _, line := range lines {
		line.Reconciled = false
		line.FullReconcileID = ""
		if err := uc.lineRepo.UpdateResiduals(ctx, tx, line); err != nil {
			return err
		}
	}

	if err := uc.reconRepo.DeletePartials(ctx, tx, partialIDs); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	if uc.metrics != nil {
		uc.metrics.ReconciliationsRemoved.Inc()
	}

	return nil
}

func (uc *ReconcileUseCase) emitGeneratorEvent(ctx context.Context, tx Transaction, entry *domain.Entry, kind string) error {
	lineIDs := make([]string, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		lineIDs = append(lineIDs, line.ID)
	}

	event := &domain.OutboxEvent{
		ID:            uc.idGen.Generate(),
		AggregateID:   entry.ID,
		AggregateType: domain.AggregateTypeEntry,
		EventType:     domain.EventTypeGeneratorEntryCreated,
		Payload: map[string]any{
			"entry_id": entry.ID,
			"kind":     kind,
			"line_ids": lineIDs,
		},
		CreatedAt: time.Now().UTC(),
	}

	return uc.outboxRepo.Create(ctx, tx, event)
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))

	var out []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}

	sort.Strings(out)
	return out
}
