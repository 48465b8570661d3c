package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

// MockEntryRepository is a mock implementation of EntryRepository.
type MockEntryRepository struct {
	mu      sync.RWMutex
	entries map[string]*domain.Entry

	CreateFunc                  func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	GetByIDFunc                 func(ctx context.Context, id string) (*domain.Entry, error)
	GetByIDForUpdateFunc        func(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error)
	GetByIDsForUpdateFunc       func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Entry, error)
	UpdatePostedFunc            func(ctx context.Context, tx usecase.Transaction, id, name string, postedAt time.Time) error
	UpdateStateFunc             func(ctx context.Context, tx usecase.Transaction, id string, state domain.EntryState) error
	UpdateMatchedPercentageFunc func(ctx context.Context, tx usecase.Transaction, id string, percentage decimal.Decimal) error
	UpdateDraftFunc             func(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error
	SetReversalFunc             func(ctx context.Context, tx usecase.Transaction, id, reversalEntryID string) error
	ReplaceLinesFunc            func(ctx context.Context, tx usecase.Transaction, entryID string, lines []*domain.Line) error
	DeleteFunc                  func(ctx context.Context, tx usecase.Transaction, id string) error
	GetByCashBasisRecIDsFunc    func(ctx context.Context, tx usecase.Transaction, partialIDs []string) ([]*domain.Entry, error)
	ListDueAutoReversalsFunc    func(ctx context.Context, asOf time.Time) ([]*domain.Entry, error)
}

func NewMockEntryRepository() *MockEntryRepository {
	return &MockEntryRepository{
		entries: make(map[string]*domain.Entry),
	}
}

// Add seeds an entry directly into the backing map.
func (m *MockEntryRepository) Add(entry *domain.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
}

func (m *MockEntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.ID] = entry
	return nil
}

func (m *MockEntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return nil, domain.ErrEntryNotFound
}

func (m *MockEntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error) {
	if m.GetByIDForUpdateFunc != nil {
		return m.GetByIDForUpdateFunc(ctx, tx, id)
	}
	return m.GetByID(ctx, id)
}

func (m *MockEntryRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Entry, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, id := range ids {
		if e, ok := m.entries[id]; ok {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (m *MockEntryRepository) UpdatePosted(ctx context.Context, tx usecase.Transaction, id, name string, postedAt time.Time) error {
	if m.UpdatePostedFunc != nil {
		return m.UpdatePostedFunc(ctx, tx, id, name, postedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		e.Name = name
		e.State = domain.EntryStatePosted
		e.PostedAt = postedAt
	}
	return nil
}

func (m *MockEntryRepository) UpdateState(ctx context.Context, tx usecase.Transaction, id string, state domain.EntryState) error {
	if m.UpdateStateFunc != nil {
		return m.UpdateStateFunc(ctx, tx, id, state)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		e.State = state
	}
	return nil
}

func (m *MockEntryRepository) UpdateMatchedPercentage(ctx context.Context, tx usecase.Transaction, id string, percentage decimal.Decimal) error {
	if m.UpdateMatchedPercentageFunc != nil {
		return m.UpdateMatchedPercentageFunc(ctx, tx, id, percentage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		e.MatchedPercentage = percentage
	}
	return nil
}

func (m *MockEntryRepository) UpdateDraft(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	if m.UpdateDraftFunc != nil {
		return m.UpdateDraftFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[entry.ID]; ok {
		e.Ref = entry.Ref
		e.Date = entry.Date
	}
	return nil
}

func (m *MockEntryRepository) SetReversal(ctx context.Context, tx usecase.Transaction, id, reversalEntryID string) error {
	if m.SetReversalFunc != nil {
		return m.SetReversalFunc(ctx, tx, id, reversalEntryID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[id]; ok {
		e.ReversalEntryID = reversalEntryID
	}
	if r, ok := m.entries[reversalEntryID]; ok {
		r.ReversalOfID = id
	}
	return nil
}

func (m *MockEntryRepository) ReplaceLines(ctx context.Context, tx usecase.Transaction, entryID string, lines []*domain.Line) error {
	if m.ReplaceLinesFunc != nil {
		return m.ReplaceLinesFunc(ctx, tx, entryID, lines)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[entryID]; ok {
		e.Lines = lines
	}
	return nil
}

func (m *MockEntryRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MockEntryRepository) GetByCashBasisRecIDs(ctx context.Context, tx usecase.Transaction, partialIDs []string) ([]*domain.Entry, error) {
	if m.GetByCashBasisRecIDsFunc != nil {
		return m.GetByCashBasisRecIDsFunc(ctx, tx, partialIDs)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(partialIDs))
	for _, id := range partialIDs {
		wanted[id] = true
	}
	var entries []*domain.Entry
	for _, e := range m.entries {
		if e.TaxCashBasisRecID != "" && wanted[e.TaxCashBasisRecID] {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (m *MockEntryRepository) ListDueAutoReversals(ctx context.Context, asOf time.Time) ([]*domain.Entry, error) {
	if m.ListDueAutoReversalsFunc != nil {
		return m.ListDueAutoReversalsFunc(ctx, asOf)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.Entry
	for _, e := range m.entries {
		if e.AutoReverse && e.ReversalEntryID == "" && e.State == domain.EntryStatePosted && !e.ReverseDate.After(asOf) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// MockLineRepository is a mock implementation of LineRepository.
type MockLineRepository struct {
	mu    sync.RWMutex
	lines map[string]*domain.Line

	GetByIDsFunc           func(ctx context.Context, ids []string) ([]*domain.Line, error)
	GetByIDsForUpdateFunc  func(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Line, error)
	GetByEntryIDsFunc      func(ctx context.Context, tx usecase.Transaction, entryIDs []string) ([]*domain.Line, error)
	UpdateResidualsFunc    func(ctx context.Context, tx usecase.Transaction, line *domain.Line) error
	UpdateMaturityFunc     func(ctx context.Context, tx usecase.Transaction, lineID string, maturity time.Time) error
	SetFullReconcileFunc   func(ctx context.Context, tx usecase.Transaction, lineIDs []string, fullID string) error
	ClearFullReconcileFunc func(ctx context.Context, tx usecase.Transaction, fullID string) error
}

func NewMockLineRepository() *MockLineRepository {
	return &MockLineRepository{
		lines: make(map[string]*domain.Line),
	}
}

// Add seeds a line directly into the backing map.
func (m *MockLineRepository) Add(line *domain.Line) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[line.ID] = line
}

// Get reads a line back for assertions.
func (m *MockLineRepository) Get(id string) *domain.Line {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lines[id]
}

func (m *MockLineRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Line, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var lines []*domain.Line
	for _, id := range ids {
		if l, ok := m.lines[id]; ok {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (m *MockLineRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Line, error) {
	if m.GetByIDsForUpdateFunc != nil {
		return m.GetByIDsForUpdateFunc(ctx, tx, ids)
	}
	return m.GetByIDs(ctx, ids)
}

func (m *MockLineRepository) GetByEntryIDs(ctx context.Context, tx usecase.Transaction, entryIDs []string) ([]*domain.Line, error) {
	if m.GetByEntryIDsFunc != nil {
		return m.GetByEntryIDsFunc(ctx, tx, entryIDs)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	wanted := make(map[string]bool, len(entryIDs))
	for _, id := range entryIDs {
		wanted[id] = true
	}
	var lines []*domain.Line
	for _, l := range m.lines {
		if wanted[l.EntryID] {
			lines = append(lines, l)
		}
	}
	return lines, nil
}

func (m *MockLineRepository) UpdateResiduals(ctx context.Context, tx usecase.Transaction, line *domain.Line) error {
	if m.UpdateResidualsFunc != nil {
		return m.UpdateResidualsFunc(ctx, tx, line)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[line.ID] = line
	return nil
}

func (m *MockLineRepository) UpdateMaturity(ctx context.Context, tx usecase.Transaction, lineID string, maturity time.Time) error {
	if m.UpdateMaturityFunc != nil {
		return m.UpdateMaturityFunc(ctx, tx, lineID, maturity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.lines[lineID]; ok {
		l.DateMaturity = maturity
	}
	return nil
}

func (m *MockLineRepository) SetFullReconcile(ctx context.Context, tx usecase.Transaction, lineIDs []string, fullID string) error {
	if m.SetFullReconcileFunc != nil {
		return m.SetFullReconcileFunc(ctx, tx, lineIDs, fullID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range lineIDs {
		if l, ok := m.lines[id]; ok {
			l.FullReconcileID = fullID
		}
	}
	return nil
}

func (m *MockLineRepository) ClearFullReconcile(ctx context.Context, tx usecase.Transaction, fullID string) error {
	if m.ClearFullReconcileFunc != nil {
		return m.ClearFullReconcileFunc(ctx, tx, fullID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lines {
		if l.FullReconcileID == fullID {
			l.FullReconcileID = ""
		}
	}
	return nil
}

// MockReconcileRepository is a mock implementation of ReconcileRepository.
type MockReconcileRepository struct {
	mu       sync.RWMutex
	partials map[string]*domain.PartialReconcile
	fulls    map[string]*domain.FullReconcile

	CreatePartialFunc        func(ctx context.Context, tx usecase.Transaction, partial *domain.PartialReconcile) error
	GetPartialsByLineIDsFunc func(ctx context.Context, tx usecase.Transaction, lineIDs []string) ([]*domain.PartialReconcile, error)
	DeletePartialsFunc       func(ctx context.Context, tx usecase.Transaction, ids []string) error
	CreateFullFunc           func(ctx context.Context, tx usecase.Transaction, full *domain.FullReconcile) error
	GetFullByIDFunc          func(ctx context.Context, tx usecase.Transaction, id string) (*domain.FullReconcile, error)
	DeleteFullFunc           func(ctx context.Context, tx usecase.Transaction, id string) error
	AssignFullFunc           func(ctx context.Context, tx usecase.Transaction, partialIDs []string, fullID string) error
}

func NewMockReconcileRepository() *MockReconcileRepository {
	return &MockReconcileRepository{
		partials: make(map[string]*domain.PartialReconcile),
		fulls:    make(map[string]*domain.FullReconcile),
	}
}

// Partials returns a snapshot of the stored partials.
func (m *MockReconcileRepository) Partials() []*domain.PartialReconcile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.PartialReconcile
	for _, p := range m.partials {
		out = append(out, p)
	}
	return out
}

// Fulls returns a snapshot of the stored full reconciliations.
func (m *MockReconcileRepository) Fulls() []*domain.FullReconcile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.FullReconcile
	for _, f := range m.fulls {
		out = append(out, f)
	}
	return out
}

func (m *MockReconcileRepository) CreatePartial(ctx context.Context, tx usecase.Transaction, partial *domain.PartialReconcile) error {
	if m.CreatePartialFunc != nil {
		return m.CreatePartialFunc(ctx, tx, partial)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.partials[partial.ID] = partial
	return nil
}

func (m *MockReconcileRepository) GetPartialsByLineIDs(ctx context.Context, tx usecase.Transaction, lineIDs []string) ([]*domain.PartialReconcile, error) {
	if m.GetPartialsByLineIDsFunc != nil {
		return m.GetPartialsByLineIDsFunc(ctx, tx, lineIDs)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.PartialReconcile
	for _, p := range m.partials {
		for _, id := range lineIDs {
			if p.Touches(id) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}

func (m *MockReconcileRepository) DeletePartials(ctx context.Context, tx usecase.Transaction, ids []string) error {
	if m.DeletePartialsFunc != nil {
		return m.DeletePartialsFunc(ctx, tx, ids)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.partials, id)
	}
	return nil
}

func (m *MockReconcileRepository) CreateFull(ctx context.Context, tx usecase.Transaction, full *domain.FullReconcile) error {
	if m.CreateFullFunc != nil {
		return m.CreateFullFunc(ctx, tx, full)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fulls[full.ID] = full
	return nil
}

func (m *MockReconcileRepository) GetFullByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.FullReconcile, error) {
	if m.GetFullByIDFunc != nil {
		return m.GetFullByIDFunc(ctx, tx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if f, ok := m.fulls[id]; ok {
		return f, nil
	}
	return nil, domain.ErrFullNotFound
}

func (m *MockReconcileRepository) DeleteFull(ctx context.Context, tx usecase.Transaction, id string) error {
	if m.DeleteFullFunc != nil {
		return m.DeleteFullFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fulls, id)
	return nil
}

func (m *MockReconcileRepository) AssignFull(ctx context.Context, tx usecase.Transaction, partialIDs []string, fullID string) error {
	if m.AssignFullFunc != nil {
		return m.AssignFullFunc(ctx, tx, partialIDs, fullID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range partialIDs {
		if p, ok := m.partials[id]; ok {
			p.FullReconcileID = fullID
		}
	}
	return nil
}

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account

	GetByIDFunc  func(ctx context.Context, id string) (*domain.Account, error)
	GetByIDsFunc func(ctx context.Context, ids []string) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{
		accounts: make(map[string]*domain.Account),
	}
}

// Add seeds an account.
func (m *MockAccountRepository) Add(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for _, id := range ids {
		if a, ok := m.accounts[id]; ok {
			accounts = append(accounts, a)
		}
	}
	return accounts, nil
}

// MockJournalRepository is a mock implementation of JournalRepository.
type MockJournalRepository struct {
	mu       sync.RWMutex
	journals map[string]*domain.Journal

	GetByIDFunc func(ctx context.Context, id string) (*domain.Journal, error)
}

func NewMockJournalRepository() *MockJournalRepository {
	return &MockJournalRepository{
		journals: make(map[string]*domain.Journal),
	}
}

// Add seeds a journal.
func (m *MockJournalRepository) Add(journal *domain.Journal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journals[journal.ID] = journal
}

func (m *MockJournalRepository) GetByID(ctx context.Context, id string) (*domain.Journal, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if j, ok := m.journals[id]; ok {
		return j, nil
	}
	return nil, domain.ErrJournalNotFound
}

// MockCompanyRepository is a mock implementation of CompanyRepository.
type MockCompanyRepository struct {
	mu        sync.RWMutex
	companies map[string]*domain.Company

	GetByIDFunc func(ctx context.Context, id string) (*domain.Company, error)
}

func NewMockCompanyRepository() *MockCompanyRepository {
	return &MockCompanyRepository{
		companies: make(map[string]*domain.Company),
	}
}

// Add seeds a company.
func (m *MockCompanyRepository) Add(company *domain.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[company.ID] = company
}

func (m *MockCompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.companies[id]; ok {
		return c, nil
	}
	return nil, domain.ErrCompanyNotFound
}

// MockCurrencyRepository is a mock implementation of CurrencyRepository.
type MockCurrencyRepository struct {
	mu         sync.RWMutex
	currencies map[string]*domain.Currency

	GetByIDFunc func(ctx context.Context, id string) (*domain.Currency, error)
}

func NewMockCurrencyRepository() *MockCurrencyRepository {
	return &MockCurrencyRepository{
		currencies: make(map[string]*domain.Currency),
	}
}

// Add seeds a currency.
func (m *MockCurrencyRepository) Add(currency *domain.Currency) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currencies[currency.ID] = currency
}

func (m *MockCurrencyRepository) GetByID(ctx context.Context, id string) (*domain.Currency, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if c, ok := m.currencies[id]; ok {
		return c, nil
	}
	return nil, domain.ErrCurrencyNotFound
}

// MockTaxRepository is a mock implementation of TaxRepository.
type MockTaxRepository struct {
	mu    sync.RWMutex
	taxes map[string]*domain.Tax

	GetByIDFunc  func(ctx context.Context, id string) (*domain.Tax, error)
	GetByIDsFunc func(ctx context.Context, ids []string) ([]*domain.Tax, error)
}

func NewMockTaxRepository() *MockTaxRepository {
	return &MockTaxRepository{
		taxes: make(map[string]*domain.Tax),
	}
}

// Add seeds a tax.
func (m *MockTaxRepository) Add(tax *domain.Tax) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taxes[tax.ID] = tax
}

func (m *MockTaxRepository) GetByID(ctx context.Context, id string) (*domain.Tax, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if t, ok := m.taxes[id]; ok {
		return t, nil
	}
	return nil, domain.ErrTaxNotFound
}

func (m *MockTaxRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Tax, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var taxes []*domain.Tax
	for _, id := range ids {
		if t, ok := m.taxes[id]; ok {
			taxes = append(taxes, t)
		}
	}
	return taxes, nil
}

// MockOutboxRepository is a mock implementation of OutboxRepository.
type MockOutboxRepository struct {
	mu     sync.RWMutex
	events []*domain.OutboxEvent

	CreateFunc          func(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error
	GetUnpublishedFunc  func(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublishedFunc   func(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublishedFunc func(ctx context.Context, before time.Time) error
}

func NewMockOutboxRepository() *MockOutboxRepository {
	return &MockOutboxRepository{}
}

// Events returns a snapshot of every stored event.
func (m *MockOutboxRepository) Events() []*domain.OutboxEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*domain.OutboxEvent{}, m.events...)
}

func (m *MockOutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, event)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockOutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	if m.GetUnpublishedFunc != nil {
		return m.GetUnpublishedFunc(ctx, limit)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published {
			out = append(out, e)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MockOutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	if m.MarkPublishedFunc != nil {
		return m.MarkPublishedFunc(ctx, id, publishedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.ID == id {
			e.Published = true
			e.PublishedAt = &publishedAt
		}
	}
	return nil
}

func (m *MockOutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	if m.DeletePublishedFunc != nil {
		return m.DeletePublishedFunc(ctx, before)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.OutboxEvent
	for _, e := range m.events {
		if !e.Published || e.PublishedAt == nil || !e.PublishedAt.Before(before) {
			kept = append(kept, e)
		}
	}
	m.events = kept
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockTransaction is a mock implementation of Transaction.
type MockTransaction struct {
	CommitFunc   func(ctx context.Context) error
	RollbackFunc func(ctx context.Context) error
}

func (m *MockTransaction) Commit(ctx context.Context) error {
	if m.CommitFunc != nil {
		return m.CommitFunc(ctx)
	}
	return nil
}

func (m *MockTransaction) Rollback(ctx context.Context) error {
	if m.RollbackFunc != nil {
		return m.RollbackFunc(ctx)
	}
	return nil
}

// MockIDGenerator is a mock implementation of IDGenerator.
type MockIDGenerator struct {
	GenerateFunc func() string
	counter      int
	mu           sync.Mutex
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{}
}

func (m *MockIDGenerator) Generate() string {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	return fmt.Sprintf("mock-id-%04d", m.counter)
}

// MockIdempotencyStore is a mock implementation of IdempotencyStore.
type MockIdempotencyStore struct {
	mu   sync.RWMutex
	data map[string][]byte

	CheckAndSetFunc func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	UpdateFunc      func(ctx context.Context, key string, response []byte, ttl time.Duration) error
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{
		data: make(map[string][]byte),
	}
}

func (m *MockIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if m.CheckAndSetFunc != nil {
		return m.CheckAndSetFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.data[key]; ok {
		return true, existing, nil
	}
	if response != nil {
		m.data[key] = response
	} else {
		m.data[key] = []byte("processing")
	}
	return false, nil, nil
}

func (m *MockIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, key, response, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = response
	return nil
}
