package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
)

// EntryRepository defines data access for journal entries.
type EntryRepository interface {
	Create(ctx context.Context, tx Transaction, entry *domain.Entry) error
	GetByID(ctx context.Context, id string) (*domain.Entry, error)
	GetByIDForUpdate(ctx context.Context, tx Transaction, id string) (*domain.Entry, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Entry, error)
	UpdatePosted(ctx context.Context, tx Transaction, id, name string, postedAt time.Time) error
	UpdateState(ctx context.Context, tx Transaction, id string, state domain.EntryState) error
	UpdateMatchedPercentage(ctx context.Context, tx Transaction, id string, percentage decimal.Decimal) error
	// UpdateDraft persists the mutable header fields (ref, date) of a draft.
	UpdateDraft(ctx context.Context, tx Transaction, entry *domain.Entry) error
	// SetReversal links an entry and its reversal in both directions.
	SetReversal(ctx context.Context, tx Transaction, id, reversalEntryID string) error
	ReplaceLines(ctx context.Context, tx Transaction, entryID string, lines []*domain.Line) error
	Delete(ctx context.Context, tx Transaction, id string) error
	GetByCashBasisRecIDs(ctx context.Context, tx Transaction, partialIDs []string) ([]*domain.Entry, error)
	ListDueAutoReversals(ctx context.Context, asOf time.Time) ([]*domain.Entry, error)
}

// LineRepository defines data access for ledger lines.
type LineRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Line, error)
	GetByIDsForUpdate(ctx context.Context, tx Transaction, ids []string) ([]*domain.Line, error)
	GetByEntryIDs(ctx context.Context, tx Transaction, entryIDs []string) ([]*domain.Line, error)
	UpdateResiduals(ctx context.Context, tx Transaction, line *domain.Line) error
	UpdateMaturity(ctx context.Context, tx Transaction, lineID string, maturity time.Time) error
	SetFullReconcile(ctx context.Context, tx Transaction, lineIDs []string, fullID string) error
	ClearFullReconcile(ctx context.Context, tx Transaction, fullID string) error
}

// ReconcileRepository defines data access for partial and full reconciliations.
type ReconcileRepository interface {
	CreatePartial(ctx context.Context, tx Transaction, partial *domain.PartialReconcile) error
	GetPartialsByLineIDs(ctx context.Context, tx Transaction, lineIDs []string) ([]*domain.PartialReconcile, error)
	DeletePartials(ctx context.Context, tx Transaction, ids []string) error
	CreateFull(ctx context.Context, tx Transaction, full *domain.FullReconcile) error
	GetFullByID(ctx context.Context, tx Transaction, id string) (*domain.FullReconcile, error)
	DeleteFull(ctx context.Context, tx Transaction, id string) error
	AssignFull(ctx context.Context, tx Transaction, partialIDs []string, fullID string) error
}

// AccountRepository exposes read-only account reference data.
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error)
}

// JournalRepository exposes read-only journal reference data.
type JournalRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Journal, error)
}

// CompanyRepository exposes read-only company reference data.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Company, error)
}

// CurrencyRepository exposes read-only currency reference data.
type CurrencyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Currency, error)
}

// TaxRepository exposes read-only tax reference data.
type TaxRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Tax, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.Tax, error)
}

// SequenceService hands out the next identifier of a named series.
// Next fails with domain.ErrNoSequenceConfigured for unknown codes.
type SequenceService interface {
	Next(ctx context.Context, tx Transaction, code string) (string, error)
}

// CurrencyConverter converts an amount between currencies at a given date.
// Read-only collaborator; a failure propagates as an error, never a retry.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, fromCurrencyID, toCurrencyID, companyID string, date time.Time) (decimal.Decimal, error)
}

// OutboxRepository defines data access for outbox events.
type OutboxRepository interface {
	Create(ctx context.Context, tx Transaction, event *domain.OutboxEvent) error
	GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id string, publishedAt time.Time) error
	DeletePublished(ctx context.Context, before time.Time) error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
}
