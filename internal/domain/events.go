package domain

import "time"

// Event types
const (
	EventTypeEntryPosted           = "entry.posted"
	EventTypeReconciliationClosed  = "reconciliation.closed"
	EventTypeGeneratorEntryCreated = "generator.entry_created"
)

// Aggregate types
const (
	AggregateTypeEntry         = "entry"
	AggregateTypeFullReconcile = "full_reconcile"
)

// Generator kinds carried by generator.entry_created events.
const (
	GeneratorKindWriteOff  = "write_off"
	GeneratorKindCashBasis = "cash_basis"
	GeneratorKindExchange  = "exchange_difference"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// EntryPostedEvent payload
type EntryPostedEvent struct {
	EntryID   string   `json:"entry_id"`
	Name      string   `json:"name"`
	JournalID string   `json:"journal_id"`
	LineIDs   []string `json:"line_ids"`
}

// ReconciliationClosedEvent payload
type ReconciliationClosedEvent struct {
	FullReconcileID string   `json:"full_reconcile_id"`
	Name            string   `json:"name"`
	LineIDs         []string `json:"line_ids"`
}

// GeneratorEntryCreatedEvent payload
type GeneratorEntryCreatedEvent struct {
	EntryID string   `json:"entry_id"`
	Kind    string   `json:"kind"`
	LineIDs []string `json:"line_ids"`
}
