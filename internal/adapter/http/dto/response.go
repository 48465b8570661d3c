package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

// LineResponse represents a journal entry line in API responses.
type LineResponse struct {
	ID                     string          `json:"id"`
	EntryID                string          `json:"entry_id"`
	AccountID              string          `json:"account_id"`
	Name                   string          `json:"name,omitempty"`
	Debit                  decimal.Decimal `json:"debit"`
	Credit                 decimal.Decimal `json:"credit"`
	AmountCurrency         decimal.Decimal `json:"amount_currency"`
	CurrencyID             string          `json:"currency_id,omitempty"`
	AmountResidual         decimal.Decimal `json:"amount_residual"`
	AmountResidualCurrency decimal.Decimal `json:"amount_residual_currency"`
	Reconciled             bool            `json:"reconciled"`
	FullReconcileID        string          `json:"full_reconcile_id,omitempty"`
	TaxIDs                 []string        `json:"tax_ids,omitempty"`
	TaxLineID              string          `json:"tax_line_id,omitempty"`
	TaxExigible            bool            `json:"tax_exigible"`
	Date                   time.Time       `json:"date"`
	DateMaturity           *time.Time      `json:"date_maturity,omitempty"`
	PartnerID              string          `json:"partner_id,omitempty"`
	CompanyID              string          `json:"company_id"`
	CreatedAt              time.Time       `json:"created_at"`
}

// LineFromDomain converts a domain line to a response.
func LineFromDomain(l *domain.Line) *LineResponse {
	resp := &LineResponse{
		ID:                     l.ID,
		EntryID:                l.EntryID,
		AccountID:              l.AccountID,
		Name:                   l.Name,
		Debit:                  l.Debit,
		Credit:                 l.Credit,
		AmountCurrency:         l.AmountCurrency,
		CurrencyID:             l.CurrencyID,
		AmountResidual:         l.AmountResidual,
		AmountResidualCurrency: l.AmountResidualCurrency,
		Reconciled:             l.Reconciled,
		FullReconcileID:        l.FullReconcileID,
		TaxIDs:                 l.TaxIDs,
		TaxLineID:              l.TaxLineID,
		TaxExigible:            l.TaxExigible,
		Date:                   l.Date,
		PartnerID:              l.PartnerID,
		CompanyID:              l.CompanyID,
		CreatedAt:              l.CreatedAt,
	}
	if !l.DateMaturity.IsZero() {
		maturity := l.DateMaturity
		resp.DateMaturity = &maturity
	}
	return resp
}

// LinesFromDomain converts domain lines to responses.
func LinesFromDomain(lines []*domain.Line) []*LineResponse {
	result := make([]*LineResponse, len(lines))
	for i, l := range lines {
		result[i] = LineFromDomain(l)
	}
	return result
}

// EntryResponse represents a journal entry in API responses.
type EntryResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name,omitempty"`
	Ref               string          `json:"ref,omitempty"`
	Date              time.Time       `json:"date"`
	JournalID         string          `json:"journal_id"`
	CompanyID         string          `json:"company_id"`
	State             string          `json:"state"`
	Lines             []*LineResponse `json:"lines"`
	MatchedPercentage decimal.Decimal `json:"matched_percentage"`
	TaxCashBasisRecID string          `json:"tax_cash_basis_rec_id,omitempty"`
	ReversalOfID      string          `json:"reversal_of_id,omitempty"`
	ReversalEntryID   string          `json:"reversal_entry_id,omitempty"`
	AutoReverse       bool            `json:"auto_reverse,omitempty"`
	ReverseDate       *time.Time      `json:"reverse_date,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	PostedAt          *time.Time      `json:"posted_at,omitempty"`
}

// EntryFromDomain converts a domain entry to a response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	resp := &EntryResponse{
		ID:                e.ID,
		Name:              e.Name,
		Ref:               e.Ref,
		Date:              e.Date,
		JournalID:         e.JournalID,
		CompanyID:         e.CompanyID,
		State:             string(e.State),
		Lines:             LinesFromDomain(e.Lines),
		MatchedPercentage: e.MatchedPercentage,
		TaxCashBasisRecID: e.TaxCashBasisRecID,
		ReversalOfID:      e.ReversalOfID,
		ReversalEntryID:   e.ReversalEntryID,
		AutoReverse:       e.AutoReverse,
		CreatedAt:         e.CreatedAt,
	}
	if !e.ReverseDate.IsZero() {
		reverseDate := e.ReverseDate
		resp.ReverseDate = &reverseDate
	}
	if !e.PostedAt.IsZero() {
		postedAt := e.PostedAt
		resp.PostedAt = &postedAt
	}
	return resp
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// PartialResponse represents a partial reconciliation in API responses.
type PartialResponse struct {
	ID              string          `json:"id"`
	DebitLineID     string          `json:"debit_line_id"`
	CreditLineID    string          `json:"credit_line_id"`
	Amount          decimal.Decimal `json:"amount"`
	AmountCurrency  decimal.Decimal `json:"amount_currency"`
	CurrencyID      string          `json:"currency_id,omitempty"`
	FullReconcileID string          `json:"full_reconcile_id,omitempty"`
	MaxDate         time.Time       `json:"max_date"`
	CreatedAt       time.Time       `json:"created_at"`
}

// PartialFromDomain converts a domain partial to a response.
func PartialFromDomain(p *domain.PartialReconcile) *PartialResponse {
	return &PartialResponse{
		ID:              p.ID,
		DebitLineID:     p.DebitLineID,
		CreditLineID:    p.CreditLineID,
		Amount:          p.Amount,
		AmountCurrency:  p.AmountCurrency,
		CurrencyID:      p.CurrencyID,
		FullReconcileID: p.FullReconcileID,
		MaxDate:         p.MaxDate,
		CreatedAt:       p.CreatedAt,
	}
}

// PartialsFromDomain converts domain partials to responses.
func PartialsFromDomain(partials []*domain.PartialReconcile) []*PartialResponse {
	result := make([]*PartialResponse, len(partials))
	for i, p := range partials {
		result[i] = PartialFromDomain(p)
	}
	return result
}

// FullReconcileResponse represents a full reconciliation in API responses.
type FullReconcileResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	PartialIDs      []string  `json:"partial_ids"`
	LineIDs         []string  `json:"line_ids"`
	ExchangeEntryID string    `json:"exchange_entry_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// FullReconcileFromDomain converts a domain full reconciliation to a response.
func FullReconcileFromDomain(f *domain.FullReconcile) *FullReconcileResponse {
	return &FullReconcileResponse{
		ID:              f.ID,
		Name:            f.Name,
		PartialIDs:      f.PartialIDs,
		LineIDs:         f.LineIDs,
		ExchangeEntryID: f.ExchangeEntryID,
		CreatedAt:       f.CreatedAt,
	}
}

// ReconcileResponse reports everything one reconciliation pass produced.
type ReconcileResponse struct {
	Partials         []*PartialResponse     `json:"partials"`
	FullReconcile    *FullReconcileResponse `json:"full_reconcile,omitempty"`
	WriteOffEntry    *EntryResponse         `json:"write_off_entry,omitempty"`
	ExchangeEntry    *EntryResponse         `json:"exchange_entry,omitempty"`
	CashBasisEntries []*EntryResponse       `json:"cash_basis_entries,omitempty"`
}

// ReconcileFromResult converts a use case result to a response.
func ReconcileFromResult(res *usecase.ReconcileResult) *ReconcileResponse {
	resp := &ReconcileResponse{
		Partials: PartialsFromDomain(res.Partials),
	}
	if res.FullReconcile != nil {
		resp.FullReconcile = FullReconcileFromDomain(res.FullReconcile)
	}
	if res.WriteOffEntry != nil {
		resp.WriteOffEntry = EntryFromDomain(res.WriteOffEntry)
	}
	if res.ExchangeEntry != nil {
		resp.ExchangeEntry = EntryFromDomain(res.ExchangeEntry)
	}
	if len(res.CashBasisEntries) > 0 {
		resp.CashBasisEntries = EntriesFromDomain(res.CashBasisEntries)
	}
	return resp
}

// PaymentResponse represents a registered payment in API responses.
type PaymentResponse struct {
	Entry          *EntryResponse     `json:"entry"`
	Reconciliation *ReconcileResponse `json:"reconciliation,omitempty"`
}

// PaymentFromResult converts a use case result to a response.
func PaymentFromResult(res *usecase.RegisterPaymentResult) *PaymentResponse {
	resp := &PaymentResponse{Entry: EntryFromDomain(res.Entry)}
	if res.Reconciliation != nil {
		resp.Reconciliation = ReconcileFromResult(res.Reconciliation)
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
