package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/usecase"
)

// LineRequest represents one line of a journal entry to create.
type LineRequest struct {
	AccountID      string          `json:"account_id"`
	Name           string          `json:"name,omitempty"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	AmountCurrency decimal.Decimal `json:"amount_currency"`
	CurrencyID     string          `json:"currency_id,omitempty"`
	TaxIDs         []string        `json:"tax_ids,omitempty"`
	TaxLineID      string          `json:"tax_line_id,omitempty"`
	TaxExigible    *bool           `json:"tax_exigible,omitempty"`
	DateMaturity   *time.Time      `json:"date_maturity,omitempty"`
	PartnerID      string          `json:"partner_id,omitempty"`
}

func (r *LineRequest) toUseCaseInput() usecase.LineInput {
	in := usecase.LineInput{
		AccountID:      r.AccountID,
		Name:           r.Name,
		Debit:          r.Debit,
		Credit:         r.Credit,
		AmountCurrency: r.AmountCurrency,
		CurrencyID:     r.CurrencyID,
		TaxIDs:         r.TaxIDs,
		TaxLineID:      r.TaxLineID,
		TaxExigible:    r.TaxExigible,
		PartnerID:      r.PartnerID,
	}
	if r.DateMaturity != nil {
		in.DateMaturity = *r.DateMaturity
	}
	return in
}

func linesToUseCaseInput(lines []LineRequest) []usecase.LineInput {
	result := make([]usecase.LineInput, len(lines))
	for i := range lines {
		result[i] = lines[i].toUseCaseInput()
	}
	return result
}

// CreateEntryRequest represents a request to create a draft journal entry.
type CreateEntryRequest struct {
	JournalID   string        `json:"journal_id"`
	Ref         string        `json:"ref,omitempty"`
	Date        time.Time     `json:"date"`
	AutoReverse bool          `json:"auto_reverse,omitempty"`
	ReverseDate *time.Time    `json:"reverse_date,omitempty"`
	Lines       []LineRequest `json:"lines"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateEntryRequest) ToUseCaseInput() usecase.CreateEntryInput {
	in := usecase.CreateEntryInput{
		JournalID:   r.JournalID,
		Ref:         r.Ref,
		Date:        r.Date,
		AutoReverse: r.AutoReverse,
		Lines:       linesToUseCaseInput(r.Lines),
	}
	if r.ReverseDate != nil {
		in.ReverseDate = *r.ReverseDate
	}
	return in
}

// UpdateEntryRequest represents a request to rewrite a draft entry. Nil
// header fields are left unchanged; a non-nil Lines replaces all lines.
type UpdateEntryRequest struct {
	Ref   *string       `json:"ref,omitempty"`
	Date  *time.Time    `json:"date,omitempty"`
	Lines []LineRequest `json:"lines,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *UpdateEntryRequest) ToUseCaseInput() usecase.UpdateEntryInput {
	in := usecase.UpdateEntryInput{
		Ref:  r.Ref,
		Date: r.Date,
	}
	if r.Lines != nil {
		in.Lines = linesToUseCaseInput(r.Lines)
	}
	return in
}

// ReverseEntryRequest represents a request to reverse a posted entry.
type ReverseEntryRequest struct {
	Date      *time.Time `json:"date,omitempty"`
	JournalID string     `json:"journal_id,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ReverseEntryRequest) ToUseCaseInput() usecase.ReverseEntryInput {
	in := usecase.ReverseEntryInput{JournalID: r.JournalID}
	if r.Date != nil {
		in.Date = *r.Date
	}
	return in
}

// UpdateMaturityRequest represents a request to change a line's maturity date.
type UpdateMaturityRequest struct {
	DateMaturity time.Time `json:"date_maturity"`
}

// WriteOffRequest describes where a reconciliation remainder is booked.
type WriteOffRequest struct {
	JournalID string `json:"journal_id"`
	AccountID string `json:"account_id"`
	Label     string `json:"label,omitempty"`
}

// ReconcileRequest represents a request to reconcile a set of open lines.
type ReconcileRequest struct {
	LineIDs  []string         `json:"line_ids"`
	WriteOff *WriteOffRequest `json:"write_off,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *ReconcileRequest) ToUseCaseInput() usecase.ReconcileInput {
	in := usecase.ReconcileInput{LineIDs: r.LineIDs}
	if r.WriteOff != nil {
		in.WriteOff = &usecase.WriteOffInput{
			JournalID: r.WriteOff.JournalID,
			AccountID: r.WriteOff.AccountID,
			Label:     r.WriteOff.Label,
		}
	}
	return in
}

// RemoveReconciliationRequest represents a request to undo reconciliations.
type RemoveReconciliationRequest struct {
	LineIDs []string `json:"line_ids"`
}

// ToUseCaseInput converts to use case input.
func (r *RemoveReconciliationRequest) ToUseCaseInput() usecase.RemoveReconciliationInput {
	return usecase.RemoveReconciliationInput{LineIDs: r.LineIDs}
}

// PaymentWriteOffRequest books the payment difference instead of leaving it open.
type PaymentWriteOffRequest struct {
	AccountID string `json:"account_id"`
	Label     string `json:"label,omitempty"`
}

// RegisterPaymentRequest represents a request to register a payment.
type RegisterPaymentRequest struct {
	PaymentType      string                  `json:"payment_type"`
	PartnerID        string                  `json:"partner_id,omitempty"`
	Amount           decimal.Decimal         `json:"amount"`
	CurrencyID       string                  `json:"currency_id,omitempty"`
	JournalID        string                  `json:"journal_id"`
	PartnerAccountID string                  `json:"partner_account_id"`
	Date             *time.Time              `json:"date,omitempty"`
	Ref              string                  `json:"ref,omitempty"`
	InvoiceLineIDs   []string                `json:"invoice_line_ids,omitempty"`
	WriteOff         *PaymentWriteOffRequest `json:"write_off,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *RegisterPaymentRequest) ToUseCaseInput() usecase.RegisterPaymentInput {
	in := usecase.RegisterPaymentInput{
		PaymentType:      usecase.PaymentType(r.PaymentType),
		PartnerID:        r.PartnerID,
		Amount:           r.Amount,
		CurrencyID:       r.CurrencyID,
		JournalID:        r.JournalID,
		PartnerAccountID: r.PartnerAccountID,
		Ref:              r.Ref,
		InvoiceLineIDs:   r.InvoiceLineIDs,
	}
	if r.Date != nil {
		in.Date = *r.Date
	}
	if r.WriteOff != nil {
		in.WriteOff = &usecase.PaymentWriteOffInput{
			AccountID: r.WriteOff.AccountID,
			Label:     r.WriteOff.Label,
		}
	}
	return in
}
