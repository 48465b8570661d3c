package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/infrastructure/metrics"
)

// PaymentType is the direction of a payment relative to the company.
type PaymentType string

const (
	// PaymentInbound is money received, settling receivables.
	PaymentInbound PaymentType = "inbound"
	// PaymentOutbound is money sent, settling payables.
	PaymentOutbound PaymentType = "outbound"
)

// PaymentUseCase builds, posts and settles payment entries.
type PaymentUseCase struct {
	txManager   TransactionManager
	journalRepo JournalRepository
	companyRepo CompanyRepository
	accountRepo AccountRepository
	converter   CurrencyConverter
	entries     *EntryUseCase
	recon       *ReconcileUseCase
	metrics     *metrics.Metrics
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
	txManager TransactionManager,
	journalRepo JournalRepository,
	companyRepo CompanyRepository,
	accountRepo AccountRepository,
	converter CurrencyConverter,
	entries *EntryUseCase,
	recon *ReconcileUseCase,
	m *metrics.Metrics,
) *PaymentUseCase {
	return &PaymentUseCase{
		txManager:   txManager,
		journalRepo: journalRepo,
		companyRepo: companyRepo,
		accountRepo: accountRepo,
		converter:   converter,
		entries:     entries,
		recon:       recon,
		metrics:     m,
	}
}

// PaymentWriteOffInput books the difference between the payment and the
// settled invoices instead of leaving it open.
type PaymentWriteOffInput struct {
	AccountID string
	Label     string
}

// RegisterPaymentInput represents input for registering a payment.
type RegisterPaymentInput struct {
	PaymentType      PaymentType
	PartnerID        string
	Amount           decimal.Decimal
	CurrencyID       string
	JournalID        string
	PartnerAccountID string
	Date             time.Time
	Ref              string
	InvoiceLineIDs   []string
	WriteOff         *PaymentWriteOffInput
}

// RegisterPaymentResult is the posted payment entry and, when invoice lines
// were given, the reconciliation it produced.
type RegisterPaymentResult struct {
	Entry          *domain.Entry
	Reconciliation *ReconcileResult
}

// RegisterPayment builds the two-line payment entry, posts it and settles it
// against the given invoice lines, all in one transaction. An inbound payment
// credits the partner account and debits the liquidity account of the
// journal; outbound is the mirror image.
func (uc *PaymentUseCase) RegisterPayment(ctx context.Context, input RegisterPaymentInput) (*RegisterPaymentResult, error) {
	if !input.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	journal, err := uc.journalRepo.GetByID(ctx, input.JournalID)
	if err != nil {
		return nil, err
	}

	if journal.DefaultAccountID == "" {
		return nil, domain.ErrAccountNotFound
	}

	company, err := uc.companyRepo.GetByID(ctx, journal.CompanyID)
	if err != nil {
		return nil, err
	}

	partnerAccount, err := uc.accountRepo.GetByID(ctx, input.PartnerAccountID)
	if err != nil {
		return nil, err
	}

	if !partnerAccount.ReconcileEligible() {
		return nil, domain.ErrAccountNotReconcilable
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	// Money received reduces the receivable: the partner side goes negative.
	signed := input.Amount
	if input.PaymentType == PaymentInbound {
		signed = signed.Neg()
	}

	balance := signed
	var amountCurrency decimal.Decimal
	var currencyID string
	if input.CurrencyID != "" && input.CurrencyID != company.CurrencyID {
		currencyID = input.CurrencyID
		amountCurrency = signed

		balance, err = uc.converter.Convert(ctx, signed, currencyID, company.CurrencyID, company.ID, date)
		if err != nil {
			return nil, err
		}
	}

	label := input.Ref
	if label == "" {
		label = "payment"
	}

	counterpart := LineInput{
		AccountID:      input.PartnerAccountID,
		Name:           label,
		Debit:          decimal.Max(balance, decimal.Zero),
		Credit:         decimal.Max(balance.Neg(), decimal.Zero),
		AmountCurrency: amountCurrency,
		CurrencyID:     currencyID,
		PartnerID:      input.PartnerID,
		DateMaturity:   date,
	}

	liquidity := LineInput{
		AccountID:      journal.DefaultAccountID,
		Name:           label,
		Debit:          decimal.Max(balance.Neg(), decimal.Zero),
		Credit:         decimal.Max(balance, decimal.Zero),
		AmountCurrency: amountCurrency.Neg(),
		CurrencyID:     currencyID,
		PartnerID:      input.PartnerID,
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	entry, err := uc.entries.createWithinTx(ctx, tx, CreateEntryInput{
		JournalID: journal.ID,
		Ref:       input.Ref,
		Date:      date,
		Lines:     []LineInput{counterpart, liquidity},
	}, false)
	if err != nil {
		return nil, err
	}

	if err := uc.entries.postWithinTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	result := &RegisterPaymentResult{Entry: entry}

	if len(input.InvoiceLineIDs) > 0 {
		recInput := ReconcileInput{
			LineIDs: append(append([]string{}, input.InvoiceLineIDs...), entry.Lines[0].ID),
		}

		if input.WriteOff != nil {
			recInput.WriteOff = &WriteOffInput{
				JournalID: journal.ID,
				AccountID: input.WriteOff.AccountID,
				Label:     input.WriteOff.Label,
			}
		}

		recRes, err := uc.recon.reconcileWithinTx(ctx, tx, recInput)
		if err != nil {
			return nil, err
		}

		result.Reconciliation = recRes
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.PaymentsRegistered.WithLabelValues(string(input.PaymentType)).Inc()
		uc.metrics.PaymentAmount.Observe(input.Amount.InexactFloat64())
	}

	return result, nil
}
