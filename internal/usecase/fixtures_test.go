package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
	"github.com/iho/goreconcile/internal/usecase/mocks"
)

// testEnv bundles every mock collaborator with fully wired use cases and a
// small chart of accounts shared by the tests.
type testEnv struct {
	entryRepo    *mocks.MockEntryRepository
	lineRepo     *mocks.MockLineRepository
	reconRepo    *mocks.MockReconcileRepository
	accountRepo  *mocks.MockAccountRepository
	journalRepo  *mocks.MockJournalRepository
	companyRepo  *mocks.MockCompanyRepository
	currencyRepo *mocks.MockCurrencyRepository
	taxRepo      *mocks.MockTaxRepository
	outboxRepo   *mocks.MockOutboxRepository
	idGen        *mocks.MockIDGenerator
	txManager    *mocks.MockTransactionManager

	company *domain.Company

	entries  *usecase.EntryUseCase
	recon    *usecase.ReconcileUseCase
	payments *usecase.PaymentUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctrl := gomock.NewController(t)

	env := &testEnv{
		entryRepo:    mocks.NewMockEntryRepository(),
		lineRepo:     mocks.NewMockLineRepository(),
		reconRepo:    mocks.NewMockReconcileRepository(),
		accountRepo:  mocks.NewMockAccountRepository(),
		journalRepo:  mocks.NewMockJournalRepository(),
		companyRepo:  mocks.NewMockCompanyRepository(),
		currencyRepo: mocks.NewMockCurrencyRepository(),
		taxRepo:      mocks.NewMockTaxRepository(),
		outboxRepo:   mocks.NewMockOutboxRepository(),
		idGen:        mocks.NewMockIDGenerator(),
		txManager:    mocks.NewMockTransactionManager(),
	}

	// The postgres repository inserts an entry together with its lines, so
	// persisting through the entry mock has to land the lines in the line
	// mock as well.
	env.entryRepo.CreateFunc = func(_ context.Context, _ usecase.Transaction, entry *domain.Entry) error {
		env.entryRepo.Add(entry)
		for _, line := range entry.Lines {
			env.lineRepo.Add(line)
		}
		return nil
	}
	env.entryRepo.ReplaceLinesFunc = func(ctx context.Context, _ usecase.Transaction, entryID string, lines []*domain.Line) error {
		entry, err := env.entryRepo.GetByID(ctx, entryID)
		if err != nil {
			return err
		}
		entry.Lines = lines
		for _, line := range lines {
			env.lineRepo.Add(line)
		}
		return nil
	}

	sequences := mocks.NewMockSequenceService(ctrl)
	counters := map[string]int{}
	sequences.EXPECT().
		Next(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Transaction, code string) (string, error) {
			counters[code]++
			return fmt.Sprintf("%s/%04d", code, counters[code]), nil
		}).
		AnyTimes()

	converter := mocks.NewMockCurrencyConverter(ctrl)
	converter.EXPECT().
		Convert(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, amount decimal.Decimal, _, _, _ string, _ time.Time) (decimal.Decimal, error) {
			return amount, nil
		}).
		AnyTimes()

	env.company = &domain.Company{
		ID:                 "co-1",
		Name:               "Test Co",
		CurrencyID:         "USD",
		ExchangeJournalID:  "j-exch",
		GainAccountID:      "acc-gain",
		LossAccountID:      "acc-loss",
		CashBasisJournalID: "j-cb",
	}
	env.companyRepo.Add(env.company)

	env.currencyRepo.Add(&domain.Currency{ID: "USD", Name: "US Dollar", DecimalPlaces: 2})
	env.currencyRepo.Add(&domain.Currency{ID: "EUR", Name: "Euro", DecimalPlaces: 2})

	env.journalRepo.Add(&domain.Journal{ID: "j-misc", Code: "MISC", Type: domain.JournalTypeGeneral, CompanyID: "co-1", SequenceCode: "MISC", UpdatePosted: true})
	env.journalRepo.Add(&domain.Journal{ID: "j-bank", Code: "BNK", Type: domain.JournalTypeBank, CompanyID: "co-1", SequenceCode: "BNK", DefaultAccountID: "acc-bank"})
	env.journalRepo.Add(&domain.Journal{ID: "j-exch", Code: "EXCH", Type: domain.JournalTypeGeneral, CompanyID: "co-1", SequenceCode: "EXCH"})
	env.journalRepo.Add(&domain.Journal{ID: "j-cb", Code: "CABA", Type: domain.JournalTypeGeneral, CompanyID: "co-1", SequenceCode: "CABA"})
	env.journalRepo.Add(&domain.Journal{ID: "j-noseq", Code: "NOSEQ", Type: domain.JournalTypeGeneral, CompanyID: "co-1"})

	env.accountRepo.Add(&domain.Account{ID: "acc-rec", Code: "121000", CompanyID: "co-1", Type: domain.AccountTypeReceivable, Reconcile: true})
	env.accountRepo.Add(&domain.Account{ID: "acc-pay", Code: "211000", CompanyID: "co-1", Type: domain.AccountTypePayable, Reconcile: true})
	env.accountRepo.Add(&domain.Account{ID: "acc-rev", Code: "400000", CompanyID: "co-1", Type: domain.AccountTypeOther})
	env.accountRepo.Add(&domain.Account{ID: "acc-bank", Code: "101000", CompanyID: "co-1", Type: domain.AccountTypeLiquidity})
	env.accountRepo.Add(&domain.Account{ID: "acc-writeoff", Code: "658000", CompanyID: "co-1", Type: domain.AccountTypeOther})
	env.accountRepo.Add(&domain.Account{ID: "acc-gain", Code: "766000", CompanyID: "co-1", Type: domain.AccountTypeOther})
	env.accountRepo.Add(&domain.Account{ID: "acc-loss", Code: "666000", CompanyID: "co-1", Type: domain.AccountTypeOther})
	env.accountRepo.Add(&domain.Account{ID: "acc-vat-wait", Code: "251000", CompanyID: "co-1", Type: domain.AccountTypeOther})
	env.accountRepo.Add(&domain.Account{ID: "acc-vat-due", Code: "251100", CompanyID: "co-1", Type: domain.AccountTypeOther})
	env.accountRepo.Add(&domain.Account{ID: "acc-cb-base", Code: "999999", CompanyID: "co-1", Type: domain.AccountTypeOther})
	env.accountRepo.Add(&domain.Account{ID: "acc-old", Code: "100000", CompanyID: "co-1", Type: domain.AccountTypeOther, Deprecated: true})

	env.entries = usecase.NewEntryUseCase(
		env.txManager, env.entryRepo, env.lineRepo, env.reconRepo,
		env.accountRepo, env.journalRepo, env.companyRepo, env.currencyRepo,
		env.taxRepo, sequences, converter, env.outboxRepo, env.idGen, nil,
	)

	env.recon = usecase.NewReconcileUseCase(
		env.txManager, env.entryRepo, env.lineRepo, env.reconRepo,
		env.accountRepo, env.companyRepo, env.currencyRepo, env.taxRepo,
		sequences, env.outboxRepo, env.idGen, env.entries, nil,
	)

	env.payments = usecase.NewPaymentUseCase(
		env.txManager, env.journalRepo, env.companyRepo, env.accountRepo,
		converter, env.entries, env.recon, nil,
	)

	return env
}

// lineSpec is shorthand for seeding one posted line.
type lineSpec struct {
	id             string
	accountID      string
	debit          string
	credit         string
	currencyID     string
	amountCurrency string
	taxIDs         []string
	taxLineID      string
	notExigible    bool
	maturity       time.Time
}

// seedPostedEntry stores a posted entry and registers its lines with the line
// repository, residuals initialized to the full amounts.
func (env *testEnv) seedPostedEntry(id, name string, date time.Time, specs ...lineSpec) *domain.Entry {
	entry := &domain.Entry{
		ID:        id,
		Name:      name,
		Date:      date,
		JournalID: "j-misc",
		CompanyID: "co-1",
		State:     domain.EntryStatePosted,
		PostedAt:  date,
	}

	for _, s := range specs {
		line := &domain.Line{
			ID:           s.id,
			EntryID:      id,
			AccountID:    s.accountID,
			Debit:        dec(s.debit),
			Credit:       dec(s.credit),
			CurrencyID:   s.currencyID,
			TaxIDs:       s.taxIDs,
			TaxLineID:    s.taxLineID,
			TaxExigible:  !s.notExigible,
			Date:         date,
			DateMaturity: s.maturity,
			CompanyID:    "co-1",
		}
		if s.amountCurrency != "" {
			line.AmountCurrency = dec(s.amountCurrency)
		}
		line.InitResiduals()

		entry.Lines = append(entry.Lines, line)
		env.lineRepo.Add(line)
	}

	env.entryRepo.Add(entry)
	return entry
}

func dec(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
