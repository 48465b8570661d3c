package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/goreconcile/internal/domain"
)

// Read-only repositories for the chart of accounts and the other reference
// data the ledger core consumes. Reference data is managed outside this
// service; these repositories never write.

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, code, name, company_id, type, currency_id, deprecated, reconcile`

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}

	return account, err
}

// GetByIDs retrieves accounts by their IDs.
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1) ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		account     domain.Account
		accountType string
		currencyID  pgtype.Text
	)

	err := row.Scan(
		&account.ID,
		&account.Code,
		&account.Name,
		&account.CompanyID,
		&accountType,
		&currencyID,
		&account.Deprecated,
		&account.Reconcile,
	)
	if err != nil {
		return nil, err
	}

	account.Type = domain.AccountType(accountType)
	account.CurrencyID = pgTextToString(currencyID)

	return &account, nil
}

// JournalRepository implements usecase.JournalRepository.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// GetByID retrieves a journal by ID.
func (r *JournalRepository) GetByID(ctx context.Context, id string) (*domain.Journal, error) {
	query := `
		SELECT id, code, name, type, company_id, sequence_code, default_account_id,
		       update_posted, allowed_account_ids, allowed_account_types
		FROM journals
		WHERE id = $1
	`

	var (
		journal          domain.Journal
		journalType      string
		sequenceCode     pgtype.Text
		defaultAccountID pgtype.Text
		allowedTypes     []string
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&journal.ID,
		&journal.Code,
		&journal.Name,
		&journalType,
		&journal.CompanyID,
		&sequenceCode,
		&defaultAccountID,
		&journal.UpdatePosted,
		&journal.AllowedAccountIDs,
		&allowedTypes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJournalNotFound
		}

		return nil, err
	}

	journal.Type = domain.JournalType(journalType)
	journal.SequenceCode = pgTextToString(sequenceCode)
	journal.DefaultAccountID = pgTextToString(defaultAccountID)
	for _, t := range allowedTypes {
		journal.AllowedAccountTypes = append(journal.AllowedAccountTypes, domain.AccountType(t))
	}

	return &journal, nil
}

// CompanyRepository implements usecase.CompanyRepository.
type CompanyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository creates a new CompanyRepository.
func NewCompanyRepository(pool *pgxpool.Pool) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// GetByID retrieves a company by ID.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	query := `
		SELECT id, name, currency_id, fiscalyear_lock_date, period_lock_date,
		       exchange_journal_id, gain_account_id, loss_account_id, cash_basis_journal_id
		FROM companies
		WHERE id = $1
	`

	var (
		company            domain.Company
		fiscalyearLockDate pgtype.Timestamptz
		periodLockDate     pgtype.Timestamptz
		exchangeJournalID  pgtype.Text
		gainAccountID      pgtype.Text
		lossAccountID      pgtype.Text
		cashBasisJournalID pgtype.Text
	)

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.CurrencyID,
		&fiscalyearLockDate,
		&periodLockDate,
		&exchangeJournalID,
		&gainAccountID,
		&lossAccountID,
		&cashBasisJournalID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCompanyNotFound
		}

		return nil, err
	}

	company.FiscalyearLockDate = pgTimestamptzToTime(fiscalyearLockDate)
	company.PeriodLockDate = pgTimestamptzToTime(periodLockDate)
	company.ExchangeJournalID = pgTextToString(exchangeJournalID)
	company.GainAccountID = pgTextToString(gainAccountID)
	company.LossAccountID = pgTextToString(lossAccountID)
	company.CashBasisJournalID = pgTextToString(cashBasisJournalID)

	return &company, nil
}

// CurrencyRepository implements usecase.CurrencyRepository.
type CurrencyRepository struct {
	pool *pgxpool.Pool
}

// NewCurrencyRepository creates a new CurrencyRepository.
func NewCurrencyRepository(pool *pgxpool.Pool) *CurrencyRepository {
	return &CurrencyRepository{pool: pool}
}

// GetByID retrieves a currency by ID.
func (r *CurrencyRepository) GetByID(ctx context.Context, id string) (*domain.Currency, error) {
	query := `SELECT id, name, decimal_places FROM currencies WHERE id = $1`

	var currency domain.Currency
	err := r.pool.QueryRow(ctx, query, id).Scan(&currency.ID, &currency.Name, &currency.DecimalPlaces)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCurrencyNotFound
		}

		return nil, err
	}

	return &currency, nil
}

// TaxRepository implements usecase.TaxRepository.
type TaxRepository struct {
	pool *pgxpool.Pool
}

// NewTaxRepository creates a new TaxRepository.
func NewTaxRepository(pool *pgxpool.Pool) *TaxRepository {
	return &TaxRepository{pool: pool}
}

const taxColumns = `id, name, exigibility, cash_basis_account_id, cash_basis_base_account_id`

// GetByID retrieves a tax by ID.
func (r *TaxRepository) GetByID(ctx context.Context, id string) (*domain.Tax, error) {
	query := `SELECT ` + taxColumns + ` FROM taxes WHERE id = $1`

	tax, err := scanTax(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrTaxNotFound
	}

	return tax, err
}

// GetByIDs retrieves taxes by their IDs.
func (r *TaxRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Tax, error) {
	query := `SELECT ` + taxColumns + ` FROM taxes WHERE id = ANY($1) ORDER BY id`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var taxes []*domain.Tax
	for rows.Next() {
		tax, err := scanTax(rows)
		if err != nil {
			return nil, err
		}
		taxes = append(taxes, tax)
	}

	return taxes, rows.Err()
}

func scanTax(row pgx.Row) (*domain.Tax, error) {
	var (
		tax                    domain.Tax
		exigibility            string
		cashBasisAccountID     pgtype.Text
		cashBasisBaseAccountID pgtype.Text
	)

	err := row.Scan(&tax.ID, &tax.Name, &exigibility, &cashBasisAccountID, &cashBasisBaseAccountID)
	if err != nil {
		return nil, err
	}

	tax.Exigibility = domain.TaxExigibility(exigibility)
	tax.CashBasisAccountID = pgTextToString(cashBasisAccountID)
	tax.CashBasisBaseAccountID = pgTextToString(cashBasisBaseAccountID)

	return &tax, nil
}
