package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const entryColumns = `
	id, name, ref, date, journal_id, company_id, state,
	matched_percentage, tax_cash_basis_rec_id,
	reversal_of_id, reversal_entry_id, auto_reverse, reverse_date,
	created_at, posted_at
`

const lineColumns = `
	id, entry_id, account_id, name, debit, credit,
	amount_currency, currency_id,
	amount_residual, amount_residual_currency, reconciled, full_reconcile_id,
	tax_ids, tax_line_id, tax_exigible,
	date, date_maturity, partner_id, company_id, created_at
`

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

// Create inserts an entry together with its lines.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := pgxTx.Exec(ctx, query,
		entry.ID,
		stringToPgText(entry.Name),
		entry.Ref,
		entry.Date,
		entry.JournalID,
		entry.CompanyID,
		string(entry.State),
		decimalToNumeric(entry.MatchedPercentage),
		stringToPgText(entry.TaxCashBasisRecID),
		stringToPgText(entry.ReversalOfID),
		stringToPgText(entry.ReversalEntryID),
		entry.AutoReverse,
		timeToPgTimestamptz(entry.ReverseDate),
		entry.CreatedAt,
		timeToPgTimestamptz(entry.PostedAt),
	)
	if err != nil {
		return err
	}

	return insertLines(ctx, pgxTx, entry.Lines)
}

// GetByID retrieves an entry with its lines.
func (r *EntryRepository) GetByID(ctx context.Context, id string) (*domain.Entry, error) {
	return r.getByID(ctx, r.pool, id, "")
}

// GetByIDForUpdate retrieves an entry with a FOR UPDATE lock on the entry and
// its lines.
func (r *EntryRepository) GetByIDForUpdate(ctx context.Context, tx usecase.Transaction, id string) (*domain.Entry, error) {
	return r.getByID(ctx, tx.(*Tx).PgxTx(), id, " FOR UPDATE")
}

func (r *EntryRepository) getByID(ctx context.Context, db dbtx, id, suffix string) (*domain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = $1` + suffix

	entry, err := scanEntry(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}

		return nil, err
	}

	if err := attachLines(ctx, db, []*domain.Entry{entry}, suffix); err != nil {
		return nil, err
	}

	return entry, nil
}

// GetByIDsForUpdate retrieves multiple entries with FOR UPDATE locks, in
// ascending ID order so concurrent reconciliations lock consistently.
func (r *EntryRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Entry, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + entryColumns + ` FROM entries WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	entries, err := queryEntries(ctx, pgxTx, query, ids)
	if err != nil {
		return nil, err
	}

	if err := attachLines(ctx, pgxTx, entries, " FOR UPDATE"); err != nil {
		return nil, err
	}

	return entries, nil
}

// UpdatePosted marks an entry posted with its assigned name.
func (r *EntryRepository) UpdatePosted(ctx context.Context, tx usecase.Transaction, id, name string, postedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE entries SET name = $2, state = 'posted', posted_at = $3 WHERE id = $1`

	_, err := pgxTx.Exec(ctx, query, id, name, postedAt)

	return err
}

// UpdateState changes the entry state. The name and posted timestamp are kept
// so a reopened entry reposts under its original identifier.
func (r *EntryRepository) UpdateState(ctx context.Context, tx usecase.Transaction, id string, state domain.EntryState) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE entries SET state = $2 WHERE id = $1`

	_, err := pgxTx.Exec(ctx, query, id, string(state))

	return err
}

// UpdateMatchedPercentage stores the settlement percentage fallback.
func (r *EntryRepository) UpdateMatchedPercentage(ctx context.Context, tx usecase.Transaction, id string, percentage decimal.Decimal) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE entries SET matched_percentage = $2 WHERE id = $1`

	_, err := pgxTx.Exec(ctx, query, id, decimalToNumeric(percentage))

	return err
}

// UpdateDraft persists the mutable header fields of a draft entry.
func (r *EntryRepository) UpdateDraft(ctx context.Context, tx usecase.Transaction, entry *domain.Entry) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE entries SET ref = $2, date = $3 WHERE id = $1 AND state = 'draft'`

	_, err := pgxTx.Exec(ctx, query, entry.ID, entry.Ref, entry.Date)

	return err
}

// SetReversal links an entry and its reversal in both directions.
func (r *EntryRepository) SetReversal(ctx context.Context, tx usecase.Transaction, id, reversalEntryID string) error {
	pgxTx := tx.(*Tx).PgxTx()

	if _, err := pgxTx.Exec(ctx, `UPDATE entries SET reversal_entry_id = $2 WHERE id = $1`, id, reversalEntryID); err != nil {
		return err
	}

	_, err := pgxTx.Exec(ctx, `UPDATE entries SET reversal_of_id = $2 WHERE id = $1`, reversalEntryID, id)

	return err
}

// ReplaceLines deletes and re-inserts the lines of a draft entry.
func (r *EntryRepository) ReplaceLines(ctx context.Context, tx usecase.Transaction, entryID string, lines []*domain.Line) error {
	pgxTx := tx.(*Tx).PgxTx()

	if _, err := pgxTx.Exec(ctx, `DELETE FROM lines WHERE entry_id = $1`, entryID); err != nil {
		return err
	}

	return insertLines(ctx, pgxTx, lines)
}

// Delete removes an entry; its lines go with it.
func (r *EntryRepository) Delete(ctx context.Context, tx usecase.Transaction, id string) error {
	pgxTx := tx.(*Tx).PgxTx()

	if _, err := pgxTx.Exec(ctx, `DELETE FROM lines WHERE entry_id = $1`, id); err != nil {
		return err
	}

	_, err := pgxTx.Exec(ctx, `DELETE FROM entries WHERE id = $1`, id)

	return err
}

// GetByCashBasisRecIDs retrieves the generated entries tied to the given
// partial reconciliations.
func (r *EntryRepository) GetByCashBasisRecIDs(ctx context.Context, tx usecase.Transaction, partialIDs []string) ([]*domain.Entry, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + entryColumns + ` FROM entries WHERE tax_cash_basis_rec_id = ANY($1) ORDER BY id FOR UPDATE`

	entries, err := queryEntries(ctx, pgxTx, query, partialIDs)
	if err != nil {
		return nil, err
	}

	if err := attachLines(ctx, pgxTx, entries, " FOR UPDATE"); err != nil {
		return nil, err
	}

	return entries, nil
}

// ListDueAutoReversals lists posted auto-reverse entries whose reverse date
// has passed and that have not been reversed yet.
func (r *EntryRepository) ListDueAutoReversals(ctx context.Context, asOf time.Time) ([]*domain.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM entries
		WHERE auto_reverse
		  AND reversal_entry_id IS NULL
		  AND state = 'posted'
		  AND reverse_date <= $1
		ORDER BY reverse_date, id
	`

	entries, err := queryEntries(ctx, r.pool, query, asOf)
	if err != nil {
		return nil, err
	}

	if err := attachLines(ctx, r.pool, entries, ""); err != nil {
		return nil, err
	}

	return entries, nil
}

func insertLines(ctx context.Context, db dbtx, lines []*domain.Line) error {
	query := `
		INSERT INTO lines (` + lineColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`

	for _, line := range lines {
		_, err := db.Exec(ctx, query,
			line.ID,
			line.EntryID,
			line.AccountID,
			line.Name,
			decimalToNumeric(line.Debit),
			decimalToNumeric(line.Credit),
			decimalToNumeric(line.AmountCurrency),
			stringToPgText(line.CurrencyID),
			decimalToNumeric(line.AmountResidual),
			decimalToNumeric(line.AmountResidualCurrency),
			line.Reconciled,
			stringToPgText(line.FullReconcileID),
			line.TaxIDs,
			stringToPgText(line.TaxLineID),
			line.TaxExigible,
			line.Date,
			timeToPgTimestamptz(line.DateMaturity),
			stringToPgText(line.PartnerID),
			line.CompanyID,
			line.CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}

func queryEntries(ctx context.Context, db dbtx, query string, args ...any) ([]*domain.Entry, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// attachLines loads the lines of the given entries in one round trip and
// distributes them. The lock suffix must match the one used on the entries.
func attachLines(ctx context.Context, db dbtx, entries []*domain.Entry, suffix string) error {
	if len(entries) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Entry, len(entries))
	entryIDs := make([]string, 0, len(entries))
	for _, entry := range entries {
		byID[entry.ID] = entry
		entryIDs = append(entryIDs, entry.ID)
	}

	query := `SELECT ` + lineColumns + ` FROM lines WHERE entry_id = ANY($1) ORDER BY id` + suffix

	rows, err := db.Query(ctx, query, entryIDs)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return err
		}
		byID[line.EntryID].Lines = append(byID[line.EntryID].Lines, line)
	}

	return rows.Err()
}

func scanEntry(row pgx.Row) (*domain.Entry, error) {
	var (
		entry             domain.Entry
		name              pgtype.Text
		state             string
		matchedPercentage pgtype.Numeric
		cashBasisRecID    pgtype.Text
		reversalOfID      pgtype.Text
		reversalEntryID   pgtype.Text
		reverseDate       pgtype.Timestamptz
		postedAt          pgtype.Timestamptz
	)

	err := row.Scan(
		&entry.ID,
		&name,
		&entry.Ref,
		&entry.Date,
		&entry.JournalID,
		&entry.CompanyID,
		&state,
		&matchedPercentage,
		&cashBasisRecID,
		&reversalOfID,
		&reversalEntryID,
		&entry.AutoReverse,
		&reverseDate,
		&entry.CreatedAt,
		&postedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Name = pgTextToString(name)
	entry.State = domain.EntryState(state)
	entry.MatchedPercentage = numericToDecimal(matchedPercentage)
	entry.TaxCashBasisRecID = pgTextToString(cashBasisRecID)
	entry.ReversalOfID = pgTextToString(reversalOfID)
	entry.ReversalEntryID = pgTextToString(reversalEntryID)
	entry.ReverseDate = pgTimestamptzToTime(reverseDate)
	entry.PostedAt = pgTimestamptzToTime(postedAt)

	return &entry, nil
}

func scanLine(row pgx.Row) (*domain.Line, error) {
	var (
		line                   domain.Line
		debit                  pgtype.Numeric
		credit                 pgtype.Numeric
		amountCurrency         pgtype.Numeric
		currencyID             pgtype.Text
		amountResidual         pgtype.Numeric
		amountResidualCurrency pgtype.Numeric
		fullReconcileID        pgtype.Text
		taxLineID              pgtype.Text
		dateMaturity           pgtype.Timestamptz
		partnerID              pgtype.Text
	)

	err := row.Scan(
		&line.ID,
		&line.EntryID,
		&line.AccountID,
		&line.Name,
		&debit,
		&credit,
		&amountCurrency,
		&currencyID,
		&amountResidual,
		&amountResidualCurrency,
		&line.Reconciled,
		&fullReconcileID,
		&line.TaxIDs,
		&taxLineID,
		&line.TaxExigible,
		&line.Date,
		&dateMaturity,
		&partnerID,
		&line.CompanyID,
		&line.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	line.Debit = numericToDecimal(debit)
	line.Credit = numericToDecimal(credit)
	line.AmountCurrency = numericToDecimal(amountCurrency)
	line.CurrencyID = pgTextToString(currencyID)
	line.AmountResidual = numericToDecimal(amountResidual)
	line.AmountResidualCurrency = numericToDecimal(amountResidualCurrency)
	line.FullReconcileID = pgTextToString(fullReconcileID)
	line.TaxLineID = pgTextToString(taxLineID)
	line.DateMaturity = pgTimestamptzToTime(dateMaturity)
	line.PartnerID = pgTextToString(partnerID)

	return &line, nil
}
