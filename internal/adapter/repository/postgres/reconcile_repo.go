package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

const partialColumns = `
	id, debit_line_id, credit_line_id,
	amount, amount_currency, currency_id,
	full_reconcile_id, max_date, created_at
`

// ReconcileRepository implements usecase.ReconcileRepository.
type ReconcileRepository struct {
	pool *pgxpool.Pool
}

// NewReconcileRepository creates a new ReconcileRepository.
func NewReconcileRepository(pool *pgxpool.Pool) *ReconcileRepository {
	return &ReconcileRepository{pool: pool}
}

// CreatePartial inserts a partial reconciliation.
func (r *ReconcileRepository) CreatePartial(ctx context.Context, tx usecase.Transaction, partial *domain.PartialReconcile) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO partial_reconciles (` + partialColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := pgxTx.Exec(ctx, query,
		partial.ID,
		partial.DebitLineID,
		partial.CreditLineID,
		decimalToNumeric(partial.Amount),
		decimalToNumeric(partial.AmountCurrency),
		stringToPgText(partial.CurrencyID),
		stringToPgText(partial.FullReconcileID),
		timeToPgTimestamptz(partial.MaxDate),
		partial.CreatedAt,
	)

	return err
}

// GetPartialsByLineIDs retrieves every partial touching one of the lines.
func (r *ReconcileRepository) GetPartialsByLineIDs(ctx context.Context, tx usecase.Transaction, lineIDs []string) ([]*domain.PartialReconcile, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		SELECT ` + partialColumns + `
		FROM partial_reconciles
		WHERE debit_line_id = ANY($1) OR credit_line_id = ANY($1)
		ORDER BY id
	`

	rows, err := pgxTx.Query(ctx, query, lineIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var partials []*domain.PartialReconcile
	for rows.Next() {
		partial, err := scanPartial(rows)
		if err != nil {
			return nil, err
		}
		partials = append(partials, partial)
	}

	return partials, rows.Err()
}

// DeletePartials removes partial reconciliations by ID.
func (r *ReconcileRepository) DeletePartials(ctx context.Context, tx usecase.Transaction, ids []string) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `DELETE FROM partial_reconciles WHERE id = ANY($1)`, ids)

	return err
}

// CreateFull inserts a full reconciliation record.
func (r *ReconcileRepository) CreateFull(ctx context.Context, tx usecase.Transaction, full *domain.FullReconcile) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		INSERT INTO full_reconciles (id, name, exchange_entry_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := pgxTx.Exec(ctx, query,
		full.ID,
		full.Name,
		stringToPgText(full.ExchangeEntryID),
		full.CreatedAt,
	)

	return err
}

// GetFullByID retrieves a full reconciliation, its member partials and lines
// resolved from their back references.
func (r *ReconcileRepository) GetFullByID(ctx context.Context, tx usecase.Transaction, id string) (*domain.FullReconcile, error) {
	pgxTx := tx.(*Tx).PgxTx()

	var (
		full            domain.FullReconcile
		exchangeEntryID pgtype.Text
	)

	query := `SELECT id, name, exchange_entry_id, created_at FROM full_reconciles WHERE id = $1`

	err := pgxTx.QueryRow(ctx, query, id).Scan(&full.ID, &full.Name, &exchangeEntryID, &full.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFullNotFound
		}

		return nil, err
	}
	full.ExchangeEntryID = pgTextToString(exchangeEntryID)

	full.PartialIDs, err = collectIDs(ctx, pgxTx,
		`SELECT id FROM partial_reconciles WHERE full_reconcile_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}

	full.LineIDs, err = collectIDs(ctx, pgxTx,
		`SELECT id FROM lines WHERE full_reconcile_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}

	return &full, nil
}

// DeleteFull removes a full reconciliation record.
func (r *ReconcileRepository) DeleteFull(ctx context.Context, tx usecase.Transaction, id string) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `DELETE FROM full_reconciles WHERE id = $1`, id)

	return err
}

// AssignFull stamps the closure onto its member partials.
func (r *ReconcileRepository) AssignFull(ctx context.Context, tx usecase.Transaction, partialIDs []string, fullID string) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE partial_reconciles SET full_reconcile_id = $2 WHERE id = ANY($1)`

	_, err := pgxTx.Exec(ctx, query, partialIDs, fullID)

	return err
}

func scanPartial(row pgx.Row) (*domain.PartialReconcile, error) {
	var (
		partial         domain.PartialReconcile
		amount          pgtype.Numeric
		amountCurrency  pgtype.Numeric
		currencyID      pgtype.Text
		fullReconcileID pgtype.Text
		maxDate         pgtype.Timestamptz
	)

	err := row.Scan(
		&partial.ID,
		&partial.DebitLineID,
		&partial.CreditLineID,
		&amount,
		&amountCurrency,
		&currencyID,
		&fullReconcileID,
		&maxDate,
		&partial.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	partial.Amount = numericToDecimal(amount)
	partial.AmountCurrency = numericToDecimal(amountCurrency)
	partial.CurrencyID = pgTextToString(currencyID)
	partial.FullReconcileID = pgTextToString(fullReconcileID)
	partial.MaxDate = pgTimestamptzToTime(maxDate)

	return &partial, nil
}

func collectIDs(ctx context.Context, db dbtx, query string, args ...any) ([]string, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}
