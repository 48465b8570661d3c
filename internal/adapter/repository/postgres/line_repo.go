package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

// LineRepository implements usecase.LineRepository.
type LineRepository struct {
	pool *pgxpool.Pool
}

// NewLineRepository creates a new LineRepository.
func NewLineRepository(pool *pgxpool.Pool) *LineRepository {
	return &LineRepository{pool: pool}
}

// GetByIDs retrieves lines by their IDs.
func (r *LineRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Line, error) {
	query := `SELECT ` + lineColumns + ` FROM lines WHERE id = ANY($1) ORDER BY id`

	return queryLines(ctx, r.pool, query, ids)
}

// GetByIDsForUpdate retrieves lines with FOR UPDATE locks, in ascending ID
// order so concurrent reconciliations lock consistently.
func (r *LineRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Line, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + lineColumns + ` FROM lines WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	return queryLines(ctx, pgxTx, query, ids)
}

// GetByEntryIDs retrieves all lines of the given entries.
func (r *LineRepository) GetByEntryIDs(ctx context.Context, tx usecase.Transaction, entryIDs []string) ([]*domain.Line, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `SELECT ` + lineColumns + ` FROM lines WHERE entry_id = ANY($1) ORDER BY id FOR UPDATE`

	return queryLines(ctx, pgxTx, query, entryIDs)
}

// UpdateResiduals writes back the matching state of a line.
func (r *LineRepository) UpdateResiduals(ctx context.Context, tx usecase.Transaction, line *domain.Line) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE lines
		SET amount_residual = $2,
		    amount_residual_currency = $3,
		    reconciled = $4,
		    full_reconcile_id = $5
		WHERE id = $1
	`

	_, err := pgxTx.Exec(ctx, query,
		line.ID,
		decimalToNumeric(line.AmountResidual),
		decimalToNumeric(line.AmountResidualCurrency),
		line.Reconciled,
		stringToPgText(line.FullReconcileID),
	)

	return err
}

// UpdateMaturity changes the maturity date of a line.
func (r *LineRepository) UpdateMaturity(ctx context.Context, tx usecase.Transaction, lineID string, maturity time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE lines SET date_maturity = $2 WHERE id = $1`

	_, err := pgxTx.Exec(ctx, query, lineID, timeToPgTimestamptz(maturity))

	return err
}

// SetFullReconcile stamps the closure onto every line of the cluster.
func (r *LineRepository) SetFullReconcile(ctx context.Context, tx usecase.Transaction, lineIDs []string, fullID string) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE lines SET full_reconcile_id = $2 WHERE id = ANY($1)`

	_, err := pgxTx.Exec(ctx, query, lineIDs, fullID)

	return err
}

// ClearFullReconcile detaches every line from a dissolved closure.
func (r *LineRepository) ClearFullReconcile(ctx context.Context, tx usecase.Transaction, fullID string) error {
	pgxTx := tx.(*Tx).PgxTx()

	query := `UPDATE lines SET full_reconcile_id = NULL WHERE full_reconcile_id = $1`

	_, err := pgxTx.Exec(ctx, query, fullID)

	return err
}

func queryLines(ctx context.Context, db dbtx, query string, args ...any) ([]*domain.Line, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []*domain.Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	return lines, rows.Err()
}
