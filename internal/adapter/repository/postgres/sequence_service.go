package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

// SequenceService implements usecase.SequenceService on a sequences table.
// Drawing a number takes a row lock, so two entries posted concurrently in
// the same series never share a name.
type SequenceService struct {
	pool *pgxpool.Pool
}

// NewSequenceService creates a new SequenceService.
func NewSequenceService(pool *pgxpool.Pool) *SequenceService {
	return &SequenceService{pool: pool}
}

// Next draws the next identifier of the named series inside the caller's
// transaction.
func (s *SequenceService) Next(ctx context.Context, tx usecase.Transaction, code string) (string, error) {
	pgxTx := tx.(*Tx).PgxTx()

	query := `
		UPDATE sequences
		SET next_number = next_number + 1
		WHERE code = $1
		RETURNING prefix, padding, next_number - 1
	`

	var (
		prefix  string
		padding int
		number  int64
	)

	err := pgxTx.QueryRow(ctx, query, code).Scan(&prefix, &padding, &number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("%w: %s", domain.ErrNoSequenceConfigured, code)
		}

		return "", err
	}

	return fmt.Sprintf("%s%0*d", prefix, padding, number), nil
}
