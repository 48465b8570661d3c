package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
)

// RateConverter implements usecase.CurrencyConverter over a currency_rates
// table. Rates are stored per company as units of the currency per one unit
// of the functional currency; the rate in effect is the latest one dated at
// or before the conversion date.
type RateConverter struct {
	pool *pgxpool.Pool
}

// NewRateConverter creates a new RateConverter.
func NewRateConverter(pool *pgxpool.Pool) *RateConverter {
	return &RateConverter{pool: pool}
}

// Convert converts an amount between two currencies at the given date.
func (c *RateConverter) Convert(ctx context.Context, amount decimal.Decimal, fromCurrencyID, toCurrencyID, companyID string, date time.Time) (decimal.Decimal, error) {
	if fromCurrencyID == toCurrencyID || amount.IsZero() {
		return amount, nil
	}

	fromRate, err := c.rateAt(ctx, fromCurrencyID, companyID, date)
	if err != nil {
		return decimal.Zero, err
	}

	toRate, err := c.rateAt(ctx, toCurrencyID, companyID, date)
	if err != nil {
		return decimal.Zero, err
	}

	places, err := c.decimalPlaces(ctx, toCurrencyID)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.Div(fromRate).Mul(toRate).Round(places), nil
}

func (c *RateConverter) rateAt(ctx context.Context, currencyID, companyID string, date time.Time) (decimal.Decimal, error) {
	query := `
		SELECT rate
		FROM currency_rates
		WHERE currency_id = $1 AND company_id = $2 AND date <= $3
		ORDER BY date DESC
		LIMIT 1
	`

	var rate pgtype.Numeric
	err := c.pool.QueryRow(ctx, query, currencyID, companyID, date).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("no rate for %s at %s", currencyID, date.Format("2006-01-02"))
		}

		return decimal.Zero, err
	}

	d := numericToDecimal(rate)
	if d.IsZero() {
		return decimal.Zero, fmt.Errorf("zero rate for %s at %s", currencyID, date.Format("2006-01-02"))
	}

	return d, nil
}

func (c *RateConverter) decimalPlaces(ctx context.Context, currencyID string) (int32, error) {
	var places int32
	err := c.pool.QueryRow(ctx, `SELECT decimal_places FROM currencies WHERE id = $1`, currencyID).Scan(&places)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrCurrencyNotFound
		}

		return 0, err
	}

	return places, nil
}
