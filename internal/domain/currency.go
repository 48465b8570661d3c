package domain

import "github.com/shopspring/decimal"

// Currency is read-only reference data. DecimalPlaces drives rounding and the
// balance tolerance; conversion lives behind the CurrencyConverter
// collaborator, not here.
type Currency struct {
	ID            string
	Name          string
	DecimalPlaces int32
}

// Round rounds an amount to the currency's precision.
func (c *Currency) Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(c.DecimalPlaces)
}

// IsZero reports whether an amount rounds to zero in this currency.
func (c *Currency) IsZero(amount decimal.Decimal) bool {
	return c.Round(amount).IsZero()
}

// Tolerance is the only slack permitted on balance checks, derived from the
// currency precision. Matches 10^-max(5, places).
func (c *Currency) Tolerance() decimal.Decimal {
	places := c.DecimalPlaces
	if places < 5 {
		places = 5
	}
	return decimal.New(1, -places)
}
