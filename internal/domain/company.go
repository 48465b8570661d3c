package domain

import "time"

// Company is read-only reference data carrying the functional currency,
// fiscal lock dates and the journals/accounts used by the generators.
type Company struct {
	ID                 string
	Name               string
	CurrencyID         string // functional currency
	FiscalyearLockDate time.Time
	PeriodLockDate     time.Time

	ExchangeJournalID  string
	GainAccountID      string
	LossAccountID      string
	CashBasisJournalID string
}

// LockDate returns the later of the fiscal-year and period lock dates.
func (c *Company) LockDate() time.Time {
	if c.PeriodLockDate.After(c.FiscalyearLockDate) {
		return c.PeriodLockDate
	}
	return c.FiscalyearLockDate
}

// ClampToLockDate moves a date forward to the lock date when it falls inside
// the locked period. Generated entries use this instead of failing.
func (c *Company) ClampToLockDate(date time.Time) time.Time {
	if lock := c.LockDate(); date.Before(lock) {
		return lock
	}
	return date
}

// DateLocked reports whether posting on the given date is forbidden.
func (c *Company) DateLocked(date time.Time) bool {
	return date.Before(c.LockDate())
}
