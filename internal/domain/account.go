package domain

// AccountType classifies an account for matching and cash-basis purposes.
type AccountType string

const (
	AccountTypeReceivable AccountType = "receivable"
	AccountTypePayable    AccountType = "payable"
	AccountTypeLiquidity  AccountType = "liquidity"
	AccountTypeEquity     AccountType = "equity"
	AccountTypeOther      AccountType = "other"
)

// CashBasis reports whether lines on accounts of this type drive the
// settlement percentage used by cash-basis tax recognition.
func (t AccountType) CashBasis() bool {
	return t == AccountTypeReceivable || t == AccountTypePayable
}

// Reconcilable is implemented by reference records whose lines may carry
// reconciliation links.
type Reconcilable interface {
	ReconcileEligible() bool
}

// Account is read-only reference data consumed by the ledger core.
type Account struct {
	ID         string
	Code       string
	Name       string
	CompanyID  string
	Type       AccountType
	CurrencyID string // forced secondary currency, empty when none
	Deprecated bool
	Reconcile  bool
}

// ReconcileEligible reports whether open lines on this account can be matched.
func (a *Account) ReconcileEligible() bool {
	return a.Reconcile || a.Type == AccountTypeLiquidity
}
