package domain

// TaxExigibility selects when a tax becomes due.
type TaxExigibility string

const (
	// ExigibleOnInvoice recognizes the tax when the entry is posted.
	ExigibleOnInvoice TaxExigibility = "on_invoice"
	// ExigibleOnPayment defers recognition until the entry is settled,
	// proportionally to the settlement percentage.
	ExigibleOnPayment TaxExigibility = "on_payment"
)

// TaxExigible is implemented by records that can tell whether their tax
// treatment defers recognition to payment time.
type TaxExigible interface {
	CashBasisTax() bool
}

// Tax is read-only reference data.
type Tax struct {
	ID                     string
	Name                   string
	Exigibility            TaxExigibility
	CashBasisAccountID     string
	CashBasisBaseAccountID string
}

// CashBasisTax reports whether this tax is recognized on payment.
func (t *Tax) CashBasisTax() bool {
	return t.Exigibility == ExigibleOnPayment
}
