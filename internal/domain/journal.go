package domain

// JournalType restricts which operations a journal carries.
type JournalType string

const (
	JournalTypeSale     JournalType = "sale"
	JournalTypePurchase JournalType = "purchase"
	JournalTypeBank     JournalType = "bank"
	JournalTypeCash     JournalType = "cash"
	JournalTypeGeneral  JournalType = "general"
)

// Journal is read-only reference data. SequenceCode names the series used to
// number posted entries; empty means posting fails with ErrMissingSequence.
type Journal struct {
	ID               string
	Code             string
	Name             string
	Type             JournalType
	CompanyID        string
	SequenceCode     string
	DefaultAccountID string
	UpdatePosted     bool // allows posted entries back to draft

	// Account control lists. Both empty means no restriction.
	AllowedAccountIDs   []string
	AllowedAccountTypes []AccountType
}

// AccountAllowed checks the journal's control lists against an account.
func (j *Journal) AccountAllowed(account *Account) bool {
	if len(j.AllowedAccountIDs) == 0 && len(j.AllowedAccountTypes) == 0 {
		return true
	}

	for _, id := range j.AllowedAccountIDs {
		if id == account.ID {
			return true
		}
	}

	for _, t := range j.AllowedAccountTypes {
		if t == account.Type {
			return true
		}
	}

	return false
}
