package domain

import "errors"

var (
	// Entry errors
	ErrUnbalancedEntry      = errors.New("cannot create unbalanced journal entry")
	ErrPostedEntryImmutable = errors.New("cannot modify lines of a posted entry")
	ErrEntryNotFound        = errors.New("entry not found")
	ErrEmptyEntry           = errors.New("a posted entry must have at least one line")
	ErrEntryNotDraft        = errors.New("only a draft entry can be posted")
	ErrEntryNotPosted       = errors.New("entry is not posted")
	ErrReopenNotAllowed     = errors.New("journal does not allow reopening posted entries")
	ErrMixedCompanies       = errors.New("cannot create an entry with lines for different companies")

	// Line errors
	ErrLineNotFound             = errors.New("line not found")
	ErrDebitCreditExclusive     = errors.New("a line carries either a debit or a credit, not both")
	ErrNegativeAmount           = errors.New("debit and credit must not be negative")
	ErrCurrencyWithoutAmount    = errors.New("a foreign amount requires a currency")
	ErrCurrencySignMismatch     = errors.New("foreign amount sign must follow the debit/credit side")
	ErrDeprecatedAccount        = errors.New("account is deprecated")
	ErrJournalAccountNotAllowed = errors.New("account is not allowed on this journal")

	// Posting errors
	ErrMissingSequence      = errors.New("no sequence configured on the journal")
	ErrNoSequenceConfigured = errors.New("no sequence configured for code")
	ErrLockedPeriod         = errors.New("entry date falls in a locked period")

	// Reconciliation errors
	ErrLinkedToReconciliation       = errors.New("line is linked to a reconciliation")
	ErrReconciliationScopeViolation = errors.New("lines to reconcile must share one account and one company")
	ErrIncompatibleCurrencySet      = errors.New("lines mix currencies the matching field cannot resolve")
	ErrPartialNotFound              = errors.New("partial reconciliation not found")
	ErrFullNotFound                 = errors.New("full reconciliation not found")
	ErrAccountNotReconcilable       = errors.New("account does not allow reconciliation")

	// Reference data errors
	ErrAccountNotFound  = errors.New("account not found")
	ErrJournalNotFound  = errors.New("journal not found")
	ErrCompanyNotFound  = errors.New("company not found")
	ErrCurrencyNotFound = errors.New("currency not found")
	ErrTaxNotFound      = errors.New("tax not found")

	// Generator errors
	ErrMissingExchangeSetup    = errors.New("exchange journal or gain/loss accounts are not configured")
	ErrMissingCashBasisJournal = errors.New("there is no tax cash basis journal defined")

	// Payment errors
	ErrInvalidAmount = errors.New("amount must be positive")
)
