package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

// seedCashBasisInvoice stores a posted invoice carrying a payment-deferred
// tax: 100 revenue plus 20 tax waiting on the transition account.
func seedCashBasisInvoice(env *testEnv) *domain.Entry {
	env.taxRepo.Add(&domain.Tax{
		ID:                     "vat",
		Name:                   "VAT 20% on payment",
		Exigibility:            domain.ExigibleOnPayment,
		CashBasisAccountID:     "acc-vat-due",
		CashBasisBaseAccountID: "acc-cb-base",
	})

	return env.seedPostedEntry("e-inv", "INV/0001", day(2024, time.February, 1),
		lineSpec{id: "l-rec", accountID: "acc-rec", debit: "120", maturity: day(2024, time.March, 1)},
		lineSpec{id: "l-base", accountID: "acc-rev", credit: "100", taxIDs: []string{"vat"}, notExigible: true},
		lineSpec{id: "l-vat", accountID: "acc-vat-wait", credit: "20", taxLineID: "vat", notExigible: true},
	)
}

func TestReconcile_FullPaymentRecognizesCashBasisTax(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedCashBasisInvoice(env)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.March, 10),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "120"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "120"},
	)

	res, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-rec", "l-pay"}})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(res.CashBasisEntries) != 1 {
		t.Fatalf("expected one generated entry, got %d", len(res.CashBasisEntries))
	}

	generated := res.CashBasisEntries[0]
	if generated.JournalID != "j-cb" {
		t.Errorf("expected cash basis journal, got %s", generated.JournalID)
	}
	if generated.State != domain.EntryStatePosted {
		t.Errorf("expected generated entry posted, got %s", generated.State)
	}
	if generated.TaxCashBasisRecID != res.Partials[0].ID {
		t.Error("expected generated entry to reference the partial")
	}
	if !generated.Date.Equal(day(2024, time.March, 10)) {
		t.Errorf("expected generated entry dated at the settlement, got %v", generated.Date)
	}

	if len(generated.Lines) != 4 {
		t.Fatalf("expected 4 generated lines, got %d", len(generated.Lines))
	}

	// 1. Base mirror: a net-zero pair on the base account carrying the tax.
	if generated.Lines[0].AccountID != "acc-cb-base" || !generated.Lines[0].Debit.Equal(dec("100")) {
		t.Errorf("unexpected base debit line: %+v", generated.Lines[0])
	}
	if generated.Lines[1].AccountID != "acc-cb-base" || !generated.Lines[1].Credit.Equal(dec("100")) {
		t.Errorf("unexpected base credit line: %+v", generated.Lines[1])
	}
	if len(generated.Lines[0].TaxIDs) != 1 || generated.Lines[0].TaxIDs[0] != "vat" {
		t.Error("expected base lines to carry the tax for reporting")
	}

	// 2. Tax move: cancel on the transition account, book on the due account.
	if generated.Lines[2].AccountID != "acc-vat-wait" || !generated.Lines[2].Debit.Equal(dec("20")) {
		t.Errorf("unexpected transition line: %+v", generated.Lines[2])
	}
	if generated.Lines[3].AccountID != "acc-vat-due" || !generated.Lines[3].Credit.Equal(dec("20")) {
		t.Errorf("unexpected due line: %+v", generated.Lines[3])
	}

	// 3. Settlement percentage stored on the source entry.
	invoice, err := env.entries.GetEntry(ctx, "e-inv")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !invoice.MatchedPercentage.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected matched percentage 1, got %s", invoice.MatchedPercentage)
	}
}

func TestReconcile_PartialPaymentRecognizesProportionally(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedCashBasisInvoice(env)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.March, 10),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "60"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "60"},
	)

	res, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-rec", "l-pay"}})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(res.CashBasisEntries) != 1 {
		t.Fatalf("expected one generated entry, got %d", len(res.CashBasisEntries))
	}

	// Half the invoice settled, half the tax recognized.
	generated := res.CashBasisEntries[0]
	if !generated.Lines[0].Debit.Equal(dec("50")) {
		t.Errorf("expected base delta 50, got %s", generated.Lines[0].Debit)
	}
	if !generated.Lines[3].Credit.Equal(dec("10")) {
		t.Errorf("expected tax delta 10, got %s", generated.Lines[3].Credit)
	}

	invoice, err := env.entries.GetEntry(ctx, "e-inv")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !invoice.MatchedPercentage.Equal(dec("0.5")) {
		t.Errorf("expected matched percentage 0.5, got %s", invoice.MatchedPercentage)
	}

	// A second payment recognizes only the remaining half.
	env.seedPostedEntry("e-pay2", "PAY/0002", day(2024, time.April, 10),
		lineSpec{id: "l-pay2", accountID: "acc-rec", credit: "60"},
		lineSpec{id: "l-bank2", accountID: "acc-bank", debit: "60"},
	)

	res, err = env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-rec", "l-pay2"}})
	if err != nil {
		t.Fatalf("second reconcile failed: %v", err)
	}

	if len(res.CashBasisEntries) != 1 {
		t.Fatalf("expected one generated entry, got %d", len(res.CashBasisEntries))
	}
	if !res.CashBasisEntries[0].Lines[3].Credit.Equal(dec("10")) {
		t.Errorf("expected remaining tax delta 10, got %s", res.CashBasisEntries[0].Lines[3].Credit)
	}
	if res.FullReconcile == nil {
		t.Error("expected full reconciliation after the second payment")
	}
}

func TestReconcile_NoDeferredTaxNoGeneratedEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPostedEntry("e-inv", "INV/0001", day(2024, time.February, 1),
		lineSpec{id: "l-rec", accountID: "acc-rec", debit: "100"},
		lineSpec{id: "l-rev", accountID: "acc-rev", credit: "100"},
	)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.March, 10),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "100"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "100"},
	)

	res, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-rec", "l-pay"}})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if len(res.CashBasisEntries) != 0 {
		t.Fatalf("expected no generated entries, got %d", len(res.CashBasisEntries))
	}
}

func TestRemoveReconciliation_ReversesCashBasisEntries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seedCashBasisInvoice(env)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.March, 10),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "120"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "120"},
	)

	res, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-rec", "l-pay"}})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	generatedID := res.CashBasisEntries[0].ID

	if err := env.recon.RemoveReconciliation(ctx, usecase.RemoveReconciliationInput{LineIDs: []string{"l-rec", "l-pay"}}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	generated, err := env.entries.GetEntry(ctx, generatedID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if generated.ReversalEntryID == "" {
		t.Fatal("expected the generated entry to be reversed")
	}

	reversal, err := env.entries.GetEntry(ctx, generated.ReversalEntryID)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if reversal.State != domain.EntryStatePosted {
		t.Errorf("expected reversal posted, got %s", reversal.State)
	}
	if reversal.Lines[0].AccountID != "acc-cb-base" || !reversal.Lines[0].Credit.Equal(dec("100")) {
		t.Errorf("expected mirrored base line, got %+v", reversal.Lines[0])
	}

	if got := env.lineRepo.Get("l-rec"); !got.AmountResidual.Equal(dec("120")) {
		t.Errorf("expected residual restored to 120, got %s", got.AmountResidual)
	}
	if got := env.lineRepo.Get("l-pay"); !got.AmountResidual.Equal(dec("-120")) {
		t.Errorf("expected residual restored to -120, got %s", got.AmountResidual)
	}
}
