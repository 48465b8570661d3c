package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/goreconcile/internal/domain"
	"github.com/iho/goreconcile/internal/usecase"
)

func TestReconcileUseCase_FullMatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPostedEntry("e-inv", "INV/0001", day(2024, time.January, 10),
		lineSpec{id: "l-inv", accountID: "acc-rec", debit: "100"},
		lineSpec{id: "l-rev", accountID: "acc-rev", credit: "100"},
	)
	pay := env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.January, 20),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "100"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "100"},
	)

	res, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-inv", "l-pay"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Partials) != 1 {
		t.Fatalf("expected 1 partial, got %d", len(res.Partials))
	}

	p := res.Partials[0]
	if p.DebitLineID != "l-inv" || p.CreditLineID != "l-pay" {
		t.Errorf("unexpected partial sides: %s / %s", p.DebitLineID, p.CreditLineID)
	}
	if !p.Amount.Equal(dec("100")) {
		t.Errorf("expected amount 100, got %s", p.Amount)
	}
	if !p.MaxDate.Equal(pay.Date) {
		t.Errorf("expected max date %v, got %v", pay.Date, p.MaxDate)
	}

	if res.FullReconcile == nil {
		t.Fatal("expected a full reconcile")
	}
	if res.FullReconcile.Name == "" {
		t.Error("expected full reconcile name from sequence")
	}
	if len(res.FullReconcile.LineIDs) != 2 {
		t.Errorf("expected 2 lines in full reconcile, got %d", len(res.FullReconcile.LineIDs))
	}

	for _, id := range []string{"l-inv", "l-pay"} {
		line := env.lineRepo.Get(id)
		if !line.AmountResidual.IsZero() || !line.Reconciled {
			t.Errorf("line %s not settled: residual=%s reconciled=%v", id, line.AmountResidual, line.Reconciled)
		}
		if line.FullReconcileID != res.FullReconcile.ID {
			t.Errorf("line %s missing full reconcile link", id)
		}
	}

	var closed bool
	for _, e := range env.outboxRepo.Events() {
		if e.EventType == domain.EventTypeReconciliationClosed {
			closed = true
		}
	}
	if !closed {
		t.Error("expected reconciliation.closed outbox event")
	}
}

func TestReconcileUseCase_ReconcileAgainKeepsExistingFull(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPostedEntry("e-inv", "INV/0001", day(2024, time.January, 10),
		lineSpec{id: "l-inv", accountID: "acc-rec", debit: "100"},
		lineSpec{id: "l-rev", accountID: "acc-rev", credit: "100"},
	)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.January, 20),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "100"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "100"},
	)

	first, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-inv", "l-pay"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.FullReconcile == nil {
		t.Fatal("expected a full reconcile")
	}

	second, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-inv", "l-pay"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(second.Partials) != 0 {
		t.Errorf("expected no new partials, got %d", len(second.Partials))
	}
	if second.FullReconcile != nil {
		t.Errorf("expected no new full reconcile, got %s", second.FullReconcile.Name)
	}

	if fulls := env.reconRepo.Fulls(); len(fulls) != 1 {
		t.Fatalf("expected a single stored full reconcile, got %d", len(fulls))
	}
	for _, id := range []string{"l-inv", "l-pay"} {
		if got := env.lineRepo.Get(id).FullReconcileID; got != first.FullReconcile.ID {
			t.Errorf("line %s full reconcile link changed: %s", id, got)
		}
	}
}

func TestReconcileUseCase_PartialMatchStaysOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPostedEntry("e-inv", "INV/0001", day(2024, time.January, 10),
		lineSpec{id: "l-inv", accountID: "acc-rec", debit: "150"},
		lineSpec{id: "l-rev", accountID: "acc-rev", credit: "150"},
	)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.January, 20),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "100"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "100"},
	)

	res, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-inv", "l-pay"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Partials) != 1 || !res.Partials[0].Amount.Equal(dec("100")) {
		t.Fatalf("expected one partial of 100, got %+v", res.Partials)
	}

	if res.FullReconcile != nil {
		t.Error("expected no full reconcile while a residual stays open")
	}

	inv := env.lineRepo.Get("l-inv")
	if !inv.AmountResidual.Equal(dec("50")) {
		t.Errorf("expected residual 50, got %s", inv.AmountResidual)
	}
	if inv.Reconciled {
		t.Error("expected invoice line to stay open")
	}

	pay := env.lineRepo.Get("l-pay")
	if !pay.AmountResidual.IsZero() || !pay.Reconciled {
		t.Errorf("expected payment line settled, residual=%s", pay.AmountResidual)
	}
}

func TestReconcileUseCase_WriteOffClosesTheGap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPostedEntry("e-inv", "INV/0001", day(2024, time.January, 10),
		lineSpec{id: "l-inv", accountID: "acc-rec", debit: "100"},
		lineSpec{id: "l-rev", accountID: "acc-rev", credit: "100"},
	)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.January, 20),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "95"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "95"},
	)

	res, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{
		LineIDs: []string{"l-inv", "l-pay"},
		WriteOff: &usecase.WriteOffInput{
			JournalID: "j-misc",
			AccountID: "acc-writeoff",
			Label:     "discount",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.WriteOffEntry == nil {
		t.Fatal("expected a write-off entry")
	}
	if res.WriteOffEntry.State != domain.EntryStatePosted {
		t.Error("expected write-off entry posted")
	}

	var writeoffAmount, counterpartAmount bool
	for _, line := range res.WriteOffEntry.Lines {
		switch line.AccountID {
		case "acc-writeoff":
			writeoffAmount = line.Debit.Equal(dec("5"))
		case "acc-rec":
			counterpartAmount = line.Credit.Equal(dec("5"))
		}
	}
	if !writeoffAmount || !counterpartAmount {
		t.Errorf("unexpected write-off lines: %+v", res.WriteOffEntry.Lines)
	}

	if len(res.Partials) != 2 {
		t.Fatalf("expected 2 partials (95 match + 5 write-off), got %d", len(res.Partials))
	}

	if res.FullReconcile == nil {
		t.Fatal("expected write-off to close the cluster")
	}
	if len(res.FullReconcile.LineIDs) != 3 {
		t.Errorf("expected 3 lines in the closed cluster, got %d", len(res.FullReconcile.LineIDs))
	}

	if !env.lineRepo.Get("l-inv").AmountResidual.IsZero() {
		t.Error("expected invoice line fully settled after write-off")
	}
}

func TestReconcileUseCase_ExchangeDifference(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Same 80 EUR on both sides, booked at different rates.
	env.seedPostedEntry("e-inv", "INV/0001", day(2024, time.January, 10),
		lineSpec{id: "l-inv", accountID: "acc-rec", debit: "100", currencyID: "EUR", amountCurrency: "80"},
		lineSpec{id: "l-rev", accountID: "acc-rev", credit: "100"},
	)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.February, 5),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "90", currencyID: "EUR", amountCurrency: "-80"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "90"},
	)

	res, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-inv", "l-pay"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.ExchangeEntry == nil {
		t.Fatal("expected an exchange difference entry")
	}
	if res.ExchangeEntry.JournalID != "j-exch" {
		t.Errorf("expected exchange journal, got %s", res.ExchangeEntry.JournalID)
	}

	var lossBooked bool
	for _, line := range res.ExchangeEntry.Lines {
		if line.AccountID == "acc-loss" && line.Debit.Equal(dec("10")) {
			lossBooked = true
		}
	}
	if !lossBooked {
		t.Error("expected a 10 loss on the exchange difference account")
	}

	if res.FullReconcile == nil {
		t.Fatal("expected closure once the exchange entry fixed the residual")
	}
	if res.FullReconcile.ExchangeEntryID != res.ExchangeEntry.ID {
		t.Error("expected full reconcile to reference the exchange entry")
	}

	if !env.lineRepo.Get("l-inv").AmountResidual.IsZero() {
		t.Error("expected functional residual fixed by the exchange entry")
	}
}

func TestReconcileUseCase_ScopeViolations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPostedEntry("e-1", "INV/0001", day(2024, time.January, 10),
		lineSpec{id: "l-rec", accountID: "acc-rec", debit: "100"},
		lineSpec{id: "l-rev", accountID: "acc-rev", credit: "100"},
	)

	tests := []struct {
		name    string
		lineIDs []string
		wantErr error
	}{
		{
			name:    "mixed accounts",
			lineIDs: []string{"l-rec", "l-rev"},
			wantErr: domain.ErrReconciliationScopeViolation,
		},
		{
			name:    "account not reconcilable",
			lineIDs: []string{"l-rev"},
			wantErr: domain.ErrAccountNotReconcilable,
		},
		{
			name:    "unknown line",
			lineIDs: []string{"l-missing"},
			wantErr: domain.ErrLineNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: tt.lineIDs})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestReconcileUseCase_RemoveReconciliation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPostedEntry("e-inv", "INV/0001", day(2024, time.January, 10),
		lineSpec{id: "l-inv", accountID: "acc-rec", debit: "100"},
		lineSpec{id: "l-rev", accountID: "acc-rev", credit: "100"},
	)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.January, 20),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "100"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "100"},
	)

	if _, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-inv", "l-pay"}}); err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if err := env.recon.RemoveReconciliation(ctx, usecase.RemoveReconciliationInput{LineIDs: []string{"l-inv"}}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	if got := len(env.reconRepo.Partials()); got != 0 {
		t.Errorf("expected partials deleted, %d remain", got)
	}
	if got := len(env.reconRepo.Fulls()); got != 0 {
		t.Errorf("expected full reconcile deleted, %d remain", got)
	}

	inv := env.lineRepo.Get("l-inv")
	if !inv.AmountResidual.Equal(dec("100")) || inv.Reconciled || inv.FullReconcileID != "" {
		t.Errorf("expected invoice line reopened, residual=%s reconciled=%v", inv.AmountResidual, inv.Reconciled)
	}

	pay := env.lineRepo.Get("l-pay")
	if !pay.AmountResidual.Equal(dec("-100")) || pay.Reconciled {
		t.Errorf("expected payment line reopened, residual=%s", pay.AmountResidual)
	}

	// removing again is a no-op
	if err := env.recon.RemoveReconciliation(ctx, usecase.RemoveReconciliationInput{LineIDs: []string{"l-inv"}}); err != nil {
		t.Errorf("expected second removal to be a no-op, got %v", err)
	}
}

func TestReconcileUseCase_RemoveReversesExchangeEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedPostedEntry("e-inv", "INV/0001", day(2024, time.January, 10),
		lineSpec{id: "l-inv", accountID: "acc-rec", debit: "100", currencyID: "EUR", amountCurrency: "80"},
		lineSpec{id: "l-rev", accountID: "acc-rev", credit: "100"},
	)
	env.seedPostedEntry("e-pay", "PAY/0001", day(2024, time.February, 5),
		lineSpec{id: "l-pay", accountID: "acc-rec", credit: "90", currencyID: "EUR", amountCurrency: "-80"},
		lineSpec{id: "l-bank", accountID: "acc-bank", debit: "90"},
	)

	res, err := env.recon.Reconcile(ctx, usecase.ReconcileInput{LineIDs: []string{"l-inv", "l-pay"}})
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	if err := env.recon.RemoveReconciliation(ctx, usecase.RemoveReconciliationInput{LineIDs: []string{"l-inv"}}); err != nil {
		t.Fatalf("remove failed: %v", err)
	}

	exchange, err := env.entryRepo.GetByID(ctx, res.ExchangeEntry.ID)
	if err != nil {
		t.Fatalf("exchange entry lookup failed: %v", err)
	}
	if exchange.ReversalEntryID == "" {
		t.Fatal("expected the exchange entry to be reversed")
	}

	reversal, err := env.entryRepo.GetByID(ctx, exchange.ReversalEntryID)
	if err != nil {
		t.Fatalf("reversal lookup failed: %v", err)
	}
	if reversal.State != domain.EntryStatePosted {
		t.Error("expected the reversal posted")
	}

	inv := env.lineRepo.Get("l-inv")
	if !inv.AmountResidual.Equal(dec("100")) || !inv.AmountResidualCurrency.Equal(dec("80")) {
		t.Errorf("expected residuals restored, got %s / %s", inv.AmountResidual, inv.AmountResidualCurrency)
	}
}
