package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/atmx/paper-ledger/internal/model"
	"github.com/atmx/paper-ledger/internal/money"
)

func TestExecutePlan_BuysEveryLeg(t *testing.T) {
	f := setup(t, "10000", "AAPL", "178", "MSFT", "400")
	ctx := context.Background()
	if _, err := f.wallet.PlanEqual([]string{"aapl", "msft"}); err != nil {
		t.Fatalf("plan: %v", err)
	}

	txs, d, err := f.wallet.ExecutePlan(ctx, money.MustParse("5000"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	if got := txs[0].Shares.String(); got != "14.0449" {
		t.Errorf("expected 14.0449 AAPL, got %s", got)
	}
	if got := txs[1].Shares.String(); got != "6.2500" {
		t.Errorf("expected 6.2500 MSFT, got %s", got)
	}

	want := money.MustParse("10000").Sub(d.Cost())
	if got := f.wallet.Snapshot().Cash; !got.Equal(want) {
		t.Errorf("expected cash %s, got %s", want, got)
	}
	if d.Cost().GreaterThan(money.MustParse("5000")) {
		t.Errorf("derived cost %s exceeds the investment", d.Cost())
	}
}

func TestExecutePlan_Errors(t *testing.T) {
	ctx := context.Background()

	f := setup(t, "10000", "AAPL", "178", "MSFT", "400")
	f.wallet.SetAllocation("AAPL", d("50"))
	if _, _, err := f.wallet.ExecutePlan(ctx, money.MustParse("1000")); !errors.Is(err, model.ErrIncompletePlan) {
		t.Errorf("expected ErrIncompletePlan, got %v", err)
	}

	f.wallet.SetAllocation("MSFT", d("50"))
	txs, _, err := f.wallet.ExecutePlan(ctx, money.MustParse("20000"))
	if !errors.Is(err, model.ErrInsufficientFunds) {
		t.Errorf("expected ErrInsufficientFunds, got %v", err)
	}
	if len(txs) != 0 || len(f.wallet.Transactions(0)) != 0 {
		t.Error("expected nothing bought when the plan costs more than cash")
	}

	f.wallet.SetAllocation("TSLA", d("0"))
	if _, _, err := f.wallet.ExecutePlan(ctx, money.MustParse("1000")); !errors.Is(err, model.ErrUnknownTicker) {
		t.Errorf("expected ErrUnknownTicker for unpriced leg, got %v", err)
	}
}

func TestAllocation_EditsDoNotRebalance(t *testing.T) {
	f := setup(t, "10000")

	f.wallet.PlanEqual([]string{"AAPL", "MSFT", "GOOG"})
	if _, complete := f.wallet.Allocation(); !complete {
		t.Error("expected equal plan to be complete")
	}

	p, err := f.wallet.SetAllocation("AAPL", d("50"))
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if !p.Entries[1].Percent.Equal(d("33.33333333")) {
		t.Errorf("expected MSFT untouched at 33.33333333, got %s", p.Entries[1].Percent)
	}
	if _, complete := f.wallet.Allocation(); complete {
		t.Error("expected plan over 100% to be incomplete")
	}

	if _, err := f.wallet.SetAllocation("AAPL", d("101")); !errors.Is(err, model.ErrInvalidPercent) {
		t.Errorf("expected ErrInvalidPercent, got %v", err)
	}

	p = f.wallet.RemoveAllocation("msft")
	if len(p.Entries) != 2 {
		t.Errorf("expected 2 entries after remove, got %d", len(p.Entries))
	}
	f.wallet.ClearAllocation()
	if p, _ := f.wallet.Allocation(); len(p.Entries) != 0 {
		t.Errorf("expected empty plan after clear, got %+v", p)
	}
}

func TestPreviewPlan_AllowsIncompleteAndUnpriced(t *testing.T) {
	f := setup(t, "10000", "AAPL", "178")
	f.wallet.SetAllocation("AAPL", d("40"))
	f.wallet.SetAllocation("NOPE", d("20"))

	prev, err := f.wallet.PreviewPlan(context.Background(), money.MustParse("1000"))
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	if prev.Complete {
		t.Error("expected incomplete preview")
	}
	if prev.Legs[0].Amount.String() != "400.00" || prev.Legs[0].Shares.String() != "2.2471" {
		t.Errorf("expected AAPL 400.00 -> 2.2471, got %s -> %s", prev.Legs[0].Amount, prev.Legs[0].Shares)
	}
	if prev.Legs[1].Priced || !prev.Legs[1].Shares.IsZero() {
		t.Errorf("expected unpriced NOPE leg with zero shares, got %+v", prev.Legs[1])
	}
}

func TestPreviewPlan_NegativeInvestment(t *testing.T) {
	f := setup(t, "10000", "AAPL", "178")
	f.wallet.SetAllocation("AAPL", d("100"))

	if _, err := f.wallet.PreviewPlan(context.Background(), money.MustParse("-1000")); !errors.Is(err, model.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}
