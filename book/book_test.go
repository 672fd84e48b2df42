package book

import (
	"testing"

	"github.com/shopspring/decimal"

	"bookflow/models"
)

func lvl(t *testing.T, price string, count int64, amount string) models.PriceLevel {
	t.Helper()
	p, err := decimal.NewFromString(price)
	if err != nil {
		t.Fatalf("bad price %q: %v", price, err)
	}
	a, err := decimal.NewFromString(amount)
	if err != nil {
		t.Fatalf("bad amount %q: %v", amount, err)
	}
	return models.PriceLevel{Price: p, Count: count, Amount: a}
}

func TestApplyOrdersSides(t *testing.T) {
	b := New()

	b.Apply(lvl(t, "99", 1, "2"))
	b.Apply(lvl(t, "101", 1, "1.5"))
	b.Apply(lvl(t, "100", 2, "3"))
	b.Apply(lvl(t, "102", 1, "-1"))
	b.Apply(lvl(t, "101.5", 3, "-0.5"))

	if got := b.BidCount(); got != 3 {
		t.Fatalf("bid count = %d, want 3", got)
	}
	if got := b.AskCount(); got != 2 {
		t.Fatalf("ask count = %d, want 2", got)
	}

	bids := b.TopBids(3)
	if bids[0].Price.String() != "101" || bids[1].Price.String() != "100" || bids[2].Price.String() != "99" {
		t.Errorf("bids not in descending price order: %v", bids)
	}
	asks := b.TopAsks(2)
	if asks[0].Price.String() != "101.5" || asks[1].Price.String() != "102" {
		t.Errorf("asks not in ascending price order: %v", asks)
	}
}

func TestApplyUpsertsExistingLevel(t *testing.T) {
	b := New()

	b.Apply(lvl(t, "100", 1, "2"))
	b.Apply(lvl(t, "100", 4, "7"))

	if got := b.BidCount(); got != 1 {
		t.Fatalf("bid count = %d, want 1", got)
	}
	top := b.TopBids(1)[0]
	if top.Count != 4 || top.Amount.String() != "7" {
		t.Errorf("level not replaced: count=%d amount=%s", top.Count, top.Amount)
	}
}

func TestApplyRemoval(t *testing.T) {
	b := New()

	b.Apply(lvl(t, "100", 1, "2"))
	b.Apply(lvl(t, "101", 1, "-1"))

	// Count zero removes; sign of the amount still picks the side.
	b.Apply(lvl(t, "100", 0, "1"))
	if got := b.BidCount(); got != 0 {
		t.Fatalf("bid count after removal = %d, want 0", got)
	}

	// Removing an absent level is a no-op.
	b.Apply(lvl(t, "50", 0, "1"))
	if got := b.BidCount(); got != 0 {
		t.Fatalf("bid count after removing absent level = %d, want 0", got)
	}
	if got := b.AskCount(); got != 1 {
		t.Fatalf("ask count = %d, want 1", got)
	}
}

func TestIsVerifiable(t *testing.T) {
	b := New()
	for i := 0; i < VerificationDepth; i++ {
		b.Apply(lvl(t, decimal.NewFromInt(int64(100-i)).String(), 1, "1"))
	}
	if b.IsVerifiable() {
		t.Fatal("book with one full side must not be verifiable")
	}
	for i := 0; i < VerificationDepth-1; i++ {
		b.Apply(lvl(t, decimal.NewFromInt(int64(101+i)).String(), 1, "-1"))
	}
	if b.IsVerifiable() {
		t.Fatal("book one ask short must not be verifiable")
	}
	b.Apply(lvl(t, "125", 1, "-1"))
	if !b.IsVerifiable() {
		t.Fatal("book with 25 levels per side must be verifiable")
	}
}

func TestClear(t *testing.T) {
	b := New()
	b.Apply(lvl(t, "100", 1, "1"))
	b.Apply(lvl(t, "101", 1, "-1"))

	b.Clear()

	if b.BidCount() != 0 || b.AskCount() != 0 {
		t.Fatalf("clear left levels behind: bids=%d asks=%d", b.BidCount(), b.AskCount())
	}
}
