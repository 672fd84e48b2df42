package journal

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

func TestJournalWindow(t *testing.T) {
	j := New("tBTCUSD")

	opening := NewSnapshot(
		[]models.PriceLevel{lvl(t, "100", 1, "1")},
		[]models.PriceLevel{lvl(t, "101", 1, "-1")},
	)
	j.Open(1000, opening)

	j.Append(1001, lvl(t, "100", 2, "1.5"))
	j.Append(1001, lvl(t, "99.5", 1, "0.5"))
	j.Append(1002, lvl(t, "101", 0, "-1"))

	if j.StartTS() != 1000 {
		t.Fatalf("start ts = %d, want 1000", j.StartTS())
	}
	if j.Len() != 2 {
		t.Fatalf("delta timestamps = %d, want 2", j.Len())
	}

	closing := NewSnapshot(
		[]models.PriceLevel{lvl(t, "100", 2, "1.5"), lvl(t, "99.5", 1, "0.5")},
		nil,
	)
	rec := j.Close(1002, closing, false)

	if rec.Symbol != "tBTCUSD" || rec.Key != 1002 || rec.Interrupted {
		t.Fatalf("unexpected record header: %+v", rec)
	}

	log, ok := rec.Deltas[1001]
	if !ok {
		t.Fatal("missing delta log for ts 1001")
	}
	if len(log.Prices) != 2 || len(log.Amounts) != 2 || len(log.Counts) != 2 {
		t.Fatalf("delta sequences not parallel: %+v", log)
	}
	if log.Prices[1].String() != "99.5" || log.Counts[1] != 1 {
		t.Errorf("second delta wrong: %+v", log)
	}
}

func TestPayloadLayout(t *testing.T) {
	j := New("tBTCUSD")
	j.Open(1000, NewSnapshot([]models.PriceLevel{lvl(t, "100", 1, "1")}, nil))
	j.Append(1001, lvl(t, "100", 0, "1"))

	rec := j.Close(1001, NewSnapshot(nil, nil), true)
	payload := rec.Payload()

	if _, ok := payload["1000"]; !ok {
		t.Error("opening snapshot not filed under its timestamp")
	}
	if _, ok := payload["1001"]; !ok {
		t.Error("delta log not filed under its timestamp")
	}
	if _, ok := payload["-1"]; !ok {
		t.Error("closing snapshot not filed under the sentinel key")
	}
	if len(payload) != 3 {
		t.Errorf("payload has %d entries, want 3", len(payload))
	}

	snap, ok := payload["1000"].(*Snapshot)
	if !ok {
		t.Fatalf("opening entry is %T", payload["1000"])
	}
	entry, ok := snap.Bids["100"]
	if !ok {
		t.Fatal("opening snapshot missing bid level keyed by price")
	}
	if entry.Count != 1 || entry.Amount.String() != "1" {
		t.Errorf("unexpected opening level: %+v", entry)
	}
}

func TestTruncate(t *testing.T) {
	j := New("tBTCUSD")
	j.Open(1000, NewSnapshot(nil, nil))
	j.Append(1001, lvl(t, "100", 1, "1"))
	j.Append(1002, lvl(t, "100", 2, "1"))
	j.Append(1003, lvl(t, "100", 3, "1"))

	j.Truncate(1001)

	if j.Len() != 1 {
		t.Fatalf("deltas after truncate = %d, want 1", j.Len())
	}
	rec := j.Close(1001, NewSnapshot(nil, nil), true)
	if _, ok := rec.Deltas[1001]; !ok {
		t.Error("delta at the truncation point must survive")
	}
	if _, ok := rec.Deltas[1002]; ok {
		t.Error("delta past the truncation point must be dropped")
	}
}

func TestReset(t *testing.T) {
	j := New("tBTCUSD")
	j.Open(1000, NewSnapshot(nil, nil))
	j.Append(1001, lvl(t, "100", 1, "1"))

	rec := j.Close(1001, NewSnapshot(nil, nil), false)
	j.Reset()

	if j.StartTS() != 0 || j.Len() != 0 {
		t.Fatalf("journal not empty after reset: start=%d len=%d", j.StartTS(), j.Len())
	}
	// The flushed record keeps the pre-reset contents.
	if len(rec.Deltas) != 1 {
		t.Errorf("flushed record lost deltas on reset: %+v", rec.Deltas)
	}
}
