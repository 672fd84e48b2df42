// Package journal accumulates one recording window of book history: the
// opening snapshot, every subsequent level delta, and a closing snapshot,
// keyed the way the venue's own diagnostic format keys them. The journal is
// flushed to durable storage on window expiry or on divergence and cleared
// for the next window.
package journal

import (
	"strconv"

	"github.com/shopspring/decimal"

	"bookflow/models"
)

// ClosingKey is the reserved sentinel under which the terminal snapshot is
// stored when the window closes.
const ClosingKey int64 = -1

// Level is one price level inside a stored snapshot.
type Level struct {
	Price  decimal.Decimal `json:"p"`
	Count  int64           `json:"c"`
	Amount decimal.Decimal `json:"a"`
}

// Snapshot is a full copy of the replica at a well-defined point: window
// start, window end, or divergence. Keys are the decimal string form of the
// level price.
type Snapshot struct {
	Bids map[string]Level `json:"bids"`
	Asks map[string]Level `json:"asks"`
}

// NewSnapshot builds a structural copy from the two ordered level slices.
func NewSnapshot(bids, asks []models.PriceLevel) Snapshot {
	snap := Snapshot{
		Bids: make(map[string]Level, len(bids)),
		Asks: make(map[string]Level, len(asks)),
	}
	for _, lvl := range bids {
		snap.Bids[lvl.Price.String()] = Level{Price: lvl.Price, Count: lvl.Count, Amount: lvl.Amount}
	}
	for _, lvl := range asks {
		snap.Asks[lvl.Price.String()] = Level{Price: lvl.Price, Count: lvl.Count, Amount: lvl.Amount}
	}
	return snap
}

// DeltaLog records the updates that arrived under one venue timestamp as
// three parallel sequences, matching the venue's diagnostic format.
type DeltaLog struct {
	Prices  []decimal.Decimal `json:"p"`
	Amounts []decimal.Decimal `json:"a"`
	Counts  []int64           `json:"c"`
}

// Record is one flushed window, handed to the durable-storage writer.
type Record struct {
	Symbol      string
	Key         int64 // timestamp the flush is filed under
	Interrupted bool
	Opening     *Snapshot
	OpeningTS   int64
	Deltas      map[int64]*DeltaLog
	Closing     *Snapshot
}

// Payload assembles the serializable map the writer persists: the opening
// snapshot under its timestamp, every delta log under its own timestamp,
// and the closing snapshot under the reserved sentinel key.
func (r *Record) Payload() map[string]any {
	out := make(map[string]any, len(r.Deltas)+2)
	for ts, log := range r.Deltas {
		out[strconv.FormatInt(ts, 10)] = log
	}
	if r.Opening != nil {
		out[strconv.FormatInt(r.OpeningTS, 10)] = r.Opening
	}
	if r.Closing != nil {
		out[strconv.FormatInt(ClosingKey, 10)] = r.Closing
	}
	return out
}

// Journal is the in-memory accumulator for the current recording window.
// Not safe for concurrent use; owned by one symbol's pipeline.
type Journal struct {
	symbol  string
	startTS int64
	opening *Snapshot
	deltas  map[int64]*DeltaLog
}

func New(symbol string) *Journal {
	return &Journal{
		symbol: symbol,
		deltas: make(map[int64]*DeltaLog),
	}
}

// Open starts a new recording window at the snapshot timestamp, replacing
// whatever the journal held before.
func (j *Journal) Open(ts int64, snap Snapshot) {
	j.startTS = ts
	j.opening = &snap
	j.deltas = make(map[int64]*DeltaLog)
}

// Append records one level delta under its venue timestamp.
func (j *Journal) Append(ts int64, lvl models.PriceLevel) {
	log, ok := j.deltas[ts]
	if !ok {
		log = &DeltaLog{}
		j.deltas[ts] = log
	}
	log.Prices = append(log.Prices, lvl.Price)
	log.Amounts = append(log.Amounts, lvl.Amount)
	log.Counts = append(log.Counts, lvl.Count)
}

// Truncate drops every delta recorded after the given timestamp. Used on
// divergence: history past the last verified checksum cannot be trusted to
// describe a consistent book.
func (j *Journal) Truncate(ts int64) {
	for key := range j.deltas {
		if key > ts {
			delete(j.deltas, key)
		}
	}
}

// StartTS returns the timestamp of the current window's opening snapshot,
// or zero when no window is open.
func (j *Journal) StartTS() int64 { return j.startTS }

// Len returns the number of distinct delta timestamps recorded.
func (j *Journal) Len() int { return len(j.deltas) }

// Close seals the window with a terminal snapshot and returns the record to
// flush, filed under the given key and flag. The journal keeps its contents
// until Reset; flushing and clearing are the caller's two explicit steps so
// that an in-flight write is never reordered against the reset.
func (j *Journal) Close(key int64, closing Snapshot, interrupted bool) Record {
	return Record{
		Symbol:      j.symbol,
		Key:         key,
		Interrupted: interrupted,
		Opening:     j.opening,
		OpeningTS:   j.startTS,
		Deltas:      j.deltas,
		Closing:     &closing,
	}
}

// Reset clears the journal for the next window.
func (j *Journal) Reset() {
	j.startTS = 0
	j.opening = nil
	j.deltas = make(map[int64]*DeltaLog)
}
