// Package book maintains the local replica of one symbol's aggregated order
// book and verifies it against the venue's rolling checksum.
package book

import (
	"errors"

	"github.com/tidwall/btree"

	"bookflow/models"
)

// VerificationDepth is the number of levels per side the venue's checksum
// covers. Verification is skipped until both sides hold at least this many
// levels.
const VerificationDepth = 25

// ErrInsufficientDepth is returned when verification is attempted before
// both sides hold VerificationDepth levels. Callers are expected to check
// IsVerifiable first and skip verification; this is not a protocol error.
var ErrInsufficientDepth = errors.New("not enough bids or asks to verify")

// Book is the replica of one symbol's aggregated book: two ordered
// collections of price levels, bids iterating in descending price order and
// asks in ascending price order. Not safe for concurrent use; each symbol's
// pipeline owns exactly one Book and mutates it from a single goroutine.
type Book struct {
	bids *btree.BTreeG[models.PriceLevel]
	asks *btree.BTreeG[models.PriceLevel]
}

func New() *Book {
	return &Book{
		bids: btree.NewBTreeG(func(a, b models.PriceLevel) bool {
			return a.Price.Cmp(b.Price) > 0
		}),
		asks: btree.NewBTreeG(func(a, b models.PriceLevel) bool {
			return a.Price.Cmp(b.Price) < 0
		}),
	}
}

// Apply upserts or removes one level. The side is selected by the sign of
// the level's amount. A removal for an absent price is a no-op; the venue
// may send redundant removals.
func (b *Book) Apply(lvl models.PriceLevel) {
	side := b.asks
	if lvl.IsBid() {
		side = b.bids
	}
	if lvl.IsRemoval() {
		side.Delete(models.PriceLevel{Price: lvl.Price})
		return
	}
	side.Set(lvl)
}

// BidCount returns the number of bid levels currently held.
func (b *Book) BidCount() int { return b.bids.Len() }

// AskCount returns the number of ask levels currently held.
func (b *Book) AskCount() int { return b.asks.Len() }

// IsVerifiable reports whether both sides hold at least VerificationDepth
// levels.
func (b *Book) IsVerifiable() bool {
	return b.bids.Len() >= VerificationDepth && b.asks.Len() >= VerificationDepth
}

// TopBids returns up to n bid levels in descending price order.
func (b *Book) TopBids(n int) []models.PriceLevel {
	return top(b.bids, n)
}

// TopAsks returns up to n ask levels in ascending price order.
func (b *Book) TopAsks(n int) []models.PriceLevel {
	return top(b.asks, n)
}

// Bids returns every bid level in descending price order.
func (b *Book) Bids() []models.PriceLevel { return top(b.bids, b.bids.Len()) }

// Asks returns every ask level in ascending price order.
func (b *Book) Asks() []models.PriceLevel { return top(b.asks, b.asks.Len()) }

func top(side *btree.BTreeG[models.PriceLevel], n int) []models.PriceLevel {
	if n <= 0 {
		return nil
	}
	levels := make([]models.PriceLevel, 0, n)
	side.Scan(func(lvl models.PriceLevel) bool {
		levels = append(levels, lvl)
		return len(levels) < n
	})
	return levels
}

// Checksum computes the CRC-32 of the canonical top-25 view, or
// ErrInsufficientDepth when either side is too shallow.
func (b *Book) Checksum() (uint32, error) {
	if !b.IsVerifiable() {
		return 0, ErrInsufficientDepth
	}
	return checksum(b.TopBids(VerificationDepth), b.TopAsks(VerificationDepth)), nil
}

// Verify compares the locally computed checksum with the venue's declared
// value. The declared value must already be masked to 32 bits.
func (b *Book) Verify(declared uint32) (bool, error) {
	local, err := b.Checksum()
	if err != nil {
		return false, err
	}
	return local == declared, nil
}

// Clear resets both sides to empty. Used by the resync controller only.
func (b *Book) Clear() {
	b.bids.Clear()
	b.asks.Clear()
}
