package models

import "github.com/shopspring/decimal"

// PriceLevel is one aggregated level of a trading-pair book. The sign of
// Amount encodes the side: positive amounts are bids, negative amounts are
// asks. Count is the number of orders backing the level; a count of zero
// instructs the replica to remove the level.
type PriceLevel struct {
	Price  decimal.Decimal `json:"p"`
	Count  int64           `json:"c"`
	Amount decimal.Decimal `json:"a"`
}

// IsBid reports which side of the book the level belongs to.
func (l PriceLevel) IsBid() bool {
	return l.Amount.Sign() > 0
}

// IsRemoval reports whether the level instructs removal of its price key.
func (l PriceLevel) IsRemoval() bool {
	return l.Count == 0
}

// FundingLevel is one aggregated level of a funding-currency book, keyed by
// rate instead of price and carrying the offer period in days.
type FundingLevel struct {
	Rate   decimal.Decimal `json:"rate"`
	Period int64           `json:"period"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// RawOrder is one entry of a per-order trading-pair book, keyed by the
// exchange order identifier rather than by price. A zero price instructs
// removal of the order.
type RawOrder struct {
	OrderID int64           `json:"order_id"`
	Price   decimal.Decimal `json:"price"`
	Amount  decimal.Decimal `json:"amount"`
}

// RawOffer is one entry of a per-offer funding-currency book.
type RawOffer struct {
	OfferID int64           `json:"offer_id"`
	Period  int64           `json:"period"`
	Rate    decimal.Decimal `json:"rate"`
	Amount  decimal.Decimal `json:"amount"`
}
