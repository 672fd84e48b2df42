package models

import "strings"

// ChannelKind identifies the logical stream a subscription belongs to.
type ChannelKind string

const (
	ChannelTicker  ChannelKind = "ticker"
	ChannelTrades  ChannelKind = "trades"
	ChannelBook    ChannelKind = "book"
	ChannelCandles ChannelKind = "candles"
	ChannelStatus  ChannelKind = "status"
)

// Book precisions. PrecisionRaw selects the per-order book; everything else
// is an aggregated view.
const (
	PrecisionP0  = "P0"
	PrecisionP1  = "P1"
	PrecisionP2  = "P2"
	PrecisionP3  = "P3"
	PrecisionP4  = "P4"
	PrecisionRaw = "R0"
)

// Status key prefixes recognised on the status channel.
const (
	StatusKeyDerivatives = "deriv:"
	StatusKeyLiquidation = "liq:"
)

// Subscription identifies one logical stream on the venue connection. It is
// created and owned by the transport layer and handed to the core by
// reference alongside every frame. Immutable once acknowledged.
type Subscription struct {
	SubID     int64       `json:"sub_id"`
	Channel   ChannelKind `json:"channel"`
	Symbol    string      `json:"symbol,omitempty"`
	Key       string      `json:"key,omitempty"`
	Precision string      `json:"prec,omitempty"`
	Frequency string      `json:"freq,omitempty"`
	Length    string      `json:"len,omitempty"`
}

// IsTradingPair reports whether the subscription's symbol names a trading
// pair (prefix "t", e.g. tBTCUSD).
func (s *Subscription) IsTradingPair() bool {
	return strings.HasPrefix(s.Symbol, "t")
}

// IsFundingCurrency reports whether the subscription's symbol names a
// funding currency (prefix "f", e.g. fUSD).
func (s *Subscription) IsFundingCurrency() bool {
	return strings.HasPrefix(s.Symbol, "f")
}

// IsRawBook reports whether a book subscription uses the per-order view.
func (s *Subscription) IsRawBook() bool {
	return s.Precision == PrecisionRaw
}
