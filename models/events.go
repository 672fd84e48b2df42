package models

// EventName is the wire-facing identifier of a classified domain event.
type EventName string

const (
	EventTTickerUpdate         EventName = "t_ticker_update"
	EventFTickerUpdate         EventName = "f_ticker_update"
	EventTTradeExecution       EventName = "t_trade_execution"
	EventTTradeExecutionUpdate EventName = "t_trade_execution_update"
	EventFTradeExecution       EventName = "f_trade_execution"
	EventFTradeExecutionUpdate EventName = "f_trade_execution_update"
	EventTTradesSnapshot       EventName = "t_trades_snapshot"
	EventFTradesSnapshot       EventName = "f_trades_snapshot"
	EventTBookSnapshot         EventName = "t_book_snapshot"
	EventTBookUpdate           EventName = "t_book_update"
	EventFBookSnapshot         EventName = "f_book_snapshot"
	EventFBookUpdate           EventName = "f_book_update"
	EventTRawBookSnapshot      EventName = "t_raw_book_snapshot"
	EventTRawBookUpdate        EventName = "t_raw_book_update"
	EventFRawBookSnapshot      EventName = "f_raw_book_snapshot"
	EventFRawBookUpdate        EventName = "f_raw_book_update"
	EventCandlesSnapshot       EventName = "candles_snapshot"
	EventCandlesUpdate         EventName = "candles_update"
	EventDerivativesStatus     EventName = "derivatives_status_update"
	EventLiquidationFeed       EventName = "liquidation_feed_update"
	EventChecksum              EventName = "checksum"
)

// Event is one classified domain event. The concrete set of implementations
// in this package is closed; consumers switch on the concrete type or on
// EventName.
type Event interface {
	EventName() EventName
	Subscription() *Subscription
}

// EventBase carries the originating subscription shared by every event
// type.
type EventBase struct {
	Sub *Subscription
}

func (b EventBase) Subscription() *Subscription { return b.Sub }

// TradingTickerUpdate is emitted for every ticker frame on a trading pair.
type TradingTickerUpdate struct {
	EventBase
	Ticker TradingPairTicker
}

func (TradingTickerUpdate) EventName() EventName { return EventTTickerUpdate }

// FundingTickerUpdate is emitted for every ticker frame on a funding
// currency.
type FundingTickerUpdate struct {
	EventBase
	Ticker FundingCurrencyTicker
}

func (FundingTickerUpdate) EventName() EventName { return EventFTickerUpdate }

// TradingTradeExecution is a "te" tagged execution on a trading pair.
type TradingTradeExecution struct {
	EventBase
	Update bool
	Trade  TradingPairTrade
}

func (e TradingTradeExecution) EventName() EventName {
	if e.Update {
		return EventTTradeExecutionUpdate
	}
	return EventTTradeExecution
}

// FundingTradeExecution is an "fte" tagged execution on a funding currency.
type FundingTradeExecution struct {
	EventBase
	Update bool
	Trade  FundingCurrencyTrade
}

func (e FundingTradeExecution) EventName() EventName {
	if e.Update {
		return EventFTradeExecutionUpdate
	}
	return EventFTradeExecution
}

// TradingTradesSnapshot carries the trade history sent on subscription.
type TradingTradesSnapshot struct {
	EventBase
	Trades []TradingPairTrade
}

func (TradingTradesSnapshot) EventName() EventName { return EventTTradesSnapshot }

// FundingTradesSnapshot carries the funding trade history sent on
// subscription.
type FundingTradesSnapshot struct {
	EventBase
	Trades []FundingCurrencyTrade
}

func (FundingTradesSnapshot) EventName() EventName { return EventFTradesSnapshot }

// TradingBookSnapshot is the full aggregated book sent once per book
// subscription activation. Timestamp is the venue timestamp of the frame.
type TradingBookSnapshot struct {
	EventBase
	Levels    []PriceLevel
	Timestamp int64
}

func (TradingBookSnapshot) EventName() EventName { return EventTBookSnapshot }

// TradingBookUpdate is a single aggregated level delta.
type TradingBookUpdate struct {
	EventBase
	Level     PriceLevel
	Timestamp int64
}

func (TradingBookUpdate) EventName() EventName { return EventTBookUpdate }

// FundingBookSnapshot is the full aggregated funding book.
type FundingBookSnapshot struct {
	EventBase
	Levels []FundingLevel
}

func (FundingBookSnapshot) EventName() EventName { return EventFBookSnapshot }

// FundingBookUpdate is a single aggregated funding level delta.
type FundingBookUpdate struct {
	EventBase
	Level FundingLevel
}

func (FundingBookUpdate) EventName() EventName { return EventFBookUpdate }

// TradingRawBookSnapshot is the full per-order book.
type TradingRawBookSnapshot struct {
	EventBase
	Orders []RawOrder
}

func (TradingRawBookSnapshot) EventName() EventName { return EventTRawBookSnapshot }

// TradingRawBookUpdate is a single per-order delta.
type TradingRawBookUpdate struct {
	EventBase
	Order RawOrder
}

func (TradingRawBookUpdate) EventName() EventName { return EventTRawBookUpdate }

// FundingRawBookSnapshot is the full per-offer funding book.
type FundingRawBookSnapshot struct {
	EventBase
	Offers []RawOffer
}

func (FundingRawBookSnapshot) EventName() EventName { return EventFRawBookSnapshot }

// FundingRawBookUpdate is a single per-offer delta.
type FundingRawBookUpdate struct {
	EventBase
	Offer RawOffer
}

func (FundingRawBookUpdate) EventName() EventName { return EventFRawBookUpdate }

// CandlesSnapshot carries the bar history sent on subscription.
type CandlesSnapshot struct {
	EventBase
	Candles []Candle
}

func (CandlesSnapshot) EventName() EventName { return EventCandlesSnapshot }

// CandlesUpdate is a single bar update.
type CandlesUpdate struct {
	EventBase
	Candle Candle
}

func (CandlesUpdate) EventName() EventName { return EventCandlesUpdate }

// DerivativesStatusUpdate is a derivatives pair status tick.
type DerivativesStatusUpdate struct {
	EventBase
	Status DerivativesStatus
}

func (DerivativesStatusUpdate) EventName() EventName { return EventDerivativesStatus }

// LiquidationFeedUpdate is one liquidation feed entry.
type LiquidationFeedUpdate struct {
	EventBase
	Liquidation Liquidation
}

func (LiquidationFeedUpdate) EventName() EventName { return EventLiquidationFeed }

// Checksum is the venue's periodic integrity frame for a book subscription.
// Value has already been masked to 32 bits.
type Checksum struct {
	EventBase
	Value     uint32
	Timestamp int64
}

func (Checksum) EventName() EventName { return EventChecksum }
