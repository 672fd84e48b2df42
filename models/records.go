package models

import "github.com/shopspring/decimal"

// TradingPairTicker mirrors the field order of the venue's trading-pair
// ticker payload.
type TradingPairTicker struct {
	Bid                 decimal.Decimal `json:"bid"`
	BidSize             decimal.Decimal `json:"bid_size"`
	Ask                 decimal.Decimal `json:"ask"`
	AskSize             decimal.Decimal `json:"ask_size"`
	DailyChange         decimal.Decimal `json:"daily_change"`
	DailyChangeRelative decimal.Decimal `json:"daily_change_relative"`
	LastPrice           decimal.Decimal `json:"last_price"`
	Volume              decimal.Decimal `json:"volume"`
	High                decimal.Decimal `json:"high"`
	Low                 decimal.Decimal `json:"low"`
}

// FundingCurrencyTicker mirrors the funding-currency ticker payload,
// placeholder fields excluded.
type FundingCurrencyTicker struct {
	FRR                 decimal.Decimal `json:"frr"`
	Bid                 decimal.Decimal `json:"bid"`
	BidPeriod           int64           `json:"bid_period"`
	BidSize             decimal.Decimal `json:"bid_size"`
	Ask                 decimal.Decimal `json:"ask"`
	AskPeriod           int64           `json:"ask_period"`
	AskSize             decimal.Decimal `json:"ask_size"`
	DailyChange         decimal.Decimal `json:"daily_change"`
	DailyChangeRelative decimal.Decimal `json:"daily_change_relative"`
	LastPrice           decimal.Decimal `json:"last_price"`
	Volume              decimal.Decimal `json:"volume"`
	High                decimal.Decimal `json:"high"`
	Low                 decimal.Decimal `json:"low"`
	FRRAmountAvailable  decimal.Decimal `json:"frr_amount_available"`
}

// TradingPairTrade is a single execution on a trading pair. A negative
// amount is a sell.
type TradingPairTrade struct {
	ID     int64           `json:"id"`
	MTS    int64           `json:"mts"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
}

// FundingCurrencyTrade is a single execution on a funding currency.
type FundingCurrencyTrade struct {
	ID     int64           `json:"id"`
	MTS    int64           `json:"mts"`
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
	Period int64           `json:"period"`
}

// Candle is one OHLCV bar.
type Candle struct {
	MTS    int64           `json:"mts"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume decimal.Decimal `json:"volume"`
}

// DerivativesStatus carries the periodic derivatives pair status published
// on the status channel under a deriv: key.
type DerivativesStatus struct {
	MTS                   int64           `json:"mts"`
	DerivPrice            decimal.Decimal `json:"deriv_price"`
	SpotPrice             decimal.Decimal `json:"spot_price"`
	InsuranceFundBalance  decimal.Decimal `json:"insurance_fund_balance"`
	NextFundingEvtMTS     int64           `json:"next_funding_evt_mts"`
	NextFundingAccrued    decimal.Decimal `json:"next_funding_accrued"`
	NextFundingStep       int64           `json:"next_funding_step"`
	CurrentFunding        decimal.Decimal `json:"current_funding"`
	MarkPrice             decimal.Decimal `json:"mark_price"`
	OpenInterest          decimal.Decimal `json:"open_interest"`
	ClampMin              decimal.Decimal `json:"clamp_min"`
	ClampMax              decimal.Decimal `json:"clamp_max"`
}

// Liquidation is one entry of the liquidation feed published on the status
// channel under a liq: key.
type Liquidation struct {
	PosID            int64           `json:"pos_id"`
	MTS              int64           `json:"mts"`
	Symbol           string          `json:"symbol"`
	Amount           decimal.Decimal `json:"amount"`
	BasePrice        decimal.Decimal `json:"base_price"`
	IsMatch          bool            `json:"is_match"`
	IsMarketSold     bool            `json:"is_market_sold"`
	LiquidationPrice decimal.Decimal `json:"liquidation_price"`
}
