package classifier

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"bookflow/models"
)

// fieldReader walks an ordered, loosely typed field list. The first type
// mismatch sticks in err; reads past the end yield zero values so that
// trailing placeholder fields the venue omits do not fail the decode.
type fieldReader struct {
	fields []any
	pos    int
	err    error
}

func newFieldReader(fields []any) *fieldReader {
	return &fieldReader{fields: fields}
}

func (r *fieldReader) next() (any, bool) {
	if r.err != nil || r.pos >= len(r.fields) {
		return nil, false
	}
	f := r.fields[r.pos]
	r.pos++
	return f, true
}

func (r *fieldReader) skip(n int) {
	r.pos += n
}

func (r *fieldReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s", ErrMalformedFrame, fmt.Sprintf(format, args...))
	}
}

// decimal reads the next field as a lossless decimal. Null fields decode to
// zero.
func (r *fieldReader) decimal() decimal.Decimal {
	f, ok := r.next()
	if !ok || f == nil {
		return decimal.Decimal{}
	}
	switch v := f.(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			r.fail("field %d: bad number %q", r.pos-1, v.String())
			return decimal.Decimal{}
		}
		return d
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			r.fail("field %d: bad numeric string %q", r.pos-1, v)
			return decimal.Decimal{}
		}
		return d
	default:
		r.fail("field %d: expected number, got %T", r.pos-1, f)
		return decimal.Decimal{}
	}
}

func (r *fieldReader) int64() int64 {
	f, ok := r.next()
	if !ok || f == nil {
		return 0
	}
	n, okNum := f.(json.Number)
	if !okNum {
		r.fail("field %d: expected integer, got %T", r.pos-1, f)
		return 0
	}
	i, err := n.Int64()
	if err != nil {
		r.fail("field %d: bad integer %q", r.pos-1, n.String())
		return 0
	}
	return i
}

func (r *fieldReader) str() string {
	f, ok := r.next()
	if !ok || f == nil {
		return ""
	}
	s, okStr := f.(string)
	if !okStr {
		r.fail("field %d: expected string, got %T", r.pos-1, f)
		return ""
	}
	return s
}

// flag reads the next field as a 0/1 integer flag. Null decodes to false.
func (r *fieldReader) flag() bool {
	return r.int64() != 0
}

func decodePriceLevel(fields []any) (models.PriceLevel, error) {
	r := newFieldReader(fields)
	lvl := models.PriceLevel{
		Price:  r.decimal(),
		Count:  r.int64(),
		Amount: r.decimal(),
	}
	return lvl, r.err
}

func decodeFundingLevel(fields []any) (models.FundingLevel, error) {
	r := newFieldReader(fields)
	lvl := models.FundingLevel{
		Rate:   r.decimal(),
		Period: r.int64(),
		Count:  r.int64(),
		Amount: r.decimal(),
	}
	return lvl, r.err
}

func decodeRawOrder(fields []any) (models.RawOrder, error) {
	r := newFieldReader(fields)
	ord := models.RawOrder{
		OrderID: r.int64(),
		Price:   r.decimal(),
		Amount:  r.decimal(),
	}
	return ord, r.err
}

func decodeRawOffer(fields []any) (models.RawOffer, error) {
	r := newFieldReader(fields)
	off := models.RawOffer{
		OfferID: r.int64(),
		Period:  r.int64(),
		Rate:    r.decimal(),
		Amount:  r.decimal(),
	}
	return off, r.err
}

func decodeTradingTrade(fields []any) (models.TradingPairTrade, error) {
	r := newFieldReader(fields)
	t := models.TradingPairTrade{
		ID:     r.int64(),
		MTS:    r.int64(),
		Amount: r.decimal(),
		Price:  r.decimal(),
	}
	return t, r.err
}

func decodeFundingTrade(fields []any) (models.FundingCurrencyTrade, error) {
	r := newFieldReader(fields)
	t := models.FundingCurrencyTrade{
		ID:     r.int64(),
		MTS:    r.int64(),
		Amount: r.decimal(),
		Rate:   r.decimal(),
		Period: r.int64(),
	}
	return t, r.err
}

func decodeTradingTicker(fields []any) (models.TradingPairTicker, error) {
	r := newFieldReader(fields)
	t := models.TradingPairTicker{
		Bid:                 r.decimal(),
		BidSize:             r.decimal(),
		Ask:                 r.decimal(),
		AskSize:             r.decimal(),
		DailyChange:         r.decimal(),
		DailyChangeRelative: r.decimal(),
		LastPrice:           r.decimal(),
		Volume:              r.decimal(),
		High:                r.decimal(),
		Low:                 r.decimal(),
	}
	return t, r.err
}

func decodeFundingTicker(fields []any) (models.FundingCurrencyTicker, error) {
	r := newFieldReader(fields)
	t := models.FundingCurrencyTicker{
		FRR:                 r.decimal(),
		Bid:                 r.decimal(),
		BidPeriod:           r.int64(),
		BidSize:             r.decimal(),
		Ask:                 r.decimal(),
		AskPeriod:           r.int64(),
		AskSize:             r.decimal(),
		DailyChange:         r.decimal(),
		DailyChangeRelative: r.decimal(),
		LastPrice:           r.decimal(),
		Volume:              r.decimal(),
		High:                r.decimal(),
		Low:                 r.decimal(),
	}
	r.skip(2)
	t.FRRAmountAvailable = r.decimal()
	return t, r.err
}

func decodeCandle(fields []any) (models.Candle, error) {
	r := newFieldReader(fields)
	c := models.Candle{
		MTS:    r.int64(),
		Open:   r.decimal(),
		Close:  r.decimal(),
		High:   r.decimal(),
		Low:    r.decimal(),
		Volume: r.decimal(),
	}
	return c, r.err
}

func decodeDerivativesStatus(fields []any) (models.DerivativesStatus, error) {
	r := newFieldReader(fields)
	s := models.DerivativesStatus{}
	s.MTS = r.int64()
	r.skip(1)
	s.DerivPrice = r.decimal()
	s.SpotPrice = r.decimal()
	r.skip(1)
	s.InsuranceFundBalance = r.decimal()
	r.skip(1)
	s.NextFundingEvtMTS = r.int64()
	s.NextFundingAccrued = r.decimal()
	s.NextFundingStep = r.int64()
	r.skip(1)
	s.CurrentFunding = r.decimal()
	r.skip(2)
	s.MarkPrice = r.decimal()
	r.skip(2)
	s.OpenInterest = r.decimal()
	r.skip(3)
	s.ClampMin = r.decimal()
	s.ClampMax = r.decimal()
	return s, r.err
}

func decodeLiquidation(fields []any) (models.Liquidation, error) {
	r := newFieldReader(fields)
	l := models.Liquidation{}
	r.skip(1)
	l.PosID = r.int64()
	l.MTS = r.int64()
	r.skip(1)
	l.Symbol = r.str()
	l.Amount = r.decimal()
	l.BasePrice = r.decimal()
	r.skip(1)
	l.IsMatch = r.flag()
	l.IsMarketSold = r.flag()
	r.skip(1)
	l.LiquidationPrice = r.decimal()
	return l, r.err
}
