// Package classifier turns raw multiplexed frames into typed domain events.
// Dispatch is keyed on the originating subscription's channel kind, then on
// the frame's shape; a frame that matches no recognised shape yields
// ErrNoEvent, which callers drop and log at debug level.
package classifier

import (
	"encoding/json"
	"errors"
	"strings"

	"bookflow/models"
)

var (
	// ErrNoEvent marks a frame that carries no actionable payload for its
	// subscription: unknown symbol or key prefix, heartbeat remnants, or a
	// shape outside the channel's recognised set. Never fatal.
	ErrNoEvent = errors.New("frame carries no event")

	// ErrMalformedFrame marks a frame whose shape matched a handler but
	// whose fields could not be decoded. Never fatal either; the frame is
	// dropped and streaming continues.
	ErrMalformedFrame = errors.New("malformed frame")
)

// Classify produces exactly one typed event for the frame, or ErrNoEvent.
func Classify(sub *models.Subscription, fields models.Frame) (models.Event, error) {
	switch sub.Channel {
	case models.ChannelTicker:
		return classifyTicker(sub, fields)
	case models.ChannelTrades:
		return classifyTrades(sub, fields)
	case models.ChannelBook:
		return classifyBook(sub, fields)
	case models.ChannelCandles:
		return classifyCandles(sub, fields)
	case models.ChannelStatus:
		return classifyStatus(sub, fields)
	}
	return nil, ErrNoEvent
}

func classifyTicker(sub *models.Subscription, fields models.Frame) (models.Event, error) {
	if len(fields) == 0 {
		return nil, ErrNoEvent
	}
	payload, ok := fields[0].([]any)
	if !ok {
		return nil, ErrNoEvent
	}
	switch {
	case sub.IsTradingPair():
		t, err := decodeTradingTicker(payload)
		if err != nil {
			return nil, err
		}
		return models.TradingTickerUpdate{EventBase: models.EventBase{Sub: sub}, Ticker: t}, nil
	case sub.IsFundingCurrency():
		t, err := decodeFundingTicker(payload)
		if err != nil {
			return nil, err
		}
		return models.FundingTickerUpdate{EventBase: models.EventBase{Sub: sub}, Ticker: t}, nil
	}
	return nil, ErrNoEvent
}

func classifyTrades(sub *models.Subscription, fields models.Frame) (models.Event, error) {
	switch tradesShape(fields) {
	case shapeExecution:
		tag := executionTags[fields[0].(string)]
		if len(fields) < 2 {
			return nil, ErrMalformedFrame
		}
		payload, ok := fields[1].([]any)
		if !ok {
			return nil, ErrMalformedFrame
		}
		switch {
		case sub.IsTradingPair():
			t, err := decodeTradingTrade(payload)
			if err != nil {
				return nil, err
			}
			return models.TradingTradeExecution{
				EventBase: models.EventBase{Sub: sub},
				Update:    tag.update,
				Trade:     t,
			}, nil
		case sub.IsFundingCurrency():
			t, err := decodeFundingTrade(payload)
			if err != nil {
				return nil, err
			}
			return models.FundingTradeExecution{
				EventBase: models.EventBase{Sub: sub},
				Update:    tag.update,
				Trade:     t,
			}, nil
		}
		return nil, ErrNoEvent

	case shapeSnapshot:
		rows := fields[0].([]any)
		switch {
		case sub.IsTradingPair():
			trades := make([]models.TradingPairTrade, 0, len(rows))
			for _, row := range rows {
				inner, ok := row.([]any)
				if !ok {
					return nil, ErrMalformedFrame
				}
				t, err := decodeTradingTrade(inner)
				if err != nil {
					return nil, err
				}
				trades = append(trades, t)
			}
			return models.TradingTradesSnapshot{EventBase: models.EventBase{Sub: sub}, Trades: trades}, nil
		case sub.IsFundingCurrency():
			trades := make([]models.FundingCurrencyTrade, 0, len(rows))
			for _, row := range rows {
				inner, ok := row.([]any)
				if !ok {
					return nil, ErrMalformedFrame
				}
				t, err := decodeFundingTrade(inner)
				if err != nil {
					return nil, err
				}
				trades = append(trades, t)
			}
			return models.FundingTradesSnapshot{EventBase: models.EventBase{Sub: sub}, Trades: trades}, nil
		}
	}
	return nil, ErrNoEvent
}

func classifyBook(sub *models.Subscription, fields models.Frame) (models.Event, error) {
	shape := bookShape(fields)

	if shape == shapeChecksum {
		r := newFieldReader(fields)
		r.skip(1)
		declared := r.int64()
		ts := r.int64()
		if r.err != nil {
			return nil, r.err
		}
		// Transports that deliver signed integers can sign-extend the
		// declared value; truncating masks it back to 32 bits unsigned.
		return models.Checksum{
			EventBase: models.EventBase{Sub: sub},
			Value:     uint32(declared),
			Timestamp: ts,
		}, nil
	}

	if sub.IsRawBook() {
		return classifyRawBook(sub, fields, shape)
	}
	return classifyAggregatedBook(sub, fields, shape)
}

func classifyAggregatedBook(sub *models.Subscription, fields models.Frame, shape frameShape) (models.Event, error) {
	ts := venueTimestamp(fields, 1)

	switch shape {
	case shapeSnapshot:
		rows := fields[0].([]any)
		switch {
		case sub.IsTradingPair():
			levels := make([]models.PriceLevel, 0, len(rows))
			for _, row := range rows {
				lvl, err := decodePriceLevel(row.([]any))
				if err != nil {
					return nil, err
				}
				levels = append(levels, lvl)
			}
			return models.TradingBookSnapshot{
				EventBase: models.EventBase{Sub: sub},
				Levels:    levels,
				Timestamp: ts,
			}, nil
		case sub.IsFundingCurrency():
			levels := make([]models.FundingLevel, 0, len(rows))
			for _, row := range rows {
				lvl, err := decodeFundingLevel(row.([]any))
				if err != nil {
					return nil, err
				}
				levels = append(levels, lvl)
			}
			return models.FundingBookSnapshot{EventBase: models.EventBase{Sub: sub}, Levels: levels}, nil
		}

	case shapeSingle:
		row := fields[0].([]any)
		switch {
		case sub.IsTradingPair():
			lvl, err := decodePriceLevel(row)
			if err != nil {
				return nil, err
			}
			return models.TradingBookUpdate{
				EventBase: models.EventBase{Sub: sub},
				Level:     lvl,
				Timestamp: ts,
			}, nil
		case sub.IsFundingCurrency():
			lvl, err := decodeFundingLevel(row)
			if err != nil {
				return nil, err
			}
			return models.FundingBookUpdate{EventBase: models.EventBase{Sub: sub}, Level: lvl}, nil
		}
	}
	return nil, ErrNoEvent
}

func classifyRawBook(sub *models.Subscription, fields models.Frame, shape frameShape) (models.Event, error) {
	switch shape {
	case shapeSnapshot:
		rows := fields[0].([]any)
		switch {
		case sub.IsTradingPair():
			orders := make([]models.RawOrder, 0, len(rows))
			for _, row := range rows {
				ord, err := decodeRawOrder(row.([]any))
				if err != nil {
					return nil, err
				}
				orders = append(orders, ord)
			}
			return models.TradingRawBookSnapshot{EventBase: models.EventBase{Sub: sub}, Orders: orders}, nil
		case sub.IsFundingCurrency():
			offers := make([]models.RawOffer, 0, len(rows))
			for _, row := range rows {
				off, err := decodeRawOffer(row.([]any))
				if err != nil {
					return nil, err
				}
				offers = append(offers, off)
			}
			return models.FundingRawBookSnapshot{EventBase: models.EventBase{Sub: sub}, Offers: offers}, nil
		}

	case shapeSingle:
		row := fields[0].([]any)
		switch {
		case sub.IsTradingPair():
			ord, err := decodeRawOrder(row)
			if err != nil {
				return nil, err
			}
			return models.TradingRawBookUpdate{EventBase: models.EventBase{Sub: sub}, Order: ord}, nil
		case sub.IsFundingCurrency():
			off, err := decodeRawOffer(row)
			if err != nil {
				return nil, err
			}
			return models.FundingRawBookUpdate{EventBase: models.EventBase{Sub: sub}, Offer: off}, nil
		}
	}
	return nil, ErrNoEvent
}

func classifyCandles(sub *models.Subscription, fields models.Frame) (models.Event, error) {
	switch candlesShape(fields) {
	case shapeSnapshot:
		rows := fields[0].([]any)
		candles := make([]models.Candle, 0, len(rows))
		for _, row := range rows {
			c, err := decodeCandle(row.([]any))
			if err != nil {
				return nil, err
			}
			candles = append(candles, c)
		}
		return models.CandlesSnapshot{EventBase: models.EventBase{Sub: sub}, Candles: candles}, nil
	case shapeSingle:
		c, err := decodeCandle(fields[0].([]any))
		if err != nil {
			return nil, err
		}
		return models.CandlesUpdate{EventBase: models.EventBase{Sub: sub}, Candle: c}, nil
	}
	return nil, ErrNoEvent
}

func classifyStatus(sub *models.Subscription, fields models.Frame) (models.Event, error) {
	if len(fields) == 0 {
		return nil, ErrNoEvent
	}
	payload, ok := fields[0].([]any)
	if !ok {
		return nil, ErrNoEvent
	}

	switch {
	case strings.HasPrefix(sub.Key, models.StatusKeyDerivatives):
		s, err := decodeDerivativesStatus(payload)
		if err != nil {
			return nil, err
		}
		return models.DerivativesStatusUpdate{EventBase: models.EventBase{Sub: sub}, Status: s}, nil

	case strings.HasPrefix(sub.Key, models.StatusKeyLiquidation):
		// The liquidation payload is singly nested: take element 0 of
		// element 0.
		if len(payload) == 0 {
			return nil, ErrMalformedFrame
		}
		inner, ok := payload[0].([]any)
		if !ok {
			return nil, ErrMalformedFrame
		}
		l, err := decodeLiquidation(inner)
		if err != nil {
			return nil, err
		}
		return models.LiquidationFeedUpdate{EventBase: models.EventBase{Sub: sub}, Liquidation: l}, nil
	}
	return nil, ErrNoEvent
}

// venueTimestamp reads the trailing venue timestamp some channels append
// after the payload. Returns zero when absent.
func venueTimestamp(fields models.Frame, idx int) int64 {
	if idx >= len(fields) {
		return 0
	}
	n, ok := fields[idx].(json.Number)
	if !ok {
		return 0
	}
	ts, err := n.Int64()
	if err != nil {
		return 0
	}
	return ts
}
