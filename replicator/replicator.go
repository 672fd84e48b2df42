package replicator

import (
	"context"
	"errors"
	"time"

	"bookflow/book"
	"bookflow/classifier"
	"bookflow/config"
	"bookflow/internal/channel"
	"bookflow/journal"
	"bookflow/logger"
	"bookflow/models"
	"bookflow/transport"
)

// Replicator maintains one symbol's order book replica: it classifies raw
// frames, applies book events to the replica and the journal, verifies
// checksums, and hands closed journal records to the writer. All other
// event kinds pass straight through to the fan-out channel.
type Replicator struct {
	log     *logger.Entry
	symbol  string
	book    *book.Book
	journal *journal.Journal
	events  *channel.Events
	flushes chan<- journal.Record
	ctrl    *controller
}

// New builds a replicator for a single trading pair book subscription.
func New(cfg *config.Config, bk config.BookConfig, tr transport.Transport, events *channel.Events, flushes chan<- journal.Record) *Replicator {
	req := transport.SubscribeRequest{
		Channel:   models.ChannelBook,
		Symbol:    bk.Symbol,
		Precision: bk.Precision,
		Frequency: bk.Frequency,
		Length:    bk.Length,
	}
	return &Replicator{
		log:     logger.GetLogger().WithComponent("replicator").WithFields(logger.Fields{"symbol": bk.Symbol}),
		symbol:  bk.Symbol,
		book:    book.New(),
		journal: journal.New(bk.Symbol),
		events:  events,
		flushes: flushes,
		ctrl:    newController(tr, req, cfg.Replica.RecordingWindow, cfg.Replica.ResyncTimeout),
	}
}

// Request returns the subscribe request for this symbol's book channel,
// used for the initial subscription at startup.
func (r *Replicator) Request() transport.SubscribeRequest {
	return r.ctrl.request
}

// Symbol returns the trading pair this replicator maintains.
func (r *Replicator) Symbol() string {
	return r.symbol
}

// State returns the pipeline state for observability.
func (r *Replicator) State() State {
	return r.ctrl.currentState()
}

// OnFrame ingests one demultiplexed frame. Book semantics apply only to
// trading pair book events; everything else is classified and forwarded.
// Transport errors raised during a resync propagate unchanged.
func (r *Replicator) OnFrame(ctx context.Context, sub *models.Subscription, fields models.Frame) error {
	logger.IncrementFrameRead()

	ev, err := classifier.Classify(sub, fields)
	if err != nil {
		if errors.Is(err, classifier.ErrNoEvent) {
			r.log.WithFields(logger.Fields{"channel": sub.Channel}).Trace("frame carried no actionable payload")
			return nil
		}
		r.log.WithError(err).WithFields(logger.Fields{"channel": sub.Channel}).Debug("dropping malformed frame")
		return nil
	}

	switch e := ev.(type) {
	case models.TradingBookSnapshot:
		r.onSnapshot(e)
	case models.TradingBookUpdate:
		if err := r.onUpdate(ctx, e); err != nil {
			return err
		}
	case models.Checksum:
		if err := r.onChecksum(ctx, e); err != nil {
			return err
		}
	}

	r.events.Send(ctx, ev)
	return nil
}

// Healthy reports a liveness fault when a resync has been pending beyond
// the configured deadline.
func (r *Replicator) Healthy(now time.Time) error {
	return r.ctrl.checkStuck(now)
}

// Shutdown closes the current recording window, if any, and flushes the
// closing record so a restart never loses the tail of a window.
func (r *Replicator) Shutdown(ctx context.Context, ts int64) {
	if r.journal.Len() == 0 && r.journal.StartTS() == 0 {
		return
	}
	rec := r.journal.Close(ts, journal.NewSnapshot(r.book.Bids(), r.book.Asks()), true)
	r.flush(ctx, rec)
}

func (r *Replicator) onSnapshot(e models.TradingBookSnapshot) {
	r.ctrl.onSnapshot(e.Timestamp)
	r.book.Clear()
	for _, lvl := range e.Levels {
		r.book.Apply(lvl)
	}
	r.journal.Reset()
	r.journal.Open(e.Timestamp, journal.NewSnapshot(r.book.Bids(), r.book.Asks()))
	r.log.WithFields(logger.Fields{
		"bids": r.book.BidCount(),
		"asks": r.book.AskCount(),
		"ts":   e.Timestamp,
	}).Info("book snapshot applied")
}

func (r *Replicator) onUpdate(ctx context.Context, e models.TradingBookUpdate) error {
	if r.ctrl.shouldDrop() {
		return nil
	}

	r.book.Apply(e.Level)
	r.journal.Append(e.Timestamp, e.Level)

	if r.ctrl.windowExpired(e.Timestamp) {
		rec := r.journal.Close(e.Timestamp, journal.NewSnapshot(r.book.Bids(), r.book.Asks()), false)
		r.flush(ctx, rec)
		r.log.WithFields(logger.Fields{"ts": e.Timestamp}).Info("recording window closed, rotating subscription")
		return r.resync(ctx, e.Sub.SubID)
	}
	return nil
}

func (r *Replicator) onChecksum(ctx context.Context, e models.Checksum) error {
	if r.ctrl.shouldDrop() {
		return nil
	}
	if !r.book.IsVerifiable() {
		return nil
	}

	ok, err := r.book.Verify(e.Value)
	if err != nil {
		return nil
	}
	if ok {
		r.ctrl.markVerified(e.Timestamp)
		return nil
	}

	logger.IncrementDivergence()
	last := r.ctrl.lastVerifiedTS()
	r.log.WithFields(logger.Fields{
		"declared":      e.Value,
		"ts":            e.Timestamp,
		"last_verified": last,
	}).Warn("checksum mismatch, replica diverged")

	r.journal.Truncate(last)
	rec := r.journal.Close(last, journal.NewSnapshot(r.book.Bids(), r.book.Asks()), true)
	r.flush(ctx, rec)

	return r.resync(ctx, e.Sub.SubID)
}

func (r *Replicator) resync(ctx context.Context, subID int64) error {
	return r.ctrl.beginResync(ctx, subID, func() {
		r.book.Clear()
		r.journal.Reset()
	})
}

func (r *Replicator) flush(ctx context.Context, rec journal.Record) {
	select {
	case r.flushes <- rec:
	case <-ctx.Done():
		r.log.Warn("context cancelled while flushing journal record")
	}
}
