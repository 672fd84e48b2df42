package replicator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"bookflow/config"
	"bookflow/internal/channel"
	"bookflow/journal"
	"bookflow/models"
	"bookflow/transport"
)

type fakeTransport struct {
	subscribes   []transport.SubscribeRequest
	unsubscribes []int64
	err          error
}

func (f *fakeTransport) Subscribe(ctx context.Context, req transport.SubscribeRequest) error {
	if f.err != nil {
		return f.err
	}
	f.subscribes = append(f.subscribes, req)
	return nil
}

func (f *fakeTransport) Unsubscribe(ctx context.Context, subID int64) error {
	if f.err != nil {
		return f.err
	}
	f.unsubscribes = append(f.unsubscribes, subID)
	return nil
}

func testConfig(window, timeout time.Duration) *config.Config {
	return &config.Config{
		Replica: config.ReplicaConfig{
			RecordingWindow: window,
			ResyncTimeout:   timeout,
		},
	}
}

func bookSub() *models.Subscription {
	return &models.Subscription{
		SubID:     7,
		Channel:   models.ChannelBook,
		Symbol:    "tBTCUSD",
		Precision: models.PrecisionP0,
	}
}

// snapshotJSON builds a 25-level-per-side snapshot frame: bids from 100
// down with unit amounts, asks from 101 up with negative unit amounts.
// Its checksum is 386775164.
func snapshotJSON(ts int64) string {
	var b strings.Builder
	b.WriteString("[[")
	for i := 0; i < 25; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, "[%d,1,1],[%d,1,-1]", 100-i, 101+i)
	}
	fmt.Fprintf(&b, "],%d]", ts)
	return b.String()
}

func feed(t *testing.T, rep *Replicator, sub *models.Subscription, raw string) error {
	t.Helper()
	fields, err := models.DecodeFrame([]byte(raw))
	if err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return rep.OnFrame(context.Background(), sub, fields)
}

func newTestReplicator(t *testing.T, window, timeout time.Duration) (*Replicator, *fakeTransport, chan journal.Record) {
	t.Helper()
	tr := &fakeTransport{}
	events := channel.NewEvents(256)
	t.Cleanup(events.Close)
	flushes := make(chan journal.Record, 4)
	rep := New(testConfig(window, timeout), config.BookConfig{
		Symbol:    "tBTCUSD",
		Precision: models.PrecisionP0,
		Frequency: "F0",
		Length:    "25",
	}, tr, events, flushes)
	return rep, tr, flushes
}

func TestNewAttachesLogContext(t *testing.T) {
	rep, _, _ := newTestReplicator(t, time.Hour, time.Second)
	if v, ok := rep.log.Entry.Data["component"]; !ok || v != "replicator" {
		t.Fatalf("component field missing: %v", rep.log.Entry.Data)
	}
	if v, ok := rep.log.Entry.Data["symbol"]; !ok || v != "tBTCUSD" {
		t.Fatalf("symbol field missing: %v", rep.log.Entry.Data)
	}
}

func TestSnapshotThenVerifiedChecksum(t *testing.T) {
	rep, tr, _ := newTestReplicator(t, time.Hour, time.Second)
	sub := bookSub()

	if err := feed(t, rep, sub, snapshotJSON(1000)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if rep.State() != StateStreaming {
		t.Fatalf("state = %v, want streaming", rep.State())
	}

	if err := feed(t, rep, sub, `["cs",386775164,2000]`); err != nil {
		t.Fatalf("checksum: %v", err)
	}

	if len(tr.unsubscribes) != 0 || len(tr.subscribes) != 0 {
		t.Errorf("verified checksum must not touch the transport: %+v %+v", tr.unsubscribes, tr.subscribes)
	}
	if got := rep.ctrl.lastVerifiedTS(); got != 2000 {
		t.Errorf("last verified = %d, want 2000", got)
	}
}

func TestChecksumMismatchTriggersResync(t *testing.T) {
	rep, tr, flushes := newTestReplicator(t, time.Hour, time.Second)
	sub := bookSub()

	if err := feed(t, rep, sub, snapshotJSON(1000)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := feed(t, rep, sub, `[[100,2,3],1500]`); err != nil {
		t.Fatalf("update: %v", err)
	}
	// The update changed the top of the book, so this declared value no
	// longer matches and the replica is torn down.
	if err := feed(t, rep, sub, `["cs",386775164,3000]`); err != nil {
		t.Fatalf("mismatching checksum: %v", err)
	}

	if len(tr.unsubscribes) != 1 || tr.unsubscribes[0] != 7 {
		t.Errorf("unsubscribes = %+v, want exactly one for sub 7", tr.unsubscribes)
	}
	if len(tr.subscribes) != 1 {
		t.Fatalf("subscribes = %d, want exactly one", len(tr.subscribes))
	}
	if tr.subscribes[0].Symbol != "tBTCUSD" || tr.subscribes[0].Precision != models.PrecisionP0 {
		t.Errorf("resubscribe lost channel parameters: %+v", tr.subscribes[0])
	}
	if rep.State() != StateAwaitingResubscribe {
		t.Errorf("state = %v, want awaiting_resubscribe", rep.State())
	}
	if rep.book.BidCount() != 0 || rep.book.AskCount() != 0 {
		t.Error("replica not cleared on resync")
	}

	select {
	case rec := <-flushes:
		if !rec.Interrupted {
			t.Error("divergence flush must be marked interrupted")
		}
		// Nothing was verified after the snapshot, so the untrusted delta
		// at 1500 is truncated away and the record is keyed at the
		// snapshot timestamp.
		if rec.Key != 1000 {
			t.Errorf("record key = %d, want 1000", rec.Key)
		}
		if _, ok := rec.Deltas[1500]; ok {
			t.Error("unverified delta survived truncation")
		}
	default:
		t.Fatal("no journal record flushed on divergence")
	}
}

func TestTruncationKeepsVerifiedPrefix(t *testing.T) {
	rep, _, flushes := newTestReplicator(t, time.Hour, time.Second)
	sub := bookSub()

	if err := feed(t, rep, sub, snapshotJSON(1000)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	// A delta that does not disturb the top 25 of either side keeps the
	// checksum valid.
	if err := feed(t, rep, sub, `[[60,1,1],1500]`); err != nil {
		t.Fatalf("deep update: %v", err)
	}
	if err := feed(t, rep, sub, `["cs",386775164,2000]`); err != nil {
		t.Fatalf("verified checksum: %v", err)
	}
	if err := feed(t, rep, sub, `[[100,2,3],2500]`); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := feed(t, rep, sub, `["cs",386775164,3000]`); err != nil {
		t.Fatalf("mismatching checksum: %v", err)
	}

	rec := <-flushes
	if rec.Key != 2000 {
		t.Errorf("record key = %d, want last verified 2000", rec.Key)
	}
	if _, ok := rec.Deltas[1500]; !ok {
		t.Error("verified delta must survive truncation")
	}
	if _, ok := rec.Deltas[2500]; ok {
		t.Error("unverified delta survived truncation")
	}
}

func TestUpdatesDroppedUntilFreshSnapshot(t *testing.T) {
	rep, tr, _ := newTestReplicator(t, time.Hour, time.Second)
	sub := bookSub()

	if err := feed(t, rep, sub, snapshotJSON(1000)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := feed(t, rep, sub, `["cs",1,2000]`); err != nil {
		t.Fatalf("mismatching checksum: %v", err)
	}

	// Stale updates between unsubscribe and the fresh snapshot.
	if err := feed(t, rep, sub, `[[100,1,1],2100]`); err != nil {
		t.Fatalf("stale update: %v", err)
	}
	if rep.book.BidCount() != 0 {
		t.Error("stale update applied while awaiting resubscribe")
	}
	if err := feed(t, rep, sub, `["cs",1,2200]`); err != nil {
		t.Fatalf("stale checksum: %v", err)
	}
	if len(tr.unsubscribes) != 1 {
		t.Errorf("stale checksum triggered another resync: %+v", tr.unsubscribes)
	}

	if err := feed(t, rep, sub, snapshotJSON(3000)); err != nil {
		t.Fatalf("fresh snapshot: %v", err)
	}
	if rep.State() != StateStreaming {
		t.Errorf("state = %v, want streaming after fresh snapshot", rep.State())
	}
	if rep.book.BidCount() != 25 || rep.book.AskCount() != 25 {
		t.Error("fresh snapshot did not repopulate the replica")
	}
	if err := feed(t, rep, sub, `["cs",386775164,3100]`); err != nil {
		t.Fatalf("checksum after resync: %v", err)
	}
	if len(tr.unsubscribes) != 1 {
		t.Error("valid checksum after resync must not tear down again")
	}
}

func TestWindowExpiryRotatesSubscription(t *testing.T) {
	rep, tr, flushes := newTestReplicator(t, time.Second, time.Second)
	sub := bookSub()

	if err := feed(t, rep, sub, snapshotJSON(1000)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	// 1s window starting at 1000 ends at 2000; this update crosses it.
	if err := feed(t, rep, sub, `[[100,2,3],2500]`); err != nil {
		t.Fatalf("update: %v", err)
	}

	select {
	case rec := <-flushes:
		if rec.Interrupted {
			t.Error("planned rotation must not be marked interrupted")
		}
		if rec.Key != 2500 {
			t.Errorf("record key = %d, want 2500", rec.Key)
		}
		if _, ok := rec.Deltas[2500]; !ok {
			t.Error("closing update missing from the flushed window")
		}
	default:
		t.Fatal("no journal record flushed on window expiry")
	}

	if len(tr.unsubscribes) != 1 || len(tr.subscribes) != 1 {
		t.Errorf("rotation must resubscribe once: %+v %+v", tr.unsubscribes, tr.subscribes)
	}
}

func TestTransportErrorPropagates(t *testing.T) {
	rep, tr, _ := newTestReplicator(t, time.Hour, time.Second)
	sub := bookSub()

	if err := feed(t, rep, sub, snapshotJSON(1000)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	wantErr := errors.New("connection reset")
	tr.err = wantErr
	if err := feed(t, rep, sub, `["cs",1,2000]`); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want the transport error unchanged", err)
	}
}

func TestHealthyReportsStuckResync(t *testing.T) {
	rep, _, _ := newTestReplicator(t, time.Hour, time.Second)
	sub := bookSub()

	if err := feed(t, rep, sub, snapshotJSON(1000)); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if err := rep.Healthy(time.Now()); err != nil {
		t.Fatalf("healthy while streaming: %v", err)
	}

	if err := feed(t, rep, sub, `["cs",1,2000]`); err != nil {
		t.Fatalf("mismatching checksum: %v", err)
	}
	if err := rep.Healthy(time.Now()); err != nil {
		t.Fatalf("healthy right after resync: %v", err)
	}
	if err := rep.Healthy(time.Now().Add(2 * time.Second)); !errors.Is(err, ErrResyncStuck) {
		t.Errorf("err = %v, want ErrResyncStuck", err)
	}
}
