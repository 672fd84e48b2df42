package replicator

import (
	"context"
	"errors"
	"sync"
	"time"

	"bookflow/logger"
	"bookflow/transport"
)

// ErrResyncStuck reports that a resubscribe has been pending beyond the
// configured deadline. Fatal to the symbol's pipeline: the controller does
// not retry on its own, the operator decides.
var ErrResyncStuck = errors.New("resubscribe pending beyond deadline")

// State of one symbol's replication pipeline.
type State int32

const (
	// StateStreaming: replica is live and deltas are being applied.
	StateStreaming State = iota
	// StateInvalidating: divergence or window expiry detected, teardown in
	// progress.
	StateInvalidating
	// StateAwaitingResubscribe: unsubscribe/subscribe issued, waiting for
	// the fresh snapshot.
	StateAwaitingResubscribe
)

func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateInvalidating:
		return "invalidating"
	case StateAwaitingResubscribe:
		return "awaiting_resubscribe"
	}
	return "unknown"
}

// windowState bounds one recording window. Owned by a single controller,
// never shared across symbols.
type windowState struct {
	startTS      int64
	endTS        int64
	dropIncoming bool
}

// controller owns the streaming → invalidating → awaiting-resubscribe →
// streaming cycle for one symbol.
type controller struct {
	log       *logger.Log
	transport transport.Transport
	request   transport.SubscribeRequest

	windowDuration time.Duration
	resyncTimeout  time.Duration

	mu            sync.Mutex
	state         State
	window        windowState
	lastVerified  int64
	resyncStarted time.Time
}

func newController(tr transport.Transport, req transport.SubscribeRequest, windowDuration, resyncTimeout time.Duration) *controller {
	return &controller{
		log:            logger.GetLogger(),
		transport:      tr,
		request:        req,
		windowDuration: windowDuration,
		resyncTimeout:  resyncTimeout,
		state:          StateStreaming,
	}
}

// onSnapshot re-initializes the recording window from a fresh snapshot and
// returns the pipeline to streaming, whatever state it was in.
func (c *controller) onSnapshot(ts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.window = windowState{
		startTS: ts,
		endTS:   ts + c.windowDuration.Milliseconds(),
	}
	c.lastVerified = ts
	c.state = StateStreaming
}

// shouldDrop reports whether incoming updates belong to the stale
// subscription and must be discarded instead of mixed into the replica.
func (c *controller) shouldDrop() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window.dropIncoming
}

// windowExpired reports whether the venue timestamp falls beyond the
// current recording window.
func (c *controller) windowExpired(ts int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.window.endTS != 0 && ts >= c.window.endTS
}

func (c *controller) markVerified(ts int64) {
	c.mu.Lock()
	c.lastVerified = ts
	c.mu.Unlock()
}

func (c *controller) lastVerifiedTS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastVerified
}

// beginResync runs the teardown half of the cycle: drop incoming frames,
// unsubscribe the stale subscription, and request a fresh one with the same
// channel parameters. The caller clears the replica and the journal between
// the two transport calls. Transport errors propagate unchanged.
func (c *controller) beginResync(ctx context.Context, subID int64, clear func()) error {
	c.mu.Lock()
	c.state = StateInvalidating
	c.window.dropIncoming = true
	c.mu.Unlock()

	logger.IncrementResync()

	if err := c.transport.Unsubscribe(ctx, subID); err != nil {
		return err
	}

	clear()

	if err := c.transport.Subscribe(ctx, c.request); err != nil {
		return err
	}

	c.mu.Lock()
	c.state = StateAwaitingResubscribe
	c.resyncStarted = time.Now()
	c.mu.Unlock()
	return nil
}

// currentState returns the pipeline state for observability and tests.
func (c *controller) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// checkStuck surfaces a liveness fault when the fresh snapshot has not
// arrived within the resync deadline.
func (c *controller) checkStuck(now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateAwaitingResubscribe {
		return nil
	}
	if now.Sub(c.resyncStarted) > c.resyncTimeout {
		return ErrResyncStuck
	}
	return nil
}
