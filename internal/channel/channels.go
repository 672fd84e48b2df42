// Package channel carries classified domain events from the per-symbol
// pipelines to application code, with send/drop accounting.
package channel

import (
	"context"
	"sync"

	"bookflow/logger"
	"bookflow/models"
)

type Stats struct {
	Sent    int64
	Dropped int64
}

// Events is a buffered fan-out of classified events. Sends never block the
// pipeline: when the consumer falls behind, events are dropped and counted.
type Events struct {
	Out chan models.Event

	stats      Stats
	statsMutex sync.RWMutex
	log        *logger.Log
}

func NewEvents(bufferSize int) *Events {
	log := logger.GetLogger()
	e := &Events{
		Out: make(chan models.Event, bufferSize),
		log: log,
	}

	log.WithComponent("event_channels").WithFields(logger.Fields{
		"buffer_size": bufferSize,
	}).Info("event channels initialized")

	return e
}

func (e *Events) Close() {
	close(e.Out)
	e.log.WithComponent("event_channels").Info("event channels closed")
}

// Send delivers one event without blocking. Returns false when the event
// was dropped or the context is done.
func (e *Events) Send(ctx context.Context, ev models.Event) bool {
	select {
	case e.Out <- ev:
		e.incrementSent()
		return true
	case <-ctx.Done():
		return false
	default:
		e.incrementDropped()
		return false
	}
}

func (e *Events) incrementSent() {
	e.statsMutex.Lock()
	e.stats.Sent++
	e.statsMutex.Unlock()
}

func (e *Events) incrementDropped() {
	e.statsMutex.Lock()
	e.stats.Dropped++
	e.statsMutex.Unlock()
}

func (e *Events) GetStats() Stats {
	e.statsMutex.RLock()
	defer e.statsMutex.RUnlock()
	return e.stats
}
