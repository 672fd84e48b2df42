// Package transport owns the venue websocket connection: framing,
// subscription bookkeeping and the subscribe/unsubscribe round-trips. The
// replication core only sees the Transport interface and a stream of
// decoded frames.
package transport

import (
	"context"

	"bookflow/models"
)

// SubscribeRequest carries the channel parameters of one subscription.
type SubscribeRequest struct {
	Channel   models.ChannelKind
	Symbol    string
	Key       string
	Precision string
	Frequency string
	Length    string
}

// FrameHandler receives every decoded channel frame together with its fully
// resolved subscription. Called from the connection's read goroutine, one
// frame at a time.
type FrameHandler func(sub *models.Subscription, fields models.Frame)

// Transport is the outbound surface the resync controller drives. Requests
// are fire-and-forget: the acknowledgment arrives later as a subscription
// event on the stream, not as a return value.
type Transport interface {
	Subscribe(ctx context.Context, req SubscribeRequest) error
	Unsubscribe(ctx context.Context, subID int64) error
}
