package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	appconfig "bookflow/config"
	"bookflow/logger"
	"bookflow/models"
)

// confFlagTimestamp asks the venue to append its timestamp to every channel
// message.
const confFlagTimestamp = 32768

// Client is the concrete venue connection. It dials the public websocket
// endpoint, keeps the chanId to subscription table, and re-establishes the
// connection (re-issuing every desired subscription) when the link drops.
type Client struct {
	config  *appconfig.Config
	handler FrameHandler

	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log

	conn    *websocket.Conn
	writeMu sync.Mutex

	subs    map[int64]*models.Subscription
	desired map[string]SubscribeRequest

	limiter *rate.Limiter
}

func NewClient(cfg *appconfig.Config, handler FrameHandler) *Client {
	return &Client{
		config:  cfg,
		handler: handler,
		wg:      &sync.WaitGroup{},
		log:     logger.GetLogger(),
		subs:    make(map[int64]*models.Subscription),
		desired: make(map[string]SubscribeRequest),
		limiter: rate.NewLimiter(
			rate.Limit(cfg.Venue.SubscribesPerSecond),
			cfg.Venue.SubscribeBurst,
		),
	}
}

// Start dials the venue and begins the read loop. The connection is
// re-established automatically until the context is cancelled.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("transport client already running")
	}
	c.running = true
	c.ctx = ctx
	c.mu.Unlock()

	log := c.log.WithComponent("venue_transport").WithFields(logger.Fields{"url": c.config.Venue.URL})

	if err := c.dial(); err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return err
	}

	log.Info("venue transport connected")

	c.wg.Add(1)
	go c.readLoop()
	return nil
}

// Stop closes the connection and waits for the read loop to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	c.running = false
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.wg.Wait()
	c.log.WithComponent("venue_transport").Info("venue transport stopped")
}

func (c *Client) dial() error {
	dialer := websocket.Dialer{HandshakeTimeout: c.config.Venue.DialTimeout}
	conn, _, err := dialer.Dial(c.config.Venue.URL, nil)
	if err != nil {
		return fmt.Errorf("venue dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.subs = make(map[int64]*models.Subscription)
	c.mu.Unlock()

	return c.writeJSON(map[string]any{"event": "conf", "flags": confFlagTimestamp})
}

// Subscribe sends one subscription request. The acknowledgment arrives as a
// subscribed event; until then the stream carries nothing for it.
func (c *Client) Subscribe(ctx context.Context, req SubscribeRequest) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	msg := map[string]any{"event": "subscribe", "channel": string(req.Channel)}
	if req.Symbol != "" {
		msg["symbol"] = req.Symbol
	}
	if req.Key != "" {
		msg["key"] = req.Key
	}
	if req.Precision != "" {
		msg["prec"] = req.Precision
	}
	if req.Frequency != "" {
		msg["freq"] = req.Frequency
	}
	if req.Length != "" {
		msg["len"] = req.Length
	}

	c.mu.Lock()
	c.desired[requestKey(req)] = req
	c.mu.Unlock()

	return c.writeJSON(msg)
}

// Unsubscribe tears one subscription down by its channel identifier.
func (c *Client) Unsubscribe(ctx context.Context, subID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	if sub, ok := c.subs[subID]; ok {
		delete(c.desired, subscriptionKey(sub))
	}
	c.mu.Unlock()

	return c.writeJSON(map[string]any{"event": "unsubscribe", "chanId": subID})
}

func (c *Client) writeJSON(msg map[string]any) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("venue transport not connected")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	defer c.wg.Done()

	log := c.log.WithComponent("venue_transport")

	for {
		c.mu.RLock()
		running, conn := c.running, c.conn
		c.mu.RUnlock()
		if !running || c.ctx.Err() != nil {
			return
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() != nil || !c.isRunning() {
				return
			}
			log.WithError(err).Warn("websocket read failed, reconnecting")
			if !c.reconnect() {
				return
			}
			continue
		}

		logger.IncrementFrameRead()
		if err := c.route(msg); err != nil {
			log.WithError(err).Warn("failed to route venue message")
		}
	}
}

func (c *Client) isRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// reconnect redials until it succeeds or the client stops, then re-issues
// every desired subscription. Fresh snapshots follow naturally.
func (c *Client) reconnect() bool {
	log := c.log.WithComponent("venue_transport")

	for {
		select {
		case <-time.After(c.config.Venue.ReconnectDelay):
		case <-c.ctx.Done():
			return false
		}
		if !c.isRunning() {
			return false
		}

		if err := c.dial(); err != nil {
			log.WithError(err).Warn("reconnect failed, retrying")
			continue
		}

		c.mu.RLock()
		desired := make([]SubscribeRequest, 0, len(c.desired))
		for _, req := range c.desired {
			desired = append(desired, req)
		}
		c.mu.RUnlock()

		ok := true
		for _, req := range desired {
			if err := c.Subscribe(c.ctx, req); err != nil {
				log.WithError(err).Warn("resubscribe after reconnect failed")
				ok = false
				break
			}
		}
		if ok {
			log.WithFields(logger.Fields{"subscriptions": len(desired)}).Info("reconnected to venue")
			return true
		}
	}
}

// route dispatches one raw message: JSON arrays are channel frames, JSON
// objects are connection events.
func (c *Client) route(msg []byte) error {
	trimmed := bytes.TrimSpace(msg)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		return c.routeFrame(trimmed)
	}
	return c.routeEvent(trimmed)
}

func (c *Client) routeFrame(msg []byte) error {
	fields, err := models.DecodeFrame(msg)
	if err != nil {
		return err
	}
	if len(fields) < 2 {
		return fmt.Errorf("short frame: %d fields", len(fields))
	}

	chanID, ok := fields[0].(json.Number)
	if !ok {
		return fmt.Errorf("frame channel id is %T, not a number", fields[0])
	}
	id, err := chanID.Int64()
	if err != nil {
		return fmt.Errorf("bad channel id %q: %w", chanID.String(), err)
	}

	// Heartbeats keep the link warm; they carry no payload.
	if tok, ok := fields[1].(string); ok && tok == "hb" {
		return nil
	}

	c.mu.RLock()
	sub := c.subs[id]
	c.mu.RUnlock()
	if sub == nil {
		// Frames can trail in after an unsubscribe ack; drop them.
		return nil
	}

	c.handler(sub, fields[1:])
	return nil
}

type connectionEvent struct {
	Event     string `json:"event"`
	Channel   string `json:"channel"`
	ChanID    int64  `json:"chanId"`
	Symbol    string `json:"symbol"`
	Key       string `json:"key"`
	Precision string `json:"prec"`
	Frequency string `json:"freq"`
	Length    string `json:"len"`
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Version   int    `json:"version"`
}

func (c *Client) routeEvent(msg []byte) error {
	var ev connectionEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return fmt.Errorf("failed to decode connection event: %w", err)
	}

	log := c.log.WithComponent("venue_transport")

	switch ev.Event {
	case "subscribed":
		sub := &models.Subscription{
			SubID:     ev.ChanID,
			Channel:   models.ChannelKind(ev.Channel),
			Symbol:    ev.Symbol,
			Key:       ev.Key,
			Precision: ev.Precision,
			Frequency: ev.Frequency,
			Length:    ev.Length,
		}
		c.mu.Lock()
		c.subs[ev.ChanID] = sub
		c.mu.Unlock()
		log.WithFields(logger.Fields{
			"channel": ev.Channel,
			"symbol":  ev.Symbol,
			"key":     ev.Key,
			"chan_id": ev.ChanID,
		}).Info("subscription acknowledged")

	case "unsubscribed":
		c.mu.Lock()
		delete(c.subs, ev.ChanID)
		c.mu.Unlock()
		log.WithFields(logger.Fields{"chan_id": ev.ChanID}).Info("unsubscription acknowledged")

	case "info":
		log.WithFields(logger.Fields{"version": ev.Version, "code": ev.Code}).Debug("venue info")

	case "conf":
		log.Debug("venue conf acknowledged")

	case "error":
		log.WithFields(logger.Fields{"code": ev.Code, "msg": ev.Msg}).Warn("venue error event")

	default:
		log.WithFields(logger.Fields{"event": ev.Event}).Debug("unhandled connection event")
	}
	return nil
}

func requestKey(req SubscribeRequest) string {
	return fmt.Sprintf("%s|%s|%s|%s", req.Channel, req.Symbol, req.Key, req.Precision)
}

func subscriptionKey(sub *models.Subscription) string {
	return fmt.Sprintf("%s|%s|%s|%s", sub.Channel, sub.Symbol, sub.Key, sub.Precision)
}
