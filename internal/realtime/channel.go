// Package realtime maintains the single live push channel from the control
// center and fans typed events out to the client state stores.
package realtime

import (
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/prtslab/prts-console/internal/i18n"
	"github.com/prtslab/prts-console/internal/models"
	"github.com/prtslab/prts-console/internal/notify"
	"github.com/prtslab/prts-console/internal/session"
	"github.com/prtslab/prts-console/internal/state"
)

// ReconnectDelay is the fixed delay between a connection loss and the next
// dial attempt.
const ReconnectDelay = 3 * time.Second

// Channel owns one WebSocket connection to /api/v1/ws. On any close it
// schedules a reconnect after ReconnectDelay until Close is called. Frames
// are processed in arrival order. Nothing is replayed across a reconnect;
// the REST fetch on load is the only backfill.
type Channel struct {
	wsURL    string
	session  *session.Store
	messages *state.Messages
	attacks  *state.AttackRing
	bundle   *i18n.Bundle
	notifier *notify.Dispatcher
	log      *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	reconnect *time.Timer
	closed    bool
	seen      map[string]struct{}
	nodeSubs  []func(models.NodeStatus)
}

// New builds a Channel against the http(s) base URL; ws/wss mirrors the
// scheme. No connection is opened until Start.
func New(baseURL string, sess *session.Store, msgs *state.Messages, attacks *state.AttackRing,
	bundle *i18n.Bundle, notifier *notify.Dispatcher, log *zap.Logger) (*Channel, error) {

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/api/v1/ws"

	return &Channel{
		wsURL:    u.String(),
		session:  sess,
		messages: msgs,
		attacks:  attacks,
		bundle:   bundle,
		notifier: notifier,
		log:      log,
		seen:     make(map[string]struct{}),
	}, nil
}

// MarkSeen records message ids that are already in the collection, usually
// from the REST backfill. A later push carrying one of these ids is dropped
// as a duplicate instead of being prepended again.
func (c *Channel) MarkSeen(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		c.seen[id] = struct{}{}
	}
}

// SubscribeNodes registers a callback for NODE_UPDATE / NODE_SYNC_COMPLETE
// telemetry. Node state is not stored centrally; each subscriber keeps its
// own view. Register before Start.
func (c *Channel) SubscribeNodes(fn func(models.NodeStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodeSubs = append(c.nodeSubs, fn)
}

// Start opens the connection asynchronously.
func (c *Channel) Start() {
	go c.connect()
}

// Close tears the channel down: the pending reconnect timer is cancelled
// and the close handler neutralized so no reconnect fires after the
// consumer is gone.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
}

func (c *Channel) connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.Dial(c.wsURL, nil)
	if err != nil {
		c.log.Warn("realtime dial failed", zap.String("url", c.wsURL), zap.Error(err))
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	c.log.Info("realtime channel connected", zap.String("url", c.wsURL))
	go c.readLoop(conn)
}

// readLoop drains one connection. Any read error, clean close included,
// drops into the reconnect path.
func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.log.Warn("realtime channel closed", zap.Error(err))
			break
		}
		c.handle(data)
	}
	_ = conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()

	c.scheduleReconnect()
}

func (c *Channel) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.reconnect != nil {
		return
	}
	c.reconnect = time.AfterFunc(ReconnectDelay, func() {
		c.mu.Lock()
		c.reconnect = nil
		c.mu.Unlock()
		c.connect()
	})
}

// handle dispatches one frame. Unknown or malformed frames are logged and
// dropped; nothing here is fatal to the channel.
func (c *Channel) handle(data []byte) {
	var frame models.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.log.Warn("malformed frame dropped", zap.Error(err))
		return
	}

	switch frame.Type {
	case models.FrameAttackEvent:
		var attack models.AttackLog
		if err := json.Unmarshal(frame.Data, &attack); err != nil {
			c.log.Warn("malformed attack event dropped", zap.Error(err))
			return
		}
		c.attacks.Prepend(attack)

	case models.FrameNodeUpdate, models.FrameNodeSyncComplete:
		var node models.NodeStatus
		if err := json.Unmarshal(frame.Data, &node); err != nil {
			c.log.Warn("malformed node update dropped", zap.Error(err))
			return
		}
		c.mu.Lock()
		subs := c.nodeSubs
		c.mu.Unlock()
		for _, fn := range subs {
			fn(node)
		}

	case models.FrameNewMessage:
		var msg models.Message
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			c.log.Warn("malformed message dropped", zap.Error(err))
			return
		}
		// Duplicate deliveries are dropped before any state mutation.
		c.mu.Lock()
		if _, dup := c.seen[msg.ID]; dup {
			c.mu.Unlock()
			return
		}
		c.seen[msg.ID] = struct{}{}
		c.mu.Unlock()

		c.messages.Prepend(msg, c.bundle)
		c.notifier.Notify(notifyType(msg.Type),
			c.bundle.Translate(msg.Title), c.bundle.Translate(msg.Content), 0)

	default:
		c.log.Warn("unknown frame type dropped", zap.String("type", frame.Type))
	}
}

func notifyType(t models.MessageType) notify.Type {
	switch t {
	case models.MessageSecurity:
		return notify.Warning
	case models.MessageReport:
		return notify.Success
	default:
		return notify.Info
	}
}
