package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prtslab/prts-console/internal/i18n"
	"github.com/prtslab/prts-console/internal/models"
	"github.com/prtslab/prts-console/internal/notify"
	"github.com/prtslab/prts-console/internal/session"
	"github.com/prtslab/prts-console/internal/state"
)

type countingSink struct {
	mu    sync.Mutex
	shown []notify.Notification
}

func (s *countingSink) Show(n notify.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, n)
}

func (s *countingSink) Hide(string) {}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.shown)
}

type fixture struct {
	channel  *Channel
	messages *state.Messages
	attacks  *state.AttackRing
	bundle   *i18n.Bundle
	sink     *countingSink
}

func newFixture(t *testing.T, baseURL string) *fixture {
	t.Helper()
	statePath := filepath.Join(t.TempDir(), "state.json")
	sess := session.NewStore(baseURL, http.DefaultClient, statePath, zap.NewNop())

	sink := &countingSink{}
	dispatcher := notify.New()
	dispatcher.Register(sink)
	t.Cleanup(dispatcher.Close)

	messages := state.NewMessages()
	attacks := state.NewAttackRing()
	bundle := i18n.New(i18n.EN)

	ch, err := New(baseURL, sess, messages, attacks, bundle, dispatcher, zap.NewNop())
	require.NoError(t, err)
	return &fixture{channel: ch, messages: messages, attacks: attacks, bundle: bundle, sink: sink}
}

func frame(t *testing.T, typ string, payload any) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(models.Frame{Type: typ, Data: data})
	require.NoError(t, err)
	return raw
}

func TestNew_DerivesWebSocketURL(t *testing.T) {
	fx := newFixture(t, "http://console.local:8080")
	assert.Equal(t, "ws://console.local:8080/api/v1/ws", fx.channel.wsURL)

	fxTLS := newFixture(t, "https://console.local")
	assert.Equal(t, "wss://console.local/api/v1/ws", fxTLS.channel.wsURL)
}

func TestHandle_NewMessageDeduplicated(t *testing.T) {
	fx := newFixture(t, "http://localhost")

	msg := models.Message{
		ID:      "m-1",
		Type:    models.MessageSystem,
		Title:   "msg_node_online_title",
		Content: "msg_node_online_content|name:Rhodes-A,id:node-01",
	}
	raw := frame(t, models.FrameNewMessage, msg)

	fx.channel.handle(raw)
	fx.channel.handle(raw)

	assert.Equal(t, 1, fx.messages.Len())
	assert.Equal(t, 1, fx.sink.count())
	assert.Equal(t, "Node Online", fx.sink.shown[0].Title)
}

func TestHandle_BackfilledMessageNotDuplicated(t *testing.T) {
	fx := newFixture(t, "http://localhost")

	// Simulate the initial REST fetch placing a message in the collection
	// before the push channel delivers the same id.
	backfill := []models.Message{{
		ID:    "m-1",
		Type:  models.MessageSystem,
		Title: "msg_node_online_title",
	}}
	fx.messages.Replace(backfill, fx.bundle)
	fx.channel.MarkSeen([]string{"m-1"})

	fx.channel.handle(frame(t, models.FrameNewMessage, backfill[0]))

	assert.Equal(t, 1, fx.messages.Len())
	assert.Zero(t, fx.sink.count())

	// A genuinely new id still flows through.
	fx.channel.handle(frame(t, models.FrameNewMessage, models.Message{
		ID:    "m-2",
		Type:  models.MessageSystem,
		Title: "msg_node_offline_title",
	}))
	assert.Equal(t, 2, fx.messages.Len())
	assert.Equal(t, 1, fx.sink.count())
}

func TestHandle_AttackEventsNeverDeduplicated(t *testing.T) {
	fx := newFixture(t, "http://localhost")

	raw := frame(t, models.FrameAttackEvent, models.AttackLog{ID: "a-1", SourceIP: "203.0.113.9"})
	fx.channel.handle(raw)
	fx.channel.handle(raw)

	assert.Equal(t, 2, fx.attacks.Len())
	assert.Equal(t, "203.0.113.9", fx.attacks.All()[0].SourceIP)
}

func TestHandle_MalformedAndUnknownFramesDropped(t *testing.T) {
	fx := newFixture(t, "http://localhost")

	fx.channel.handle([]byte("not json"))
	fx.channel.handle([]byte(`{"type":"ATTACK_EVENT","data":"not an object"}`))
	fx.channel.handle(frame(t, "SELF_DESTRUCT", map[string]string{}))

	assert.Zero(t, fx.messages.Len())
	assert.Zero(t, fx.attacks.Len())
	assert.Zero(t, fx.sink.count())
}

func TestHandle_NodeEventsFanOut(t *testing.T) {
	fx := newFixture(t, "http://localhost")

	var mu sync.Mutex
	var seen []models.NodeStatus
	fx.channel.SubscribeNodes(func(n models.NodeStatus) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, n)
	})

	fx.channel.handle(frame(t, models.FrameNodeUpdate, models.NodeStatus{ID: "node-01", Status: "online"}))
	fx.channel.handle(frame(t, models.FrameNodeSyncComplete, models.NodeStatus{ID: "node-01", Status: "online"}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2)
	assert.Equal(t, "node-01", seen[0].ID)
}

func TestChannel_ReceivesOverWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	payload := frame(t, models.FrameNewMessage, models.Message{
		ID:    "m-live",
		Type:  models.MessageSecurity,
		Title: "msg_attack_detected_title",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ws", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		assert.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
		// Keep the connection open so the read loop stays on this frame.
		time.Sleep(200 * time.Millisecond)
		conn.Close()
	}))
	defer srv.Close()

	fx := newFixture(t, srv.URL)
	fx.channel.Start()
	defer fx.channel.Close()

	deadline := time.Now().Add(2 * time.Second)
	for fx.messages.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.Equal(t, 1, fx.messages.Len())
	assert.Equal(t, notify.Warning, fx.sink.shown[0].Type)
}

func TestClose_CancelsPendingReconnect(t *testing.T) {
	// Unreachable port so the first dial fails and arms the reconnect timer.
	fx := newFixture(t, "http://127.0.0.1:1")
	fx.channel.connect()

	fx.channel.mu.Lock()
	armed := fx.channel.reconnect != nil
	fx.channel.mu.Unlock()
	require.True(t, armed)

	fx.channel.Close()

	fx.channel.mu.Lock()
	defer fx.channel.mu.Unlock()
	assert.True(t, fx.channel.closed)
	assert.Nil(t, fx.channel.reconnect)
}

func TestNotifyType_Mapping(t *testing.T) {
	tests := []struct {
		in   models.MessageType
		want notify.Type
	}{
		{models.MessageSecurity, notify.Warning},
		{models.MessageReport, notify.Success},
		{models.MessageSystem, notify.Info},
		{models.MessageType("weather"), notify.Info},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, notifyType(tt.in))
		})
	}
}

