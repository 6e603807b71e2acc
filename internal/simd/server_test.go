package simd

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/prtslab/prts-console/internal/models"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(zap.NewNop())
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, ts
}

func obfuscate(password string) string {
	return base64.StdEncoding.EncodeToString([]byte(password))
}

func login(t *testing.T, ts *httptest.Server, username, password string) (*http.Response, models.LoginResponse) {
	t.Helper()
	body, _ := json.Marshal(models.LoginRequest{Username: username, Password: obfuscate(password)})
	resp, err := http.Post(ts.URL+"/api/v1/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var out models.LoginResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e.Error
}

func TestLogin_Success(t *testing.T) {
	_, ts := newTestServer(t)

	resp, out := login(t, ts, "admin", "admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, "admin", out.User.Username)
	assert.Equal(t, "admin", out.User.Role)
}

func TestLogin_BadPassword(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := login(t, ts, "admin", "wrong")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Authentication failed", errorBody(t, resp))
}

func TestLogin_LockoutAfterMaxRetry(t *testing.T) {
	srv, ts := newTestServer(t)
	maxRetry := srv.Auth.Policy().MaxRetry

	for i := 0; i < maxRetry; i++ {
		resp, _ := login(t, ts, "admin", "wrong")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// Even the correct password is rejected while the account is locked.
	resp, _ := login(t, ts, "admin", "admin")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Account locked", errorBody(t, resp))
}

func TestLogin_WhitelistRejection(t *testing.T) {
	auth := NewAuthenticator("secret", models.LoginPolicy{
		MaxRetry: 5, Lockout: 30, Session: 120, Whitelist: "10.0.0.1, 10.0.0.2",
	}, map[string]string{"admin": "admin"})

	req := models.LoginRequest{Username: "admin", Password: obfuscate("admin")}

	_, _, authErr := auth.Login(req, "203.0.113.9")
	require.NotNil(t, authErr)
	assert.Equal(t, http.StatusForbidden, authErr.status)
	assert.Equal(t, "IP not in whitelist", authErr.message)

	token, user, authErr := auth.Login(req, "10.0.0.2")
	require.Nil(t, authErr)
	assert.NotEmpty(t, token)
	assert.Equal(t, "admin", user.Username)
}

func TestLoginPolicy_StripsWhitelist(t *testing.T) {
	srv, ts := newTestServer(t)
	srv.Auth.policy.Whitelist = "10.0.0.1"

	resp, err := http.Get(ts.URL + "/api/v1/public/login-policy")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var policy models.LoginPolicy
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&policy))
	assert.Empty(t, policy.Whitelist)
	assert.Equal(t, "login", policy.URL)
}

func TestProtected_RequiresToken(t *testing.T) {
	_, ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/messages")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtected_SlidingRefreshToken(t *testing.T) {
	_, ts := newTestServer(t)
	_, out := login(t, ts, "admin", "admin")

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/messages", nil)
	req.Header.Set("Authorization", "Bearer "+out.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Refresh-Token"))

	var msgs []models.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&msgs))
	assert.NotEmpty(t, msgs)
}

func TestNodeCommand_NotConnected(t *testing.T) {
	_, ts := newTestServer(t)
	_, out := login(t, ts, "admin", "admin")

	body, _ := json.Marshal(models.NodeCommand{NodeID: "node-99", Command: models.CommandRestart})
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/nodes/command", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+out.Token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "node not connected", errorBody(t, resp))
}

func dialWS(t *testing.T, srv *Server, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	before := srv.Hub.ClientCount()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// Registration is asynchronous; wait for the hub to pick the client up
	// so a broadcast cannot race past it.
	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub.ClientCount() <= before && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Greater(t, srv.Hub.ClientCount(), before)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) models.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f models.Frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func TestIngest_BroadcastsAttackEvent(t *testing.T) {
	srv, ts := newTestServer(t)
	conn := dialWS(t, srv, ts)
	before := len(srv.Store.Attacks())

	body, _ := json.Marshal(models.AttackLog{SourceIP: "198.51.100.7", Method: "SSH Bruteforce"})
	resp, err := http.Post(ts.URL+"/api/v1/ingest", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	f := readFrame(t, conn)
	require.Equal(t, models.FrameAttackEvent, f.Type)
	var attack models.AttackLog
	require.NoError(t, json.Unmarshal(f.Data, &attack))
	assert.Equal(t, "198.51.100.7", attack.SourceIP)
	assert.NotEmpty(t, attack.ID)

	assert.Len(t, srv.Store.Attacks(), before+1)
}

func TestNodeReport_OfflineToOnlineEmitsMessage(t *testing.T) {
	srv, ts := newTestServer(t)
	console := dialWS(t, srv, ts)
	probe := dialWS(t, srv, ts)

	// node-02 is seeded offline; a report flips it online.
	data, _ := json.Marshal(models.NodeStatus{ID: "node-02", Name: "Chernobog-B"})
	report, _ := json.Marshal(map[string]any{"type": "NODE_REPORT", "data": json.RawMessage(data)})
	require.NoError(t, probe.WriteMessage(websocket.TextMessage, report))

	update := readFrame(t, console)
	require.Equal(t, models.FrameNodeUpdate, update.Type)
	var node models.NodeStatus
	require.NoError(t, json.Unmarshal(update.Data, &node))
	assert.Equal(t, "online", node.Status)

	newMsg := readFrame(t, console)
	require.Equal(t, models.FrameNewMessage, newMsg.Type)
	var msg models.Message
	require.NoError(t, json.Unmarshal(newMsg.Data, &msg))
	assert.Equal(t, "msg_node_online_title", msg.Title)
	assert.Equal(t, "msg_node_online_content|name:Chernobog-B,id:node-02", msg.Content)

	stored, ok := srv.Store.Node("node-02")
	require.True(t, ok)
	assert.Equal(t, "online", stored.Status)
}

func TestNodeDisconnect_MarksOfflineAndNotifies(t *testing.T) {
	srv, ts := newTestServer(t)
	console := dialWS(t, srv, ts)
	probe := dialWS(t, srv, ts)

	data, _ := json.Marshal(models.NodeStatus{ID: "node-02", Name: "Chernobog-B"})
	report, _ := json.Marshal(map[string]any{"type": "NODE_REPORT", "data": json.RawMessage(data)})
	require.NoError(t, probe.WriteMessage(websocket.TextMessage, report))

	// Drain the online transition frames first.
	require.Equal(t, models.FrameNodeUpdate, readFrame(t, console).Type)
	require.Equal(t, models.FrameNewMessage, readFrame(t, console).Type)

	probe.Close()

	update := readFrame(t, console)
	require.Equal(t, models.FrameNodeUpdate, update.Type)
	var node models.NodeStatus
	require.NoError(t, json.Unmarshal(update.Data, &node))
	assert.Equal(t, "offline", node.Status)

	offline := readFrame(t, console)
	require.Equal(t, models.FrameNewMessage, offline.Type)
	var msg models.Message
	require.NoError(t, json.Unmarshal(offline.Data, &msg))
	assert.Equal(t, "msg_node_offline_title", msg.Title)

	stored, ok := srv.Store.Node("node-02")
	require.True(t, ok)
	assert.Equal(t, "offline", stored.Status)
}

func TestNodeReport_OnlineNodeDoesNotRepeatMessage(t *testing.T) {
	srv, ts := newTestServer(t)
	console := dialWS(t, srv, ts)
	probe := dialWS(t, srv, ts)

	before := len(srv.Store.Messages())

	// node-01 is seeded online; a report must not announce it again.
	data, _ := json.Marshal(models.NodeStatus{ID: "node-01", Name: "Rhodes-A"})
	report, _ := json.Marshal(map[string]any{"type": "NODE_REPORT", "data": json.RawMessage(data)})
	require.NoError(t, probe.WriteMessage(websocket.TextMessage, report))

	// The NODE_UPDATE broadcast is the sync point; nothing should follow it.
	update := readFrame(t, console)
	require.Equal(t, models.FrameNodeUpdate, update.Type)
	assert.Len(t, srv.Store.Messages(), before)
}

func TestStoreCRUD_OverHTTP(t *testing.T) {
	srv, ts := newTestServer(t)
	_, out := login(t, ts, "admin", "admin")

	do := func(method, path string, body any) *http.Response {
		t.Helper()
		var reader *bytes.Reader
		if body != nil {
			b, _ := json.Marshal(body)
			reader = bytes.NewReader(b)
		} else {
			reader = bytes.NewReader(nil)
		}
		req, _ := http.NewRequest(method, ts.URL+path, reader)
		req.Header.Set("Authorization", "Bearer "+out.Token)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := do(http.MethodPost, "/api/v1/templates", models.Template{Name: "web-trap"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created models.Template
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)

	resp = do(http.MethodDelete, "/api/v1/templates/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, tpl := range srv.Store.Templates() {
		assert.NotEqual(t, created.ID, tpl.ID)
	}

	resp = do(http.MethodPost, "/api/v1/config", map[string]string{"retention": "30d"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "30d", srv.Store.Config()["retention"])

	resp = do(http.MethodPost, "/api/v1/messages/read-all", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, m := range srv.Store.Messages() {
		assert.True(t, m.Read)
	}
}

func TestLogin_RecordsLoginLogs(t *testing.T) {
	srv, ts := newTestServer(t)

	resp, _ := login(t, ts, "admin", "wrong")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, out := login(t, ts, "admin", "admin")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	logs := srv.Store.LoginLogs()
	require.Len(t, logs, 2)
	// Newest first.
	assert.True(t, logs[0].Success)
	assert.Empty(t, logs[0].Reason)
	assert.False(t, logs[1].Success)
	assert.Equal(t, "Authentication failed", logs[1].Reason)
	for _, l := range logs {
		assert.Equal(t, "admin", l.Username)
		assert.NotEmpty(t, l.IP)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/login-logs", nil)
	req.Header.Set("Authorization", "Bearer "+out.Token)
	wire, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer wire.Body.Close()
	require.Equal(t, http.StatusOK, wire.StatusCode)
	var fetched []models.LoginLog
	require.NoError(t, json.NewDecoder(wire.Body).Decode(&fetched))
	assert.Len(t, fetched, 2)
}

func TestUserManagement_RoundTrip(t *testing.T) {
	srv, ts := newTestServer(t)
	_, out := login(t, ts, "admin", "admin")

	do := func(method, path string, payload any) *http.Response {
		t.Helper()
		var raw []byte
		if payload != nil {
			var err error
			raw, err = json.Marshal(payload)
			require.NoError(t, err)
		}
		req, err := http.NewRequest(method, ts.URL+path, bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+out.Token)
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	resp := do(http.MethodPost, "/api/v1/users", models.CreateUserRequest{
		Username: "kaltsit", Password: "oripathy", Role: "operator",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var created models.UserRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "operator", created.Role)

	// The new account can log in right away.
	loginResp, _ := login(t, ts, "kaltsit", "oripathy")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)

	// A blank username is rejected.
	resp = do(http.MethodPost, "/api/v1/users", models.CreateUserRequest{Password: "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(http.MethodDelete, "/api/v1/users/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, u := range srv.Store.Users() {
		assert.NotEqual(t, created.ID, u.ID)
	}
	loginResp, _ = login(t, ts, "kaltsit", "oripathy")
	require.Equal(t, http.StatusUnauthorized, loginResp.StatusCode)

	resp = do(http.MethodDelete, "/api/v1/users/usr-ghost", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
