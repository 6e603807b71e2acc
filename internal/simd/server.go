package simd

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/prtslab/prts-console/internal/models"
)

// Server bundles the simulator's store, hub, and authenticator behind the
// control-center HTTP surface.
type Server struct {
	Store *MemStore
	Hub   *Hub
	Auth  *Authenticator
	log   *zap.Logger
}

// NewServer wires a simulator with the default admin/admin account. The
// hub's Run loop is started here.
func NewServer(log *zap.Logger) *Server {
	s := &Server{
		Store: NewMemStore(),
		Auth: NewAuthenticator("prts-simd-secret", models.LoginPolicy{
			MaxRetry: 5, Lockout: 30, Session: 120, URL: "login",
		}, map[string]string{"admin": "admin"}),
		log: log,
	}
	s.Hub = NewHub(s.handleNodeFrame, log)
	s.Hub.onNodeGone = s.NodeDisconnected
	go s.Hub.Run()
	return s
}

// Router mounts the REST and WebSocket surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints.
		r.Get("/public/login-policy", s.handleLoginPolicy)
		r.Post("/login", s.handleLogin)
		r.Post("/ingest", s.handleIngest)
		r.Get("/ws", s.Hub.ServeWS)

		// Everything else requires a valid bearer token.
		r.Group(func(r chi.Router) {
			r.Use(s.Auth.Middleware)

			r.Get("/messages", s.list(func() any { return s.Store.Messages() }))
			r.Post("/messages/read-all", s.action(func() { s.Store.MarkAllMessagesRead() }))
			r.Delete("/messages/{id}", s.deleteByID(s.Store.DeleteMessage))

			r.Get("/attacks", s.list(func() any { return s.Store.Attacks() }))
			r.Get("/stats/dashboard", s.list(func() any { return s.Store.Stats() }))
			r.Get("/stats/accounts", s.list(func() any { return s.Store.AccountStats() }))

			r.Get("/decoys", s.list(func() any { return s.Store.Decoys() }))
			r.Get("/samples", s.list(func() any { return s.Store.Samples() }))
			r.Delete("/samples/{id}", s.deleteByID(s.Store.DeleteSample))

			r.Get("/vuln-rules", s.list(func() any { return s.Store.VulnRules() }))
			r.Post("/vuln-rules", s.handleCreateVulnRule)
			r.Delete("/vuln-rules/{id}", s.deleteByID(s.Store.DeleteVulnRule))

			r.Get("/templates", s.list(func() any { return s.Store.Templates() }))
			r.Post("/templates", s.handleCreateTemplate)
			r.Delete("/templates/{id}", s.deleteByID(s.Store.DeleteTemplate))

			r.Get("/services", s.list(func() any { return s.Store.Services() }))

			r.Get("/nodes", s.list(func() any { return s.Store.Nodes() }))
			r.Post("/nodes/command", s.handleNodeCommand)
			r.Delete("/nodes/{id}", s.deleteByID(s.Store.DeleteNode))

			r.Get("/reports", s.list(func() any { return s.Store.Reports() }))
			r.Delete("/reports/{id}", s.deleteByID(s.Store.DeleteReport))

			r.Get("/login-logs", s.list(func() any { return s.Store.LoginLogs() }))

			r.Get("/users", s.list(func() any { return s.Store.Users() }))
			r.Post("/users", s.handleCreateUser)
			r.Delete("/users/{id}", s.handleDeleteUser)

			r.Get("/config", s.list(func() any { return s.Store.Config() }))
			r.Post("/config", s.handleUpdateConfig)
		})
	})
	return r
}

func (s *Server) handleLoginPolicy(w http.ResponseWriter, r *http.Request) {
	policy := s.Auth.Policy()
	policy.Whitelist = "" // never expose the allowlist publicly
	writeJSON(w, http.StatusOK, policy)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	ip := clientIP(r)
	token, user, authErr := s.Auth.Login(req, ip)
	if authErr != nil {
		s.Store.AddLoginLog(req.Username, ip, false, authErr.message)
		writeError(w, authErr.status, authErr.message)
		return
	}
	s.Store.AddLoginLog(req.Username, ip, true, "")
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}

// handleIngest accepts an attack event from a probe or generator, stores
// it, and pushes it to every console over the realtime channel.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var attack models.AttackLog
	if err := json.NewDecoder(r.Body).Decode(&attack); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	attack = s.Store.AddAttack(attack)
	s.Hub.BroadcastFrame(models.FrameAttackEvent, attack)
	writeJSON(w, http.StatusOK, map[string]string{"status": "success", "id": attack.ID})
}

func (s *Server) handleCreateVulnRule(w http.ResponseWriter, r *http.Request) {
	var rule models.VulnRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.Store.AddVulnRule(rule))
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t models.Template
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.Store.AddTemplate(t))
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	s.Store.UpdateConfig(values)
	s.log.Info("config updated", zap.String("by", UserFromContext(r.Context())))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	s.Auth.AddAccount(req.Username, req.Password)
	created := s.Store.AddUser(models.UserRecord{Username: req.Username, Role: req.Role})
	s.log.Info("user created",
		zap.String("username", req.Username), zap.String("by", UserFromContext(r.Context())))
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	username, ok := s.Store.DeleteUser(id)
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	s.Auth.RemoveAccount(username)
	s.log.Info("user deleted",
		zap.String("username", username), zap.String("by", UserFromContext(r.Context())))
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleNodeCommand(w http.ResponseWriter, r *http.Request) {
	var req models.NodeCommand
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	msg, _ := json.Marshal(map[string]any{"type": "COMMAND", "data": req.Command})
	if !s.Hub.SendToNode(req.NodeID, msg) {
		writeError(w, http.StatusNotFound, "node not connected")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "command sent"})
}

// handleNodeFrame processes inbound WebSocket frames from probe nodes.
// NODE_REPORT telemetry is stored, re-broadcast as NODE_UPDATE, and an
// offline-to-online transition emits a NEW_MESSAGE in the compact wire
// format the console's translation pipeline understands.
func (s *Server) handleNodeFrame(raw []byte, client *WSClient) {
	var frame models.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return
	}
	if frame.Type != "NODE_REPORT" && frame.Type != "SYNC_COMPLETE" {
		return
	}

	var node models.NodeStatus
	if err := json.Unmarshal(frame.Data, &node); err != nil {
		return
	}
	node.Status = "online"
	s.Hub.BindNode(node.ID, client)
	previous := s.Store.UpsertNode(node)

	broadcastType := models.FrameNodeUpdate
	if frame.Type == "SYNC_COMPLETE" {
		broadcastType = models.FrameNodeSyncComplete
	}
	s.Hub.BroadcastFrame(broadcastType, node)

	if previous != "online" {
		msg := s.Store.AddMessage(
			"msg_node_online_title",
			fmt.Sprintf("msg_node_online_content|name:%s,id:%s", node.Name, node.ID),
			models.MessageSystem,
		)
		s.Hub.BroadcastFrame(models.FrameNewMessage, msg)
	}
}

// NodeDisconnected marks a node offline and notifies consoles. The hub
// invokes it when a bound probe connection drops.
func (s *Server) NodeDisconnected(nodeID string) {
	if !s.Store.SetNodeStatus(nodeID, "offline") {
		return
	}
	node, _ := s.Store.Node(nodeID)
	s.Hub.BroadcastFrame(models.FrameNodeUpdate, node)
	msg := s.Store.AddMessage(
		"msg_node_offline_title",
		fmt.Sprintf("msg_node_offline_content|name:%s,id:%s", node.Name, node.ID),
		models.MessageSecurity,
	)
	s.Hub.BroadcastFrame(models.FrameNewMessage, msg)
}

// list adapts a snapshot getter into a GET handler.
func (s *Server) list(get func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, get())
	}
}

// action adapts a store mutation into a POST handler.
func (s *Server) action(fn func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn()
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

// deleteByID adapts a delete-by-id mutation into a DELETE handler.
func (s *Server) deleteByID(fn func(id string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(chi.URLParam(r, "id"))
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
