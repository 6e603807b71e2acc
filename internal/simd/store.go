package simd

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prtslab/prts-console/internal/models"
)

// MemStore holds the simulator's mutable data behind one mutex. Everything
// lives in memory; restarting the simulator resets it.
type MemStore struct {
	mu        sync.Mutex
	messages  []models.Message
	attacks   []models.AttackLog
	nodes     map[string]models.NodeStatus
	templates []models.Template
	services  []models.Service
	samples   []models.SampleLog
	vulnRules []models.VulnRule
	decoys    []models.DecoyLog
	reports   []models.Report
	accounts  []models.AccountStat
	users     []models.UserRecord
	loginLogs []models.LoginLog
	config    map[string]string
}

// NewMemStore returns a store seeded with demo data.
func NewMemStore() *MemStore {
	now := time.Now().UTC()
	iso := func(d time.Duration) string { return now.Add(-d).Format(time.RFC3339) }

	s := &MemStore{
		nodes:  make(map[string]models.NodeStatus),
		config: map[string]string{"ntp_config": `{"server":"pool.ntp.org"}`},
	}

	s.messages = []models.Message{
		{
			ID:      "msg-seed-1",
			Title:   "msg_report_ready_title",
			Content: "msg_report_ready_content|name:weekly-security",
			Time:    iso(2 * time.Hour),
			Type:    models.MessageReport,
		},
		{
			ID:      "msg-seed-2",
			Title:   "msg_node_online_title",
			Content: "msg_node_online_content|name:Chernobog-B,id:node-02",
			Time:    iso(26 * time.Hour),
			Type:    models.MessageSystem,
			Read:    true,
		},
	}

	s.nodes["node-01"] = models.NodeStatus{
		ID: "node-01", Name: "Rhodes-A", Region: "CN-SH", Status: "online",
		Load: 24, MemoryUsage: 41, MemoryTotal: 16384, Temperature: 41.5,
		IP: "10.0.0.11", OS: "linux", Template: "Standard Linux Node",
		Uptime: "12d 04h 33m", Version: "v3.3.7", FirewallStatus: "active",
	}
	s.nodes["node-02"] = models.NodeStatus{
		ID: "node-02", Name: "Chernobog-B", Region: "CN-BJ", Status: "offline",
		IP: "10.0.0.12", OS: "windows", Template: "Windows Desktop Node",
		Version: "v3.3.7", FirewallStatus: "inactive",
	}

	s.templates = []models.Template{
		{ID: "tpl-web", Name: "Apache Web Cluster", Type: "web", Description: "HTTP honeypot with common CMS fingerprints"},
		{ID: "tpl-ssh", Name: "Bastion SSH", Type: "ssh", Description: "Medium-interaction SSH credential trap"},
	}
	s.services = []models.Service{
		{ID: "svc-redis", Name: "Redis Trap", Category: "database", InteractionType: "low", DefaultPort: "6379", AttackCount: 240, Status: "running"},
		{ID: "svc-esxi", Name: "ESXi Portal", Category: "virtualization", InteractionType: "high", DefaultPort: "443", AttackCount: 980, Status: "running"},
	}
	s.samples = []models.SampleLog{
		{ID: "smp-1", FileName: "invoice.exe", FileType: "PE32", ThreatLevel: "malicious",
			AttackerIP: "203.0.113.7", SHA256: "9f2c...", LastTime: iso(3 * time.Hour)},
	}
	s.vulnRules = []models.VulnRule{
		{ID: "vr-1", Name: "Log4Shell probe", Type: "rce", Severity: "high", HitCount: 57, Status: "active"},
	}
	s.decoys = []models.DecoyLog{
		{ID: "dcy-1", Name: "finance-share", Type: "smb", SourceIP: "198.51.100.23", Node: "node-01", Time: iso(40 * time.Minute)},
	}
	s.reports = []models.Report{
		{ID: "rpt-1", Name: "weekly-security", Module: "dashboard", Type: "weekly", Size: "1.2MB",
			Status: "success", Creator: "system", CreateTime: iso(2 * time.Hour)},
	}
	s.accounts = []models.AccountStat{
		{Username: "root", Password: "123456", Service: "ssh", Count: 88},
		{Username: "admin", Password: "admin", Service: "coremail", Count: 31},
	}
	s.users = []models.UserRecord{
		{ID: "usr-admin", Username: "admin", Role: "admin", CreateTime: iso(720 * time.Hour)},
	}
	return s
}

// Messages returns the list, most recent first.
func (s *MemStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// AddMessage prepends a message built from the wire-format title/content.
func (s *MemStore) AddMessage(title, content string, typ models.MessageType) models.Message {
	msg := models.Message{
		ID:      fmt.Sprintf("msg-%s", uuid.NewString()),
		Title:   title,
		Content: content,
		Time:    time.Now().UTC().Format(time.RFC3339),
		Type:    typ,
	}
	s.mu.Lock()
	s.messages = append([]models.Message{msg}, s.messages...)
	s.mu.Unlock()
	return msg
}

// MarkAllMessagesRead flags every message read.
func (s *MemStore) MarkAllMessagesRead() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		s.messages[i].Read = true
	}
}

// DeleteMessage removes a message by id.
func (s *MemStore) DeleteMessage(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// AddAttack stores an attack event.
func (s *MemStore) AddAttack(a models.AttackLog) models.AttackLog {
	if a.ID == "" {
		a.ID = fmt.Sprintf("atk-%s", uuid.NewString())
	}
	if a.Timestamp == "" {
		a.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	s.mu.Lock()
	s.attacks = append([]models.AttackLog{a}, s.attacks...)
	s.mu.Unlock()
	return a
}

// Attacks returns the stored attack log, most recent first.
func (s *MemStore) Attacks() []models.AttackLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AttackLog, len(s.attacks))
	copy(out, s.attacks)
	return out
}

// Nodes returns the node list.
func (s *MemStore) Nodes() []models.NodeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.NodeStatus, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	return out
}

// UpsertNode stores node telemetry and reports the previous status ("" for
// a new node).
func (s *MemStore) UpsertNode(n models.NodeStatus) (previous string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.nodes[n.ID]; ok {
		previous = old.Status
	}
	s.nodes[n.ID] = n
	return previous
}

// SetNodeStatus updates one node's status, returning false when unknown.
func (s *MemStore) SetNodeStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return false
	}
	n.Status = status
	s.nodes[id] = n
	return true
}

// DeleteNode removes a node record.
func (s *MemStore) DeleteNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.nodes, id)
}

// Node returns one node by id.
func (s *MemStore) Node(id string) (models.NodeStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	return n, ok
}

// Templates returns the template list.
func (s *MemStore) Templates() []models.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Template, len(s.templates))
	copy(out, s.templates)
	return out
}

// AddTemplate stores a template, assigning an id when absent.
func (s *MemStore) AddTemplate(t models.Template) models.Template {
	if t.ID == "" {
		t.ID = fmt.Sprintf("tpl-%s", uuid.NewString())
	}
	s.mu.Lock()
	s.templates = append(s.templates, t)
	s.mu.Unlock()
	return t
}

// DeleteTemplate removes a template by id.
func (s *MemStore) DeleteTemplate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.templates {
		if s.templates[i].ID == id {
			s.templates = append(s.templates[:i], s.templates[i+1:]...)
			return
		}
	}
}

// Services returns the service list.
func (s *MemStore) Services() []models.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Service, len(s.services))
	copy(out, s.services)
	return out
}

// Samples returns the sample list.
func (s *MemStore) Samples() []models.SampleLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SampleLog, len(s.samples))
	copy(out, s.samples)
	return out
}

// DeleteSample removes a sample by id.
func (s *MemStore) DeleteSample(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.samples {
		if s.samples[i].ID == id {
			s.samples = append(s.samples[:i], s.samples[i+1:]...)
			return
		}
	}
}

// VulnRules returns the rule list.
func (s *MemStore) VulnRules() []models.VulnRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.VulnRule, len(s.vulnRules))
	copy(out, s.vulnRules)
	return out
}

// AddVulnRule stores a rule, assigning an id when absent.
func (s *MemStore) AddVulnRule(r models.VulnRule) models.VulnRule {
	if r.ID == "" {
		r.ID = fmt.Sprintf("vr-%s", uuid.NewString())
	}
	if r.Status == "" {
		r.Status = "active"
	}
	s.mu.Lock()
	s.vulnRules = append(s.vulnRules, r)
	s.mu.Unlock()
	return r
}

// DeleteVulnRule removes a rule by id.
func (s *MemStore) DeleteVulnRule(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.vulnRules {
		if s.vulnRules[i].ID == id {
			s.vulnRules = append(s.vulnRules[:i], s.vulnRules[i+1:]...)
			return
		}
	}
}

// Decoys returns the decoy log.
func (s *MemStore) Decoys() []models.DecoyLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DecoyLog, len(s.decoys))
	copy(out, s.decoys)
	return out
}

// Reports returns the report list.
func (s *MemStore) Reports() []models.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Report, len(s.reports))
	copy(out, s.reports)
	return out
}

// DeleteReport removes a report by id.
func (s *MemStore) DeleteReport(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reports {
		if s.reports[i].ID == id {
			s.reports = append(s.reports[:i], s.reports[i+1:]...)
			return
		}
	}
}

// AccountStats returns the captured-credential aggregates.
func (s *MemStore) AccountStats() []models.AccountStat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AccountStat, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// Users returns the managed operator accounts.
func (s *MemStore) Users() []models.UserRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.UserRecord, len(s.users))
	copy(out, s.users)
	return out
}

// AddUser stores an operator account, assigning an id when absent.
func (s *MemStore) AddUser(u models.UserRecord) models.UserRecord {
	if u.ID == "" {
		u.ID = fmt.Sprintf("usr-%s", uuid.NewString())
	}
	if u.CreateTime == "" {
		u.CreateTime = time.Now().UTC().Format(time.RFC3339)
	}
	s.mu.Lock()
	s.users = append(s.users, u)
	s.mu.Unlock()
	return u
}

// DeleteUser removes an operator account by id, returning its username.
func (s *MemStore) DeleteUser(id string) (username string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			username = s.users[i].Username
			s.users = append(s.users[:i], s.users[i+1:]...)
			return username, true
		}
	}
	return "", false
}

// LoginLogs returns the recorded login attempts, most recent first.
func (s *MemStore) LoginLogs() []models.LoginLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.LoginLog, len(s.loginLogs))
	copy(out, s.loginLogs)
	return out
}

// AddLoginLog prepends a login attempt record.
func (s *MemStore) AddLoginLog(username, ip string, success bool, reason string) {
	entry := models.LoginLog{
		ID:       fmt.Sprintf("log-%s", uuid.NewString()),
		Username: username,
		IP:       ip,
		Time:     time.Now().UTC().Format(time.RFC3339),
		Success:  success,
		Reason:   reason,
	}
	s.mu.Lock()
	s.loginLogs = append([]models.LoginLog{entry}, s.loginLogs...)
	s.mu.Unlock()
}

// Config returns a copy of the configuration map.
func (s *MemStore) Config() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.config))
	for k, v := range s.config {
		out[k] = v
	}
	return out
}

// UpdateConfig merges values into the configuration map.
func (s *MemStore) UpdateConfig(values map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range values {
		s.config[k] = v
	}
}

// Stats computes the dashboard aggregates from current data.
func (s *MemStore) Stats() models.DashboardStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active int64
	for _, n := range s.nodes {
		if n.Status == "online" {
			active++
		}
	}
	var runningServices int64
	for _, svc := range s.services {
		if svc.Status == "running" {
			runningServices++
		}
	}

	counts := make(map[string]*models.SourceStat)
	for _, a := range s.attacks {
		if st, ok := counts[a.SourceIP]; ok {
			st.Count++
		} else {
			counts[a.SourceIP] = &models.SourceStat{IP: a.SourceIP, Count: 1, Loc: a.Location}
		}
	}
	top := make([]models.SourceStat, 0, len(counts))
	for _, st := range counts {
		top = append(top, *st)
	}

	return models.DashboardStats{
		TotalAttacks:     int64(len(s.attacks)),
		ActiveNodes:      active,
		TotalNodes:       int64(len(s.nodes)),
		ActiveServices:   runningServices,
		TotalServices:    int64(len(s.services)),
		TotalSources:     int64(len(counts)),
		TotalCredentials: int64(len(s.accounts)),
		TopSources:       top,
	}
}
