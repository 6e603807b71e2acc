// Package models defines the wire-level data structures shared between the
// PRTS console, the realtime channel, and the control-center API.
package models

import "encoding/json"

// User represents the authenticated operator as returned by the login endpoint.
type User struct {
	// Username is the login name of the operator.
	Username string `json:"username"`
	// Role is either "admin" or "user".
	Role string `json:"role"`
	// IsAuthenticated is set client-side after a successful login or restore.
	IsAuthenticated bool `json:"isAuthenticated"`
}

// MessageType classifies center messages.
type MessageType string

const (
	// MessageSystem is an operational message (updates, maintenance, nodes).
	MessageSystem MessageType = "system"
	// MessageSecurity is a security alert.
	MessageSecurity MessageType = "security"
	// MessageReport announces a generated report.
	MessageReport MessageType = "report"
)

// Message is a message-center entry. Title and Content may carry the compact
// parameterized wire format ("key|name:value,name2:value2") and are resolved
// through the translation pipeline before display.
type Message struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Content string      `json:"content"`
	Time    string      `json:"time"`
	Type    MessageType `json:"type"`
	Read    bool        `json:"read"`
}

// AttackLog is a single captured attack event.
type AttackLog struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	SourceIP  string `json:"sourceIp"`
	Location  string `json:"location"`
	Method    string `json:"method"`
	Payload   string `json:"payload"`
	// Severity is one of low, medium, high, critical.
	Severity string `json:"severity"`
	// Status is one of blocked, monitored, compromised.
	Status string `json:"status"`
}

// NodeStatus is the telemetry record a probe node reports to the center.
type NodeStatus struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Region         string  `json:"region"`
	Status         string  `json:"status"` // online, offline, warning
	Load           int     `json:"load"`
	MemoryUsage    int     `json:"memoryUsage"`
	MemoryTotal    uint64  `json:"memoryTotal"`
	Temperature    float64 `json:"temperature"`
	NetUp          float64 `json:"netUp"`
	NetDown        float64 `json:"netDown"`
	IP             string  `json:"ip"`
	OS             string  `json:"os"`
	Template       string  `json:"template"`
	Uptime         string  `json:"uptime"`
	Version        string  `json:"version"`
	FirewallStatus string  `json:"firewallStatus"` // active, inactive, error
}

// LoginPolicy is the public login policy record. URL, when set, replaces the
// default post-logout login path (obscured-login-URL pattern).
type LoginPolicy struct {
	MaxRetry int    `json:"maxRetry"`
	Lockout  int    `json:"lockout"`
	Session  int    `json:"session"`
	URL      string `json:"url"`
	// Whitelist is a comma-separated IP allowlist. It is stripped from the
	// public policy endpoint.
	Whitelist string `json:"whitelist,omitempty"`
}

// LoginRequest is the login payload. Password is base64-obfuscated in transit.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the successful login payload.
type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Frame type discriminators pushed over the realtime channel.
const (
	FrameAttackEvent      = "ATTACK_EVENT"
	FrameNodeUpdate       = "NODE_UPDATE"
	FrameNodeSyncComplete = "NODE_SYNC_COMPLETE"
	FrameNewMessage       = "NEW_MESSAGE"
)

// Frame is the envelope of every realtime push message.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// NodeCommand is the payload of POST /api/v1/nodes/command.
type NodeCommand struct {
	NodeID  string `json:"nodeId"`
	Command string `json:"command"`
}

// Node commands understood by probes.
const (
	CommandStart           = "START"
	CommandStop            = "STOP"
	CommandRestart         = "RESTART"
	CommandEnableFirewall  = "ENABLE_FIREWALL"
	CommandDisableFirewall = "DISABLE_FIREWALL"
)

// Template describes a honeypot deployment template.
type Template struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Service describes a honeypot service definition.
type Service struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Category        string `json:"category"`
	InteractionType string `json:"interactionType"` // low, high
	DefaultPort     string `json:"defaultPort"`
	Description     string `json:"description"`
	AttackCount     int    `json:"count"`
	Status          string `json:"status"`
}

// Report is a generated report entry.
type Report struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Module     string `json:"module"`
	Type       string `json:"type"` // daily, weekly, custom
	Size       string `json:"size"`
	Status     string `json:"status"` // success, generating, failed
	Creator    string `json:"creator"`
	CreateTime string `json:"createTime"`
}

// DecoyLog is a compromise-perception (decoy touch) record.
type DecoyLog struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	SourceIP string `json:"sourceIp"`
	Node     string `json:"node"`
	Time     string `json:"time"`
}

// SampleLog is a captured sample record.
type SampleLog struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	FileType    string `json:"fileType"`
	ThreatLevel string `json:"threatLevel"` // malicious, suspicious, safe, unknown
	AttackerIP  string `json:"attackerIp"`
	SHA256      string `json:"sha256"`
	LastTime    string `json:"lastTime"`
}

// VulnRule is a vulnerability-simulation rule.
type VulnRule struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Severity string `json:"severity"`
	HitCount int    `json:"hitCount"`
	Status   string `json:"status"` // active, inactive
}

// DashboardStats aggregates the numbers shown on the dashboard.
type DashboardStats struct {
	TotalAttacks     int64        `json:"totalAttacks"`
	ActiveNodes      int64        `json:"activeNodes"`
	TotalNodes       int64        `json:"totalNodes"`
	ActiveServices   int64        `json:"activeServices"`
	TotalServices    int64        `json:"totalServices"`
	TotalSources     int64        `json:"totalSources"`
	TotalCredentials int64        `json:"totalCredentials"`
	TopSources       []SourceStat `json:"topSources"`
}

// SourceStat is one attack-source aggregate.
type SourceStat struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
	Loc   string `json:"loc"`
}

// LoginLog is one recorded console login attempt.
type LoginLog struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IP       string `json:"ip"`
	Time     string `json:"time"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
}

// UserRecord is a managed operator account.
type UserRecord struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	CreateTime string `json:"createTime"`
}

// CreateUserRequest is the payload of POST /api/v1/users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// AccountStat is one captured-credential aggregate returned by
// GET /api/v1/stats/accounts.
type AccountStat struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Service  string `json:"service"`
	Count    int    `json:"count"`
}
