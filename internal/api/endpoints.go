package api

import (
	"context"
	"net/http"

	"github.com/prtslab/prts-console/internal/models"
)

// LoginPolicy fetches the public login policy. The alternate login path it
// may carry is recorded by the session store, not here.
func (c *Client) LoginPolicy(ctx context.Context) (models.LoginPolicy, error) {
	var p models.LoginPolicy
	err := c.getJSON(ctx, "/api/v1/public/login-policy", &p)
	return p, err
}

// Messages fetches the message-center list, most recent first.
func (c *Client) Messages(ctx context.Context) ([]models.Message, error) {
	var list []models.Message
	err := c.getJSON(ctx, "/api/v1/messages", &list)
	return list, err
}

// MarkAllMessagesRead marks every message read on the server.
func (c *Client) MarkAllMessagesRead(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/messages/read-all", nil, nil)
}

// DeleteMessage deletes one message by id.
func (c *Client) DeleteMessage(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/messages/"+id, nil, nil)
}

// Attacks fetches the stored attack log.
func (c *Client) Attacks(ctx context.Context) ([]models.AttackLog, error) {
	var list []models.AttackLog
	err := c.getJSON(ctx, "/api/v1/attacks", &list)
	return list, err
}

// DashboardStats fetches the dashboard aggregates.
func (c *Client) DashboardStats(ctx context.Context) (models.DashboardStats, error) {
	var s models.DashboardStats
	err := c.getJSON(ctx, "/api/v1/stats/dashboard", &s)
	return s, err
}

// AccountStats fetches the captured-credential aggregates.
func (c *Client) AccountStats(ctx context.Context) ([]models.AccountStat, error) {
	var list []models.AccountStat
	err := c.getJSON(ctx, "/api/v1/stats/accounts", &list)
	return list, err
}

// Decoys fetches the compromise-perception records.
func (c *Client) Decoys(ctx context.Context) ([]models.DecoyLog, error) {
	var list []models.DecoyLog
	err := c.getJSON(ctx, "/api/v1/decoys", &list)
	return list, err
}

// Samples fetches the captured sample list.
func (c *Client) Samples(ctx context.Context) ([]models.SampleLog, error) {
	var list []models.SampleLog
	err := c.getJSON(ctx, "/api/v1/samples", &list)
	return list, err
}

// DeleteSample deletes a captured sample by id.
func (c *Client) DeleteSample(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/samples/"+id, nil, nil)
}

// VulnRules fetches the vulnerability-simulation rules.
func (c *Client) VulnRules(ctx context.Context) ([]models.VulnRule, error) {
	var list []models.VulnRule
	err := c.getJSON(ctx, "/api/v1/vuln-rules", &list)
	return list, err
}

// CreateVulnRule creates a vulnerability-simulation rule.
func (c *Client) CreateVulnRule(ctx context.Context, rule models.VulnRule) (models.VulnRule, error) {
	var created models.VulnRule
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/vuln-rules", rule, &created)
	return created, err
}

// DeleteVulnRule deletes a vulnerability-simulation rule by id.
func (c *Client) DeleteVulnRule(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/vuln-rules/"+id, nil, nil)
}

// Templates fetches the honeypot templates.
func (c *Client) Templates(ctx context.Context) ([]models.Template, error) {
	var list []models.Template
	err := c.getJSON(ctx, "/api/v1/templates", &list)
	return list, err
}

// CreateTemplate creates a honeypot template.
func (c *Client) CreateTemplate(ctx context.Context, t models.Template) (models.Template, error) {
	var created models.Template
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/templates", t, &created)
	return created, err
}

// DeleteTemplate deletes a honeypot template by id.
func (c *Client) DeleteTemplate(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/templates/"+id, nil, nil)
}

// Services fetches the honeypot service definitions.
func (c *Client) Services(ctx context.Context) ([]models.Service, error) {
	var list []models.Service
	err := c.getJSON(ctx, "/api/v1/services", &list)
	return list, err
}

// Nodes fetches the probe node list.
func (c *Client) Nodes(ctx context.Context) ([]models.NodeStatus, error) {
	var list []models.NodeStatus
	err := c.getJSON(ctx, "/api/v1/nodes", &list)
	return list, err
}

// DeleteNode removes a probe node by id.
func (c *Client) DeleteNode(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/nodes/"+id, nil, nil)
}

// NodeCommand sends a command (START, STOP, RESTART, ENABLE_FIREWALL,
// DISABLE_FIREWALL) to a connected probe node.
func (c *Client) NodeCommand(ctx context.Context, nodeID, command string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/nodes/command",
		models.NodeCommand{NodeID: nodeID, Command: command}, nil)
}

// Reports fetches the generated report list.
func (c *Client) Reports(ctx context.Context) ([]models.Report, error) {
	var list []models.Report
	err := c.getJSON(ctx, "/api/v1/reports", &list)
	return list, err
}

// DeleteReport deletes a report by id.
func (c *Client) DeleteReport(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/reports/"+id, nil, nil)
}

// LoginLogs fetches the recorded login attempts, most recent first.
func (c *Client) LoginLogs(ctx context.Context) ([]models.LoginLog, error) {
	var list []models.LoginLog
	err := c.getJSON(ctx, "/api/v1/login-logs", &list)
	return list, err
}

// Users fetches the managed operator accounts.
func (c *Client) Users(ctx context.Context) ([]models.UserRecord, error) {
	var list []models.UserRecord
	err := c.getJSON(ctx, "/api/v1/users", &list)
	return list, err
}

// CreateUser creates an operator account.
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (models.UserRecord, error) {
	var created models.UserRecord
	err := c.doJSON(ctx, http.MethodPost, "/api/v1/users", req, &created)
	return created, err
}

// DeleteUser removes an operator account by id.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/users/"+id, nil, nil)
}

// Config fetches the system configuration map.
func (c *Client) Config(ctx context.Context) (map[string]string, error) {
	cfg := make(map[string]string)
	err := c.getJSON(ctx, "/api/v1/config", &cfg)
	return cfg, err
}

// UpdateConfig writes configuration entries.
func (c *Client) UpdateConfig(ctx context.Context, values map[string]string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/v1/config", values, nil)
}
