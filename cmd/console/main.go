// Command console is the PRTS operator console: an interactive shell over
// the control center's REST API with a live event feed pushed over the
// realtime channel.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/prtslab/prts-console/internal/api"
	"github.com/prtslab/prts-console/internal/config"
	"github.com/prtslab/prts-console/internal/i18n"
	"github.com/prtslab/prts-console/internal/logger"
	"github.com/prtslab/prts-console/internal/models"
	"github.com/prtslab/prts-console/internal/notify"
	"github.com/prtslab/prts-console/internal/realtime"
	"github.com/prtslab/prts-console/internal/session"
	"github.com/prtslab/prts-console/internal/state"
)

var (
	version   string
	buildDate string
)

// console bundles everything the REPL commands touch.
type console struct {
	cfg        *config.Options
	log        *zap.Logger
	store      *session.Store
	client     *api.Client
	bundle     *i18n.Bundle
	dispatcher *notify.Dispatcher
	messages   *state.Messages
	attacks    *state.AttackRing
	modules    *state.Modules
	channel    *realtime.Channel
}

// consoleSink prints toast notifications to stdout as they arrive.
type consoleSink struct{}

func (consoleSink) Show(n notify.Notification) {
	if n.Message != "" {
		fmt.Printf("\n[%s] %s - %s\n", strings.ToUpper(string(n.Type)), n.Title, n.Message)
	} else {
		fmt.Printf("\n[%s] %s\n", strings.ToUpper(string(n.Type)), n.Title)
	}
}

func (consoleSink) Hide(string) {}

func main() {
	cfg := config.Parse()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if version != "" {
		fmt.Printf("PRTS Console %s (%s)\n", version, buildDate)
	}

	store := session.NewStore(cfg.ServerURL, http.DefaultClient, cfg.StateFile, log)
	store.Restore()

	lang := store.Lang()
	if lang == "" {
		lang = cfg.Lang
	}
	bundle := i18n.New(i18n.Lang(lang))

	dispatcher := notify.New()
	dispatcher.Register(consoleSink{})
	defer dispatcher.Close()

	c := &console{
		cfg:        cfg,
		log:        log,
		store:      store,
		client:     api.New(cfg.ServerURL, http.DefaultClient, store, log),
		bundle:     bundle,
		dispatcher: dispatcher,
		messages:   state.NewMessages(),
		attacks:    state.NewAttackRing(),
		modules:    state.NewModules(),
	}

	if store.ConsumeExpired() {
		fmt.Println(bundle.T("notify_session_expired"))
	}
	if store.Authenticated() {
		c.afterLogin(context.Background())
	}

	c.repl()
}

// repl runs the interactive shell loop.
func (c *console) repl() {
	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("prts> ")
		if !scanner.Scan() {
			break
		}
		args := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "help":
			fmt.Println("Commands: login, logout, messages, read-all, toggle-read <id>, rm <id>,")
			fmt.Println("  attacks, nodes, node <id> <command>, node rm <id>, stats, accounts,")
			fmt.Println("  decoys, samples [rm <id>], rules [add <name> <type> <severity>|rm <id>],")
			fmt.Println("  templates [add <name> <type>|rm <id>], services, reports [rm <id>],")
			fmt.Println("  users [add <name> [role]|rm <id>], login-logs, config, modules,")
			fmt.Println("  toggle <module>, lang, theme, tail, help, exit")
		case "login":
			c.cmdLogin(ctx, scanner)
		case "logout":
			c.cmdLogout()
		case "messages":
			c.cmdMessages()
		case "read-all":
			c.cmdReadAll(ctx)
		case "toggle-read":
			if len(args) < 2 {
				fmt.Println("Usage: toggle-read <id>")
				continue
			}
			if !c.messages.ToggleRead(args[1]) {
				fmt.Println("No such message")
			}
		case "rm":
			if len(args) < 2 {
				fmt.Println("Usage: rm <id>")
				continue
			}
			c.cmdDeleteMessage(ctx, args[1])
		case "attacks":
			c.cmdAttacks(ctx)
		case "nodes":
			c.cmdNodes(ctx)
		case "node":
			if len(args) < 3 {
				fmt.Println("Usage: node <id> <START|STOP|RESTART|ENABLE_FIREWALL|DISABLE_FIREWALL>")
				fmt.Println("       node rm <id>")
				continue
			}
			if args[1] == "rm" {
				c.cmdDeleteNode(ctx, args[2])
				continue
			}
			c.cmdNodeCommand(ctx, args[1], strings.ToUpper(args[2]))
		case "stats":
			c.cmdStats(ctx)
		case "accounts":
			c.cmdAccounts(ctx)
		case "decoys":
			c.cmdDecoys(ctx)
		case "samples":
			c.cmdSamples(ctx, args[1:])
		case "rules":
			c.cmdRules(ctx, args[1:])
		case "templates":
			c.cmdTemplates(ctx, args[1:])
		case "services":
			c.cmdServices(ctx)
		case "reports":
			c.cmdReports(ctx, args[1:])
		case "users":
			c.cmdUsers(ctx, args[1:])
		case "login-logs":
			c.cmdLoginLogs(ctx)
		case "config":
			c.cmdConfig(ctx)
		case "modules":
			for name, on := range c.modules.Snapshot() {
				fmt.Printf("  %-14s %v\n", name, on)
			}
		case "toggle":
			if len(args) < 2 {
				fmt.Println("Usage: toggle <module>")
				continue
			}
			fmt.Printf("%s = %v\n", args[1], c.modules.Toggle(args[1]))
		case "lang":
			c.cmdToggleLang()
		case "theme":
			fmt.Printf("dark mode: %v\n", c.store.ToggleDarkMode())
		case "tail":
			c.cmdTail()
		case "exit":
			if c.channel != nil {
				c.channel.Close()
			}
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func (c *console) cmdLogin(ctx context.Context, scanner *bufio.Scanner) {
	if c.store.Authenticated() {
		fmt.Println("Already logged in")
		return
	}
	fmt.Print("Username: ")
	if !scanner.Scan() {
		return
	}
	username := strings.TrimSpace(scanner.Text())

	fmt.Print("Password: ")
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		fmt.Println("failed to read password:", err)
		return
	}

	if err := c.store.Login(ctx, username, string(secret)); err != nil {
		// The server's error string is shown verbatim; lockout and
		// whitelist cases arrive as distinct strings already.
		fmt.Println("Login failed:", err)
		c.dispatcher.Notify(notify.Error, c.bundle.T("notify_login_failed_title"), err.Error(), 0)
		return
	}

	c.dispatcher.Notify(notify.Success,
		c.bundle.T("notify_login_success_title"), c.bundle.T("notify_login_success_msg"), 0)
	c.afterLogin(ctx)
}

// afterLogin performs the initial fetches and opens the realtime channel.
func (c *console) afterLogin(ctx context.Context) {
	if policy, err := c.client.LoginPolicy(ctx); err == nil {
		c.store.SetLoginPolicy(policy)
	} else {
		c.log.Debug("login policy fetch failed", zap.Error(err))
	}

	var backfilled []string
	if list, err := c.client.Messages(ctx); err == nil {
		c.messages.Replace(list, c.bundle)
		for _, msg := range list {
			backfilled = append(backfilled, msg.ID)
		}
	} else {
		c.log.Warn("initial message fetch failed", zap.Error(err))
	}

	channel, err := realtime.New(c.cfg.ServerURL, c.store, c.messages, c.attacks,
		c.bundle, c.dispatcher, c.log)
	if err != nil {
		c.log.Error("failed to build realtime channel", zap.Error(err))
		return
	}
	channel.MarkSeen(backfilled)
	channel.SubscribeNodes(func(n models.NodeStatus) {
		c.log.Debug("node telemetry",
			zap.String("id", n.ID), zap.String("status", n.Status), zap.Int("load", n.Load))
	})
	channel.Start()
	c.channel = channel
}

func (c *console) cmdLogout() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	dest, acted := c.store.Logout()
	if !acted {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("Logged out. Continue at /%s\n", dest)
}

func (c *console) cmdMessages() {
	entries := c.messages.All()
	if len(entries) == 0 {
		fmt.Println("No messages")
		return
	}
	fmt.Printf("%d unread of %d\n", c.messages.UnreadCount(), len(entries))
	for _, e := range entries {
		marker := " "
		if !e.Raw.Read {
			marker = "*"
		}
		fmt.Printf("%s [%s] %s  %s\n    %s\n", marker, e.Raw.ID, e.Time, e.Title, e.Content)
	}
}

func (c *console) cmdReadAll(ctx context.Context) {
	if err := c.client.MarkAllMessagesRead(ctx); err != nil {
		c.notifyFailure(err)
		return
	}
	c.messages.MarkAllRead()
}

func (c *console) cmdDeleteMessage(ctx context.Context, id string) {
	if err := c.client.DeleteMessage(ctx, id); err != nil {
		c.notifyFailure(err)
		return
	}
	c.messages.Delete(id)
}

func (c *console) cmdAttacks(ctx context.Context) {
	// The live ring is preferred; fall back to the REST log when the feed
	// is still empty.
	list := c.attacks.All()
	if len(list) == 0 {
		fetched, err := c.client.Attacks(ctx)
		if err != nil {
			c.notifyFailure(err)
			return
		}
		list = fetched
	}
	for _, a := range list {
		fmt.Printf("  %s  %-15s %-5s %-8s %s\n",
			i18n.FormatTimestamp(a.Timestamp), a.SourceIP, a.Method, a.Severity, a.Location)
	}
}

func (c *console) cmdNodes(ctx context.Context) {
	nodes, err := c.client.Nodes(ctx)
	if err != nil {
		c.notifyFailure(err)
		return
	}
	for _, n := range nodes {
		fmt.Printf("  %-10s %-12s %-8s load=%d%% fw=%s %s\n",
			n.ID, n.Name, n.Status, n.Load, n.FirewallStatus, n.IP)
	}
}

func (c *console) cmdNodeCommand(ctx context.Context, nodeID, command string) {
	if err := c.client.NodeCommand(ctx, nodeID, command); err != nil {
		c.notifyFailure(err)
		return
	}
	c.dispatcher.Notify(notify.Success, c.bundle.Translate(
		fmt.Sprintf("notify_command_sent|command:%s,id:%s", command, nodeID)), "", 0)
}

func (c *console) cmdStats(ctx context.Context) {
	stats, err := c.client.DashboardStats(ctx)
	if err != nil {
		c.notifyFailure(err)
		return
	}
	fmt.Printf("  attacks=%d nodes=%d/%d services=%d/%d sources=%d credentials=%d\n",
		stats.TotalAttacks, stats.ActiveNodes, stats.TotalNodes,
		stats.ActiveServices, stats.TotalServices, stats.TotalSources, stats.TotalCredentials)
	for _, src := range stats.TopSources {
		fmt.Printf("  %-15s %4d  %s\n", src.IP, src.Count, src.Loc)
	}
}

func (c *console) cmdDeleteNode(ctx context.Context, id string) {
	if err := c.client.DeleteNode(ctx, id); err != nil {
		c.notifyFailure(err)
		return
	}
	fmt.Printf("node %s removed\n", id)
}

func (c *console) cmdAccounts(ctx context.Context) {
	stats, err := c.client.AccountStats(ctx)
	if err != nil {
		c.notifyFailure(err)
		return
	}
	for _, s := range stats {
		fmt.Printf("  %-16s %-16s %-10s %4d\n", s.Username, s.Password, s.Service, s.Count)
	}
}

func (c *console) cmdDecoys(ctx context.Context) {
	decoys, err := c.client.Decoys(ctx)
	if err != nil {
		c.notifyFailure(err)
		return
	}
	for _, d := range decoys {
		fmt.Printf("  [%s] %-16s %-6s %-15s %-10s %s\n",
			d.ID, d.Name, d.Type, d.SourceIP, d.Node, i18n.FormatTimestamp(d.Time))
	}
}

func (c *console) cmdSamples(ctx context.Context, args []string) {
	if len(args) >= 2 && args[0] == "rm" {
		if err := c.client.DeleteSample(ctx, args[1]); err != nil {
			c.notifyFailure(err)
			return
		}
		fmt.Printf("sample %s removed\n", args[1])
		return
	}
	samples, err := c.client.Samples(ctx)
	if err != nil {
		c.notifyFailure(err)
		return
	}
	for _, s := range samples {
		fmt.Printf("  [%s] %-20s %-6s %-10s %-15s %s\n",
			s.ID, s.FileName, s.FileType, s.ThreatLevel, s.AttackerIP, i18n.FormatTimestamp(s.LastTime))
	}
}

func (c *console) cmdRules(ctx context.Context, args []string) {
	switch {
	case len(args) >= 4 && args[0] == "add":
		created, err := c.client.CreateVulnRule(ctx, models.VulnRule{
			Name: args[1], Type: args[2], Severity: args[3],
		})
		if err != nil {
			c.notifyFailure(err)
			return
		}
		fmt.Printf("rule %s created\n", created.ID)
	case len(args) >= 2 && args[0] == "rm":
		if err := c.client.DeleteVulnRule(ctx, args[1]); err != nil {
			c.notifyFailure(err)
			return
		}
		fmt.Printf("rule %s removed\n", args[1])
	default:
		rules, err := c.client.VulnRules(ctx)
		if err != nil {
			c.notifyFailure(err)
			return
		}
		for _, r := range rules {
			fmt.Printf("  [%s] %-20s %-8s %-8s hits=%d %s\n",
				r.ID, r.Name, r.Type, r.Severity, r.HitCount, r.Status)
		}
	}
}

func (c *console) cmdTemplates(ctx context.Context, args []string) {
	switch {
	case len(args) >= 3 && args[0] == "add":
		created, err := c.client.CreateTemplate(ctx, models.Template{Name: args[1], Type: args[2]})
		if err != nil {
			c.notifyFailure(err)
			return
		}
		fmt.Printf("template %s created\n", created.ID)
	case len(args) >= 2 && args[0] == "rm":
		if err := c.client.DeleteTemplate(ctx, args[1]); err != nil {
			c.notifyFailure(err)
			return
		}
		fmt.Printf("template %s removed\n", args[1])
	default:
		templates, err := c.client.Templates(ctx)
		if err != nil {
			c.notifyFailure(err)
			return
		}
		for _, tpl := range templates {
			fmt.Printf("  [%s] %-24s %-6s %s\n", tpl.ID, tpl.Name, tpl.Type, tpl.Description)
		}
	}
}

func (c *console) cmdServices(ctx context.Context) {
	services, err := c.client.Services(ctx)
	if err != nil {
		c.notifyFailure(err)
		return
	}
	for _, s := range services {
		fmt.Printf("  [%s] %-16s %-14s port=%-5s attacks=%-5d %s\n",
			s.ID, s.Name, s.Category, s.DefaultPort, s.AttackCount, s.Status)
	}
}

func (c *console) cmdReports(ctx context.Context, args []string) {
	if len(args) >= 2 && args[0] == "rm" {
		if err := c.client.DeleteReport(ctx, args[1]); err != nil {
			c.notifyFailure(err)
			return
		}
		fmt.Printf("report %s removed\n", args[1])
		return
	}
	reports, err := c.client.Reports(ctx)
	if err != nil {
		c.notifyFailure(err)
		return
	}
	for _, r := range reports {
		fmt.Printf("  [%s] %-20s %-8s %-8s %s %s\n",
			r.ID, r.Name, r.Type, r.Size, r.Status, i18n.FormatTimestamp(r.CreateTime))
	}
}

func (c *console) cmdUsers(ctx context.Context, args []string) {
	switch {
	case len(args) >= 2 && args[0] == "add":
		role := "user"
		if len(args) >= 3 {
			role = args[2]
		}
		fmt.Print("Password: ")
		secret, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			fmt.Println("failed to read password:", err)
			return
		}
		created, err := c.client.CreateUser(ctx, models.CreateUserRequest{
			Username: args[1], Password: string(secret), Role: role,
		})
		if err != nil {
			c.notifyFailure(err)
			return
		}
		fmt.Printf("user %s created\n", created.ID)
	case len(args) >= 2 && args[0] == "rm":
		if err := c.client.DeleteUser(ctx, args[1]); err != nil {
			c.notifyFailure(err)
			return
		}
		fmt.Printf("user %s removed\n", args[1])
	default:
		users, err := c.client.Users(ctx)
		if err != nil {
			c.notifyFailure(err)
			return
		}
		for _, u := range users {
			fmt.Printf("  [%s] %-16s %-6s %s\n", u.ID, u.Username, u.Role, i18n.FormatTimestamp(u.CreateTime))
		}
	}
}

func (c *console) cmdLoginLogs(ctx context.Context) {
	logs, err := c.client.LoginLogs(ctx)
	if err != nil {
		c.notifyFailure(err)
		return
	}
	for _, l := range logs {
		outcome := "ok"
		if !l.Success {
			outcome = l.Reason
		}
		fmt.Printf("  %s  %-16s %-15s %s\n", i18n.FormatTimestamp(l.Time), l.Username, l.IP, outcome)
	}
}

func (c *console) cmdConfig(ctx context.Context) {
	cfg, err := c.client.Config(ctx)
	if err != nil {
		c.notifyFailure(err)
		return
	}
	for k, v := range cfg {
		fmt.Printf("  %s = %s\n", k, v)
	}
}

func (c *console) cmdToggleLang() {
	lang := c.bundle.Toggle()
	c.store.SetLang(string(lang))
	// Re-render every stored message in place; nothing is refetched.
	c.messages.Retranslate(c.bundle)
	fmt.Printf("language: %s\n", lang)
}

func (c *console) cmdTail() {
	fmt.Println("Live attack feed (newest first):")
	for _, a := range c.attacks.All() {
		fmt.Printf("  %s  %-15s %-5s %s\n",
			i18n.FormatTimestamp(a.Timestamp), a.SourceIP, a.Method, a.Severity)
	}
	fmt.Println("Pending notifications:")
	for _, n := range c.dispatcher.Active() {
		fmt.Printf("  [%s] %s\n", n.Type, n.Title)
	}
}

func (c *console) notifyFailure(err error) {
	c.dispatcher.Notify(notify.Error, c.bundle.Translate("notify_action_failed|reason:"+err.Error()), "", 0)
}
