// Package i18n resolves server wire-format message keys into localized
// display strings.
//
// The wire format is "key|name:value,name2:value2". The segment before the
// first '|' is looked up in the active-language table; the remainder is a
// comma-separated list of name:value substitution parameters. Embedded commas
// or colons in values are not supported by the format.
package i18n

import (
	"strings"
	"sync"
	"time"
)

// Lang identifies a display language.
type Lang string

const (
	// EN is English.
	EN Lang = "en"
	// ZH is Simplified Chinese.
	ZH Lang = "zh"
)

// DisplayTimeFormat is the fixed 24-hour timestamp layout used everywhere in
// the console.
const DisplayTimeFormat = "2006-01-02 15:04:05"

// Bundle holds the active display language. The zero value is not usable;
// construct with New.
type Bundle struct {
	mu   sync.RWMutex
	lang Lang
}

// New returns a Bundle starting in the given language. Anything other than
// "en" selects Chinese.
func New(lang Lang) *Bundle {
	if lang != EN {
		lang = ZH
	}
	return &Bundle{lang: lang}
}

// Lang returns the active language.
func (b *Bundle) Lang() Lang {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lang
}

// SetLang switches the active language.
func (b *Bundle) SetLang(lang Lang) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if lang == EN {
		b.lang = EN
	} else {
		b.lang = ZH
	}
}

// Toggle flips between English and Chinese and returns the new language.
func (b *Bundle) Toggle() Lang {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lang == EN {
		b.lang = ZH
	} else {
		b.lang = EN
	}
	return b.lang
}

// Translate resolves a raw wire string through the active-language table.
// A lookup miss echoes the raw input unchanged; it never fails.
func (b *Bundle) Translate(raw string) string {
	key := raw
	var params map[string]string

	if i := strings.Index(raw, "|"); i >= 0 {
		key = raw[:i]
		params = parseParams(raw[i+1:])
	}

	entry, ok := table[key]
	if !ok {
		return raw
	}

	tmpl := entry.pick(b.Lang())
	for name, value := range params {
		tmpl = strings.ReplaceAll(tmpl, "{"+name+"}", value)
	}
	return tmpl
}

// T looks up a plain console UI key without parameters.
func (b *Bundle) T(key string) string {
	return b.Translate(key)
}

// parseParams parses "name:value,name2:value2". Malformed pairs (no colon)
// are skipped.
func parseParams(s string) map[string]string {
	params := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		i := strings.Index(pair, ":")
		if i < 0 {
			continue
		}
		params[pair[:i]] = pair[i+1:]
	}
	return params
}

// FormatTimestamp converts an ISO-8601 timestamp into the fixed display
// layout in local time. A malformed input is echoed unchanged.
func FormatTimestamp(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Local().Format(DisplayTimeFormat)
}

type entry struct {
	en string
	zh string
}

func (e entry) pick(lang Lang) string {
	if lang == EN {
		return e.en
	}
	return e.zh
}

// table maps message keys to per-language templates. Keys arriving from the
// server that are absent here fall back to the raw wire string.
var table = map[string]entry{
	// Server-pushed message keys.
	"msg_node_online_title": {
		en: "Node Online",
		zh: "节点上线",
	},
	"msg_node_online_content": {
		en: "Node {name} ({id}) has connected to the control center.",
		zh: "节点 {name}（{id}）已连接到控制中心。",
	},
	"msg_node_offline_title": {
		en: "Node Offline",
		zh: "节点离线",
	},
	"msg_node_offline_content": {
		en: "Node {name} ({id}) has lost connection to the control center.",
		zh: "节点 {name}（{id}）与控制中心失去连接。",
	},
	"msg_attack_detected_title": {
		en: "High Risk Attack Detected",
		zh: "检测到高危攻击",
	},
	"msg_attack_detected_content": {
		en: "{method} attack from {ip} was captured and is being monitored.",
		zh: "已捕获来自 {ip} 的 {method} 攻击，正在监控中。",
	},
	"msg_report_ready_title": {
		en: "Report Generated",
		zh: "报告已生成",
	},
	"msg_report_ready_content": {
		en: "Report {name} has been generated and is ready for download.",
		zh: "报告 {name} 已生成，可供下载。",
	},

	// Console UI strings.
	"notify_login_success_title": {
		en: "Neural Link Established",
		zh: "神经链接已建立",
	},
	"notify_login_success_msg": {
		en: "Welcome back, operator.",
		zh: "欢迎回来，干员。",
	},
	"notify_login_failed_title": {
		en: "Access Denied",
		zh: "访问被拒绝",
	},
	"notify_new_message_title": {
		en: "New Message",
		zh: "新消息",
	},
	"notify_session_expired": {
		en: "Session expired, please log in again.",
		zh: "会话已过期，请重新登录。",
	},
	"notify_action_failed": {
		en: "Operation failed: {reason}",
		zh: "操作失败：{reason}",
	},
	"notify_command_sent": {
		en: "Command {command} sent to node {id}.",
		zh: "命令 {command} 已发送至节点 {id}。",
	},
	"err_account_locked": {
		en: "Account locked",
		zh: "账户已锁定",
	},
	"err_ip_not_whitelisted": {
		en: "IP not in whitelist",
		zh: "IP 不在白名单中",
	},
	"err_auth_failed": {
		en: "Authentication failed",
		zh: "认证失败",
	},
}
