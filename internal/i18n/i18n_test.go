package i18n

import (
	"testing"
	"time"
)

func TestTranslate_PlainKey(t *testing.T) {
	b := New(EN)
	got := b.Translate("msg_node_online_title")
	if got != "Node Online" {
		t.Errorf("Translate = %q; want %q", got, "Node Online")
	}
}

func TestTranslate_WithParams(t *testing.T) {
	b := New(EN)
	got := b.Translate("msg_node_online_content|name:Chernobog-B,id:node-02")
	want := "Node Chernobog-B (node-02) has connected to the control center."
	if got != want {
		t.Errorf("Translate = %q; want %q", got, want)
	}
}

func TestTranslate_MissEchoesRawKey(t *testing.T) {
	tests := []string{
		"no_such_key",
		"no_such_key|a:b",
		"",
		"plain text that is not a key at all",
	}
	b := New(ZH)
	for _, raw := range tests {
		if got := b.Translate(raw); got != raw {
			t.Errorf("Translate(%q) = %q; want input echoed", raw, got)
		}
	}
}

func TestTranslate_MalformedParamsSkipped(t *testing.T) {
	b := New(EN)
	// The pair without a colon is dropped; the valid one still applies.
	got := b.Translate("msg_report_ready_content|garbage,name:weekly")
	want := "Report weekly has been generated and is ready for download."
	if got != want {
		t.Errorf("Translate = %q; want %q", got, want)
	}
}

func TestTranslate_LanguageSwitch(t *testing.T) {
	b := New(ZH)
	raw := "msg_node_offline_title"
	if got := b.Translate(raw); got != "节点离线" {
		t.Errorf("zh Translate = %q", got)
	}
	b.SetLang(EN)
	if got := b.Translate(raw); got != "Node Offline" {
		t.Errorf("en Translate = %q", got)
	}
}

func TestToggle(t *testing.T) {
	b := New(ZH)
	if got := b.Toggle(); got != EN {
		t.Errorf("Toggle = %q; want en", got)
	}
	if got := b.Toggle(); got != ZH {
		t.Errorf("Toggle = %q; want zh", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	in := time.Date(2025, 12, 6, 9, 45, 22, 0, time.UTC)
	got := FormatTimestamp(in.Format(time.RFC3339))
	want := in.Local().Format(DisplayTimeFormat)
	if got != want {
		t.Errorf("FormatTimestamp = %q; want %q", got, want)
	}
}

func TestFormatTimestamp_MalformedEchoesInput(t *testing.T) {
	for _, in := range []string{"not a timestamp", "", "2025/12/06 10:00:00"} {
		if got := FormatTimestamp(in); got != in {
			t.Errorf("FormatTimestamp(%q) = %q; want input echoed", in, got)
		}
	}
}
