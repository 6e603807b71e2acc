package notify

import (
	"sync"
	"testing"
	"time"
)

// recordingSink counts Show and Hide calls per id.
type recordingSink struct {
	mu    sync.Mutex
	shown []Notification
	hides map[string]int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{hides: make(map[string]int)}
}

func (s *recordingSink) Show(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, n)
}

func (s *recordingSink) Hide(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hides[id]++
}

func (s *recordingSink) hideCount(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hides[id]
}

func TestNotify_DefaultDuration(t *testing.T) {
	d := New()
	defer d.Close()
	sink := newRecordingSink()
	d.Register(sink)

	d.Notify(Info, "title", "msg", 0)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.shown) != 1 {
		t.Fatalf("shown = %d; want 1", len(sink.shown))
	}
	if sink.shown[0].Duration != DefaultDuration {
		t.Errorf("duration = %v; want %v", sink.shown[0].Duration, DefaultDuration)
	}
	if sink.shown[0].ID == "" {
		t.Error("expected a generated id")
	}
}

func TestExpiry_RemovesExactlyOnce(t *testing.T) {
	d := New()
	defer d.Close()
	sink := newRecordingSink()
	d.Register(sink)

	id := d.Notify(Success, "done", "", 20*time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for sink.hideCount(id) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := sink.hideCount(id); got != 1 {
		t.Fatalf("hide count = %d; want 1", got)
	}
	if got := len(d.Active()); got != 0 {
		t.Errorf("active = %d; want 0", got)
	}

	// A late dismissal of the already-expired id must not re-fire Hide.
	d.Dismiss(id)
	if got := sink.hideCount(id); got != 1 {
		t.Errorf("hide count after dismiss = %d; want 1", got)
	}
}

func TestDismiss_BeatsTimer(t *testing.T) {
	d := New()
	defer d.Close()
	sink := newRecordingSink()
	d.Register(sink)

	id := d.Notify(Warning, "pending", "", time.Hour)
	d.Dismiss(id)

	if got := sink.hideCount(id); got != 1 {
		t.Fatalf("hide count = %d; want 1", got)
	}
	// Give a stray timer a chance to misfire.
	time.Sleep(20 * time.Millisecond)
	if got := sink.hideCount(id); got != 1 {
		t.Errorf("hide count after wait = %d; want 1", got)
	}
}

func TestDismiss_UnknownIDIsNoop(t *testing.T) {
	d := New()
	defer d.Close()
	sink := newRecordingSink()
	d.Register(sink)

	d.Dismiss("no-such-id")
	if got := len(sink.hides); got != 0 {
		t.Errorf("hides = %d; want 0", got)
	}
}

func TestActive_InsertionOrder(t *testing.T) {
	d := New()
	defer d.Close()

	first := d.Notify(Info, "one", "", time.Hour)
	second := d.Notify(Info, "two", "", time.Hour)

	active := d.Active()
	if len(active) != 2 {
		t.Fatalf("active = %d; want 2", len(active))
	}
	if active[0].ID != first || active[1].ID != second {
		t.Errorf("order = [%s %s]; want [%s %s]", active[0].ID, active[1].ID, first, second)
	}
}
