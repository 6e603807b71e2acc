// Package notify implements the transient toast notification queue shared by
// local user actions and server-pushed events.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification.
type Type string

const (
	Success Type = "success"
	Warning Type = "warning"
	Error   Type = "error"
	Info    Type = "info"
)

// DefaultDuration is applied when the caller passes a non-positive duration.
const DefaultDuration = 4 * time.Second

// Notification is a short-lived toast entry.
type Notification struct {
	ID       string
	Type     Type
	Title    string
	Message  string
	Duration time.Duration
}

// Sink receives dispatcher events. Sinks are registered once at startup;
// producers never talk to a sink directly.
type Sink interface {
	// Show is called when a notification is added.
	Show(Notification)
	// Hide is called exactly once when a notification is removed, whether by
	// its expiry timer or by explicit dismissal.
	Hide(id string)
}

// Dispatcher owns the ordered notification collection and the per-entry
// expiry timers. There is no cap on concurrent notifications.
type Dispatcher struct {
	mu     sync.Mutex
	sinks  []Sink
	active map[string]*pending
	order  []string
}

type pending struct {
	n     Notification
	timer *time.Timer
}

// New returns an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{active: make(map[string]*pending)}
}

// Register adds a sink. Call before producers start.
func (d *Dispatcher) Register(s Sink) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sinks = append(d.sinks, s)
}

// Notify appends a notification and arms its expiry timer. Returns the
// generated id.
func (d *Dispatcher) Notify(t Type, title, message string, duration time.Duration) string {
	if duration <= 0 {
		duration = DefaultDuration
	}
	n := Notification{
		ID:       uuid.NewString(),
		Type:     t,
		Title:    title,
		Message:  message,
		Duration: duration,
	}

	d.mu.Lock()
	p := &pending{n: n}
	p.timer = time.AfterFunc(duration, func() { d.remove(n.ID) })
	d.active[n.ID] = p
	d.order = append(d.order, n.ID)
	sinks := d.sinks
	d.mu.Unlock()

	for _, s := range sinks {
		s.Show(n)
	}
	return n.ID
}

// Dismiss removes a notification before its timer fires. Dismissing an
// unknown or already-expired id is a no-op.
func (d *Dispatcher) Dismiss(id string) {
	d.remove(id)
}

// remove deletes the entry and fires Hide exactly once. The map delete is
// the single point of removal, so a timer firing concurrently with a manual
// dismissal cannot double-remove.
func (d *Dispatcher) remove(id string) {
	d.mu.Lock()
	p, ok := d.active[id]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.active, id)
	for i, oid := range d.order {
		if oid == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	p.timer.Stop()
	sinks := d.sinks
	d.mu.Unlock()

	for _, s := range sinks {
		s.Hide(id)
	}
}

// Active returns a snapshot of the pending notifications in insertion order.
func (d *Dispatcher) Active() []Notification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Notification, 0, len(d.order))
	for _, id := range d.order {
		if p, ok := d.active[id]; ok {
			out = append(out, p.n)
		}
	}
	return out
}

// Close stops all timers without firing Hide. Used on shutdown.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, p := range d.active {
		p.timer.Stop()
	}
	d.active = make(map[string]*pending)
	d.order = nil
}
