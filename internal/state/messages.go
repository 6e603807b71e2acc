// Package state holds the console's in-memory view of the control center:
// the message collection, the live attack feed, and the display module
// toggles.
package state

import (
	"sync"

	"github.com/prtslab/prts-console/internal/i18n"
	"github.com/prtslab/prts-console/internal/models"
)

// RenderedMessage is a message-center entry with its title and content
// resolved through the translation pipeline for the language it was last
// rendered in. Raw keeps the wire strings so the entry can be re-rendered
// when the language changes.
type RenderedMessage struct {
	Raw     models.Message
	Title   string
	Content string
	Time    string
}

// Messages is the ordered message collection, most recent first.
type Messages struct {
	mu      sync.Mutex
	entries []RenderedMessage
}

// NewMessages returns an empty collection.
func NewMessages() *Messages {
	return &Messages{}
}

// Replace swaps the whole collection for a freshly fetched list, rendering
// each entry with the given bundle. Used by the initial REST backfill.
func (m *Messages) Replace(list []models.Message, b *i18n.Bundle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make([]RenderedMessage, 0, len(list))
	for _, msg := range list {
		m.entries = append(m.entries, render(msg, b))
	}
}

// Prepend inserts a new message at the head of the collection.
func (m *Messages) Prepend(msg models.Message, b *i18n.Bundle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append([]RenderedMessage{render(msg, b)}, m.entries...)
}

// Retranslate re-renders every entry in place using the bundle's active
// language. Called on language switch; no refetch happens.
func (m *Messages) Retranslate(b *i18n.Bundle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		m.entries[i] = render(m.entries[i].Raw, b)
	}
}

// All returns a snapshot of the collection.
func (m *Messages) All() []RenderedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RenderedMessage, len(m.entries))
	copy(out, m.entries)
	return out
}

// Len returns the number of entries.
func (m *Messages) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// UnreadCount returns the number of unread entries.
func (m *Messages) UnreadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if !e.Raw.Read {
			n++
		}
	}
	return n
}

// MarkAllRead sets the read flag on every entry.
func (m *Messages) MarkAllRead() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		m.entries[i].Raw.Read = true
	}
}

// ToggleRead flips the read flag of the entry with the given id. Returns
// false if no such entry exists.
func (m *Messages) ToggleRead(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].Raw.ID == id {
			m.entries[i].Raw.Read = !m.entries[i].Raw.Read
			return true
		}
	}
	return false
}

// Delete removes the entry with the given id. Returns false if no such
// entry exists.
func (m *Messages) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		if m.entries[i].Raw.ID == id {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return true
		}
	}
	return false
}

func render(msg models.Message, b *i18n.Bundle) RenderedMessage {
	return RenderedMessage{
		Raw:     msg,
		Title:   b.Translate(msg.Title),
		Content: b.Translate(msg.Content),
		Time:    i18n.FormatTimestamp(msg.Time),
	}
}
