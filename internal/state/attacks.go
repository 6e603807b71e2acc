package state

import (
	"sync"

	"github.com/prtslab/prts-console/internal/models"
)

// AttackRingSize caps the live attack feed. Older entries fall off the tail.
const AttackRingSize = 100

// AttackRing is a bounded buffer of attack events, newest first. Events are
// appended on every ATTACK_EVENT frame without de-duplication; the feed is
// ephemeral and never persisted.
type AttackRing struct {
	mu      sync.Mutex
	entries []models.AttackLog
}

// NewAttackRing returns an empty ring.
func NewAttackRing() *AttackRing {
	return &AttackRing{}
}

// Prepend inserts an event at the head, dropping the oldest entry when the
// ring is full.
func (r *AttackRing) Prepend(a models.AttackLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append([]models.AttackLog{a}, r.entries...)
	if len(r.entries) > AttackRingSize {
		r.entries = r.entries[:AttackRingSize]
	}
}

// All returns a snapshot, newest first.
func (r *AttackRing) All() []models.AttackLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AttackLog, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of buffered events.
func (r *AttackRing) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
