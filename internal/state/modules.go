package state

import "sync"

// Module names toggleable from the console. These control which detection
// views are shown; they do not affect the backend.
const (
	ModuleAttackSource = "attackSource"
	ModuleScanning     = "scanning"
	ModuleAttack       = "attack"
	ModuleInfoStealing = "infoStealing"
	ModulePayload      = "payload"
	ModulePersistence  = "persistence"
)

// Modules is the fixed set of display module toggles. State is kept in
// memory only and resets on restart.
type Modules struct {
	mu      sync.Mutex
	enabled map[string]bool
}

// NewModules returns the toggle set with everything enabled.
func NewModules() *Modules {
	return &Modules{enabled: map[string]bool{
		ModuleAttackSource: true,
		ModuleScanning:     true,
		ModuleAttack:       true,
		ModuleInfoStealing: true,
		ModulePayload:      true,
		ModulePersistence:  true,
	}}
}

// Toggle flips the named module and returns its new state. Unknown names
// return false without creating an entry.
func (m *Modules) Toggle(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.enabled[name]; !ok {
		return false
	}
	m.enabled[name] = !m.enabled[name]
	return m.enabled[name]
}

// Enabled reports whether the named module is on.
func (m *Modules) Enabled(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled[name]
}

// Snapshot returns a copy of the toggle map.
func (m *Modules) Snapshot() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.enabled))
	for k, v := range m.enabled {
		out[k] = v
	}
	return out
}
