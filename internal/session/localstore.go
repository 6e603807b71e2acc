package session

import (
	"encoding/json"
	"os"
	"sync"
)

// State keys persisted by the console, mirroring the browser client.
const (
	KeyToken          = "prts_token"
	KeyUser           = "prts_user"
	KeySessionExpired = "prts_session_expired"
	KeyLang           = "prts_lang"
	KeyDarkMode       = "prts_dark_mode"
)

// localStore is a file-backed key/value map, the console's analog of
// browser localStorage. Every mutation is written through to disk.
type localStore struct {
	path   string
	mu     sync.Mutex
	values map[string]string
}

func newLocalStore(path string) *localStore {
	return &localStore{path: path, values: make(map[string]string)}
}

// load reads the state file. A missing file yields an empty store; a
// malformed file also yields an empty store and reports the parse error so
// the caller can log it. The store stays usable either way.
func (ls *localStore) load() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.values = make(map[string]string)
	data, err := os.ReadFile(ls.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var values map[string]string
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	ls.values = values
	return nil
}

func (ls *localStore) save() error {
	data, err := json.MarshalIndent(ls.values, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ls.path, data, 0o600)
}

func (ls *localStore) Get(key string) string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.values[key]
}

func (ls *localStore) Set(key, value string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.values[key] = value
	return ls.save()
}

func (ls *localStore) Delete(key string) error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	delete(ls.values, key)
	return ls.save()
}
