package adapters

import (
	"sort"
	"strings"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]*Adapter{}
)

// Register adds an adapter to the registry. Source packages call this from
// init; a duplicate or incomplete adapter is a programming error.
func Register(a *Adapter) {
	if a == nil {
		panic("adapters: nil adapter in Register")
	}
	id := strings.ToLower(strings.TrimSpace(a.ID))
	if id == "" {
		panic("adapters: empty id in Register")
	}
	if a.ScrapeEvent == nil {
		panic("adapters: adapter " + id + " has no ScrapeEvent")
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[id]; exists {
		panic("adapters: duplicate registration for " + id)
	}
	registry[id] = a
}

// ByID looks up a registered adapter.
func ByID(id string) (*Adapter, bool) {
	n := strings.ToLower(strings.TrimSpace(id))
	registryMu.RLock()
	defer registryMu.RUnlock()
	a, ok := registry[n]
	return a, ok
}

// IDs lists registered adapter ids, sorted.
func IDs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for id := range registry {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
