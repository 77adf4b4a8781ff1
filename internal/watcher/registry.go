package watcher

import (
	"fmt"
	"sort"
	"sync"
)

// Constructor creates a Watcher from resolved options.
// Implementations register themselves with Register().
type Constructor func(o *options) (Watcher, error)

// registry maps watcher kinds to their constructors
var (
	registry      = make(map[Kind]Constructor)
	registryMutex sync.RWMutex
)

func init() {
	Register(KindNotify, func(o *options) (Watcher, error) {
		nw, err := NewNotify(o.logger)
		if err != nil {
			return nil, err
		}
		nw.fallback = NewPoll(o.interval)
		return nw, nil
	})
	Register(KindPoll, func(o *options) (Watcher, error) {
		return NewPoll(o.interval), nil
	})
}

// Register registers a watcher constructor for kind.
// It panics if the constructor is nil or the kind is already registered.
func Register(k Kind, constructor Constructor) {
	registryMutex.Lock()
	defer registryMutex.Unlock()

	if constructor == nil {
		panic(fmt.Sprintf("watcher: Register constructor is nil for kind %s", k))
	}

	if _, exists := registry[k]; exists {
		panic(fmt.Sprintf("watcher: Register called twice for kind %s", k))
	}

	registry[k] = constructor
}

// getConstructor retrieves the constructor for a kind.
// Returns nil if the kind is not registered.
func getConstructor(k Kind) Constructor {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	return registry[k]
}

// IsRegistered returns true if a constructor is registered for the given kind.
func IsRegistered(k Kind) bool {
	registryMutex.RLock()
	defer registryMutex.RUnlock()
	_, exists := registry[k]
	return exists
}

// RegisteredKinds returns all registered kinds, sorted.
func RegisteredKinds() []Kind {
	registryMutex.RLock()
	defer registryMutex.RUnlock()

	kinds := make([]Kind, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
