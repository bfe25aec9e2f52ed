package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"
)

var _ KV = (*InMemoryKV)(nil)

type namespaceValues struct {
	values    map[string]string
	expiresAt time.Time // zero when the KV has no ttl
}

// InMemoryKV is a thread-safe, process-local KV. With a ttl, every write slides the
// namespace's expiry the way RedisKV does; expired namespaces read as empty and are
// dropped by Sweep.
type InMemoryKV struct {
	mu         sync.RWMutex
	namespaces map[string]*namespaceValues
	ttl        time.Duration
	now        func() time.Time
}

// NewInMemoryKV creates a KV that keeps namespaces until they are deleted.
func NewInMemoryKV() *InMemoryKV {
	return NewExpiringInMemoryKV(0)
}

// NewExpiringInMemoryKV creates a KV whose namespaces expire ttl after their last write.
func NewExpiringInMemoryKV(ttl time.Duration) *InMemoryKV {
	return &InMemoryKV{
		namespaces: make(map[string]*namespaceValues),
		ttl:        ttl,
		now:        time.Now,
	}
}

func (kv *InMemoryKV) expired(ns *namespaceValues) bool {
	return !ns.expiresAt.IsZero() && !kv.now().Before(ns.expiresAt)
}

func (kv *InMemoryKV) Get(_ context.Context, namespace, key string) (string, bool, error) {
	if namespace == "" {
		return "", false, fmt.Errorf("namespace is required")
	}

	kv.mu.RLock()
	defer kv.mu.RUnlock()

	ns, ok := kv.namespaces[namespace]
	if !ok || kv.expired(ns) {
		return "", false, nil
	}
	v, ok := ns.values[key]
	return v, ok, nil
}

func (kv *InMemoryKV) Set(_ context.Context, namespace, key, value string) error {
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()

	ns, ok := kv.namespaces[namespace]
	if !ok || kv.expired(ns) {
		ns = &namespaceValues{values: make(map[string]string)}
		kv.namespaces[namespace] = ns
	}
	ns.values[key] = value
	if kv.ttl > 0 {
		ns.expiresAt = kv.now().Add(kv.ttl)
	}
	return nil
}

func (kv *InMemoryKV) Delete(_ context.Context, namespace string, keys ...string) error {
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}

	kv.mu.Lock()
	defer kv.mu.Unlock()

	ns, ok := kv.namespaces[namespace]
	if !ok {
		return nil
	}
	for _, k := range keys {
		delete(ns.values, k)
	}

	// Clean up empty namespaces
	if len(ns.values) == 0 {
		delete(kv.namespaces, namespace)
	}
	return nil
}

// Sweep drops expired namespaces and returns how many were removed.
func (kv *InMemoryKV) Sweep() int {
	kv.mu.Lock()
	defer kv.mu.Unlock()

	removed := 0
	for name, ns := range kv.namespaces {
		if kv.expired(ns) {
			delete(kv.namespaces, name)
			removed++
		}
	}
	return removed
}

// Len returns the number of namespaces holding at least one key, expired ones included
// until they are swept.
func (kv *InMemoryKV) Len() int {
	kv.mu.RLock()
	defer kv.mu.RUnlock()
	return len(kv.namespaces)
}
