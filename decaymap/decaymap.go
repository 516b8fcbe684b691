// Package decaymap implements a generic map whose entries decay after a
// per-entry time to live. Expired entries are treated as absent on read and
// reaped in bulk by Cleanup.
package decaymap

import (
	"sync"
	"time"
)

// Zilch returns the zero value of any type.
func Zilch[T any]() T {
	var zero T
	return zero
}

type entry[V any] struct {
	value  V
	expiry time.Time
}

// Impl is a time-decaying map from K to V. The zero value is not usable, call
// New.
type Impl[K comparable, V any] struct {
	data map[K]entry[V]
	lock sync.RWMutex
}

// New creates a new DecayMap for the given key and value types.
func New[K comparable, V any]() *Impl[K, V] {
	return &Impl[K, V]{
		data: map[K]entry[V]{},
	}
}

// Get returns the value for key if it exists and has not expired.
//
// An expired entry is deleted on the spot so that readers never observe stale
// values between Cleanup passes.
func (m *Impl[K, V]) Get(key K) (V, bool) {
	m.lock.RLock()
	val, ok := m.data[key]
	m.lock.RUnlock()

	if !ok {
		return Zilch[V](), false
	}

	if time.Now().After(val.expiry) {
		m.lock.Lock()
		// Someone else may have set a fresh value while we were waiting
		// for the write lock.
		if val, ok = m.data[key]; ok && time.Now().After(val.expiry) {
			delete(m.data, key)
		}
		m.lock.Unlock()

		return Zilch[V](), false
	}

	return val.value, true
}

// Set stores value under key for the given time to live.
func (m *Impl[K, V]) Set(key K, value V, ttl time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.data[key] = entry[V]{
		value:  value,
		expiry: time.Now().Add(ttl),
	}
}

// Delete removes key from the map, reporting whether it was present.
func (m *Impl[K, V]) Delete(key K) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	_, ok := m.data[key]
	if ok {
		delete(m.data, key)
	}

	return ok
}

// Cleanup removes every expired entry from the map.
func (m *Impl[K, V]) Cleanup() {
	now := time.Now()

	m.lock.Lock()
	defer m.lock.Unlock()

	for key, val := range m.data {
		if now.After(val.expiry) {
			delete(m.data, key)
		}
	}
}

// Len returns the number of entries in the map, including entries that have
// expired but are not reaped yet.
func (m *Impl[K, V]) Len() int {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return len(m.data)
}
