// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache is an in-memory TTL cache persisted as one JSON blob per
// namespace in a durable key-value store.
//
// Every mutation writes the full map back as {key: {data, timestamp}}. When
// the backend reports a capacity failure the oldest 30% of entries are pruned
// and the write is retried once; after that the cache keeps working in memory.
package cache

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/profmatch/internal/kvstore"
)

// DefaultTTL is the entry lifetime when none is configured.
const DefaultTTL = 7 * 24 * time.Hour

// pruneFraction is the share of entries dropped when the backend is full.
const pruneFraction = 0.3

// Backend is the durable store a cache persists to. *kvstore.Store implements it.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// entry is the persisted form of one cached value. Timestamp is epoch milliseconds.
type entry[V any] struct {
	Data      V     `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// Options configures a Store.
type Options[V any] struct {
	// Namespace is the backend key holding the whole map.
	Namespace string

	// TTL is the entry lifetime (default 7 days).
	TTL time.Duration

	// Compress reduces a value before it is stored. Nil stores values as-is.
	Compress func(V) V

	// Now overrides the clock.
	Now func() time.Time

	Logger *slog.Logger
}

// Stats describes the cache contents and persistence health.
type Stats struct {
	Namespace     string
	Size          int
	Pruned        int
	PersistFailed int
}

// Store is a TTL cache of V values keyed by string. It is safe for
// concurrent use; concurrent Sets are last-write-wins.
type Store[V any] struct {
	mu        sync.Mutex
	entries   map[string]entry[V]
	backend   Backend
	namespace string
	ttl       time.Duration
	compress  func(V) V
	now       func() time.Time
	logger    *slog.Logger

	pruned        int
	persistFailed int
}

// New creates a store and loads its non-expired entries from backend.
// Missing or corrupt persisted state yields an empty cache. A nil backend
// keeps the cache in memory only.
func New[V any](backend Backend, opts Options[V]) *Store[V] {
	s := &Store[V]{
		entries:   make(map[string]entry[V]),
		backend:   backend,
		namespace: opts.Namespace,
		ttl:       opts.TTL,
		compress:  opts.Compress,
		now:       opts.Now,
		logger:    opts.Logger,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.load()
	return s
}

func (s *Store[V]) load() {
	if s.backend == nil {
		return
	}

	raw, err := s.backend.Get(s.namespace)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.logger.Warn("cache load failed, starting empty", "namespace", s.namespace, "error", err)
		}
		return
	}

	var stored map[string]entry[V]
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("cache state unreadable, starting empty", "namespace", s.namespace, "error", err)
		return
	}

	now := s.now()
	for k, e := range stored {
		if !s.expired(e, now) {
			s.entries[k] = e
		}
	}
	if len(s.entries) > 0 {
		s.logger.Debug("cache loaded", "namespace", s.namespace, "entries", len(s.entries))
	}
}

func (s *Store[V]) expired(e entry[V], now time.Time) bool {
	return now.UnixMilli()-e.Timestamp > s.ttl.Milliseconds()
}

// Get returns the stored value for key. An expired entry is evicted and
// reported as absent.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	e, ok := s.entries[key]
	if !ok {
		return zero, false
	}
	if s.expired(e, s.now()) {
		delete(s.entries, key)
		s.persistLocked()
		return zero, false
	}
	return e.Data, true
}

// Set compresses value, stores it under key with the current time, and
// persists the map.
func (s *Store[V]) Set(key string, value V) {
	if s.compress != nil {
		value = s.compress(value)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry[V]{Data: value, Timestamp: s.now().UnixMilli()}
	s.persistLocked()
}

// Delete removes key and persists the map.
func (s *Store[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return
	}
	delete(s.entries, key)
	s.persistLocked()
}

// Clear empties the cache and removes its persisted state.
func (s *Store[V]) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry[V])
	if s.backend == nil {
		return nil
	}
	return s.backend.Delete(s.namespace)
}

// Len returns the number of entries, expired ones included until evicted.
func (s *Store[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Keys returns the cached keys in sorted order.
func (s *Store[V]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the cache.
func (s *Store[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Namespace:     s.namespace,
		Size:          len(s.entries),
		Pruned:        s.pruned,
		PersistFailed: s.persistFailed,
	}
}

func (s *Store[V]) persistLocked() {
	if s.backend == nil {
		return
	}

	err := s.writeLocked()
	if err == nil {
		return
	}
	if !errors.Is(err, kvstore.ErrCapacity) {
		s.persistFailed++
		s.logger.Warn("cache persist failed", "namespace", s.namespace, "error", err)
		return
	}

	n := s.pruneLocked()
	s.logger.Warn("cache store full, pruned oldest entries", "namespace", s.namespace, "pruned", n)
	if err := s.writeLocked(); err != nil {
		s.persistFailed++
		s.logger.Warn("cache persist failed after prune, keeping memory only", "namespace", s.namespace, "error", err)
	}
}

func (s *Store[V]) writeLocked() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return err
	}
	return s.backend.Put(s.namespace, data)
}

// pruneLocked drops the oldest ceil(30%) of entries by timestamp.
func (s *Store[V]) pruneLocked() int {
	type aged struct {
		key string
		ts  int64
	}
	all := make([]aged, 0, len(s.entries))
	for k, e := range s.entries {
		all = append(all, aged{k, e.Timestamp})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].ts != all[j].ts {
			return all[i].ts < all[j].ts
		}
		return all[i].key < all[j].key
	})

	n := int(math.Ceil(float64(len(all)) * pruneFraction))
	for _, a := range all[:n] {
		delete(s.entries, a.key)
	}
	s.pruned += n
	return n
}
