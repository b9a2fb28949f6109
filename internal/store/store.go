// Package store implements the pipeline's one piece of genuinely shared
// mutable state: the central MetricSnapshot publish point (spec §3, §9).
// Every HRV metric and composite index is replaced here by key, and any
// number of downstream consumers can observe updates without triggering
// recomputation. Writes are serialized by the single-timeline property of
// the pipeline's event loop (spec §5); the mutex here exists only to make
// concurrent reads from, e.g., a debug HTTP handler safe, not because the
// pipeline itself needs write concurrency.
package store

import (
	"sync"

	"biosignal/internal/bus"
	"biosignal/internal/model"
)

// Store is the central per-key scalar metric map plus its fan-out bus.
type Store struct {
	mu      sync.RWMutex
	metrics map[string]model.Metric
	updates *bus.Bus[model.Metric]
}

// New creates an empty store.
func New() *Store {
	return &Store{
		metrics: make(map[string]model.Metric),
		updates: bus.New[model.Metric](),
	}
}

// Set atomically replaces the value for name. There is no multi-key
// transaction — each key's replacement is independent, per spec §3.
func (s *Store) Set(name string, value float64, unit string, precision int) {
	m := model.Metric{Name: name, Value: value, Unit: unit, Precision: precision}
	s.mu.Lock()
	s.metrics[name] = m
	s.mu.Unlock()
	s.updates.Publish(m)
}

// Get returns the current value for name, and whether it has ever been
// set.
func (s *Store) Get(name string) (model.Metric, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.metrics[name]
	return m, ok
}

// Snapshot returns a copy of every metric currently held, keyed by name.
func (s *Store) Snapshot() map[string]model.Metric {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]model.Metric, len(s.metrics))
	for k, v := range s.metrics {
		out[k] = v
	}
	return out
}

// Subscribe returns a channel receiving every metric update published
// after this call (spec §6 MetricStream — one logical stream per metric,
// multiplexed here by name).
func (s *Store) Subscribe(bufferSize int) <-chan model.Metric {
	return s.updates.Subscribe(bufferSize)
}

// Unsubscribe detaches a previously subscribed channel.
func (s *Store) Unsubscribe(ch <-chan model.Metric) {
	s.updates.Unsubscribe(ch)
}

// Reset discards all metrics and drops all subscriptions, completing
// their channels. Called on session end (spec §3 lifecycle, §5
// cancellation).
func (s *Store) Reset() {
	s.mu.Lock()
	s.metrics = make(map[string]model.Metric)
	s.mu.Unlock()
	s.updates.Close()
	s.updates = bus.New[model.Metric]()
}
