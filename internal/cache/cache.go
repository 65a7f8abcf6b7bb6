// Package cache holds the derived-summary caches of the dashboard. Entries
// are pure functions of stored rates, so an import notification purges them.
package cache

import (
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fxrates/internal/metrics"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

// Store is a cache the Manager can expire and purge.
type Store interface {
	CleanExpired() int
	Purge()
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	mu          sync.Mutex
	caches      []Store
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
}

func NewManager() *Manager {
	return &Manager{
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup and purging.
func (m *Manager) Register(cache Store) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches = append(m.caches, cache)
}

// PurgeAll empties every registered cache.
func (m *Manager) PurgeAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.caches {
		c.Purge()
	}
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			cleaned := 0
			for _, c := range m.caches {
				cleaned += c.CleanExpired()
			}
			m.mu.Unlock()
			if cleaned > 0 {
				slog.Debug("Cleaned expired cache entries", "count", cleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop gracefully stops the cleanup routine
func (m *Manager) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = false
	m.mu.Unlock()
	if started {
		close(m.stopCleanup)
		<-m.cleanupDone
	}
}

// Loading pairs an LRU cache with request collapsing: concurrent misses on
// the same key run the loader once.
type Loading[T any] struct {
	name  string
	lru   *LRUCache[T]
	group singleflight.Group
}

func NewLoading[T any](name string, maxSize int, ttl time.Duration) *Loading[T] {
	return &Loading[T]{name: name, lru: NewLRUCache[T](maxSize, ttl)}
}

// GetOrLoad returns the cached value for key or runs load and caches a
// successful result.
func (l *Loading[T]) GetOrLoad(key string, load func() (T, error)) (T, error) {
	if v, ok := l.lru.Get(key); ok {
		metrics.ObserveCacheLookup(l.name, true)
		return v, nil
	}
	metrics.ObserveCacheLookup(l.name, false)

	v, err, _ := l.group.Do(key, func() (any, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		l.lru.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (l *Loading[T]) CleanExpired() int { return l.lru.CleanExpired() }
func (l *Loading[T]) Purge()            { l.lru.Purge() }
func (l *Loading[T]) Size() int         { return l.lru.Size() }
