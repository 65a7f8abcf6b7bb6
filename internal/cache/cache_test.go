package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	_, _ = c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, 2, c.Size())
}

func TestLRUCache_TTL(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	now := time.Date(2024, 9, 2, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	now = now.Add(2 * time.Minute)

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	assert.Equal(t, 1, c.Size())

	c.Purge()
	assert.Equal(t, 0, c.Size())
	_, ok := c.Get("b")
	assert.False(t, ok)

	c.Set("c", 3)
	assert.Equal(t, 1, c.Size())
}

func TestLoading_CollapsesConcurrentMisses(t *testing.T) {
	l := NewLoading[int]("test", 10, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := l.GetOrLoad("k", func() (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	v, err := l.GetOrLoad("k", func() (int, error) { return 0, errors.New("not called") })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestLoading_ErrorsAreNotCached(t *testing.T) {
	l := NewLoading[int]("test", 10, time.Minute)
	_, err := l.GetOrLoad("k", func() (int, error) { return 0, errors.New("boom") })
	require.Error(t, err)
	assert.Equal(t, 0, l.Size())

	v, err := l.GetOrLoad("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestManager_PurgeAll(t *testing.T) {
	m := NewManager()
	a := NewLoading[int]("a", 10, time.Minute)
	b := NewLoading[string]("b", 10, time.Minute)
	m.Register(a)
	m.Register(b)

	_, _ = a.GetOrLoad("x", func() (int, error) { return 1, nil })
	_, _ = b.GetOrLoad("y", func() (string, error) { return "y", nil })

	m.StartCleanup(10 * time.Millisecond)
	m.PurgeAll()
	m.Stop()

	assert.Equal(t, 0, a.Size())
	assert.Equal(t, 0, b.Size())
}
