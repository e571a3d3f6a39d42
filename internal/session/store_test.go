package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecart/internal/config"
	"voicecart/internal/model"
)

func testConfig() config.SessionConfig {
	return config.SessionConfig{
		IdleTimeout:   30 * time.Minute,
		SweepInterval: time.Minute,
		MaxHistory:    20,
	}
}

func TestStore_CreatesSessionOnFirstTouch(t *testing.T) {
	store := NewStore(testConfig())

	store.Do("s1", func(c *Context) {
		assert.Equal(t, "s1", c.SessionID)
		assert.Empty(t, c.Turns)
		assert.Nil(t, c.LastProduct)
	})
	assert.Equal(t, 1, store.Len())
}

func TestStore_StatePersistsAcrossTurns(t *testing.T) {
	store := NewStore(testConfig())

	store.Do("s1", func(c *Context) {
		c.RecordTurn("add a shirt", model.Intent{Type: model.IntentAdd})
		c.NoteProduct(model.ProductRef{ProductID: 7, Name: "Crew Shirt", UnitPrice: 25})
	})

	store.Do("s1", func(c *Context) {
		require.Len(t, c.Turns, 1)
		require.NotNil(t, c.LastProduct)
		assert.Equal(t, int64(7), c.LastProduct.ProductID)
		assert.Equal(t, "Crew Shirt", c.LastEntities[model.EntityProduct])
	})
}

func TestStore_TurnIDsAreMonotonic(t *testing.T) {
	store := NewStore(testConfig())

	var ids []int64
	for i := 0; i < 5; i++ {
		store.Do("s1", func(c *Context) {
			ids = append(ids, c.RecordTurn("turn", model.Intent{Type: model.IntentUnknown}))
		})
	}
	for i := 1; i < len(ids); i++ {
		assert.Equal(t, ids[i-1]+1, ids[i])
	}
}

func TestContext_HistoryIsBounded(t *testing.T) {
	cfg := testConfig()
	cfg.MaxHistory = 3
	store := NewStore(cfg)

	for i := 0; i < 10; i++ {
		text := fmt.Sprintf("turn %d", i)
		store.Do("s1", func(c *Context) {
			c.RecordTurn(text, model.Intent{Type: model.IntentUnknown})
		})
	}

	store.Do("s1", func(c *Context) {
		require.Len(t, c.Turns, 3)
		assert.Equal(t, "turn 7", c.Turns[0].Text)
		assert.Equal(t, "turn 9", c.Turns[2].Text)
		// Eviction never reuses turn IDs.
		assert.Equal(t, int64(10), c.Turns[2].TurnID)
	})
}

func TestStore_IdleSessionResetsOnNextTouch(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 10 * time.Millisecond
	store := NewStore(cfg)

	store.Do("s1", func(c *Context) {
		c.RecordTurn("add a shirt", model.Intent{Type: model.IntentAdd})
		c.NoteProduct(model.ProductRef{ProductID: 7, Name: "Crew Shirt", UnitPrice: 25})
	})

	time.Sleep(30 * time.Millisecond)

	store.Do("s1", func(c *Context) {
		assert.Empty(t, c.Turns, "expired session should come back empty")
		assert.Nil(t, c.LastProduct)
		assert.Equal(t, int64(1), c.RecordTurn("hello", model.Intent{Type: model.IntentUnknown}))
	})
}

func TestStore_SweepRemovesOnlyIdleSessions(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 20 * time.Millisecond
	store := NewStore(cfg)

	store.Do("stale", func(c *Context) {})
	time.Sleep(40 * time.Millisecond)
	store.Do("fresh", func(c *Context) {})

	removed := store.sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	_, ok := store.Snapshot("fresh")
	assert.True(t, ok)
	_, ok = store.Snapshot("stale")
	assert.False(t, ok)
}

func TestStore_SweepSparesSessionRefreshedMidSweep(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 20 * time.Millisecond
	store := NewStore(cfg)

	store.Do("s1", func(c *Context) {})
	e := store.entryFor("s1")

	// A turn in flight holds the entry lock. Back-date the session so the
	// sweeper sees it as expired, let the sweeper block on the lock, then
	// refresh activity the way a completing turn does.
	e.mu.Lock()
	e.ctx.LastActivity = time.Now().Add(-time.Hour)
	done := make(chan int, 1)
	go func() { done <- store.sweep() }()
	time.Sleep(20 * time.Millisecond)
	e.ctx.LastActivity = time.Now()
	e.mu.Unlock()

	assert.Equal(t, 0, <-done, "a session refreshed while sweeping must survive")
	_, ok := store.Snapshot("s1")
	assert.True(t, ok)
}

func TestStore_DoRetriesWhenEntryRemovedUnderfoot(t *testing.T) {
	store := NewStore(testConfig())
	store.Do("s1", func(c *Context) {
		c.RecordTurn("first", model.Intent{Type: model.IntentUnknown})
	})

	// Hold the entry lock, then remove the session while a Do is blocked
	// on it; the Do must retry against a fresh entry instead of writing to
	// the orphaned one.
	e := store.entryFor("s1")
	e.mu.Lock()
	go func() {
		time.Sleep(10 * time.Millisecond)
		store.Remove("s1")
		e.mu.Unlock()
	}()

	store.Do("s1", func(c *Context) {
		assert.Equal(t, int64(1), c.RecordTurn("second", model.Intent{Type: model.IntentUnknown}),
			"turn must land on a fresh session, not the removed entry")
	})

	snapshot, ok := store.Snapshot("s1")
	require.True(t, ok)
	require.Len(t, snapshot.Turns, 1)
	assert.Equal(t, "second", snapshot.Turns[0].Text)
}

func TestStore_OnEvictFiresForSweepAndLazyReset(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 10 * time.Millisecond
	store := NewStore(cfg)

	var mu sync.Mutex
	var evicted []string
	store.OnEvict = func(sessionID string) {
		mu.Lock()
		evicted = append(evicted, sessionID)
		mu.Unlock()
	}

	store.Do("swept", func(c *Context) {})
	store.Do("reset", func(c *Context) {})
	time.Sleep(30 * time.Millisecond)

	store.sweep()
	store.Do("reset", func(c *Context) {}) // recreated after sweep, then expires again
	time.Sleep(30 * time.Millisecond)
	store.Do("reset", func(c *Context) {})

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, evicted, "swept")
	assert.Contains(t, evicted, "reset")
}

func TestStore_SnapshotDoesNotRefreshActivity(t *testing.T) {
	cfg := testConfig()
	cfg.IdleTimeout = 20 * time.Millisecond
	store := NewStore(cfg)

	store.Do("s1", func(c *Context) {})
	time.Sleep(10 * time.Millisecond)
	_, ok := store.Snapshot("s1")
	require.True(t, ok)

	time.Sleep(15 * time.Millisecond)
	_, ok = store.Snapshot("s1")
	assert.False(t, ok, "snapshot must not count as activity")
}

func TestStore_ConcurrentTurnsOnOneSessionSerialize(t *testing.T) {
	store := NewStore(testConfig())

	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Do("s1", func(c *Context) {
				c.RecordTurn("turn", model.Intent{Type: model.IntentUnknown})
			})
		}()
	}
	wg.Wait()

	store.Do("s1", func(c *Context) {
		assert.Len(t, c.Turns, 20)
		assert.Equal(t, int64(turns), c.Turns[len(c.Turns)-1].TurnID)
	})
}

func TestStore_IndependentSessionsDoNotShareState(t *testing.T) {
	store := NewStore(testConfig())

	store.Do("a", func(c *Context) {
		c.NoteProduct(model.ProductRef{ProductID: 1, Name: "Shirt", UnitPrice: 10})
	})
	store.Do("b", func(c *Context) {
		assert.Nil(t, c.LastProduct)
	})
}
