package session

import (
	"context"
	"log"
	"sync"
	"time"

	"voicecart/internal/config"
)

// Store keeps all live session contexts. Access to a single session is
// serialized by a per-session mutex so concurrent turns for the same
// session apply one at a time; different sessions never contend.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	idleTimeout   time.Duration
	sweepInterval time.Duration
	maxTurns      int

	// OnEvict, when set, is called with the session ID whenever a session
	// expires, either swept in the background or reset in place on its next
	// touch. Must be set before traffic starts. The cart engine hooks in
	// here so a cart expires together with its session.
	OnEvict func(sessionID string)
}

type entry struct {
	mu  sync.Mutex
	ctx *Context
}

// NewStore builds an empty session store from config.
func NewStore(cfg config.SessionConfig) *Store {
	return &Store{
		sessions:      make(map[string]*entry),
		idleTimeout:   cfg.IdleTimeout,
		sweepInterval: cfg.SweepInterval,
		maxTurns:      cfg.MaxHistory,
	}
}

// Do runs fn with exclusive access to the session's context, creating the
// session on first touch. A session idle past the timeout is reset in
// place first, so an expired session behaves exactly like a new one.
// LastActivity is refreshed after fn returns.
func (s *Store) Do(sessionID string, fn func(*Context)) {
	for {
		e := s.entryFor(sessionID)
		e.mu.Lock()

		// The sweeper may have removed this entry between the map lookup
		// and the lock; if so, start over with a fresh entry.
		s.mu.RLock()
		current := s.sessions[sessionID] == e
		s.mu.RUnlock()
		if !current {
			e.mu.Unlock()
			continue
		}

		if time.Since(e.ctx.LastActivity) > s.idleTimeout {
			e.ctx.reset()
			if s.OnEvict != nil {
				s.OnEvict(sessionID)
			}
		}
		fn(e.ctx)
		e.ctx.LastActivity = time.Now()
		e.mu.Unlock()
		return
	}
}

// Snapshot returns a copy of the session's context without refreshing its
// activity, and false when the session does not exist or has expired.
func (s *Store) Snapshot(sessionID string) (Context, bool) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return Context{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if time.Since(e.ctx.LastActivity) > s.idleTimeout {
		return Context{}, false
	}
	return e.ctx.snapshot(), true
}

// Remove drops a session outright.
func (s *Store) Remove(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Len reports the number of tracked sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartSweeper launches the background goroutine that evicts idle
// sessions. It stops when ctx is cancelled.
func (s *Store) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.sweep(); n > 0 {
					log.Printf("🧹 Swept %d idle session(s)", n)
				}
			}
		}
	}()
}

// sweep removes sessions idle past the timeout. The expiry check and the
// map delete both happen while holding the entry's own lock, so a turn in
// flight (which holds that lock and refreshes LastActivity before
// releasing it) is never swept out from under its handler.
func (s *Store) sweep() int {
	s.mu.RLock()
	candidates := make(map[string]*entry)
	for id, e := range s.sessions {
		candidates[id] = e
	}
	s.mu.RUnlock()

	removed := 0
	for id, e := range candidates {
		e.mu.Lock()
		if time.Since(e.ctx.LastActivity) <= s.idleTimeout {
			e.mu.Unlock()
			continue
		}

		s.mu.Lock()
		// The map entry may have been replaced since the scan.
		deleted := false
		if current, ok := s.sessions[id]; ok && current == e {
			delete(s.sessions, id)
			deleted = true
			removed++
		}
		s.mu.Unlock()
		e.mu.Unlock()

		if deleted && s.OnEvict != nil {
			s.OnEvict(id)
		}
	}
	return removed
}

func (s *Store) entryFor(sessionID string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.sessions[sessionID]; ok {
		return e
	}
	e = &entry{ctx: newContext(sessionID, s.maxTurns)}
	s.sessions[sessionID] = e
	return e
}
