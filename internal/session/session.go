// Package session holds per-session conversation state: recent turns, the
// last mentioned product and entities, and activity timestamps. State is
// in-memory only; an idle session expires and comes back empty.
package session

import (
	"time"

	"voicecart/internal/model"
)

// Context is the conversation memory for one session. It is only ever
// accessed while the owning store holds that session's lock.
type Context struct {
	SessionID string

	// Turns is the bounded history, oldest first.
	Turns []model.Turn

	// LastProduct is the most recently resolved product, the referent
	// for "it"/"that" on later turns.
	LastProduct *model.ProductRef

	// LastEntities maps entity types to the most recent resolved value
	// of that type mentioned in the conversation.
	LastEntities map[model.EntityType]string

	LastActivity time.Time

	nextTurnID int64
	maxTurns   int
}

func newContext(sessionID string, maxTurns int) *Context {
	return &Context{
		SessionID:    sessionID,
		LastEntities: make(map[model.EntityType]string),
		LastActivity: time.Now(),
		nextTurnID:   1,
		maxTurns:     maxTurns,
	}
}

// RecordTurn appends a turn to the history, evicting the oldest entry once
// the bound is reached, and returns the turn's ID.
func (c *Context) RecordTurn(text string, intent model.Intent) int64 {
	id := c.nextTurnID
	c.nextTurnID++

	c.Turns = append(c.Turns, model.Turn{
		TurnID:    id,
		Text:      text,
		Intent:    intent,
		Timestamp: time.Now(),
	})
	if len(c.Turns) > c.maxTurns {
		c.Turns = c.Turns[len(c.Turns)-c.maxTurns:]
	}
	return id
}

// NoteProduct records a resolved product as the current referent.
func (c *Context) NoteProduct(ref model.ProductRef) {
	cp := ref
	c.LastProduct = &cp
	c.LastEntities[model.EntityProduct] = ref.Name
}

// NoteEntity records the resolved value of a non-product entity.
func (c *Context) NoteEntity(t model.EntityType, value string) {
	c.LastEntities[t] = value
}

// reset clears conversation state in place, keeping the session ID. Used
// when an expired session is touched again.
func (c *Context) reset() {
	c.Turns = nil
	c.LastProduct = nil
	c.LastEntities = make(map[model.EntityType]string)
	c.nextTurnID = 1
}

// snapshot returns a deep copy safe to read after the lock is released.
func (c *Context) snapshot() Context {
	cp := Context{
		SessionID:    c.SessionID,
		Turns:        make([]model.Turn, len(c.Turns)),
		LastEntities: make(map[model.EntityType]string, len(c.LastEntities)),
		LastActivity: c.LastActivity,
	}
	copy(cp.Turns, c.Turns)
	for k, v := range c.LastEntities {
		cp.LastEntities[k] = v
	}
	if c.LastProduct != nil {
		ref := *c.LastProduct
		cp.LastProduct = &ref
	}
	return cp
}
