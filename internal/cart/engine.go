// Package cart implements the per-session cart with transactional
// semantics: a mutation either fully applies and bumps the cart version,
// or leaves the cart byte-for-byte unchanged.
package cart

import (
	"fmt"
	"sync"
	"time"

	"voicecart/internal/config"
	"voicecart/internal/model"
)

// Engine owns all session carts. Each cart has its own lock, so mutations
// on different sessions never contend; mutations on one session serialize.
type Engine struct {
	mu    sync.RWMutex
	carts map[string]*cartState

	maxQuantityPerLine int
	maxLines           int
}

type cartState struct {
	mu      sync.Mutex
	items   []model.CartItem
	version uint64
}

// NewEngine builds an empty cart engine from config.
func NewEngine(cfg config.CartConfig) *Engine {
	return &Engine{
		carts:              make(map[string]*cartState),
		maxQuantityPerLine: cfg.MaxQuantityPerLine,
		maxLines:           cfg.MaxLines,
	}
}

// Add puts quantity units of a product into the session's cart. A line
// with the same (product, size, color) is merged; the merged quantity must
// respect both the per-line cap and available stock, and a requested size
// or color must be in the product's available set, or nothing changes.
func (e *Engine) Add(sessionID string, product *model.Product, quantity int, size, color *string) (model.CartSummary, error) {
	c := e.cartFor(sessionID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity <= 0 {
		return e.summaryLocked(sessionID, c), ErrInvalidQuantity
	}
	if size != nil && len(product.Sizes) > 0 && !product.HasSize(*size) {
		return e.summaryLocked(sessionID, c), fmt.Errorf("%w: %s does not come in size %s",
			ErrAttributeUnavailable, product.Name, *size)
	}
	if color != nil && len(product.Colors) > 0 && !product.HasColor(*color) {
		return e.summaryLocked(sessionID, c), fmt.Errorf("%w: %s does not come in %s",
			ErrAttributeUnavailable, product.Name, *color)
	}

	line := -1
	for i := range c.items {
		if c.items[i].SameLine(model.CartItem{Product: product.Ref(), Size: size, Color: color}) {
			line = i
			break
		}
	}

	merged := quantity
	if line >= 0 {
		merged += c.items[line].Quantity
	}
	if merged > e.maxQuantityPerLine {
		return e.summaryLocked(sessionID, c), fmt.Errorf("%w: %d > %d for %s",
			ErrQuantityLimitExceeded, merged, e.maxQuantityPerLine, product.Name)
	}
	if merged > product.Stock {
		return e.summaryLocked(sessionID, c), fmt.Errorf("%w: %s has %d in stock, cart would hold %d",
			ErrInsufficientStock, product.Name, product.Stock, merged)
	}
	if line < 0 && len(c.items) >= e.maxLines {
		return e.summaryLocked(sessionID, c), fmt.Errorf("%w: %d lines", ErrCartLimitExceeded, e.maxLines)
	}

	if line >= 0 {
		c.items[line].Quantity = merged
	} else {
		c.items = append(c.items, model.CartItem{
			Product:   product.Ref(),
			Quantity:  quantity,
			Size:      clonePtr(size),
			Color:     clonePtr(color),
			UnitPrice: product.UnitPrice,
			AddedAt:   time.Now(),
		})
	}
	c.version++
	return e.summaryLocked(sessionID, c), nil
}

// Selector identifies cart lines for removal or update. A zero selector
// matches nothing; Last targets the most recently added line.
type Selector struct {
	ProductID int64
	Size      *string
	Color     *string
	Last      bool
}

func (s Selector) matches(item model.CartItem) bool {
	if s.ProductID == 0 || item.Product.ProductID != s.ProductID {
		return false
	}
	if s.Size != nil && !strEqualPtr(item.Size, s.Size) {
		return false
	}
	if s.Color != nil && !strEqualPtr(item.Color, s.Color) {
		return false
	}
	return true
}

// Remove deletes the whole matching line. When the selector matches
// several lines (same product, different size/color), the most recently
// added one goes.
func (e *Engine) Remove(sessionID string, sel Selector) (model.CartSummary, error) {
	c := e.cartFor(sessionID)
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := e.findLocked(c, sel)
	if idx < 0 {
		return e.summaryLocked(sessionID, c), ErrItemNotFound
	}

	c.items = append(c.items[:idx], c.items[idx+1:]...)
	c.version++
	return e.summaryLocked(sessionID, c), nil
}

// UpdateQuantity sets the matching line's quantity. Zero removes the line;
// the per-line cap and stock still apply when stock is known (product may
// be nil for sessions running without a catalog record).
func (e *Engine) UpdateQuantity(sessionID string, sel Selector, quantity int, product *model.Product) (model.CartSummary, error) {
	c := e.cartFor(sessionID)
	c.mu.Lock()
	defer c.mu.Unlock()

	if quantity < 0 {
		return e.summaryLocked(sessionID, c), ErrInvalidQuantity
	}

	idx := e.findLocked(c, sel)
	if idx < 0 {
		return e.summaryLocked(sessionID, c), ErrItemNotFound
	}

	if quantity == 0 {
		c.items = append(c.items[:idx], c.items[idx+1:]...)
		c.version++
		return e.summaryLocked(sessionID, c), nil
	}

	if quantity > e.maxQuantityPerLine {
		return e.summaryLocked(sessionID, c), fmt.Errorf("%w: %d > %d",
			ErrQuantityLimitExceeded, quantity, e.maxQuantityPerLine)
	}
	if product != nil && quantity > product.Stock {
		return e.summaryLocked(sessionID, c), fmt.Errorf("%w: %s has %d in stock",
			ErrInsufficientStock, product.Name, product.Stock)
	}

	c.items[idx].Quantity = quantity
	c.version++
	return e.summaryLocked(sessionID, c), nil
}

// Clear empties the session's cart and bumps the version, even when the
// cart was already empty: callers use the version as a fence, and an
// explicit clear is an accepted mutation either way.
func (e *Engine) Clear(sessionID string) model.CartSummary {
	c := e.cartFor(sessionID)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.version++
	return e.summaryLocked(sessionID, c)
}

// Summary returns the current cart view without mutating anything.
func (e *Engine) Summary(sessionID string) model.CartSummary {
	c := e.cartFor(sessionID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return e.summaryLocked(sessionID, c)
}

// Drop discards the session's cart entirely, e.g. after checkout or when
// the session expires.
func (e *Engine) Drop(sessionID string) {
	e.mu.Lock()
	delete(e.carts, sessionID)
	e.mu.Unlock()
}

// findLocked locates the selected line, preferring the most recent match.
func (e *Engine) findLocked(c *cartState, sel Selector) int {
	if sel.Last {
		return len(c.items) - 1
	}
	for i := len(c.items) - 1; i >= 0; i-- {
		if sel.matches(c.items[i]) {
			return i
		}
	}
	return -1
}

// summaryLocked snapshots the cart; items are copied so callers can hold
// the summary after the lock is gone.
func (e *Engine) summaryLocked(sessionID string, c *cartState) model.CartSummary {
	items := make([]model.CartItem, len(c.items))
	copy(items, c.items)
	return model.SummarizeCart(sessionID, items, c.version)
}

func (e *Engine) cartFor(sessionID string) *cartState {
	e.mu.RLock()
	c, ok := e.carts[sessionID]
	e.mu.RUnlock()
	if ok {
		return c
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if c, ok = e.carts[sessionID]; ok {
		return c
	}
	c = &cartState{}
	e.carts[sessionID] = c
	return c
}

func clonePtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func strEqualPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
