package model

import "time"

// CartItem is one line of a session's cart. UnitPrice is snapshotted at
// add time so later catalog price changes do not alter the cart total.
type CartItem struct {
	Product   ProductRef `json:"product"`
	Quantity  int        `json:"quantity"`
	Size      *string    `json:"size,omitempty"`
	Color     *string    `json:"color,omitempty"`
	UnitPrice float64    `json:"unit_price"`
	AddedAt   time.Time  `json:"added_at"`
}

// LineTotal returns quantity x unit price for this line.
func (i CartItem) LineTotal() float64 {
	return float64(i.Quantity) * i.UnitPrice
}

// SameLine reports whether another item targets the same cart line,
// i.e. identical (product_id, size, color).
func (i CartItem) SameLine(other CartItem) bool {
	return i.Product.ProductID == other.Product.ProductID &&
		strPtrEqual(i.Size, other.Size) &&
		strPtrEqual(i.Color, other.Color)
}

// CartSummary is the derived view of a cart at a specific version.
type CartSummary struct {
	SessionID  string     `json:"session_id"`
	Items      []CartItem `json:"items"`
	TotalItems int        `json:"total_items"`
	TotalPrice float64    `json:"total_price"`
	Version    uint64     `json:"version"`
}

// SummarizeCart derives totals from cart lines.
func SummarizeCart(sessionID string, items []CartItem, version uint64) CartSummary {
	summary := CartSummary{
		SessionID: sessionID,
		Items:     items,
		Version:   version,
	}
	for _, item := range items {
		summary.TotalItems += item.Quantity
		summary.TotalPrice += item.LineTotal()
	}
	return summary
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
