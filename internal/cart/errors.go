package cart

import "errors"

var (
	// ErrQuantityLimitExceeded means a line would exceed the per-line
	// quantity cap. The cart is left untouched.
	ErrQuantityLimitExceeded = errors.New("quantity exceeds the per-line limit")

	// ErrCartLimitExceeded means the cart is already at its line cap.
	ErrCartLimitExceeded = errors.New("cart has reached its line limit")

	// ErrInsufficientStock means the requested quantity exceeds catalog
	// stock for the product.
	ErrInsufficientStock = errors.New("not enough stock")

	// ErrItemNotFound means a remove or update targeted a line the cart
	// does not contain.
	ErrItemNotFound = errors.New("item is not in the cart")

	// ErrInvalidQuantity rejects non-positive quantities on add.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrAttributeUnavailable means the requested size or color is not in
	// the product's available set. The cart is left untouched.
	ErrAttributeUnavailable = errors.New("attribute is not available for this product")
)
