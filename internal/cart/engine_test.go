package cart

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecart/internal/config"
	"voicecart/internal/model"
)

func str(s string) *string { return &s }

func testProduct(id int64, name string, price float64, stock int) *model.Product {
	return &model.Product{ProductID: id, Name: name, UnitPrice: price, Stock: stock}
}

func newTestEngine() *Engine {
	return NewEngine(config.CartConfig{MaxQuantityPerLine: 100, MaxLines: 50})
}

func TestAdd_NewLine(t *testing.T) {
	engine := newTestEngine()

	summary, err := engine.Add("s1", testProduct(1, "Red Shirt", 25, 30), 2, str("m"), str("red"))
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, 2, summary.Items[0].Quantity)
	assert.Equal(t, 25.0, summary.Items[0].UnitPrice)
	assert.Equal(t, 2, summary.TotalItems)
	assert.Equal(t, 50.0, summary.TotalPrice)
	assert.Equal(t, uint64(1), summary.Version)
}

func TestAdd_MergesSameLine(t *testing.T) {
	engine := newTestEngine()
	shirt := testProduct(1, "Red Shirt", 25, 30)

	_, err := engine.Add("s1", shirt, 2, str("m"), str("red"))
	require.NoError(t, err)
	summary, err := engine.Add("s1", shirt, 3, str("m"), str("red"))
	require.NoError(t, err)

	require.Len(t, summary.Items, 1, "same (product, size, color) must merge")
	assert.Equal(t, 5, summary.Items[0].Quantity)
	assert.Equal(t, uint64(2), summary.Version)
}

func TestAdd_DifferentAttributesMakeSeparateLines(t *testing.T) {
	engine := newTestEngine()
	shirt := testProduct(1, "Red Shirt", 25, 30)

	_, err := engine.Add("s1", shirt, 1, str("m"), nil)
	require.NoError(t, err)
	summary, err := engine.Add("s1", shirt, 1, str("l"), nil)
	require.NoError(t, err)

	assert.Len(t, summary.Items, 2)
}

func TestAdd_QuantityCapCountsMergedTotal(t *testing.T) {
	engine := newTestEngine()
	shirt := testProduct(1, "Red Shirt", 25, 500)

	_, err := engine.Add("s1", shirt, 60, nil, nil)
	require.NoError(t, err)

	summary, err := engine.Add("s1", shirt, 41, nil, nil)
	require.ErrorIs(t, err, ErrQuantityLimitExceeded)
	// Rejected mutation leaves quantity and version untouched.
	assert.Equal(t, 60, summary.Items[0].Quantity)
	assert.Equal(t, uint64(1), summary.Version)

	summary, err = engine.Add("s1", shirt, 40, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, summary.Items[0].Quantity)
}

func TestAdd_InsufficientStock(t *testing.T) {
	engine := newTestEngine()
	scarce := testProduct(2, "Leather Jacket", 120, 3)

	summary, err := engine.Add("s1", scarce, 5, nil, nil)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, summary.Items)
	assert.Equal(t, uint64(0), summary.Version)
}

func TestAdd_LineLimit(t *testing.T) {
	engine := NewEngine(config.CartConfig{MaxQuantityPerLine: 100, MaxLines: 2})

	_, err := engine.Add("s1", testProduct(1, "A", 1, 10), 1, nil, nil)
	require.NoError(t, err)
	_, err = engine.Add("s1", testProduct(2, "B", 1, 10), 1, nil, nil)
	require.NoError(t, err)

	_, err = engine.Add("s1", testProduct(3, "C", 1, 10), 1, nil, nil)
	require.ErrorIs(t, err, ErrCartLimitExceeded)

	// Merging into an existing line is still allowed at the cap.
	summary, err := engine.Add("s1", testProduct(1, "A", 1, 10), 1, nil, nil)
	require.NoError(t, err)
	assert.Len(t, summary.Items, 2)
}

func TestAdd_InvalidQuantity(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.Add("s1", testProduct(1, "A", 1, 10), 0, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = engine.Add("s1", testProduct(1, "A", 1, 10), -2, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAdd_RejectsUnavailableSize(t *testing.T) {
	engine := newTestEngine()
	jeans := &model.Product{ProductID: 2, Name: "Blue Jeans", UnitPrice: 49.99, Stock: 12,
		Sizes: model.JSONArray{"s", "m", "l"}}

	summary, err := engine.Add("s1", jeans, 1, str("xl"), nil)
	require.ErrorIs(t, err, ErrAttributeUnavailable)
	assert.Empty(t, summary.Items)
	assert.Equal(t, uint64(0), summary.Version)
}

func TestAdd_RejectsUnavailableColor(t *testing.T) {
	engine := newTestEngine()
	jeans := &model.Product{ProductID: 2, Name: "Blue Jeans", UnitPrice: 49.99, Stock: 12,
		Colors: model.JSONArray{"blue", "black"}}

	_, err := engine.Add("s1", jeans, 1, nil, str("green"))
	require.ErrorIs(t, err, ErrAttributeUnavailable)

	// A product without a declared set accepts any requested value.
	_, err = engine.Add("s1", testProduct(3, "Scarf", 10, 5), 1, nil, str("green"))
	assert.NoError(t, err)
}

func TestAdd_PriceSnapshotSurvivesCatalogChange(t *testing.T) {
	engine := newTestEngine()
	shirt := testProduct(1, "Red Shirt", 25, 30)

	_, err := engine.Add("s1", shirt, 1, nil, nil)
	require.NoError(t, err)

	shirt.UnitPrice = 99
	summary := engine.Summary("s1")
	assert.Equal(t, 25.0, summary.Items[0].UnitPrice)
	assert.Equal(t, 25.0, summary.TotalPrice)
}

func TestRemove_WholeLine(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.Add("s1", testProduct(1, "Red Shirt", 25, 30), 4, nil, nil)
	require.NoError(t, err)

	summary, err := engine.Remove("s1", Selector{ProductID: 1})
	require.NoError(t, err)
	assert.Empty(t, summary.Items, "remove deletes the whole line regardless of quantity")
	assert.Equal(t, uint64(2), summary.Version)
}

func TestRemove_SelectorPrefersMostRecentMatch(t *testing.T) {
	engine := newTestEngine()
	shirt := testProduct(1, "Red Shirt", 25, 30)
	_, err := engine.Add("s1", shirt, 1, str("m"), nil)
	require.NoError(t, err)
	_, err = engine.Add("s1", shirt, 1, str("l"), nil)
	require.NoError(t, err)

	summary, err := engine.Remove("s1", Selector{ProductID: 1})
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, "m", *summary.Items[0].Size)
}

func TestRemove_BySizeSelector(t *testing.T) {
	engine := newTestEngine()
	shirt := testProduct(1, "Red Shirt", 25, 30)
	_, err := engine.Add("s1", shirt, 1, str("m"), nil)
	require.NoError(t, err)
	_, err = engine.Add("s1", shirt, 1, str("l"), nil)
	require.NoError(t, err)

	summary, err := engine.Remove("s1", Selector{ProductID: 1, Size: str("m")})
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, "l", *summary.Items[0].Size)
}

func TestRemove_LastItem(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.Add("s1", testProduct(1, "A", 1, 10), 1, nil, nil)
	require.NoError(t, err)
	_, err = engine.Add("s1", testProduct(2, "B", 2, 10), 1, nil, nil)
	require.NoError(t, err)

	summary, err := engine.Remove("s1", Selector{Last: true})
	require.NoError(t, err)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, int64(1), summary.Items[0].Product.ProductID)
}

func TestRemove_MissingItem(t *testing.T) {
	engine := newTestEngine()
	summary, err := engine.Remove("s1", Selector{ProductID: 9})
	require.ErrorIs(t, err, ErrItemNotFound)
	assert.Equal(t, uint64(0), summary.Version)
}

func TestUpdateQuantity(t *testing.T) {
	engine := newTestEngine()
	shirt := testProduct(1, "Red Shirt", 25, 30)
	_, err := engine.Add("s1", shirt, 2, nil, nil)
	require.NoError(t, err)

	summary, err := engine.UpdateQuantity("s1", Selector{ProductID: 1}, 7, shirt)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Items[0].Quantity)
	assert.Equal(t, uint64(2), summary.Version)

	// Zero removes the line.
	summary, err = engine.UpdateQuantity("s1", Selector{ProductID: 1}, 0, shirt)
	require.NoError(t, err)
	assert.Empty(t, summary.Items)

	_, err = engine.UpdateQuantity("s1", Selector{ProductID: 1}, 3, shirt)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateQuantity_RespectsStock(t *testing.T) {
	engine := newTestEngine()
	scarce := testProduct(2, "Leather Jacket", 120, 3)
	_, err := engine.Add("s1", scarce, 2, nil, nil)
	require.NoError(t, err)

	summary, err := engine.UpdateQuantity("s1", Selector{ProductID: 2}, 10, scarce)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 2, summary.Items[0].Quantity)
}

func TestClear(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.Add("s1", testProduct(1, "A", 1, 10), 1, nil, nil)
	require.NoError(t, err)

	summary := engine.Clear("s1")
	assert.Empty(t, summary.Items)
	assert.Equal(t, uint64(2), summary.Version)

	// Clearing an already-empty cart is still an accepted mutation.
	summary = engine.Clear("s1")
	assert.Equal(t, uint64(3), summary.Version)
}

func TestVersion_BumpsOnlyOnAcceptedMutations(t *testing.T) {
	engine := newTestEngine()
	shirt := testProduct(1, "Red Shirt", 25, 30)

	_, err := engine.Add("s1", shirt, 1, nil, nil)
	require.NoError(t, err)
	_, _ = engine.Add("s1", shirt, 500, nil, nil)
	_, _ = engine.Remove("s1", Selector{ProductID: 42})
	_ = engine.Summary("s1")

	assert.Equal(t, uint64(1), engine.Summary("s1").Version)
}

func TestCarts_AreIsolatedPerSession(t *testing.T) {
	engine := newTestEngine()
	_, err := engine.Add("a", testProduct(1, "A", 1, 10), 1, nil, nil)
	require.NoError(t, err)

	assert.Empty(t, engine.Summary("b").Items)
	engine.Drop("a")
	assert.Empty(t, engine.Summary("a").Items)
}

func TestAdd_ConcurrentMergesSerialize(t *testing.T) {
	engine := newTestEngine()
	shirt := testProduct(1, "Red Shirt", 25, 1000)

	const adders = 50
	var wg sync.WaitGroup
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.Add("s1", shirt, 1, nil, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	summary := engine.Summary("s1")
	require.Len(t, summary.Items, 1)
	assert.Equal(t, adders, summary.Items[0].Quantity)
	assert.Equal(t, uint64(adders), summary.Version)
}
