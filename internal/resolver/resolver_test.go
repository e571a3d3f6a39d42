package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicecart/internal/catalog"
	"voicecart/internal/model"
	"voicecart/internal/session"
)

func testCatalog() *catalog.Memory {
	brand := func(s string) *string { return &s }
	return catalog.NewMemory([]model.Product{
		{ProductID: 1, Name: "Blue Jeans", UnitPrice: 49.99, Stock: 12,
			Colors: model.JSONArray{"blue", "black"}, Sizes: model.JSONArray{"s", "m", "l"}},
		{ProductID: 2, Name: "Red Shirt", UnitPrice: 25, Stock: 30,
			Colors: model.JSONArray{"red", "white"}, Sizes: model.JSONArray{"s", "m", "l", "xl"}},
		{ProductID: 3, Name: "Blue Shirt", UnitPrice: 30, Stock: 8,
			Colors: model.JSONArray{"blue"}, Sizes: model.JSONArray{"m", "l"}},
		{ProductID: 4, Name: "Leather Jacket", UnitPrice: 120, Stock: 3,
			Brand: brand("Wrangler")},
	})
}

func newTestResolver() *Resolver {
	return New(testCatalog(), 0.55, 0.1)
}

func productEntity(raw string) model.Entity {
	return model.Entity{Type: model.EntityProduct, RawValue: raw, Confidence: 0.85, Start: 0, End: len(raw)}
}

func TestResolve_ExactProductName(t *testing.T) {
	res, err := newTestResolver().Resolve(context.Background(), "add a red shirt",
		[]model.Entity{productEntity("red shirt")}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Product)
	assert.Equal(t, int64(2), res.Product.ProductID)
	assert.Nil(t, res.Ambiguity)
	require.NotNil(t, res.Entities[0].ResolvedValue)
	assert.Equal(t, "Red Shirt", *res.Entities[0].ResolvedValue)
}

func TestResolve_PluralMatchesSingularCatalogName(t *testing.T) {
	res, err := newTestResolver().Resolve(context.Background(), "add jeans",
		[]model.Entity{productEntity("jeans")}, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Product)
	assert.Equal(t, "Blue Jeans", res.Product.Name)
}

func TestResolve_AmbiguousProductSurfacesCandidates(t *testing.T) {
	res, err := newTestResolver().Resolve(context.Background(), "add a shirt",
		[]model.Entity{productEntity("shirt")}, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Product, "ambiguous mention must not pick a winner")
	require.NotNil(t, res.Ambiguity)
	require.Len(t, res.Ambiguity.Candidates, 2)
	// Equal scores order by ascending product ID.
	assert.Equal(t, int64(2), res.Ambiguity.Candidates[0].ProductID)
	assert.Equal(t, int64(3), res.Ambiguity.Candidates[1].ProductID)
}

func TestResolve_UnknownProduct(t *testing.T) {
	_, err := newTestResolver().Resolve(context.Background(), "add a laptop",
		[]model.Entity{productEntity("laptop")}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProductNotFound))
}

func TestResolve_ReferenceUsesConversationContext(t *testing.T) {
	conv := &session.Context{SessionID: "s1"}
	conv.LastProduct = &model.ProductRef{ProductID: 1, Name: "Blue Jeans", UnitPrice: 49.99}

	res, err := newTestResolver().Resolve(context.Background(), "remove it from the cart", nil, conv)
	require.NoError(t, err)
	require.NotNil(t, res.Product)
	assert.Equal(t, int64(1), res.Product.ProductID)
	assert.True(t, res.FromReference)
}

func TestResolve_ReferenceEntityUsesConversationContext(t *testing.T) {
	conv := &session.Context{SessionID: "s1"}
	conv.LastProduct = &model.ProductRef{ProductID: 2, Name: "Red Shirt", UnitPrice: 25}

	res, err := newTestResolver().Resolve(context.Background(), "add two of them",
		[]model.Entity{productEntity("them")}, conv)
	require.NoError(t, err)
	require.NotNil(t, res.Product)
	assert.Equal(t, "Red Shirt", res.Product.Name)
	assert.True(t, res.FromReference)
}

func TestResolve_ReferenceWithoutAntecedentFails(t *testing.T) {
	tests := []struct {
		name string
		conv *session.Context
	}{
		{name: "no context", conv: nil},
		{name: "empty context", conv: &session.Context{SessionID: "s1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestResolver().Resolve(context.Background(), "remove it", nil, tt.conv)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnresolvedReference))
		})
	}
}

func TestResolve_ExplicitNameBeatsReference(t *testing.T) {
	conv := &session.Context{SessionID: "s1"}
	conv.LastProduct = &model.ProductRef{ProductID: 1, Name: "Blue Jeans", UnitPrice: 49.99}

	res, err := newTestResolver().Resolve(context.Background(), "add a leather jacket",
		[]model.Entity{productEntity("leather jacket")}, conv)
	require.NoError(t, err)
	require.NotNil(t, res.Product)
	assert.Equal(t, int64(4), res.Product.ProductID)
	assert.False(t, res.FromReference)
}

func TestResolve_AttributeWarnings(t *testing.T) {
	entities := []model.Entity{
		productEntity("jeans"),
		{Type: model.EntityColor, RawValue: "red", Start: 20, End: 23},
		{Type: model.EntitySize, RawValue: "XL", Start: 24, End: 26},
	}

	res, err := newTestResolver().Resolve(context.Background(), "add red jeans in XL", entities, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Product)
	require.Len(t, res.Warnings, 2)

	assert.Equal(t, "color", res.Warnings[0].Field)
	assert.Equal(t, "red", res.Warnings[0].Value)
	assert.Equal(t, []string{"blue", "black"}, res.Warnings[0].Available)

	assert.Equal(t, "size", res.Warnings[1].Field)
	assert.Equal(t, "xl", res.Warnings[1].Value)
}

func TestResolve_QuantityAndPriceNormalization(t *testing.T) {
	entities := []model.Entity{
		{Type: model.EntityQuantity, RawValue: "two", Start: 4, End: 7},
		{Type: model.EntityPrice, RawValue: "under $50", Start: 14, End: 23},
	}

	res, err := newTestResolver().Resolve(context.Background(), "add two shirts under $50", entities, nil)
	require.NoError(t, err)
	require.NotNil(t, res.Quantity)
	assert.Equal(t, 2, *res.Quantity)
	require.NotNil(t, res.Price)
	assert.Equal(t, 0.0, res.Price.Min)
	require.NotNil(t, res.Price.Max)
	assert.Equal(t, 50.0, *res.Price.Max)
}

func TestParsePriceRange(t *testing.T) {
	max := func(v float64) *float64 { return &v }
	tests := []struct {
		raw     string
		wantMin float64
		wantMax *float64
	}{
		{"under $100", 0, max(100)},
		{"less than 40", 0, max(40)},
		{"over $30", 30, nil},
		{"between $20 and $100", 20, max(100)},
		{"between $100 and $20", 20, max(100)},
		{"$20-$100", 20, max(100)},
		{"$19.99", 19.99, max(19.99)},
		{"around $50", 40, max(60)},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := ParsePriceRange(tt.raw)
			require.True(t, ok)
			assert.InDelta(t, tt.wantMin, got.Min, 0.001)
			if tt.wantMax == nil {
				assert.Nil(t, got.Max)
			} else {
				require.NotNil(t, got.Max)
				assert.InDelta(t, *tt.wantMax, *got.Max, 0.001)
			}
		})
	}

	if _, ok := ParsePriceRange("cheap"); ok {
		t.Error("Expected no range for a priceless mention")
	}
}

func TestNormalizeSize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"extra large", "xl"},
		{"Medium", "m"},
		{"XL", "xl"},
		{"8", "8"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeSize(tt.in))
	}
}
