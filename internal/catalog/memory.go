package catalog

import (
	"context"
	"sort"
	"strings"

	"voicecart/internal/model"
	"voicecart/internal/utils"
)

// candidateFloor is the minimum similarity for a product to appear as a
// Find candidate at all; the resolver applies its stricter threshold on top.
const candidateFloor = 0.3

// Memory is an in-memory catalog used for tests and for running without a
// database. It is immutable after construction and therefore safe for
// concurrent reads.
type Memory struct {
	products []model.Product
	byID     map[int64]*model.Product
}

// NewMemory builds an in-memory catalog. Products are kept sorted by
// product ID so candidate ordering is deterministic.
func NewMemory(products []model.Product) *Memory {
	sorted := make([]model.Product, len(products))
	copy(sorted, products)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ProductID < sorted[j].ProductID
	})

	byID := make(map[int64]*model.Product, len(sorted))
	for i := range sorted {
		byID[sorted[i].ProductID] = &sorted[i]
	}
	return &Memory{products: sorted, byID: byID}
}

// Find returns products whose name loosely matches the query, best first;
// equal scores keep ascending product ID order.
func (m *Memory) Find(ctx context.Context, query string) ([]model.Product, error) {
	type scored struct {
		product model.Product
		score   float64
	}

	var matches []scored
	for _, p := range m.products {
		score := utils.Similarity(query, p.Name)
		if p.Category != nil {
			if s := utils.Similarity(query, *p.Category); s > score {
				score = s
			}
		}
		if score >= candidateFloor {
			matches = append(matches, scored{product: p, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	results := make([]model.Product, len(matches))
	for i, s := range matches {
		results[i] = s.product
	}
	return results, nil
}

// FindByFilters returns products matching all provided constraints,
// ordered by ascending product ID.
func (m *Memory) FindByFilters(ctx context.Context, filters model.SearchFilters) ([]model.Product, error) {
	var results []model.Product
	for _, p := range m.products {
		if !matchesFilters(&p, filters) {
			continue
		}
		results = append(results, p)
	}
	return results, nil
}

// Get returns the product with the given ID, or nil.
func (m *Memory) Get(ctx context.Context, productID int64) (*model.Product, error) {
	p, ok := m.byID[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func matchesFilters(p *model.Product, f model.SearchFilters) bool {
	if f.Query != "" && utils.Similarity(f.Query, p.Name) < candidateFloor {
		return false
	}
	if f.Price != nil && !f.Price.Contains(p.UnitPrice) {
		return false
	}
	if f.Color != nil && len(p.Colors) > 0 && !p.HasColor(*f.Color) {
		return false
	}
	if f.Size != nil && len(p.Sizes) > 0 && !p.HasSize(*f.Size) {
		return false
	}
	if f.Material != nil && len(p.Materials) > 0 && !p.HasMaterial(*f.Material) {
		return false
	}
	if f.Brand != nil {
		if p.Brand == nil || !strings.EqualFold(*p.Brand, *f.Brand) {
			return false
		}
	}
	if f.Category != nil {
		if p.Category == nil || !strings.EqualFold(*p.Category, *f.Category) {
			return false
		}
	}
	if f.InStock && p.Stock <= 0 {
		return false
	}
	return true
}
