package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

// ProductRef is the lightweight product identity cached from the catalog.
// It never owns catalog truth; stock and attribute sets live on Product.
type ProductRef struct {
	ProductID int64   `json:"product_id" db:"product_id"`
	Name      string  `json:"name" db:"name"`
	UnitPrice float64 `json:"unit_price" db:"unit_price"`
}

// Product is a full catalog record including stock and attribute sets.
type Product struct {
	ProductID int64           `json:"product_id" db:"product_id"`
	Name      string          `json:"name" db:"name"`
	Brand     *string         `json:"brand,omitempty" db:"brand"`
	Category  *string         `json:"category,omitempty" db:"category"`
	UnitPrice float64         `json:"unit_price" db:"unit_price"`
	Stock     int             `json:"stock" db:"stock"`
	Colors    JSONArray       `json:"colors,omitempty" db:"colors"`
	Sizes     JSONArray       `json:"sizes,omitempty" db:"sizes"`
	Materials JSONArray       `json:"materials,omitempty" db:"materials"`
	Embedding pgvector.Vector `json:"-" db:"embedding"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Ref returns the lightweight reference for this product.
func (p *Product) Ref() ProductRef {
	return ProductRef{ProductID: p.ProductID, Name: p.Name, UnitPrice: p.UnitPrice}
}

// HasColor reports whether the color is in the product's available set.
// An empty set means the attribute is unconstrained.
func (p *Product) HasColor(color string) bool { return p.Colors.containsFold(color) }

// HasSize reports whether the size is in the product's available set.
func (p *Product) HasSize(size string) bool { return p.Sizes.containsFold(size) }

// HasMaterial reports whether the material is in the product's available set.
func (p *Product) HasMaterial(material string) bool { return p.Materials.containsFold(material) }

// PriceRange is a normalized price constraint. Max == nil means unbounded.
type PriceRange struct {
	Min float64  `json:"min"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether a price falls inside the range.
func (r PriceRange) Contains(price float64) bool {
	if price < r.Min {
		return false
	}
	return r.Max == nil || price <= *r.Max
}

// String renders the range the way resolved entity values are displayed.
func (r PriceRange) String() string {
	if r.Max == nil {
		return fmt.Sprintf("$%.2f+", r.Min)
	}
	if r.Min == *r.Max {
		return fmt.Sprintf("$%.2f", r.Min)
	}
	return fmt.Sprintf("$%.2f-$%.2f", r.Min, *r.Max)
}

// SearchFilters are the client-visible constraints applied to catalog search.
type SearchFilters struct {
	Query    string      `json:"query,omitempty"`
	Price    *PriceRange `json:"price,omitempty"`
	Color    *string     `json:"color,omitempty"`
	Size     *string     `json:"size,omitempty"`
	Material *string     `json:"material,omitempty"`
	Brand    *string     `json:"brand,omitempty"`
	Category *string     `json:"category,omitempty"`
	InStock  bool        `json:"in_stock,omitempty"`
}

// JSONArray handles PostgreSQL JSONB array scanning for attribute sets.
type JSONArray []string

// Scan implements sql.Scanner for JSONB columns.
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan JSONArray: expected []byte, got %T", value)
	}
	return json.Unmarshal(bytes, j)
}

// Value implements driver.Valuer for JSONB columns.
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j JSONArray) containsFold(s string) bool {
	if len(j) == 0 {
		return true
	}
	for _, v := range j {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
