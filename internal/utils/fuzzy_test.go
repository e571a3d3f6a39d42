package utils

import "testing"

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"shirt", "shirt", 0},
		{"shirt", "shirts", 1},
		{"shirt", "short", 1},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		if got := Levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("Levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSingularize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"shirts", "shirt"},
		{"dresses", "dress"},
		{"watches", "watch"},
		{"accessories", "accessory"},
		{"jeans", "jean"},
		{"dress", "dress"},
		{"xs", "xs"},
	}

	for _, tt := range tests {
		if got := Singularize(tt.in); got != tt.want {
			t.Errorf("Singularize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		product string
		min     float64
		max     float64
	}{
		{name: "exact", query: "red shirt", product: "Red Shirt", min: 1.0, max: 1.0},
		{name: "plural", query: "shirts", product: "shirt", min: 0.9, max: 1.0},
		{name: "contained", query: "shirt", product: "Cotton Crew Shirt", min: 0.6, max: 1.0},
		{name: "typo", query: "shrit", product: "shirt", min: 0.5, max: 0.95},
		{name: "unrelated", query: "laptop", product: "sandals", min: 0.0, max: 0.4},
		{name: "empty query", query: "", product: "shirt", min: 0.0, max: 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.query, tt.product)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %.3f, want within [%.2f, %.2f]",
					tt.query, tt.product, got, tt.min, tt.max)
			}
		})
	}
}

func TestSimilarity_OrderingForGrounding(t *testing.T) {
	// The resolver relies on the right product scoring strictly higher
	// than loosely related ones.
	query := "blue jeans"
	better := Similarity(query, "Blue Jeans")
	worse := Similarity(query, "Blue Jacket")
	if better <= worse {
		t.Errorf("Expected %q to outscore %q for query %q (%.3f vs %.3f)",
			"Blue Jeans", "Blue Jacket", query, better, worse)
	}
}
