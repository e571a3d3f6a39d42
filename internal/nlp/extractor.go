// Package nlp turns normalized command text into a classified intent and a
// set of typed entities. Extraction runs as a fixed two-variant ensemble
// (model-backed primary, pattern-based fallback) behind one interface;
// classification is model-first with a deterministic rule fallback.
package nlp

import (
	"context"

	"voicecart/internal/model"
)

// Extractor produces candidate entities from command text.
type Extractor interface {
	// Extract returns entities in span order. Spans are byte offsets
	// into text and must lie within its bounds.
	Extract(ctx context.Context, text string) ([]model.Entity, error)

	// Name identifies the extractor variant in logs.
	Name() string
}

// EntityModel is the model backend consumed by the primary extractor.
// Implemented by the OpenAI-compatible client; nil disables the model path.
type EntityModel interface {
	ExtractEntities(ctx context.Context, text string) ([]model.Entity, error)
	IsEnabled() bool
}

// IntentModel is the model backend consumed by the intent classifier.
type IntentModel interface {
	ClassifyIntent(ctx context.Context, text string) (model.IntentType, float64, error)
	IsEnabled() bool
}

// ModelExtractor adapts an EntityModel to the Extractor interface.
type ModelExtractor struct {
	backend EntityModel
}

// NewModelExtractor wraps a model backend as an extractor variant.
func NewModelExtractor(backend EntityModel) *ModelExtractor {
	return &ModelExtractor{backend: backend}
}

// Name implements Extractor.
func (e *ModelExtractor) Name() string { return "model" }

// Extract implements Extractor. Entities outside the text bounds (a model
// may hallucinate spans) are clamped or dropped.
func (e *ModelExtractor) Extract(ctx context.Context, text string) ([]model.Entity, error) {
	entities, err := e.backend.ExtractEntities(ctx, text)
	if err != nil {
		return nil, err
	}

	valid := entities[:0]
	for _, ent := range entities {
		if ent.Start < 0 || ent.End > len(text) || ent.Start >= ent.End {
			continue
		}
		ent.Source = model.SourceModel
		valid = append(valid, ent)
	}
	return valid, nil
}

// Available reports whether the model backend can be called at all.
func (e *ModelExtractor) Available() bool {
	return e.backend != nil && e.backend.IsEnabled()
}
