package nlp

import (
	"context"
	"log"
	"sort"

	"voicecart/internal/model"
)

// Ensemble runs the model extractor first and the pattern extractor
// unconditionally, then merges the two entity sets. When the model variant
// is unavailable or fails, extraction degrades to patterns alone and the
// surviving confidences are scaled down by the degradation factor.
type Ensemble struct {
	primary     *ModelExtractor
	fallback    *PatternExtractor
	degradation float64
}

// NewEnsemble builds the extraction ensemble. primary may be nil.
func NewEnsemble(primary *ModelExtractor, fallback *PatternExtractor, degradation float64) *Ensemble {
	return &Ensemble{primary: primary, fallback: fallback, degradation: degradation}
}

// Extract returns the merged entity set for text and whether the result is
// degraded (pattern-only). It never returns an error: the pattern variant
// cannot fail, and a failing model variant is what degradation is for.
func (e *Ensemble) Extract(ctx context.Context, text string) ([]model.Entity, bool) {
	patterned, _ := e.fallback.Extract(ctx, text)

	if e.primary == nil || !e.primary.Available() {
		return degrade(patterned, e.degradation), true
	}

	modeled, err := e.primary.Extract(ctx, text)
	if err != nil {
		log.Printf("⚠️ Model extraction failed, degrading to patterns: %v", err)
		return degrade(patterned, e.degradation), true
	}

	return mergeEntities(modeled, patterned), false
}

// mergeEntities combines two variants' entities. Overlapping spans of the
// same type collapse to the higher-confidence entity; on an exact tie the
// model variant wins. Non-overlapping entities from both variants survive.
func mergeEntities(modeled, patterned []model.Entity) []model.Entity {
	merged := make([]model.Entity, len(modeled))
	copy(merged, modeled)

	for _, p := range patterned {
		replaced := false
		conflicting := false
		for i := range merged {
			if merged[i].Type != p.Type || !merged[i].Overlaps(p) {
				continue
			}
			conflicting = true
			if p.Confidence > merged[i].Confidence {
				merged[i] = p
				replaced = true
			}
			break
		}
		if !conflicting && !replaced {
			merged = append(merged, p)
		}
	}

	sortEntities(merged)
	return merged
}

// degrade scales confidences for a pattern-only result.
func degrade(entities []model.Entity, factor float64) []model.Entity {
	for i := range entities {
		entities[i].Confidence *= factor
	}
	return entities
}

// sortEntities orders entities by span start, then by type for equal starts,
// so output ordering is stable across runs.
func sortEntities(entities []model.Entity) {
	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Start != entities[j].Start {
			return entities[i].Start < entities[j].Start
		}
		return entities[i].Type < entities[j].Type
	})
}
