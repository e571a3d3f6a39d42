// Package resolver turns raw extracted entities into catalog products and
// normalized attribute values, using the session's conversation context to
// resolve references like "it" or "the same".
package resolver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"voicecart/internal/catalog"
	"voicecart/internal/model"
	"voicecart/internal/session"
	"voicecart/internal/utils"
)

var (
	// ErrUnresolvedReference means the turn referred back to an earlier
	// product ("remove it") but the session has no referent.
	ErrUnresolvedReference = errors.New("reference has no antecedent in this conversation")

	// ErrProductNotFound means a named product matched nothing in the
	// catalog above the similarity threshold.
	ErrProductNotFound = errors.New("no catalog product matches")
)

// referenceWords are the anaphora the resolver recognizes, normalized.
var referenceWords = map[string]bool{
	"it": true, "that": true, "this": true, "them": true, "those": true,
	"the same": true, "that one": true, "the same one": true, "one": true,
}

var referenceRe = regexp.MustCompile(`(?i)\b(?:remove|delete|add|want|take|buy|get)\s+(it|that one|that|this|them|those|the same one|the same)\b`)

// Resolution is the resolver's structured output for one turn. Ambiguity
// and warnings are outcomes, not errors: the turn still completes.
type Resolution struct {
	// Entities mirrors the input with ResolvedValue populated where
	// resolution succeeded.
	Entities []model.Entity

	// Product is the grounded catalog product, nil when the turn names
	// none and no reference applied.
	Product *model.Product

	// FromReference is set when Product came from conversation context
	// rather than this turn's text.
	FromReference bool

	// Quantity is the parsed quantity, nil when the turn does not state
	// one. An explicit zero passes through so the cart can reject it.
	Quantity *int

	Price    *model.PriceRange
	Color    *string
	Size     *string
	Material *string
	Brand    *string

	// Ambiguity is set when several products matched too closely to pick
	// one; Product stays nil in that case.
	Ambiguity *model.Ambiguity

	Warnings []model.Warning
}

// Filters converts the resolution into catalog search constraints.
func (r *Resolution) Filters(query string) model.SearchFilters {
	return model.SearchFilters{
		Query:    query,
		Price:    r.Price,
		Color:    r.Color,
		Size:     r.Size,
		Material: r.Material,
		Brand:    r.Brand,
	}
}

// Resolver grounds entities against the catalog.
type Resolver struct {
	catalog         catalog.Store
	minSimilarity   float64
	ambiguityMargin float64
}

// New builds a resolver with the given matching thresholds.
func New(store catalog.Store, minSimilarity, ambiguityMargin float64) *Resolver {
	return &Resolver{
		catalog:         store,
		minSimilarity:   minSimilarity,
		ambiguityMargin: ambiguityMargin,
	}
}

// Resolve grounds one turn's entities. conv is read under the session lock
// held by the caller; the resolver never writes to it.
func (r *Resolver) Resolve(ctx context.Context, text string, entities []model.Entity, conv *session.Context) (*Resolution, error) {
	res := &Resolution{Entities: make([]model.Entity, len(entities))}
	copy(res.Entities, entities)

	for i := range res.Entities {
		ent := &res.Entities[i]
		switch ent.Type {
		case model.EntityQuantity:
			if q, ok := parseQuantity(ent.RawValue); ok {
				setResolved(ent, strconv.Itoa(q))
				res.Quantity = &q
			}
		case model.EntityPrice:
			if pr, ok := ParsePriceRange(ent.RawValue); ok {
				setResolved(ent, pr.String())
				res.Price = &pr
			}
		case model.EntityColor:
			v := strings.ToLower(strings.TrimSpace(ent.RawValue))
			setResolved(ent, v)
			res.Color = &v
		case model.EntitySize:
			v := NormalizeSize(ent.RawValue)
			setResolved(ent, v)
			res.Size = &v
		case model.EntityMaterial:
			v := strings.ToLower(strings.TrimSpace(ent.RawValue))
			setResolved(ent, v)
			res.Material = &v
		case model.EntityBrand:
			v := strings.TrimSpace(ent.RawValue)
			setResolved(ent, v)
			res.Brand = &v
		}
	}

	if err := r.resolveProduct(ctx, text, res, conv); err != nil {
		return nil, err
	}

	r.validateAttributes(res)
	return res, nil
}

// resolveProduct grounds the product mention, preferring an explicit name
// over a back-reference when both appear.
func (r *Resolver) resolveProduct(ctx context.Context, text string, res *Resolution, conv *session.Context) error {
	var productEnt *model.Entity
	for i := range res.Entities {
		if res.Entities[i].Type == model.EntityProduct {
			productEnt = &res.Entities[i]
			break
		}
	}

	if productEnt != nil && !isReference(productEnt.RawValue) {
		return r.ground(ctx, productEnt, res)
	}

	if productEnt != nil || hasReference(text) {
		if conv == nil || conv.LastProduct == nil {
			return ErrUnresolvedReference
		}
		product, err := r.catalog.Get(ctx, conv.LastProduct.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			// The referent left the catalog since it was mentioned.
			return ErrUnresolvedReference
		}
		res.Product = product
		res.FromReference = true
		if productEnt != nil {
			setResolved(productEnt, product.Name)
		}
	}
	return nil
}

// ground matches a named product against the catalog. The best candidate
// wins unless the runner-up scores within the ambiguity margin, in which
// case the turn surfaces the choice instead of guessing.
func (r *Resolver) ground(ctx context.Context, ent *model.Entity, res *Resolution) error {
	candidates, err := r.catalog.Find(ctx, ent.RawValue)
	if err != nil {
		return err
	}

	type scored struct {
		product model.Product
		score   float64
	}
	var qualified []scored
	for _, p := range candidates {
		if score := utils.Similarity(ent.RawValue, p.Name); score >= r.minSimilarity {
			qualified = append(qualified, scored{product: p, score: score})
		}
	}
	if len(qualified) == 0 {
		return fmt.Errorf("%w: %q", ErrProductNotFound, ent.RawValue)
	}

	sort.SliceStable(qualified, func(i, j int) bool {
		if qualified[i].score != qualified[j].score {
			return qualified[i].score > qualified[j].score
		}
		return qualified[i].product.ProductID < qualified[j].product.ProductID
	})

	best := qualified[0]
	var close []model.ProductRef
	for _, q := range qualified {
		if best.score-q.score <= r.ambiguityMargin {
			close = append(close, q.product.Ref())
		}
	}

	if len(close) > 1 {
		res.Ambiguity = &model.Ambiguity{
			Start:      ent.Start,
			End:        ent.End,
			RawValue:   ent.RawValue,
			Candidates: close,
		}
		return nil
	}

	product := best.product
	res.Product = &product
	setResolved(ent, product.Name)
	return nil
}

// validateAttributes checks requested attributes against the grounded
// product and emits a warning for each one the product cannot satisfy.
func (r *Resolver) validateAttributes(res *Resolution) {
	if res.Product == nil {
		return
	}
	p := res.Product

	if res.Color != nil && len(p.Colors) > 0 && !p.HasColor(*res.Color) {
		res.Warnings = append(res.Warnings, model.Warning{
			Field:     "color",
			Value:     *res.Color,
			Message:   fmt.Sprintf("%s is not available in %s", p.Name, *res.Color),
			Available: p.Colors,
		})
	}
	if res.Size != nil && len(p.Sizes) > 0 && !p.HasSize(*res.Size) {
		res.Warnings = append(res.Warnings, model.Warning{
			Field:     "size",
			Value:     *res.Size,
			Message:   fmt.Sprintf("%s is not available in size %s", p.Name, *res.Size),
			Available: p.Sizes,
		})
	}
	if res.Material != nil && len(p.Materials) > 0 && !p.HasMaterial(*res.Material) {
		res.Warnings = append(res.Warnings, model.Warning{
			Field:     "material",
			Value:     *res.Material,
			Message:   fmt.Sprintf("%s does not come in %s", p.Name, *res.Material),
			Available: p.Materials,
		})
	}
}

func setResolved(ent *model.Entity, value string) {
	v := value
	ent.ResolvedValue = &v
}

func isReference(raw string) bool {
	return referenceWords[strings.ToLower(strings.TrimSpace(raw))]
}

func hasReference(text string) bool {
	return referenceRe.MatchString(text)
}
