package nlp

import (
	"context"
	"regexp"
	"strings"

	"voicecart/internal/model"
)

// pattern pairs a compiled expression with the entity type it yields and a
// fixed confidence. Patterns within a type are ordered most-specific first;
// span-overlap dedup later keeps the higher-confidence match.
type pattern struct {
	re         *regexp.Regexp
	entityType model.EntityType
	confidence float64
	// group selects the capture group used as the raw value; 0 means the
	// whole match.
	group int
}

var quantityPatterns = []pattern{
	{regexp.MustCompile(`(?i)\b(\d{1,3})\s+(?:pieces?|items?|pairs?|units?)\b`), model.EntityQuantity, 0.95, 1},
	{regexp.MustCompile(`(?i)\b(one|two|three|four|five|six|seven|eight|nine|ten)\b`), model.EntityQuantity, 0.9, 1},
	{regexp.MustCompile(`(?i)\ba\s+pair\s+of\b`), model.EntityQuantity, 0.85, 0},
	{regexp.MustCompile(`(?i)\ba\s+couple\s+of\b`), model.EntityQuantity, 0.8, 0},
	{regexp.MustCompile(`(?i)\ba\s+few\b`), model.EntityQuantity, 0.6, 0},
	{regexp.MustCompile(`\b(\d{1,3})\b`), model.EntityQuantity, 0.7, 1},
}

var pricePatterns = []pattern{
	{regexp.MustCompile(`(?i)\bbetween\s+\$?(\d+(?:\.\d{1,2})?)\s+and\s+\$?(\d+(?:\.\d{1,2})?)`), model.EntityPrice, 0.9, 0},
	{regexp.MustCompile(`(?i)\$(\d+(?:\.\d{1,2})?)\s*(?:-|to)\s*\$?(\d+(?:\.\d{1,2})?)`), model.EntityPrice, 0.9, 0},
	{regexp.MustCompile(`(?i)\b(?:under|below|less\s+than|at\s+most|cheaper\s+than)\s+\$?(\d+(?:\.\d{1,2})?)`), model.EntityPrice, 0.85, 0},
	{regexp.MustCompile(`(?i)\b(?:over|above|more\s+than|at\s+least)\s+\$?(\d+(?:\.\d{1,2})?)`), model.EntityPrice, 0.85, 0},
	{regexp.MustCompile(`(?i)\b(?:around|about|roughly)\s+\$?(\d+(?:\.\d{1,2})?)`), model.EntityPrice, 0.75, 0},
	{regexp.MustCompile(`\$(\d+(?:\.\d{1,2})?)\b`), model.EntityPrice, 0.9, 0},
}

var colorPatterns = []pattern{
	{regexp.MustCompile(`(?i)\b(?:(?:dark|light|bright|pale)\s+)?(black|white|red|blue|green|yellow|orange|purple|pink|brown|grey|gray|navy|beige|maroon|teal|olive|cream|gold|silver)\b`), model.EntityColor, 0.9, 0},
}

var sizePatterns = []pattern{
	{regexp.MustCompile(`(?i)\bsize\s+(xs|s|m|l|xl|xxl|\d{1,2}(?:\.\d)?)\b`), model.EntitySize, 0.95, 1},
	{regexp.MustCompile(`(?i)\b(extra\s+small|extra\s+large|small|medium|large)\b`), model.EntitySize, 0.85, 1},
	{regexp.MustCompile(`(?i)\b(xs|xl|xxl)\b`), model.EntitySize, 0.8, 1},
}

var materialPatterns = []pattern{
	{regexp.MustCompile(`(?i)\b(?:made\s+(?:of|from)\s+)?(cotton|silk|wool|polyester|leather|denim|linen|suede|cashmere|nylon)\b`), model.EntityMaterial, 0.9, 1},
}

var brandPatterns = []pattern{
	{regexp.MustCompile(`(?i)\b(nike|adidas|puma|reebok|levi'?s|wrangler|zara|uniqlo|gucci|prada)\b`), model.EntityBrand, 0.9, 1},
	{regexp.MustCompile(`(?i)\b(?:by|from)\s+([a-z][a-z&'-]{2,})\b`), model.EntityBrand, 0.65, 1},
}

var productPatterns = []pattern{
	{regexp.MustCompile(`(?i)\b(t-?shirts?|shirts?|dress(?:es)?|jeans|trousers?|pants|shorts|skirts?|jackets?|coats?|sweaters?|hoodies?|blouses?|suits?|socks|shoes?|sneakers?|boots?|sandals?|heels|slippers?|hats?|caps?|scar(?:f|ves)|belts?|gloves?|bags?|backpacks?|wallets?|watch(?:es)?|sunglasses|headphones?|earbuds?|phones?|laptops?|tablets?|speakers?|chargers?|umbrellas?)\b`), model.EntityProduct, 0.85, 0},
}

// patternTables is the full ordered extraction table. Price and size run
// before quantity so that digits inside "$100" or "size 8" are never
// double-counted as a standalone quantity.
var patternTables = [][]pattern{
	pricePatterns,
	sizePatterns,
	quantityPatterns,
	colorPatterns,
	materialPatterns,
	brandPatterns,
	productPatterns,
}

// stopBrands are words the loose "by <word>" brand pattern must never
// capture; they follow "by"/"from" in ordinary commands.
var stopBrands = map[string]bool{
	"the": true, "my": true, "cart": true, "now": true, "size": true,
	"that": true, "this": true, "them": true,
}

// PatternExtractor extracts entities with compiled regular expressions and
// closed vocabularies. It never fails and carries no state, so a single
// instance serves all sessions concurrently.
type PatternExtractor struct{}

// NewPatternExtractor returns the pattern-based extractor variant.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

// Name implements Extractor.
func (e *PatternExtractor) Name() string { return "pattern" }

// Extract implements Extractor. Overlapping spans of the same type keep
// only the first (most specific) pattern's match; a quantity never
// survives inside an already-taken price or size span.
func (e *PatternExtractor) Extract(ctx context.Context, text string) ([]model.Entity, error) {
	var taken []model.Entity

	for _, table := range patternTables {
		for _, p := range table {
			for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
				start, end := loc[0], loc[1]
				rawStart, rawEnd := start, end
				if p.group > 0 && len(loc) > 2*p.group && loc[2*p.group] >= 0 {
					rawStart, rawEnd = loc[2*p.group], loc[2*p.group+1]
				}

				ent := model.Entity{
					Type:       p.entityType,
					RawValue:   text[rawStart:rawEnd],
					Confidence: p.confidence,
					Start:      start,
					End:        end,
					Source:     model.SourcePattern,
				}
				if accept(ent, taken) {
					taken = append(taken, ent)
				}
			}
		}
	}

	sortEntities(taken)
	return taken, nil
}

// accept rejects matches that overlap an already-taken span of the same
// type, plus per-type sanity checks the regexes cannot express.
func accept(ent model.Entity, taken []model.Entity) bool {
	for i := range taken {
		if !ent.Overlaps(taken[i]) {
			continue
		}
		if taken[i].Type == ent.Type {
			return false
		}
		if ent.Type == model.EntityQuantity &&
			(taken[i].Type == model.EntityPrice || taken[i].Type == model.EntitySize) {
			return false
		}
	}
	if ent.Type == model.EntityBrand && stopBrands[strings.ToLower(ent.RawValue)] {
		return false
	}
	return true
}
