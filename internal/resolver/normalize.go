package resolver

import (
	"regexp"
	"strconv"
	"strings"

	"voicecart/internal/model"
)

var quantityWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"a pair of": 2, "a couple of": 2, "a few": 3,
}

// parseQuantity turns a raw quantity mention into a count.
func parseQuantity(raw string) (int, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if q, ok := quantityWords[v]; ok {
		return q, true
	}
	q, err := strconv.Atoi(v)
	if err != nil || q < 0 {
		return 0, false
	}
	return q, true
}

var (
	betweenRe = regexp.MustCompile(`(?i)between\s+\$?(\d+(?:\.\d{1,2})?)\s+and\s+\$?(\d+(?:\.\d{1,2})?)`)
	rangeRe   = regexp.MustCompile(`(?i)\$(\d+(?:\.\d{1,2})?)\s*(?:-|to)\s*\$?(\d+(?:\.\d{1,2})?)`)
	underRe   = regexp.MustCompile(`(?i)(?:under|below|less\s+than|at\s+most|cheaper\s+than)\s+\$?(\d+(?:\.\d{1,2})?)`)
	overRe    = regexp.MustCompile(`(?i)(?:over|above|more\s+than|at\s+least)\s+\$?(\d+(?:\.\d{1,2})?)`)
	aroundRe  = regexp.MustCompile(`(?i)(?:around|about|roughly)\s+\$?(\d+(?:\.\d{1,2})?)`)
	exactRe   = regexp.MustCompile(`\$(\d+(?:\.\d{1,2})?)`)
)

// aroundSpread widens an "around $X" mention to ±20%.
const aroundSpread = 0.2

// ParsePriceRange turns a raw price mention into a closed or half-open
// interval. Reversed bounds are swapped rather than rejected.
func ParsePriceRange(raw string) (model.PriceRange, bool) {
	if m := betweenRe.FindStringSubmatch(raw); m != nil {
		return boundedRange(m[1], m[2])
	}
	if m := rangeRe.FindStringSubmatch(raw); m != nil {
		return boundedRange(m[1], m[2])
	}
	if m := underRe.FindStringSubmatch(raw); m != nil {
		max, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return model.PriceRange{}, false
		}
		return model.PriceRange{Min: 0, Max: &max}, true
	}
	if m := overRe.FindStringSubmatch(raw); m != nil {
		min, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return model.PriceRange{}, false
		}
		return model.PriceRange{Min: min}, true
	}
	if m := aroundRe.FindStringSubmatch(raw); m != nil {
		center, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return model.PriceRange{}, false
		}
		max := center * (1 + aroundSpread)
		return model.PriceRange{Min: center * (1 - aroundSpread), Max: &max}, true
	}
	if m := exactRe.FindStringSubmatch(raw); m != nil {
		price, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return model.PriceRange{}, false
		}
		max := price
		return model.PriceRange{Min: price, Max: &max}, true
	}
	return model.PriceRange{}, false
}

func boundedRange(lo, hi string) (model.PriceRange, bool) {
	min, err1 := strconv.ParseFloat(lo, 64)
	max, err2 := strconv.ParseFloat(hi, 64)
	if err1 != nil || err2 != nil {
		return model.PriceRange{}, false
	}
	if max < min {
		min, max = max, min
	}
	return model.PriceRange{Min: min, Max: &max}, true
}

var sizeAliases = map[string]string{
	"extra small": "xs",
	"small":       "s",
	"medium":      "m",
	"large":       "l",
	"extra large": "xl",
}

// NormalizeSize maps spoken size names onto catalog size codes; numeric
// sizes pass through unchanged.
func NormalizeSize(raw string) string {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.Join(strings.Fields(v), " ")
	if code, ok := sizeAliases[v]; ok {
		return code
	}
	return v
}
