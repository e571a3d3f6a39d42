package utils

import "strings"

// Similarity scores how well a query names a catalog product, in [0,1].
// Matching is case-insensitive and tolerant of pluralization and small
// typos. 1.0 means an exact (normalized) match.
func Similarity(query, name string) float64 {
	q := Normalize(query)
	n := Normalize(name)
	if q == "" || n == "" {
		return 0
	}
	if q == n {
		return 1.0
	}

	// Containment: "shirt" should score well against "Cotton Crew Shirt".
	best := 0.0
	if strings.Contains(n, q) || strings.Contains(q, n) {
		shorter, longer := len(q), len(n)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		best = 0.6 + 0.35*float64(shorter)/float64(longer)
	}

	// Token-level edit distance: every query token must find a close
	// counterpart among the name tokens.
	qTokens := strings.Fields(q)
	nTokens := strings.Fields(n)
	sum := 0.0
	for _, qt := range qTokens {
		tokenBest := 0.0
		for _, nt := range nTokens {
			if s := tokenSimilarity(qt, nt); s > tokenBest {
				tokenBest = s
			}
		}
		sum += tokenBest
	}
	if len(qTokens) > 0 {
		tokenScore := sum / float64(len(qTokens))
		// Penalize name tokens the query never mentioned, mildly.
		if len(nTokens) > len(qTokens) {
			tokenScore *= 1.0 - 0.1*float64(len(nTokens)-len(qTokens))
		}
		if tokenScore > best {
			best = tokenScore
		}
	}

	if best < 0 {
		best = 0
	}
	return best
}

// Normalize lowercases, trims and collapses inner whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(s))), " ")
}

// Singularize strips common English plural suffixes. It is deliberately
// small: catalog names are short nouns, not free text.
func Singularize(word string) string {
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ses") || strings.HasSuffix(word, "xes") ||
		strings.HasSuffix(word, "ches") || strings.HasSuffix(word, "shes"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss") && len(word) > 3:
		return word[:len(word)-1]
	}
	return word
}

func tokenSimilarity(a, b string) float64 {
	a, b = Singularize(a), Singularize(b)
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	d := Levenshtein(a, b)
	s := 1.0 - float64(d)/float64(longest)
	if s < 0 {
		return 0
	}
	return s
}

// Levenshtein computes the edit distance between two strings.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
