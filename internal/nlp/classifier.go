package nlp

import (
	"context"
	"log"
	"regexp"
	"strings"

	"voicecart/internal/model"
)

// intentRule is one lexical fallback rule: an intent and the phrases that
// trigger it. Phrases match on word boundaries against lowercased text.
type intentRule struct {
	intent  model.IntentType
	phrases []string
}

// intentRules is evaluated top to bottom; the first rule with any matching
// phrase wins. The order is part of the contract: "buy now" must be listed
// under checkout only, and "cancel" under cancel only, so reordering rules
// or moving phrases between them changes classification.
var intentRules = []intentRule{
	{model.IntentAdd, []string{
		"add", "put", "include", "i want", "i need", "i'll take", "get me", "give me", "throw in",
	}},
	{model.IntentRemove, []string{
		"remove", "delete", "take out", "take off", "take away", "don't want", "dont want", "get rid of",
	}},
	{model.IntentSearch, []string{
		"search", "find", "look for", "looking for", "show me", "show", "do you have", "browse", "any",
	}},
	{model.IntentCheckout, []string{
		"checkout", "check out", "buy now", "pay", "place order", "place my order", "complete order", "purchase",
	}},
	{model.IntentHelp, []string{
		"help", "what can you do", "how do i", "how does this work", "assist",
	}},
	{model.IntentCancel, []string{
		"cancel", "never mind", "nevermind", "forget it", "stop", "abort",
	}},
}

const (
	// ruleBaseConfidence is the floor for any lexical match; longer
	// matched phrases add a small bonus per word.
	ruleBaseConfidence = 0.55
	rulePerWordBonus   = 0.1
	ruleMaxConfidence  = 0.85
	unknownConfidence  = 0.2
	wordBoundary       = `\b`
)

// Classifier assigns an intent to command text, model-first with the
// lexical rules as fallback. The model result is used only when its
// confidence clears the configured threshold.
type Classifier struct {
	backend   IntentModel
	threshold float64

	compiled []compiledRule
}

type compiledRule struct {
	intent model.IntentType
	res    []*regexp.Regexp
	words  []int
}

// NewClassifier builds a classifier. backend may be nil, in which case
// only the lexical rules run.
func NewClassifier(backend IntentModel, threshold float64) *Classifier {
	c := &Classifier{backend: backend, threshold: threshold}
	for _, rule := range intentRules {
		cr := compiledRule{intent: rule.intent}
		for _, phrase := range rule.phrases {
			cr.res = append(cr.res, regexp.MustCompile(wordBoundary+regexp.QuoteMeta(phrase)+wordBoundary))
			cr.words = append(cr.words, len(strings.Fields(phrase)))
		}
		c.compiled = append(c.compiled, cr)
	}
	return c
}

// Classify returns the intent for text plus whether classification ran
// degraded (rules only). Unclassifiable text yields IntentUnknown with a
// low fixed confidence rather than an error.
func (c *Classifier) Classify(ctx context.Context, text string) (model.Intent, bool) {
	if c.backend != nil && c.backend.IsEnabled() {
		intentType, confidence, err := c.backend.ClassifyIntent(ctx, text)
		if err != nil {
			log.Printf("⚠️ Model classification failed, falling back to rules: %v", err)
			return c.classifyByRules(text), true
		}
		if confidence >= c.threshold {
			return model.Intent{Type: intentType, Confidence: confidence}, false
		}
		// A confident rule match beats a hesitant model answer. When the
		// rules are silent too, the turn is unknown at the model's low
		// confidence rather than a guess the pipeline would act on.
		if ruled := c.classifyByRules(text); ruled.Type != model.IntentUnknown {
			return ruled, false
		}
		return model.Intent{Type: model.IntentUnknown, Confidence: confidence}, false
	}

	return c.classifyByRules(text), true
}

// classifyByRules applies the fixed rule table. Confidence grows with the
// longest matched phrase: multi-word phrases are stronger evidence.
func (c *Classifier) classifyByRules(text string) model.Intent {
	lowered := strings.ToLower(text)

	for _, rule := range c.compiled {
		longest := 0
		for i, re := range rule.res {
			if re.MatchString(lowered) && rule.words[i] > longest {
				longest = rule.words[i]
			}
		}
		if longest == 0 {
			continue
		}
		confidence := ruleBaseConfidence + rulePerWordBonus*float64(longest)
		if confidence > ruleMaxConfidence {
			confidence = ruleMaxConfidence
		}
		return model.Intent{Type: rule.intent, Confidence: confidence}
	}

	return model.Intent{Type: model.IntentUnknown, Confidence: unknownConfidence}
}
