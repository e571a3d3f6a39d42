package nlp

import (
	"context"
	"errors"
	"testing"

	"voicecart/internal/model"
)

// stubIntentModel scripts the model side of classification.
type stubIntentModel struct {
	intent     model.IntentType
	confidence float64
	err        error
	enabled    bool
}

func (s *stubIntentModel) ClassifyIntent(ctx context.Context, text string) (model.IntentType, float64, error) {
	return s.intent, s.confidence, s.err
}

func (s *stubIntentModel) IsEnabled() bool { return s.enabled }

func TestClassifier_RuleFallback(t *testing.T) {
	tests := []struct {
		text string
		want model.IntentType
	}{
		{"add two red shirts to my cart", model.IntentAdd},
		{"I want a blue dress", model.IntentAdd},
		{"remove the shirt", model.IntentRemove},
		{"I don't want the jeans anymore", model.IntentRemove},
		{"find shirts under $100", model.IntentSearch},
		{"show me blue dresses", model.IntentSearch},
		{"checkout please", model.IntentCheckout},
		{"buy now", model.IntentCheckout},
		{"what can you do", model.IntentHelp},
		{"never mind", model.IntentCancel},
		{"blue mountain weather", model.IntentUnknown},
	}

	classifier := NewClassifier(nil, 0.8)
	for _, tt := range tests {
		intent, degraded := classifier.Classify(context.Background(), tt.text)
		if !degraded {
			t.Errorf("Classify(%q): expected degraded result without a model", tt.text)
		}
		if intent.Type != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.text, intent.Type, tt.want)
		}
	}
}

func TestClassifier_RuleConfidenceBounds(t *testing.T) {
	classifier := NewClassifier(nil, 0.8)

	intent, _ := classifier.Classify(context.Background(), "add a shirt")
	if intent.Confidence < 0.55 || intent.Confidence > 0.85 {
		t.Errorf("Rule confidence %.2f outside [0.55, 0.85]", intent.Confidence)
	}

	unknown, _ := classifier.Classify(context.Background(), "zzz")
	if unknown.Type != model.IntentUnknown {
		t.Fatalf("Expected unknown intent, got %s", unknown.Type)
	}
	if unknown.Confidence >= 0.55 {
		t.Errorf("Unknown confidence %.2f should stay below any rule match", unknown.Confidence)
	}
}

func TestClassifier_ModelWinsAboveThreshold(t *testing.T) {
	backend := &stubIntentModel{intent: model.IntentSearch, confidence: 0.92, enabled: true}
	classifier := NewClassifier(backend, 0.8)

	// Text that the rules would call ADD; the confident model overrides.
	intent, degraded := classifier.Classify(context.Background(), "add shirts... actually just browsing")
	if degraded {
		t.Error("Expected non-degraded classification with a healthy model")
	}
	if intent.Type != model.IntentSearch || intent.Confidence != 0.92 {
		t.Errorf("Expected search@0.92 from model, got %s@%.2f", intent.Type, intent.Confidence)
	}
}

func TestClassifier_HesitantModelYieldsToRules(t *testing.T) {
	backend := &stubIntentModel{intent: model.IntentSearch, confidence: 0.4, enabled: true}
	classifier := NewClassifier(backend, 0.8)

	intent, degraded := classifier.Classify(context.Background(), "remove the shirt")
	if degraded {
		t.Error("Expected non-degraded classification, model did answer")
	}
	if intent.Type != model.IntentRemove {
		t.Errorf("Expected rules to beat a below-threshold model, got %s", intent.Type)
	}
}

func TestClassifier_HesitantModelWithoutRuleMatchIsUnknown(t *testing.T) {
	backend := &stubIntentModel{intent: model.IntentAdd, confidence: 0.5, enabled: true}
	classifier := NewClassifier(backend, 0.8)

	intent, degraded := classifier.Classify(context.Background(), "the weather is lovely")
	if degraded {
		t.Error("Expected non-degraded classification, model did answer")
	}
	if intent.Type != model.IntentUnknown {
		t.Errorf("Expected unknown for a below-threshold guess with no rule match, got %s", intent.Type)
	}
	if intent.Confidence != 0.5 {
		t.Errorf("Expected the model's low confidence to carry through, got %.2f", intent.Confidence)
	}
}

func TestClassifier_ModelErrorFallsBackToRules(t *testing.T) {
	backend := &stubIntentModel{err: errors.New("connection refused"), enabled: true}
	classifier := NewClassifier(backend, 0.8)

	intent, degraded := classifier.Classify(context.Background(), "checkout")
	if !degraded {
		t.Error("Expected degraded classification after model failure")
	}
	if intent.Type != model.IntentCheckout {
		t.Errorf("Expected checkout from rules, got %s", intent.Type)
	}
}
