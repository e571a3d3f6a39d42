package service

import (
	"context"
	"strings"

	"voicecart/internal/model"
)

// AIClient is the interface for AI service providers
type AIClient interface {
	// ExtractEntities pulls typed entities out of command text
	ExtractEntities(ctx context.Context, text string) ([]model.Entity, error)

	// ClassifyIntent assigns a shopping intent to command text
	ClassifyIntent(ctx context.Context, text string) (model.IntentType, float64, error)

	// ParseCommandStream parses a full command with streaming support
	// The callback receives (thinkingContent, regularContent) for each chunk
	ParseCommandStream(ctx context.Context, text string, callback func(thinking, content string) error) (*AICommandResponse, error)

	// CreateEmbeddings generates embeddings for texts
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)

	// IsEnabled returns whether the AI client is configured and ready
	IsEnabled() bool
}

// StreamChunk represents a generic streaming response chunk
type StreamChunk struct {
	// Regular content (always present in streaming)
	Content string

	// Thinking/reasoning content (provider-specific, e.g., DeepSeek)
	ThinkingContent string

	// Role (assistant, user, system)
	Role string

	// Whether this is the final chunk
	Done bool

	// Provider-specific metadata
	Metadata map[string]interface{}
}

// AIEntity is one entity as the model reports it. Spans are optional; when
// the model omits them they are recovered by locating the value in the text.
type AIEntity struct {
	Type       string  `json:"type"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence,omitempty"`
	Start      *int    `json:"start,omitempty"`
	End        *int    `json:"end,omitempty"`
}

// AICommandResponse represents the parsed command from AI
type AICommandResponse struct {
	Intent          string     `json:"intent"`
	Confidence      float64    `json:"confidence"`
	Entities        []AIEntity `json:"entities,omitempty"`
	ThinkingProcess string     `json:"thinking_process,omitempty"`
}

// validEntityTypes filters what the model may label; anything else is dropped.
var validEntityTypes = map[string]model.EntityType{
	"product":  model.EntityProduct,
	"color":    model.EntityColor,
	"size":     model.EntitySize,
	"quantity": model.EntityQuantity,
	"price":    model.EntityPrice,
	"material": model.EntityMaterial,
	"brand":    model.EntityBrand,
}

// Entities converts the model's entities into domain entities against the
// original text. Entities whose value cannot be located are dropped.
func (r *AICommandResponse) ModelEntities(text string) []model.Entity {
	return convertEntities(r.Entities, text)
}

func convertEntities(raw []AIEntity, text string) []model.Entity {
	lowered := strings.ToLower(text)
	var entities []model.Entity
	for _, e := range raw {
		entityType, ok := validEntityTypes[strings.ToLower(e.Type)]
		if !ok || e.Value == "" {
			continue
		}

		start, end := -1, -1
		if e.Start != nil && e.End != nil && *e.Start >= 0 && *e.End <= len(text) && *e.Start < *e.End {
			start, end = *e.Start, *e.End
		} else if idx := strings.Index(lowered, strings.ToLower(e.Value)); idx >= 0 {
			start, end = idx, idx+len(e.Value)
		}
		if start < 0 {
			continue
		}

		confidence := e.Confidence
		if confidence <= 0 || confidence > 1 {
			confidence = 0.8
		}

		entities = append(entities, model.Entity{
			Type:       entityType,
			RawValue:   text[start:end],
			Confidence: confidence,
			Start:      start,
			End:        end,
			Source:     model.SourceModel,
		})
	}
	return entities
}

// validIntents maps model intent labels onto domain intents.
var validIntents = map[string]model.IntentType{
	"add":      model.IntentAdd,
	"remove":   model.IntentRemove,
	"search":   model.IntentSearch,
	"checkout": model.IntentCheckout,
	"help":     model.IntentHelp,
	"cancel":   model.IntentCancel,
	"unknown":  model.IntentUnknown,
}

// Ensure OpenAIClient implements AIClient
var _ AIClient = (*OpenAIClient)(nil)
