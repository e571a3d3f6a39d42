package service

import (
	"encoding/json"
	"strings"
)

// OpenAIStreamChunkParser decodes the standard OpenAI streaming format,
// where each SSE data line carries a choices[0].delta payload.
type OpenAIStreamChunkParser struct{}

// ParseChunk turns one streamed data line into a provider-neutral
// StreamChunk. The standard format has no reasoning channel, so only role,
// content and the finish marker are populated.
func (p *OpenAIStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Role    string `json:"role,omitempty"`
				Content string `json:"content,omitempty"`
			} `json:"delta"`
			FinishReason string `json:"finish_reason,omitempty"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	chunk := &StreamChunk{Metadata: make(map[string]interface{})}
	if len(raw.Choices) > 0 {
		delta := raw.Choices[0].Delta
		chunk.Role = delta.Role
		chunk.Content = delta.Content
		chunk.Done = raw.Choices[0].FinishReason != ""
	}
	return chunk, nil
}

// IsOpenAIProvider reports whether the base URL points at the official
// OpenAI API.
func IsOpenAIProvider(baseURL string) bool {
	return strings.Contains(baseURL, "api.openai.com")
}
