package service

import (
	"encoding/json"
)

// NVIDIAStreamChunkParser decodes NVIDIA's streaming format, which extends
// the standard delta with reasoning_content carrying the model's thinking
// (DeepSeek-style models behind the NVIDIA endpoint).
type NVIDIAStreamChunkParser struct{}

// ParseChunk turns one streamed data line into a provider-neutral
// StreamChunk, routing reasoning_content into the thinking channel so the
// transport can render progress separately from the answer.
func (p *NVIDIAStreamChunkParser) ParseChunk(data []byte) (*StreamChunk, error) {
	var raw struct {
		Choices []struct {
			Delta struct {
				Role             string  `json:"role,omitempty"`
				Content          string  `json:"content,omitempty"`
				ReasoningContent *string `json:"reasoning_content,omitempty"`
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
		if delta.ReasoningContent != nil {
			chunk.ThinkingContent = *delta.ReasoningContent
		}
		chunk.Done = raw.Choices[0].FinishReason != ""
	}
	return chunk, nil
}

// IsNVIDIAProvider reports whether the base URL is the NVIDIA integrate
// endpoint.
func IsNVIDIAProvider(baseURL string) bool {
	return baseURL == "https://integrate.api.nvidia.com/v1"
}
