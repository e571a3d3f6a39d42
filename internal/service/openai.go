package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"voicecart/internal/config"
	"voicecart/internal/model"
	"voicecart/internal/utils"
)

// StreamChunkParser is the interface for provider-specific chunk parsing
type StreamChunkParser interface {
	ParseChunk(data []byte) (*StreamChunk, error)
}

// OpenAIClient handles OpenAI-compatible API interactions
type OpenAIClient struct {
	config      *config.OpenAIConfig
	httpClient  *http.Client
	chunkParser StreamChunkParser // Provider-specific chunk parser
}

// NewOpenAIClient creates a new OpenAI-compatible client with auto-detection of provider
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	// Auto-detect provider based on base URL
	var parser StreamChunkParser
	if IsNVIDIAProvider(cfg.APIBase) {
		parser = &NVIDIAStreamChunkParser{}
		log.Printf("🔧 Detected NVIDIA API provider (supports reasoning/thinking)")
	} else if IsOpenAIProvider(cfg.APIBase) {
		parser = &OpenAIStreamChunkParser{}
		log.Printf("🔧 Detected OpenAI API provider")
	} else {
		// Default to OpenAI format for unknown providers
		parser = &OpenAIStreamChunkParser{}
		log.Printf("🔧 Using standard OpenAI format for: %s", cfg.APIBase)
	}

	return &OpenAIClient{
		config:      cfg,
		chunkParser: parser,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// IsEnabled returns whether the client is configured and ready
func (c *OpenAIClient) IsEnabled() bool {
	// A nil client can reach here through an interface value; it is simply
	// disabled.
	return c != nil && c.config.Enabled
}

// ChatCompletionRequest represents a chat completion request
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []ChatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"` // For DeepSeek/NVIDIA API
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream,omitempty"`     // For streaming responses
	ExtraBody      map[string]any  `json:"extra_body,omitempty"` // For DeepSeek: {"chat_template_kwargs": {"thinking":true}}
}

// ChatMessage represents a single message in the conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat specifies the format of the response
type ResponseFormat struct {
	Type string `json:"type"` // "json_object" or "text"
}

// ChatCompletionResponse represents the API response
type ChatCompletionResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int         `json:"index"`
		Message      ChatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// StreamCallback is called for each chunk in streaming mode
// Generic callback that works with all providers
type StreamCallback func(chunk *StreamChunk) error

// EmbeddingRequest represents an embedding request
type EmbeddingRequest struct {
	Model          string         `json:"model"`
	Input          []string       `json:"input"`
	Dimensions     int            `json:"dimensions,omitempty"`
	EncodingFormat string         `json:"encoding_format,omitempty"` // For NVIDIA API: "float"
	ExtraBody      map[string]any `json:"extra_body,omitempty"`      // For NVIDIA API: {"truncate": "NONE"}
}

// EmbeddingResponse represents the embedding API response
type EmbeddingResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// applyDefaults fills request parameters from config where unset.
func (c *OpenAIClient) applyDefaults(req *ChatCompletionRequest) {
	if req.Model == "" {
		req.Model = c.config.ChatModel
	}
	if req.Temperature == 0 && c.config.ChatTemperature > 0 {
		req.Temperature = c.config.ChatTemperature
	}
	if req.TopP == 0 && c.config.ChatTopP > 0 {
		req.TopP = c.config.ChatTopP
	}
	if req.MaxTokens == 0 && c.config.ChatMaxTokens > 0 {
		req.MaxTokens = c.config.ChatMaxTokens
	}
	if req.ExtraBody == nil && c.config.ChatExtraBody != "" {
		var extraBody map[string]any
		if err := json.Unmarshal([]byte(c.config.ChatExtraBody), &extraBody); err == nil {
			req.ExtraBody = extraBody
		} else {
			log.Printf("Warning: Failed to parse OPENAI_CHAT_EXTRA_BODY: %v", err)
		}
	}
}

// ChatCompletion performs a chat completion request
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	c.applyDefaults(&req)

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.config.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result ChatCompletionResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return &result, nil
}

// ChatCompletionStream performs a streaming chat completion request
func (c *OpenAIClient) ChatCompletionStream(ctx context.Context, req ChatCompletionRequest, callback StreamCallback) error {
	if !c.config.Enabled {
		return fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	c.applyDefaults(&req)

	// Enable streaming
	req.Stream = true

	reqBody, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.config.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	// Process streaming response
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read stream: %w", err)
		}

		// Skip empty lines
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		// Parse SSE format: "data: {...}"
		if bytes.HasPrefix(line, []byte("data: ")) {
			data := bytes.TrimPrefix(line, []byte("data: "))

			// Check for [DONE] marker
			if bytes.Equal(data, []byte("[DONE]")) {
				break
			}

			// Parse chunk using provider-specific parser
			chunk, err := c.chunkParser.ParseChunk(data)
			if err != nil {
				log.Printf("Warning: Failed to parse stream chunk: %v", err)
				continue
			}

			// Call callback with generic chunk
			if err := callback(chunk); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
	}

	return nil
}

// CreateEmbeddings creates embeddings for the given texts
func (c *OpenAIClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled (missing API key)")
	}

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	// Process in batches
	allEmbeddings := make([][]float32, 0, len(texts))
	batchSize := c.config.BatchSize

	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		embeddings, err := c.createEmbeddingBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings for batch %d: %w", i/batchSize, err)
		}

		allEmbeddings = append(allEmbeddings, embeddings...)

		// Rate limiting: small delay between batches
		if end < len(texts) {
			time.Sleep(100 * time.Millisecond)
		}
	}

	return allEmbeddings, nil
}

// createEmbeddingBatch creates embeddings for a single batch
func (c *OpenAIClient) createEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := EmbeddingRequest{
		Model:          c.config.EmbeddingModel,
		Input:          texts,
		Dimensions:     c.config.EmbeddingDimensions,
		EncodingFormat: "float", // For NVIDIA API compatibility
	}

	// Parse and apply extra_body from config
	if c.config.EmbeddingExtraBody != "" {
		var extraBody map[string]any
		if err := json.Unmarshal([]byte(c.config.EmbeddingExtraBody), &extraBody); err == nil {
			req.ExtraBody = extraBody
		} else {
			log.Printf("Warning: Failed to parse OPENAI_EMBEDDING_EXTRA_BODY: %v", err)
		}
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/embeddings", c.config.APIBase)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result EmbeddingResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	// Extract embeddings in order
	embeddings := make([][]float32, len(texts))
	for _, item := range result.Data {
		if item.Index < len(embeddings) {
			embeddings[item.Index] = item.Embedding
		}
	}

	log.Printf("Created %d embeddings using model %s (tokens: %d)", len(embeddings), result.Model, result.Usage.TotalTokens)

	return embeddings, nil
}

const extractionPrompt = `You are a voice shopping assistant. Extract typed entities from the user's shopping command.

Entity types:
- product: what is being bought or searched ("shirt", "running shoes")
- color: a color mention ("red", "dark blue")
- size: a size mention ("m", "xl", "8", "large")
- quantity: how many ("2", "three", "a pair of")
- price: a price constraint ("under $100", "$20-$50", "$19.99")
- material: a fabric or material ("cotton", "leather")
- brand: a brand name ("Nike", "Levi's")

Important rules:
- Respond ONLY with valid JSON
- Copy each value verbatim from the command text
- Include start and end as byte offsets of the value in the text
- confidence is your certainty in [0,1] for each entity
- Do not invent entities the text does not contain

Examples:
Command: "add two red shirts under $30"
Response: {"entities": [{"type": "quantity", "value": "two", "start": 4, "end": 7, "confidence": 0.95}, {"type": "color", "value": "red", "start": 8, "end": 11, "confidence": 0.95}, {"type": "product", "value": "shirts", "start": 12, "end": 18, "confidence": 0.9}, {"type": "price", "value": "under $30", "start": 19, "end": 28, "confidence": 0.9}]}

Command: "checkout"
Response: {"entities": []}`

// ExtractEntities uses the model to pull typed entities out of command text
func (c *OpenAIClient) ExtractEntities(ctx context.Context, text string) ([]model.Entity, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled")
	}

	req := ChatCompletionRequest{
		Model: c.config.ChatModel,
		Messages: []ChatMessage{
			{Role: "system", Content: extractionPrompt},
			{Role: "user", Content: text},
		},
		Temperature:    0.2,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	// Use robust JSON parser to handle various AI output formats
	var result struct {
		Entities []AIEntity `json:"entities"`
	}
	content := resp.Choices[0].Message.Content
	if err := utils.ParseModelJSON(content, &result); err != nil {
		log.Printf("Failed to parse extraction response, content: %s", utils.Truncate(content, 300))
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	return convertEntities(result.Entities, text), nil
}

const classificationPrompt = `You are a voice shopping assistant. Classify the user's command into exactly one intent.

Intents:
- add: put a product into the cart ("add two shirts", "I want the blue one")
- remove: take a product out of the cart ("remove it", "I don't want the jeans")
- search: browse the catalog ("find shirts under $100", "show me dresses")
- checkout: finish the purchase ("checkout", "buy now")
- help: ask what the assistant can do
- cancel: abandon the current request ("never mind")
- unknown: none of the above

Important rules:
- Respond ONLY with valid JSON: {"intent": "...", "confidence": 0.0}
- confidence is your certainty in [0,1]
- Prefer unknown with low confidence over guessing

Examples:
Command: "add two red shirts"
Response: {"intent": "add", "confidence": 0.97}

Command: "do you have anything cheaper"
Response: {"intent": "search", "confidence": 0.85}

Command: "what is the weather like"
Response: {"intent": "unknown", "confidence": 0.2}`

// ClassifyIntent uses the model to assign a shopping intent to command text
func (c *OpenAIClient) ClassifyIntent(ctx context.Context, text string) (model.IntentType, float64, error) {
	if !c.config.Enabled {
		return model.IntentUnknown, 0, fmt.Errorf("OpenAI API is not enabled")
	}

	req := ChatCompletionRequest{
		Model: c.config.ChatModel,
		Messages: []ChatMessage{
			{Role: "system", Content: classificationPrompt},
			{Role: "user", Content: text},
		},
		Temperature:    0.2,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	resp, err := c.ChatCompletion(ctx, req)
	if err != nil {
		return model.IntentUnknown, 0, err
	}
	if len(resp.Choices) == 0 {
		return model.IntentUnknown, 0, fmt.Errorf("no response from model")
	}

	var result struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	content := resp.Choices[0].Message.Content
	if err := utils.ParseModelJSON(content, &result); err != nil {
		log.Printf("Failed to parse classification response, content: %s", utils.Truncate(content, 300))
		return model.IntentUnknown, 0, fmt.Errorf("failed to parse classification response: %w", err)
	}

	intentType, ok := validIntents[strings.ToLower(result.Intent)]
	if !ok {
		return model.IntentUnknown, 0, fmt.Errorf("model returned unknown intent label: %q", result.Intent)
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		return model.IntentUnknown, 0, fmt.Errorf("model returned confidence outside [0,1]: %f", result.Confidence)
	}

	return intentType, result.Confidence, nil
}

const commandPrompt = `You are a voice shopping assistant. Parse the user's command into an intent and its entities.

Intents: add, remove, search, checkout, help, cancel, unknown
Entity types: product, color, size, quantity, price, material, brand

Important rules:
- Respond ONLY with valid JSON
- Copy entity values verbatim from the command text
- confidence is your certainty in [0,1]

Example:
Command: "add two red shirts under $30"
Response: {"intent": "add", "confidence": 0.95, "entities": [{"type": "quantity", "value": "two"}, {"type": "color", "value": "red"}, {"type": "product", "value": "shirts"}, {"type": "price", "value": "under $30"}]}`

// ParseCommandStream uses streaming to parse a command, forwarding thinking
// and content chunks to the callback as they arrive
func (c *OpenAIClient) ParseCommandStream(ctx context.Context, text string, callback func(thinking, content string) error) (*AICommandResponse, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("OpenAI API is not enabled")
	}

	req := ChatCompletionRequest{
		Model: c.config.ChatModel,
		Messages: []ChatMessage{
			{Role: "system", Content: commandPrompt},
			{Role: "user", Content: text},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	}

	// Accumulate the response
	var fullContent strings.Builder
	var fullThinking strings.Builder

	err := c.ChatCompletionStream(ctx, req, func(chunk *StreamChunk) error {
		// Handle thinking content (provider-specific, e.g., DeepSeek)
		if chunk.ThinkingContent != "" {
			fullThinking.WriteString(chunk.ThinkingContent)
			if err := callback(chunk.ThinkingContent, ""); err != nil {
				return err
			}
		}

		// Handle regular content
		if chunk.Content != "" {
			fullContent.WriteString(chunk.Content)
			if err := callback("", chunk.Content); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("streaming error: %w", err)
	}

	// Parse the accumulated JSON response using robust parser
	content := fullContent.String()
	var result AICommandResponse
	if err := utils.ParseModelJSON(content, &result); err != nil {
		return nil, fmt.Errorf("failed to parse command response: %w (content: %s)", err, utils.Truncate(content, 300))
	}
	result.ThinkingProcess = fullThinking.String()

	return &result, nil
}
