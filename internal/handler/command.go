package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"voicecart/internal/model"
	"voicecart/internal/service"

	"github.com/gin-gonic/gin"
)

// CommandHandler handles command-processing HTTP requests
type CommandHandler struct {
	pipeline *service.Pipeline
	aiClient service.AIClient
}

// NewCommandHandler creates a new command handler
func NewCommandHandler(pipeline *service.Pipeline, aiClient service.AIClient) *CommandHandler {
	return &CommandHandler{
		pipeline: pipeline,
		aiClient: aiClient,
	}
}

// Command handles POST /api/v1/command
func (h *CommandHandler) Command(c *gin.Context) {
	var req model.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if req.TranscriptionConfidence != nil &&
		(*req.TranscriptionConfidence < 0 || *req.TranscriptionConfidence > 1) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transcription_confidence must be within [0,1]"})
		return
	}

	result := h.pipeline.HandleCommand(c.Request.Context(), req)
	c.JSON(http.StatusOK, result)
}

// CommandStream handles POST /api/v1/command/stream - SSE streaming command
// processing. Model thinking and content chunks stream as they arrive; the
// final pipeline result follows as a "result" event.
func (h *CommandHandler) CommandStream(c *gin.Context) {
	var req model.CommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Transfer-Encoding", "chunked")

	// Create flusher for SSE
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming not supported"})
		return
	}

	// Send initial event
	sendSSE(c, "start", map[string]any{"session_id": req.SessionID, "text": req.Text})
	flusher.Flush()

	// Stream the model's own parse of the command first, so the caller can
	// render progress while the turn completes.
	if h.aiClient != nil && h.aiClient.IsEnabled() {
		_, err := h.aiClient.ParseCommandStream(c.Request.Context(), req.Text, func(thinking, content string) error {
			if thinking != "" {
				sendSSE(c, "thinking", map[string]any{"content": thinking})
			}
			if content != "" {
				sendSSE(c, "content", map[string]any{"content": content})
			}
			flusher.Flush()
			return nil
		})
		if err != nil {
			// The pipeline degrades on its own; streaming just loses the
			// progress events.
			sendSSE(c, "notice", map[string]any{"message": "model stream unavailable, continuing"})
			flusher.Flush()
		}
	}

	result := h.pipeline.HandleCommand(c.Request.Context(), req)

	// Send final result
	sendSSE(c, "result", result)
	flusher.Flush()

	// Send done event
	sendSSE(c, "done", nil)
	flusher.Flush()
}

// sendSSE sends a Server-Sent Event
func sendSSE(c *gin.Context, event string, data any) {
	if data != nil {
		jsonData, err := json.Marshal(data)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"error\": \"JSON marshal failed\"}\n\n")
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(jsonData))
	} else {
		fmt.Fprintf(c.Writer, "event: %s\ndata: {}\n\n", event)
	}
}
