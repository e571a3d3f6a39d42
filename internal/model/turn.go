package model

import "time"

// CommandRequest is one turn of input from the transport layer.
// Text arrives already normalized (case/whitespace) by the upstream
// preprocessor; the core does not re-normalize.
type CommandRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Text      string `json:"text" binding:"required"`
	// TranscriptionConfidence is reported by the speech service when the
	// text came from audio; intent confidence is down-weighted by it.
	TranscriptionConfidence *float64 `json:"transcription_confidence,omitempty"`
}

// Turn is one recorded utterance within a session. Immutable once recorded.
type Turn struct {
	TurnID    int64     `json:"turn_id"`
	Text      string    `json:"text"`
	Intent    Intent    `json:"intent"`
	Timestamp time.Time `json:"timestamp"`
}

// Ambiguity is a resolution outcome with multiple plausible candidates,
// keyed by the span of the entity that produced it.
type Ambiguity struct {
	Start      int          `json:"start"`
	End        int          `json:"end"`
	RawValue   string       `json:"raw_value"`
	Candidates []ProductRef `json:"candidates"`
}

// Warning is a non-fatal resolution issue, e.g. a requested color that the
// matched product does not come in.
type Warning struct {
	Field     string   `json:"field"`
	Value     string   `json:"value"`
	Message   string   `json:"message"`
	Available []string `json:"available,omitempty"`
}

// TurnError is a machine-readable failure reason for the presentation
// layer; it is a result payload, not a Go error. Reason is the contract
// the presentation layer keys on; Message is a default English rendering
// kept as a debugging aid, and presentation layers are expected to supply
// their own copy per Reason.
type TurnError struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// TurnResult is the structured outcome of processing one turn.
type TurnResult struct {
	TurnID      string       `json:"turn_id"`
	SessionID   string       `json:"session_id"`
	Intent      Intent       `json:"intent"`
	Entities    []Entity     `json:"entities"`
	Ambiguities []Ambiguity  `json:"ambiguities,omitempty"`
	Warnings    []Warning    `json:"warnings,omitempty"`
	Cart        *CartSummary `json:"cart,omitempty"`
	Results     []ProductRef `json:"results,omitempty"`
	Error       *TurnError   `json:"error,omitempty"`
	Degraded    bool         `json:"degraded,omitempty"`
	Took        int64        `json:"took_ms"`
}
