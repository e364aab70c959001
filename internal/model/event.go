package model

import (
	"time"
)

// Function names, also used as route segments and event subjects.
const (
	FunctionAnalyzeSupport        = "analyze-support"
	FunctionGenerateSupportReply  = "generate-support-reply"
	FunctionGenerateContentScript = "generate-content-script"
	FunctionWhatsAppChat          = "whatsapp-ai-chat"
)

// EventStatus is the outcome recorded for a function call.
type EventStatus string

const (
	EventStatusCompleted EventStatus = "completed"
	EventStatusDegraded  EventStatus = "degraded"
)

// FunctionEvent summarises one completed function call. It never carries
// message or reply bodies.
type FunctionEvent struct {
	ID        string      `json:"id"`
	Function  string      `json:"function"`
	Status    EventStatus `json:"status"`
	Model     string      `json:"model,omitempty"`
	LatencyMs int64       `json:"latency_ms"`
	Intent    string      `json:"intent,omitempty"`
	Sentiment string      `json:"sentiment,omitempty"`
	Priority  string      `json:"priority,omitempty"`
	ChurnRisk string      `json:"churn_risk,omitempty"`
	Fallback  []string    `json:"fallback,omitempty"`
	CreatedAt time.Time   `json:"created_at"`

	// Populated on read from the stream
	Sequence uint64 `json:"sequence,omitempty"`
}

// HeartbeatEvent keeps an idle event feed connection alive.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// ReplayCompleteEvent marks the end of the replayed backlog.
type ReplayCompleteEvent struct {
	LastSequence uint64 `json:"last_sequence"`
	EventCount   int    `json:"event_count"`
}
