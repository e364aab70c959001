// Package model defines the request, response and event shapes of the AI functions.
package model

// Sentiment values accepted in an analysis result.
const (
	SentimentPositive   = "positive"
	SentimentNeutral    = "neutral"
	SentimentNegative   = "negative"
	SentimentFrustrated = "frustrated"
)

// Priority values accepted in an analysis result.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// CustomerContext describes the customer behind a support message.
// Numeric fields are pointers so an explicit zero is kept apart from absence.
type CustomerContext struct {
	Name                 string   `json:"name,omitempty"`
	PreviousInteractions *int     `json:"previousInteractions,omitempty"`
	LifetimeValue        *float64 `json:"lifetimeValue,omitempty"`
}

// AnalysisRequest is the body of the support analysis function.
type AnalysisRequest struct {
	Message         string           `json:"message"`
	CustomerContext *CustomerContext `json:"customerContext,omitempty"`
}

// AnalysisResult is the structured insight returned for a support message.
type AnalysisResult struct {
	Intent            string   `json:"intent"`
	Sentiment         string   `json:"sentiment"`
	SentimentScore    int      `json:"sentimentScore"`
	Priority          string   `json:"priority"`
	SuggestedResponse string   `json:"suggestedResponse"`
	SuggestedActions  []string `json:"suggestedActions"`
	ChurnRisk         string   `json:"churnRisk"`
	Summary           string   `json:"summary"`
}

// BusinessContext describes the business answering a support message.
type BusinessContext struct {
	CompanyName string `json:"companyName,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Tone        string `json:"tone,omitempty"`
}

// Support conversation roles.
const (
	SupportRoleCustomer = "customer"
	SupportRoleAgent    = "agent"
)

// SupportTurn is one prior turn of a support conversation.
type SupportTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReplyRequest is the body of the support reply function.
type ReplyRequest struct {
	CustomerMessage     string           `json:"customerMessage"`
	CustomerName        string           `json:"customerName,omitempty"`
	Intent              string           `json:"intent,omitempty"`
	Sentiment           string           `json:"sentiment,omitempty"`
	BusinessContext     *BusinessContext `json:"businessContext,omitempty"`
	ConversationHistory []SupportTurn    `json:"conversationHistory,omitempty"`
}

// ReplyResult is the generated support reply.
type ReplyResult struct {
	Reply            string   `json:"reply"`
	SuggestedActions []string `json:"suggestedActions"`
}
