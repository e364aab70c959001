package model

// Chat roles, shared with the gateway message format.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatTurn is one prior turn of an inbox conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LeadContext describes the CRM lead on the other side of the chat.
type LeadContext struct {
	Name    string `json:"name,omitempty"`
	Company string `json:"company,omitempty"`
	Status  string `json:"status,omitempty"`
	Score   *int   `json:"score,omitempty"`
}

// ChatRequest is the body of the inbox assistant function.
type ChatRequest struct {
	Message             string       `json:"message"`
	ConversationHistory []ChatTurn   `json:"conversationHistory,omitempty"`
	LeadContext         *LeadContext `json:"leadContext,omitempty"`
}

// ChatResult is the assistant reply with quick actions.
type ChatResult struct {
	Response         string   `json:"response"`
	SuggestedActions []string `json:"suggestedActions"`
}

// ErrorResponse is the body of every failed call.
type ErrorResponse struct {
	Error string `json:"error"`
}
