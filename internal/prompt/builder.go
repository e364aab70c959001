// Package prompt turns typed function inputs into gateway message sequences.
//
// Every builder returns the system prompt first, then any prior turns in
// their original order, then the new user message. Optional fields that are
// absent produce no line in the prompt.
package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/capitalize-ai/ai-functions/internal/llm"
	"github.com/capitalize-ai/ai-functions/internal/model"
)

// ErrInvalidRequest matches every RequestError.
var ErrInvalidRequest = errors.New("invalid request")

// RequestError is a request-shape error; Message is safe to return to callers.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

// Is reports whether target is ErrInvalidRequest.
func (e *RequestError) Is(target error) bool { return target == ErrInvalidRequest }

func invalid(message string) error {
	return &RequestError{Message: message}
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

// Analysis builds the support analysis conversation.
func Analysis(req *model.AnalysisRequest) ([]llm.ChatMessage, error) {
	if req == nil || !present(req.Message) {
		return nil, invalid("Message is required")
	}

	var lines []string
	if c := req.CustomerContext; c != nil {
		if present(c.Name) {
			lines = append(lines, "- Name: "+c.Name)
		}
		if c.PreviousInteractions != nil {
			lines = append(lines, "- Previous Interactions: "+strconv.Itoa(*c.PreviousInteractions))
		}
		if c.LifetimeValue != nil {
			lines = append(lines, "- Lifetime Value: ₹"+strconv.FormatFloat(*c.LifetimeValue, 'f', -1, 64))
		}
	}

	system, err := render(analysisSystem, struct{ Context []string }{lines})
	if err != nil {
		return nil, fmt.Errorf("render analysis prompt: %w", err)
	}

	return []llm.ChatMessage{
		{Role: model.RoleSystem, Content: system},
		{Role: model.RoleUser, Content: req.Message},
	}, nil
}

// Reply builds the support reply conversation, history included.
func Reply(req *model.ReplyRequest) ([]llm.ChatMessage, error) {
	if req == nil || !present(req.CustomerMessage) {
		return nil, invalid("Customer message is required")
	}

	var lines []string
	if present(req.Intent) {
		lines = append(lines, "Detected Intent: "+req.Intent)
	}
	if present(req.Sentiment) {
		lines = append(lines, "Customer Sentiment: "+req.Sentiment)
	}
	if present(req.CustomerName) {
		lines = append(lines, "Customer Name: "+req.CustomerName)
	}

	data := struct {
		CompanyName string
		Tone        string
		Context     []string
	}{}
	if b := req.BusinessContext; b != nil {
		data.CompanyName = strings.TrimSpace(b.CompanyName)
		data.Tone = strings.TrimSpace(b.Tone)
		if present(b.Industry) {
			lines = append(lines, "Industry: "+b.Industry)
		}
	}
	data.Context = lines

	system, err := render(replySystem, data)
	if err != nil {
		return nil, fmt.Errorf("render reply prompt: %w", err)
	}

	messages := make([]llm.ChatMessage, 0, len(req.ConversationHistory)+2)
	messages = append(messages, llm.ChatMessage{Role: model.RoleSystem, Content: system})
	for _, turn := range req.ConversationHistory {
		role := model.RoleAssistant
		if turn.Role == model.SupportRoleCustomer {
			role = model.RoleUser
		}
		messages = append(messages, llm.ChatMessage{Role: role, Content: turn.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: model.RoleUser, Content: req.CustomerMessage})

	return messages, nil
}

// ReplyActions builds the suggested-actions sub-call for a support reply.
func ReplyActions(req *model.ReplyRequest) ([]llm.ChatMessage, error) {
	if req == nil || !present(req.CustomerMessage) {
		return nil, invalid("Customer message is required")
	}

	user, err := render(replyActions, struct {
		CustomerMessage string
		Intent          string
	}{req.CustomerMessage, strings.TrimSpace(req.Intent)})
	if err != nil {
		return nil, fmt.Errorf("render reply actions prompt: %w", err)
	}

	return []llm.ChatMessage{
		{Role: model.RoleSystem, Content: replyActionsSystem},
		{Role: model.RoleUser, Content: user},
	}, nil
}

// Script builds the content script conversation. All four fields are required.
func Script(req *model.ScriptRequest) ([]llm.ChatMessage, error) {
	if req == nil {
		return nil, invalid("title, type, platform and time are required")
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"title", req.Title},
		{"type", req.Type},
		{"platform", req.Platform},
		{"time", req.Time},
	} {
		if !present(f.value) {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return nil, invalid("Missing required fields: " + strings.Join(missing, ", "))
	}

	user, err := render(scriptUser, req)
	if err != nil {
		return nil, fmt.Errorf("render script prompt: %w", err)
	}

	return []llm.ChatMessage{
		{Role: model.RoleSystem, Content: scriptSystem},
		{Role: model.RoleUser, Content: user},
	}, nil
}

// Chat builds the inbox assistant conversation, history included.
func Chat(req *model.ChatRequest) ([]llm.ChatMessage, error) {
	if req == nil || !present(req.Message) {
		return nil, invalid("Message is required")
	}

	var lines []string
	if l := req.LeadContext; l != nil {
		if present(l.Name) {
			lines = append(lines, "- Name: "+l.Name)
		}
		if present(l.Company) {
			lines = append(lines, "- Company: "+l.Company)
		}
		if present(l.Status) {
			lines = append(lines, "- Status: "+l.Status)
		}
		if l.Score != nil {
			lines = append(lines, "- Lead Score: "+strconv.Itoa(*l.Score)+"/100")
		}
	}

	system, err := render(chatSystem, struct{ Context []string }{lines})
	if err != nil {
		return nil, fmt.Errorf("render chat prompt: %w", err)
	}

	messages := make([]llm.ChatMessage, 0, len(req.ConversationHistory)+2)
	messages = append(messages, llm.ChatMessage{Role: model.RoleSystem, Content: system})
	for i, turn := range req.ConversationHistory {
		switch turn.Role {
		case model.RoleUser, model.RoleAssistant, model.RoleSystem:
		default:
			return nil, invalid(fmt.Sprintf("conversationHistory[%d].role must be user, assistant or system", i))
		}
		messages = append(messages, llm.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, llm.ChatMessage{Role: model.RoleUser, Content: req.Message})

	return messages, nil
}

// ChatActions builds the suggested-actions sub-call for an inbox reply.
func ChatActions(message, reply string) []llm.ChatMessage {
	return []llm.ChatMessage{
		{Role: model.RoleSystem, Content: chatActionsSystem},
		{Role: model.RoleUser, Content: "Customer message: " + message + "\nAI response: " + reply},
	}
}
