// Package normalize turns gateway completions into typed function results.
//
// Free text is passed through unchanged. Structured replies are fence-stripped,
// decoded and validated; anything that fails is replaced by a fixed fallback
// so callers always receive a usable shape.
package normalize

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/capitalize-ai/ai-functions/internal/llm"
	"github.com/capitalize-ai/ai-functions/internal/model"
)

// ErrEmptyUpstreamResponse is returned when a completion carries no text.
var ErrEmptyUpstreamResponse = errors.New("No response from AI")

const fence = "```"

var validate = validator.New()

// StripFences removes Markdown code fences (optionally tagged json) around a
// reply and trims surrounding whitespace. A reply that starts with a JSON
// object or array keeps its body; only stray closing fences are dropped.
func StripFences(text string) string {
	s := strings.TrimSpace(text)

	if !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "[") {
		start := strings.Index(s, fence)
		if start < 0 {
			return s
		}
		s = s[start+len(fence):]
		if end := strings.LastIndex(s, fence); end >= 0 {
			s = s[:end]
		}

		s = strings.TrimLeft(s, " \t")
		if len(s) >= 4 && strings.EqualFold(s[:4], "json") {
			s = s[4:]
		}
		s = strings.TrimSpace(s)
	}

	for strings.HasSuffix(s, fence) {
		s = strings.TrimSpace(strings.TrimSuffix(s, fence))
	}
	return s
}

// Text returns the free-text content of a completion.
func Text(resp *llm.CompletionResponse) (string, error) {
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyUpstreamResponse
	}
	return resp.Content, nil
}

// analysisReply is the schema a support analysis reply must satisfy. The
// score is a pointer so an omitted value is rejected rather than read as 0.
type analysisReply struct {
	Intent            string   `json:"intent" validate:"required"`
	Sentiment         string   `json:"sentiment" validate:"oneof=positive neutral negative frustrated"`
	SentimentScore    *int     `json:"sentimentScore" validate:"required,min=0,max=100"`
	Priority          string   `json:"priority" validate:"oneof=low medium high urgent"`
	SuggestedResponse string   `json:"suggestedResponse" validate:"required"`
	SuggestedActions  []string `json:"suggestedActions" validate:"min=2,max=3,dive,required"`
	ChurnRisk         string   `json:"churnRisk" validate:"oneof=low medium high"`
	Summary           string   `json:"summary" validate:"required"`
}

// Analysis decodes and validates a support analysis. The boolean is false
// when the fallback was substituted.
func Analysis(text string) (model.AnalysisResult, bool) {
	var reply analysisReply
	if err := json.Unmarshal([]byte(StripFences(text)), &reply); err != nil {
		return FallbackAnalysis(), false
	}
	if err := validate.Struct(reply); err != nil {
		return FallbackAnalysis(), false
	}

	return model.AnalysisResult{
		Intent:            reply.Intent,
		Sentiment:         reply.Sentiment,
		SentimentScore:    *reply.SentimentScore,
		Priority:          reply.Priority,
		SuggestedResponse: reply.SuggestedResponse,
		SuggestedActions:  reply.SuggestedActions,
		ChurnRisk:         reply.ChurnRisk,
		Summary:           reply.Summary,
	}, true
}

// Actions decodes a JSON array of action labels. Blank labels are dropped;
// if none remain, fallback is returned with false.
func Actions(text string, fallback []string) ([]string, bool) {
	var raw []string
	if err := json.Unmarshal([]byte(StripFences(text)), &raw); err != nil {
		return fallback, false
	}

	actions := make([]string, 0, len(raw))
	for _, a := range raw {
		if a = strings.TrimSpace(a); a != "" {
			actions = append(actions, a)
		}
	}
	if len(actions) == 0 {
		return fallback, false
	}
	return actions, true
}

// FallbackAnalysis is the neutral analysis used when the reply is unusable.
func FallbackAnalysis() model.AnalysisResult {
	return model.AnalysisResult{
		Intent:            "General Inquiry",
		Sentiment:         model.SentimentNeutral,
		SentimentScore:    50,
		Priority:          model.PriorityMedium,
		SuggestedResponse: "Thank you for reaching out. Let me look into this for you right away.",
		SuggestedActions:  []string{"Review customer message", "Provide appropriate response"},
		ChurnRisk:         "low",
		Summary:           "Customer has a general inquiry that needs attention.",
	}
}

// DefaultReplyActions are offered when the support reply actions call fails.
func DefaultReplyActions() []string {
	return []string{"Mark as resolved", "Send follow-up", "Escalate"}
}

// DefaultChatActions are offered when the chat actions call fails.
func DefaultChatActions() []string {
	return []string{"Send Proposal", "Schedule Call", "Add Note"}
}
