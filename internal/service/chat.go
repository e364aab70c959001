package service

import (
	"context"

	"github.com/capitalize-ai/ai-functions/internal/model"
	"github.com/capitalize-ai/ai-functions/internal/normalize"
	"github.com/capitalize-ai/ai-functions/internal/prompt"
)

// ChatService answers inbox conversations on behalf of the business.
type ChatService struct {
	runner
}

// NewChatService creates a chat service.
func NewChatService(opts Options) *ChatService {
	return &ChatService{runner: newRunner(opts)}
}

// Respond generates the next assistant turn plus quick actions derived from
// the customer message and the generated reply.
func (s *ChatService) Respond(ctx context.Context, req *model.ChatRequest) (*model.ChatResult, error) {
	messages, err := prompt.Chat(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	c := s.begin(ctx, model.FunctionWhatsAppChat)
	resp, err := s.primary(ctx, c, messages)
	if err != nil {
		return nil, err
	}

	reply, err := normalize.Text(resp)
	if err != nil {
		return nil, err
	}

	actions := s.suggestActions(ctx, c, prompt.ChatActions(req.Message, reply), normalize.DefaultChatActions())
	s.finish(ctx, c)

	return &model.ChatResult{Response: reply, SuggestedActions: actions}, nil
}
