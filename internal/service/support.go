package service

import (
	"context"

	"github.com/capitalize-ai/ai-functions/internal/model"
	"github.com/capitalize-ai/ai-functions/internal/normalize"
	"github.com/capitalize-ai/ai-functions/internal/prompt"
)

// SupportService analyses support messages and drafts replies.
type SupportService struct {
	runner
}

// NewSupportService creates a support service.
func NewSupportService(opts Options) *SupportService {
	return &SupportService{runner: newRunner(opts)}
}

// Analyze classifies a customer message. An unusable reply is replaced by
// the neutral fallback analysis; only gateway errors are returned.
func (s *SupportService) Analyze(ctx context.Context, req *model.AnalysisRequest) (*model.AnalysisResult, error) {
	messages, err := prompt.Analysis(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	c := s.begin(ctx, model.FunctionAnalyzeSupport)
	resp, err := s.primary(ctx, c, messages)
	if err != nil {
		return nil, err
	}

	result, ok := normalize.Analysis(resp.Content)
	if !ok {
		c.fallback("analysis")
	}

	c.event.Intent = result.Intent
	c.event.Sentiment = result.Sentiment
	c.event.Priority = result.Priority
	c.event.ChurnRisk = result.ChurnRisk
	s.finish(ctx, c)

	return &result, nil
}

// GenerateReply drafts a reply, then asks for quick actions. The actions
// call is issued only after the reply succeeds.
func (s *SupportService) GenerateReply(ctx context.Context, req *model.ReplyRequest) (*model.ReplyResult, error) {
	messages, err := prompt.Reply(req)
	if err != nil {
		return nil, err
	}
	actionMessages, err := prompt.ReplyActions(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	c := s.begin(ctx, model.FunctionGenerateSupportReply)
	resp, err := s.primary(ctx, c, messages)
	if err != nil {
		return nil, err
	}

	reply, err := normalize.Text(resp)
	if err != nil {
		return nil, err
	}

	result := &model.ReplyResult{
		Reply:            reply,
		SuggestedActions: s.suggestActions(ctx, c, actionMessages, normalize.DefaultReplyActions()),
	}

	c.event.Intent = req.Intent
	c.event.Sentiment = req.Sentiment
	s.finish(ctx, c)

	return result, nil
}
