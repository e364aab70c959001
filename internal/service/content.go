package service

import (
	"context"

	"github.com/capitalize-ai/ai-functions/internal/model"
	"github.com/capitalize-ai/ai-functions/internal/normalize"
	"github.com/capitalize-ai/ai-functions/internal/prompt"
)

// ContentService writes social media scripts.
type ContentService struct {
	runner
}

// NewContentService creates a content service.
func NewContentService(opts Options) *ContentService {
	return &ContentService{runner: newRunner(opts)}
}

// GenerateScript returns the generated script text as-is.
func (s *ContentService) GenerateScript(ctx context.Context, req *model.ScriptRequest) (*model.ScriptResult, error) {
	messages, err := prompt.Script(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	c := s.begin(ctx, model.FunctionGenerateContentScript)
	resp, err := s.primary(ctx, c, messages)
	if err != nil {
		return nil, err
	}

	script, err := normalize.Text(resp)
	if err != nil {
		return nil, err
	}
	s.finish(ctx, c)

	return &model.ScriptResult{Script: script}, nil
}
