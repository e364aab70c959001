// Package service runs the AI functions: build the prompt, call the gateway,
// normalize the reply and publish a summary event.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/ai-functions/internal/llm"
	"github.com/capitalize-ai/ai-functions/internal/model"
	"github.com/capitalize-ai/ai-functions/internal/normalize"
	"github.com/capitalize-ai/ai-functions/pkg/logger"
	"github.com/capitalize-ai/ai-functions/pkg/metrics"
)

const publishTimeout = 2 * time.Second

// EventPublisher records completed function calls.
type EventPublisher interface {
	Publish(ctx context.Context, event *model.FunctionEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, *model.FunctionEvent) error { return nil }

// Options holds the dependencies shared by all services.
type Options struct {
	Client       llm.Client
	Model        string
	ActionsModel string
	Publisher    EventPublisher
	Logger       *logger.Logger

	// Timeout bounds a whole invocation, primary and actions calls
	// included. Zero means no bound beyond the caller's context.
	Timeout time.Duration
}

type runner struct {
	client       llm.Client
	model        string
	actionsModel string
	publisher    EventPublisher
	logger       *logger.Logger
	timeout      time.Duration
}

func newRunner(opts Options) runner {
	r := runner{
		client:       opts.Client,
		model:        opts.Model,
		actionsModel: opts.ActionsModel,
		publisher:    opts.Publisher,
		logger:       opts.Logger,
		timeout:      opts.Timeout,
	}
	if r.actionsModel == "" {
		r.actionsModel = r.model
	}
	if r.publisher == nil {
		r.publisher = NopPublisher{}
	}
	if r.logger == nil {
		r.logger = logger.NewNop()
	}
	return r
}

// bound applies the invocation deadline to ctx.
func (r *runner) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// call tracks one function invocation from the primary call to its event.
type call struct {
	function string
	started  time.Time
	log      *logger.Logger
	event    *model.FunctionEvent
}

func (r *runner) begin(ctx context.Context, function string) *call {
	return &call{
		function: function,
		started:  time.Now(),
		log:      r.logger.ForFunction(function, logger.CorrelationID(ctx)),
		event: &model.FunctionEvent{
			Function: function,
			Status:   model.EventStatusCompleted,
			Model:    r.model,
		},
	}
}

// fallback marks part of the result as substituted.
func (c *call) fallback(part string) {
	c.event.Status = model.EventStatusDegraded
	c.event.Fallback = append(c.event.Fallback, part)
	metrics.RecordFallback(c.function, part)
	c.log.Warn("using fallback", zap.String("part", part))
}

func (r *runner) primary(ctx context.Context, c *call, messages []llm.ChatMessage) (*llm.CompletionResponse, error) {
	resp, err := r.client.Complete(ctx, &llm.CompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		c.log.Error("primary completion failed", zap.Error(err))
		return nil, err
	}
	if resp.Model != "" {
		c.event.Model = resp.Model
	}
	return resp, nil
}

// suggestActions runs the best-effort actions sub-call. Any failure yields
// the fallback list; it never fails the invocation.
func (r *runner) suggestActions(ctx context.Context, c *call, messages []llm.ChatMessage, fallback []string) []string {
	resp, err := r.client.Complete(ctx, &llm.CompletionRequest{
		Model:    r.actionsModel,
		Messages: messages,
	})
	if err != nil {
		c.log.Warn("suggested actions call failed", zap.Error(err))
		c.fallback("suggested_actions")
		return fallback
	}

	actions, ok := normalize.Actions(resp.Content, fallback)
	if !ok {
		c.fallback("suggested_actions")
	}
	return actions
}

// finish publishes the event for a successful invocation. Publication errors
// are logged and dropped.
func (r *runner) finish(ctx context.Context, c *call) {
	c.event.ID = uuid.Must(uuid.NewV7()).String()
	c.event.LatencyMs = time.Since(c.started).Milliseconds()
	c.event.CreatedAt = time.Now().UTC()

	c.log.Info("function completed",
		zap.String("status", string(c.event.Status)),
		zap.Int64("latency_ms", c.event.LatencyMs),
	)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := r.publisher.Publish(pubCtx, c.event); err != nil {
		metrics.RecordEvent(c.function, "error")
		c.log.Warn("failed to publish function event", zap.Error(err))
		return
	}
	metrics.RecordEvent(c.function, "published")
}
