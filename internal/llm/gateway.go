package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/capitalize-ai/ai-functions/pkg/logger"
	"github.com/capitalize-ai/ai-functions/pkg/metrics"
	"github.com/capitalize-ai/ai-functions/pkg/tracing"
)

const (
	logMessagePrefix = 100
	logBodyPrefix    = 200
)

// GatewayConfig configures a GatewayClient.
type GatewayConfig struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
	MaxRPS      float64

	// Transport overrides the HTTP transport; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// GatewayClient calls the hosted OpenAI-compatible completion endpoint.
type GatewayClient struct {
	client      *openai.Client
	apiKey      string
	timeout     time.Duration
	maxAttempts int
	retryDelay  time.Duration
	limiter     *rate.Limiter
	logger      *logger.Logger
}

// NewGatewayClient creates a gateway client. An empty API key is accepted;
// every call then fails with ErrMisconfigured.
func NewGatewayClient(cfg GatewayConfig, log *logger.Logger) *GatewayClient {
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL
	config.HTTPClient = &http.Client{
		Transport: &snapshotTransport{base: transport},
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}

	var limiter *rate.Limiter
	if cfg.MaxRPS > 0 {
		burst := int(cfg.MaxRPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), burst)
	}

	return &GatewayClient{
		client:      openai.NewClientWithConfig(config),
		apiKey:      cfg.APIKey,
		timeout:     timeout,
		maxAttempts: attempts,
		retryDelay:  retryDelay,
		limiter:     limiter,
		logger:      log,
	}
}

// Configured reports whether a credential is present.
func (c *GatewayClient) Configured() bool {
	return c.apiKey != ""
}

// Complete sends a completion request. Transport failures are retried with
// exponential backoff; rate-limit and credit errors return immediately.
func (c *GatewayClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMisconfigured
	}

	start := time.Now()

	ctx, span := tracing.Tracer().Start(ctx, "llm.complete", trace.WithAttributes(
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.messages", len(req.Messages)),
	))
	defer span.End()

	c.logger.Info("calling AI gateway",
		zap.String("model", req.Model),
		zap.String("message", Truncate(lastUserContent(req.Messages), logMessagePrefix)),
	)

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	var resp openai.ChatCompletionResponse
	attempts := 0

	operation := func() error {
		attempts++
		if err := c.wait(ctx); err != nil {
			return backoff.Permanent(&GatewayError{Kind: KindTransportFailure, Err: err})
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		snap := &bodySnapshot{}
		r, err := c.client.CreateChatCompletion(withSnapshot(attemptCtx, snap), openai.ChatCompletionRequest{
			Model:    req.Model,
			Messages: messages,
		})
		if err != nil {
			gwErr := classify(err)
			if snap.status != 0 {
				gwErr.Body = Truncate(snap.body, logBodyPrefix)
			}
			c.logger.Error("AI gateway error",
				zap.String("model", req.Model),
				zap.Int("attempt", attempts),
				zap.String("kind", string(gwErr.Kind)),
				zap.Int("status", gwErr.StatusCode),
				zap.String("body", gwErr.Body),
				zap.Error(gwErr.Err),
			)
			if !gwErr.Retryable() || ctx.Err() != nil {
				return backoff.Permanent(gwErr)
			}
			return gwErr
		}

		resp = r
		return nil
	}

	err := backoff.RetryNotify(operation, c.backOff(ctx), func(err error, wait time.Duration) {
		metrics.RecordRetry(req.Model)
		c.logger.Warn("retrying AI gateway call",
			zap.String("model", req.Model),
			zap.Duration("wait", wait),
		)
	})
	duration := time.Since(start)

	if err != nil {
		gwErr := classify(err)
		span.RecordError(gwErr)
		span.SetStatus(codes.Error, gwErr.Error())
		span.SetAttributes(attribute.String("llm.outcome", string(gwErr.Kind)))
		metrics.RecordGatewayCall(req.Model, string(gwErr.Kind), duration.Seconds(), 0, 0)
		return nil, gwErr
	}

	out := &CompletionResponse{
		Model:     resp.Model,
		TokensIn:  resp.Usage.PromptTokens,
		TokensOut: resp.Usage.CompletionTokens,
		LatencyMs: duration.Milliseconds(),
		Attempts:  attempts,
	}
	if out.Model == "" {
		out.Model = req.Model
	}
	if len(resp.Choices) > 0 {
		out.Content = resp.Choices[0].Message.Content
		out.StopReason = string(resp.Choices[0].FinishReason)
	}

	span.SetAttributes(
		attribute.String("llm.outcome", "success"),
		attribute.Int("llm.attempts", attempts),
	)
	metrics.RecordGatewayCall(req.Model, "success", duration.Seconds(), out.TokensIn, out.TokensOut)

	return out, nil
}

func (c *GatewayClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

func (c *GatewayClient) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryDelay
	b.MaxInterval = 10 * c.retryDelay
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxAttempts-1)), ctx)
}
