package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/capitalize-ai/ai-functions/internal/model"
)

const (
	// StreamName is the name of the function events stream.
	StreamName = "AI_FUNCTIONS"

	// SubjectPrefix is the prefix for all function event subjects.
	SubjectPrefix = "fn"
)

// EventStream stores and replays function events on JetStream.
type EventStream struct {
	client *Client
}

// NewEventStream creates a new event stream.
func NewEventStream(client *Client) *EventStream {
	return &EventStream{client: client}
}

// EnsureStream ensures the function events stream exists.
func (s *EventStream) EnsureStream(ctx context.Context) error {
	js := s.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream: %w", err)
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{SubjectPrefix + ".>"},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024, // 1GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Discard:     jetstream.DiscardOld,
		Description: "Summaries of completed AI function calls",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	s.client.logger.Info("created JetStream stream", zap.String("stream", StreamName))
	return nil
}

// EventSubject returns the subject for a function event.
func EventSubject(function string, status model.EventStatus) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, function, status)
}

// Publish writes an event to the stream and records its sequence on it.
func (s *EventStream) Publish(ctx context.Context, event *model.FunctionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := s.client.JetStream().Publish(ctx, EventSubject(event.Function, event.Status), data,
		jetstream.WithMsgID(event.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	event.Sequence = ack.Sequence
	return nil
}

func consumerStart(afterSequence uint64) (jetstream.DeliverPolicy, uint64) {
	if afterSequence > 0 {
		return jetstream.DeliverByStartSequencePolicy, afterSequence + 1
	}
	return jetstream.DeliverAllPolicy, 0
}

func decodeEvent(msg jetstream.Msg) (model.FunctionEvent, bool) {
	var event model.FunctionEvent
	if err := json.Unmarshal(msg.Data(), &event); err != nil {
		return event, false
	}
	if meta, err := msg.Metadata(); err == nil {
		event.Sequence = meta.Sequence.Stream
	}
	return event, true
}

// consumerManager is the part of JetStream that batch replay needs.
type consumerManager interface {
	CreateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)
	DeleteConsumer(ctx context.Context, stream string, consumer string) error
}

// GetEvents returns up to limit stored events after a sequence, the last
// sequence seen and whether more may follow.
func (s *EventStream) GetEvents(ctx context.Context, afterSequence uint64, limit int) ([]model.FunctionEvent, uint64, bool, error) {
	return fetchEvents(ctx, s.client.JetStream(), afterSequence, limit)
}

// fetchEvents reads one batch through a short-lived consumer and deletes it
// afterwards so replays do not leave consumers behind.
func fetchEvents(ctx context.Context, js consumerManager, afterSequence uint64, limit int) ([]model.FunctionEvent, uint64, bool, error) {
	policy, start := consumerStart(afterSequence)

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject:     SubjectPrefix + ".>",
		AckPolicy:         jetstream.AckNonePolicy,
		DeliverPolicy:     policy,
		OptStartSeq:       start,
		InactiveThreshold: 30 * time.Second,
	})
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create consumer: %w", err)
	}
	defer func() {
		// InactiveThreshold reaps the consumer if this delete fails.
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		js.DeleteConsumer(delCtx, StreamName, consumer.CachedInfo().Name)
	}()

	batch, err := consumer.FetchNoWait(limit)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to fetch events: %w", err)
	}

	var events []model.FunctionEvent
	lastSequence := afterSequence
	for msg := range batch.Messages() {
		event, ok := decodeEvent(msg)
		if !ok {
			continue
		}
		if event.Sequence > lastSequence {
			lastSequence = event.Sequence
		}
		events = append(events, event)
	}

	if err := batch.Error(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, 0, false, fmt.Errorf("batch error: %w", err)
	}

	return events, lastSequence, len(events) == limit, nil
}

// Follow delivers every event after a sequence to fn until stop is called.
// fn runs on the consumer goroutine.
func (s *EventStream) Follow(ctx context.Context, afterSequence uint64, fn func(model.FunctionEvent)) (func(), error) {
	policy, start := consumerStart(afterSequence)

	consumer, err := s.client.JetStream().OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{SubjectPrefix + ".>"},
		DeliverPolicy:  policy,
		OptStartSeq:    start,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ordered consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		if event, ok := decodeEvent(msg); ok {
			fn(event)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to consume events: %w", err)
	}

	return cc.Stop, nil
}
