package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/ai-functions/internal/model"
	"github.com/capitalize-ai/ai-functions/pkg/logger"
	"github.com/capitalize-ai/ai-functions/pkg/metrics"
)

const (
	replayBatchSize   = 50
	defaultHeartbeat  = 30 * time.Second
	liveBufferEntries = 64
)

// EventFeed stores function events and follows new ones.
type EventFeed interface {
	GetEvents(ctx context.Context, afterSequence uint64, limit int) ([]model.FunctionEvent, uint64, bool, error)
	Follow(ctx context.Context, afterSequence uint64, fn func(model.FunctionEvent)) (func(), error)
}

// EventsHandler streams function events over SSE.
type EventsHandler struct {
	feed      EventFeed
	heartbeat time.Duration
	logger    *logger.Logger
}

// NewEventsHandler creates a new events handler. A nil feed answers 503.
func NewEventsHandler(feed EventFeed, heartbeat time.Duration, log *logger.Logger) *EventsHandler {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return &EventsHandler{
		feed:      feed,
		heartbeat: heartbeat,
		logger:    log,
	}
}

// Stream handles GET /functions/v1/events
// Supports ?after_sequence=N for resuming from a specific point
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.feed == nil {
		writeError(w, http.StatusServiceUnavailable, "Event feed is not enabled")
		return
	}

	ctx := r.Context()

	var afterSequence uint64
	if seqStr := r.URL.Query().Get("after_sequence"); seqStr != "" {
		seq, err := strconv.ParseUint(seqStr, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "after_sequence must be a non-negative integer")
			return
		}
		afterSequence = seq
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	// The server write timeout would otherwise cut long-lived streams
	http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	w.WriteHeader(http.StatusOK)

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	log := h.logger.With(zap.String("correlation_id", logger.CorrelationID(ctx)))

	sendSSEEvent(w, flusher, "connected", map[string]uint64{
		"after_sequence": afterSequence,
	})

	// Replay backlog in batches
	lastSequence := afterSequence
	replayed := 0
	for {
		events, last, hasMore, err := h.feed.GetEvents(ctx, lastSequence, replayBatchSize)
		if err != nil {
			log.Error("failed to replay events", zap.Error(err))
			sendSSEEvent(w, flusher, "error", model.ErrorResponse{Error: "Failed to replay events"})
			return
		}

		for _, ev := range events {
			if ctx.Err() != nil {
				return
			}
			sendSSEEvent(w, flusher, "event", ev)
			replayed++
		}
		lastSequence = last

		if !hasMore {
			break
		}
	}

	sendSSEEvent(w, flusher, "replay_complete", &model.ReplayCompleteEvent{
		LastSequence: lastSequence,
		EventCount:   replayed,
	})

	log.Info("event replay complete",
		zap.Int("events_replayed", replayed),
		zap.Uint64("last_sequence", lastSequence),
	)

	live := make(chan model.FunctionEvent, liveBufferEntries)
	stop, err := h.feed.Follow(ctx, lastSequence, func(ev model.FunctionEvent) {
		select {
		case live <- ev:
		case <-ctx.Done():
		}
	})
	if err != nil {
		log.Error("failed to follow events", zap.Error(err))
		sendSSEEvent(w, flusher, "error", model.ErrorResponse{Error: "Failed to follow events"})
		return
	}
	defer stop()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("SSE client disconnected")
			return

		case ev := <-live:
			sendSSEEvent(w, flusher, "event", ev)

		case <-heartbeat.C:
			sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{
				Timestamp: time.Now(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()

	return nil
}
