package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/ai-functions/internal/model"
)

type fakeMsg struct {
	jetstream.Msg
	data []byte
	seq  uint64
}

func (m fakeMsg) Data() []byte { return m.data }

func (m fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{Sequence: jetstream.SequencePair{Stream: m.seq}}, nil
}

type fakeBatch struct {
	ch chan jetstream.Msg
}

func (b fakeBatch) Messages() <-chan jetstream.Msg { return b.ch }
func (b fakeBatch) Error() error                   { return nil }

type fakeConsumer struct {
	jetstream.Consumer
	name string
	msgs []jetstream.Msg
}

func (c *fakeConsumer) CachedInfo() *jetstream.ConsumerInfo {
	return &jetstream.ConsumerInfo{Name: c.name}
}

func (c *fakeConsumer) FetchNoWait(limit int) (jetstream.MessageBatch, error) {
	ch := make(chan jetstream.Msg, len(c.msgs))
	for i, m := range c.msgs {
		if i == limit {
			break
		}
		ch <- m
	}
	close(ch)
	return fakeBatch{ch: ch}, nil
}

// fakeJetStream hands out consumers over a fixed message list and records
// which consumers were created and deleted.
type fakeJetStream struct {
	msgs      []jetstream.Msg
	createErr error
	created   []jetstream.ConsumerConfig
	deleted   []string
}

func (f *fakeJetStream) CreateConsumer(_ context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, cfg)
	return &fakeConsumer{name: fmt.Sprintf("replay-%d", len(f.created)), msgs: f.msgs}, nil
}

func (f *fakeJetStream) DeleteConsumer(_ context.Context, stream string, consumer string) error {
	f.deleted = append(f.deleted, stream+"/"+consumer)
	return nil
}

func eventMsg(t *testing.T, id string, seq uint64) jetstream.Msg {
	t.Helper()
	data, err := json.Marshal(model.FunctionEvent{ID: id, Function: model.FunctionAnalyzeSupport})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return fakeMsg{data: data, seq: seq}
}

func TestFetchEventsDeletesConsumer(t *testing.T) {
	js := &fakeJetStream{msgs: []jetstream.Msg{
		eventMsg(t, "a", 7),
		fakeMsg{data: []byte("not json"), seq: 8},
		eventMsg(t, "b", 9),
	}}

	events, last, hasMore, err := fetchEvents(context.Background(), js, 6, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 2 || events[0].ID != "a" || events[1].ID != "b" || events[1].Sequence != 9 {
		t.Errorf("unexpected events %+v", events)
	}
	if last != 9 || hasMore {
		t.Errorf("last = %d, hasMore = %v", last, hasMore)
	}

	if len(js.created) != 1 {
		t.Fatalf("expected one consumer, got %d", len(js.created))
	}
	cfg := js.created[0]
	if cfg.DeliverPolicy != jetstream.DeliverByStartSequencePolicy || cfg.OptStartSeq != 7 {
		t.Errorf("unexpected start %v/%d", cfg.DeliverPolicy, cfg.OptStartSeq)
	}
	if len(js.deleted) != 1 || js.deleted[0] != StreamName+"/replay-1" {
		t.Errorf("consumer not deleted: %v", js.deleted)
	}
}

func TestFetchEventsEveryBatchCleansUp(t *testing.T) {
	js := &fakeJetStream{msgs: []jetstream.Msg{eventMsg(t, "a", 1), eventMsg(t, "b", 2)}}

	_, last, hasMore, err := fetchEvents(context.Background(), js, 0, 2)
	if err != nil || last != 2 || !hasMore {
		t.Fatalf("first batch: last=%d hasMore=%v err=%v", last, hasMore, err)
	}
	if js.created[0].DeliverPolicy != jetstream.DeliverAllPolicy {
		t.Errorf("expected deliver-all from the start, got %v", js.created[0].DeliverPolicy)
	}

	js.msgs = nil
	if _, _, _, err := fetchEvents(context.Background(), js, last, 2); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	if len(js.deleted) != 2 {
		t.Errorf("expected both consumers deleted, got %v", js.deleted)
	}
}

func TestFetchEventsCreateFailure(t *testing.T) {
	js := &fakeJetStream{createErr: errors.New("stream offline")}

	if _, _, _, err := fetchEvents(context.Background(), js, 0, 10); err == nil {
		t.Fatal("expected an error")
	}
	if len(js.deleted) != 0 {
		t.Errorf("nothing to delete, got %v", js.deleted)
	}
}
