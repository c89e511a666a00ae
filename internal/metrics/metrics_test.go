package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"healthwatch/pkg/logx"
)

type capturePublisher struct {
	got []Datum
	err error
}

func (p *capturePublisher) Publish(_ context.Context, data []Datum) error {
	p.got = append(p.got, data...)
	return p.err
}

func TestRecorderCollectsInOrder(t *testing.T) {
	r := NewRecorder()
	r.Count("events_fetched", 12, map[string]string{"mode": "open"})
	r.Duration("run_duration", 1500*time.Millisecond, nil)

	data := r.Data()
	if len(data) != 2 {
		t.Fatalf("got %d data points, want 2", len(data))
	}
	if data[0].Name != "events_fetched" || data[0].Value != 12 {
		t.Fatalf("unexpected first datum: %+v", data[0])
	}
	if data[1].Name != "run_duration" || data[1].Value != 1.5 {
		t.Fatalf("unexpected second datum: %+v", data[1])
	}
}

func TestFlushPublishesOnceAndSwallowsErrors(t *testing.T) {
	r := NewRecorder()
	r.Count("notifications_sent", 1, nil)

	pub := &capturePublisher{err: errors.New("throttled")}
	r.Flush(context.Background(), pub, logx.Nop())
	if len(pub.got) != 1 {
		t.Fatalf("got %d published data points, want 1", len(pub.got))
	}
}

func TestFlushSkipsEmptyRecorder(t *testing.T) {
	pub := &capturePublisher{}
	NewRecorder().Flush(context.Background(), pub, logx.Nop())
	if len(pub.got) != 0 {
		t.Fatalf("empty recorder published %d data points", len(pub.got))
	}
}

func TestSortedDimensionKeys(t *testing.T) {
	keys := sortedDimensionKeys(map[string]string{"b": "2", "a": "1", "c": "3"})
	want := []string{"a", "b", "c"}
	for i, k := range want {
		if keys[i] != k {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
	}
}
