package state

import (
	"context"
	"fmt"
	"testing"
	"time"

	"healthwatch/internal/feed"
	"healthwatch/internal/objstore"
	"healthwatch/pkg/logx"
)

// memStore is an in-memory objstore.Client with controllable timestamps.
type memStore struct {
	objects map[string][]byte
	mtimes  map[string]time.Time

	// failDelete lists keys whose deletion silently fails.
	failDelete map[string]bool
	getErr     error
}

func newMemStore() *memStore {
	return &memStore{
		objects:    map[string][]byte{},
		mtimes:     map[string]time.Time{},
		failDelete: map[string]bool{},
	}
}

func (m *memStore) Put(_ context.Context, key string, body []byte) error {
	m.objects[key] = body
	m.mtimes[key] = time.Now()
	return nil
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.objects[key]
	if !ok {
		return nil, objstore.ErrNotExist
	}
	return b, nil
}

func (m *memStore) List(_ context.Context) ([]objstore.ObjectInfo, error) {
	var out []objstore.ObjectInfo
	for k := range m.objects {
		out = append(out, objstore.ObjectInfo{Key: k, LastModified: m.mtimes[k]})
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, keys []string) ([]string, error) {
	var deleted []string
	for _, k := range keys {
		if m.failDelete[k] {
			continue
		}
		delete(m.objects, k)
		delete(m.mtimes, k)
		deleted = append(deleted, k)
	}
	return deleted, nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) Close() error { return nil }

func TestDigestRoundTrip(t *testing.T) {
	mem := newMemStore()
	st := New(mem, Config{KeyPrefix: "prod-"}, logx.Nop())
	ctx := context.Background()

	if got := st.LastDigest(ctx); got != "" {
		t.Fatalf("LastDigest on empty store = %q, want empty", got)
	}

	st.SaveDigest(ctx, "deadbeef")
	if got := st.LastDigest(ctx); got != "deadbeef" {
		t.Fatalf("LastDigest = %q, want deadbeef", got)
	}
	if _, ok := mem.objects["prod-last-digest.txt"]; !ok {
		t.Fatalf("digest stored under unexpected key: %v", keysOf(mem))
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	mem := newMemStore()
	st := New(mem, Config{KeyPrefix: "prod-"}, logx.Nop())
	ctx := context.Background()

	if got := st.Snapshot(ctx); got != nil {
		t.Fatalf("Snapshot on empty store = %+v, want nil", got)
	}

	events := []feed.Event{
		{Arn: "arn:a", Status: "open", StartTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		{Arn: "arn:b", Status: "open"},
	}
	st.SaveSnapshot(ctx, events)

	got := st.Snapshot(ctx)
	if len(got) != 2 || got[0].Arn != "arn:a" || got[1].Arn != "arn:b" {
		t.Fatalf("Snapshot = %+v", got)
	}
	if !got[0].StartTime.Equal(events[0].StartTime) {
		t.Fatalf("StartTime lost in round trip: %v", got[0].StartTime)
	}
}

func TestSnapshotCorruptDegradesToEmpty(t *testing.T) {
	mem := newMemStore()
	st := New(mem, Config{KeyPrefix: "prod-"}, logx.Nop())
	ctx := context.Background()

	mem.objects["prod-open-events.json"] = []byte("{not json")
	if got := st.Snapshot(ctx); got != nil {
		t.Fatalf("corrupt snapshot should degrade to nil, got %+v", got)
	}
}

func TestSaveSnapshotSkipsEmpty(t *testing.T) {
	mem := newMemStore()
	st := New(mem, Config{KeyPrefix: "prod-"}, logx.Nop())
	ctx := context.Background()

	st.SaveSnapshot(ctx, []feed.Event{{Arn: "arn:a"}})
	st.SaveSnapshot(ctx, nil)

	// The previous snapshot must survive an empty save.
	if got := st.Snapshot(ctx); len(got) != 1 {
		t.Fatalf("empty save overwrote snapshot: %+v", got)
	}
}

func TestAppendHistoryKeyNaming(t *testing.T) {
	mem := newMemStore()
	st := New(mem, Config{KeyPrefix: "prod-"}, logx.Nop())

	at := time.Date(2026, 3, 15, 9, 30, 45, 0, time.UTC)
	st.AppendHistory(context.Background(), "body", at)

	want := "prod-report-20260315-093045.txt"
	if _, ok := mem.objects[want]; !ok {
		t.Fatalf("history key %q not found, have %v", want, keysOf(mem))
	}
}

func TestTruncateOldestFirst(t *testing.T) {
	mem := newMemStore()
	st := New(mem, Config{KeyPrefix: "prod-", MaxHistory: 3}, logx.Nop())
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		key := fmt.Sprintf("prod-report-%d.txt", i)
		mem.objects[key] = []byte("r")
		mem.mtimes[key] = base.Add(time.Duration(i) * time.Minute)
	}
	// Non-history artifacts must never be truncated, whatever their age.
	mem.objects["prod-last-digest.txt"] = []byte("d")
	mem.mtimes["prod-last-digest.txt"] = base.Add(-time.Hour)
	mem.objects["prod-open-events.json"] = []byte("[]")
	mem.mtimes["prod-open-events.json"] = base.Add(-time.Hour)

	st.Truncate(ctx)

	for _, gone := range []string{"prod-report-1.txt", "prod-report-2.txt"} {
		if _, ok := mem.objects[gone]; ok {
			t.Fatalf("%s should have been deleted", gone)
		}
	}
	for _, kept := range []string{"prod-report-3.txt", "prod-report-4.txt", "prod-report-5.txt", "prod-last-digest.txt", "prod-open-events.json"} {
		if _, ok := mem.objects[kept]; !ok {
			t.Fatalf("%s should have been retained", kept)
		}
	}
}

func TestTruncateNoopUnderLimit(t *testing.T) {
	mem := newMemStore()
	st := New(mem, Config{KeyPrefix: "prod-", MaxHistory: 3}, logx.Nop())

	for i := 1; i <= 3; i++ {
		key := fmt.Sprintf("prod-report-%d.txt", i)
		mem.objects[key] = []byte("r")
		mem.mtimes[key] = time.Now()
	}
	st.Truncate(context.Background())
	if len(mem.objects) != 3 {
		t.Fatalf("truncation under the limit removed objects: %v", keysOf(mem))
	}
}

func TestTruncateSurvivesPartialDeleteFailure(t *testing.T) {
	mem := newMemStore()
	st := New(mem, Config{KeyPrefix: "prod-", MaxHistory: 1}, logx.Nop())

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 3; i++ {
		key := fmt.Sprintf("prod-report-%d.txt", i)
		mem.objects[key] = []byte("r")
		mem.mtimes[key] = base.Add(time.Duration(i) * time.Minute)
	}
	mem.failDelete["prod-report-1.txt"] = true

	// Must not panic or error the run; the stuck key is just logged.
	st.Truncate(context.Background())

	if _, ok := mem.objects["prod-report-2.txt"]; ok {
		t.Fatal("deletable artifact should have been removed despite the stuck one")
	}
	if _, ok := mem.objects["prod-report-3.txt"]; !ok {
		t.Fatal("newest artifact should have been retained")
	}
}

func keysOf(m *memStore) []string {
	var keys []string
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}
