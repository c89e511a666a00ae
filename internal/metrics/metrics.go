// Package metrics accumulates per-run operational measurements and flushes
// them in one publish call at the end of the run.
package metrics

import (
	"context"
	"sort"
	"sync"
	"time"

	"healthwatch/pkg/logx"
)

const DefaultNamespace = "healthwatch"

// Datum is one measurement taken during a run.
type Datum struct {
	Name       string
	Value      float64
	Dimensions map[string]string
	At         time.Time
}

// Publisher ships a batch of data points to a metrics backend.
type Publisher interface {
	Publish(ctx context.Context, data []Datum) error
}

// Recorder collects data points for a single run. It is safe for concurrent
// use; a fresh Recorder is created per run so counters never leak between
// runs.
type Recorder struct {
	mu   sync.Mutex
	data []Datum
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Count(name string, n float64, dims map[string]string) {
	r.add(Datum{Name: name, Value: n, Dimensions: dims, At: time.Now()})
}

func (r *Recorder) Duration(name string, d time.Duration, dims map[string]string) {
	r.add(Datum{Name: name, Value: d.Seconds(), Dimensions: dims, At: time.Now()})
}

func (r *Recorder) add(d Datum) {
	r.mu.Lock()
	r.data = append(r.data, d)
	r.mu.Unlock()
}

// Data returns the recorded points in collection order.
func (r *Recorder) Data() []Datum {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Datum, len(r.data))
	copy(out, r.data)
	return out
}

// Flush publishes everything recorded so far. Publish failures are logged,
// not returned: metrics must never fail a run.
func (r *Recorder) Flush(ctx context.Context, pub Publisher, log logx.Logger) {
	data := r.Data()
	if len(data) == 0 || pub == nil {
		return
	}
	if err := pub.Publish(ctx, data); err != nil {
		log.Warn("metrics publish failed", logx.Err(err), logx.Int("count", len(data)))
	}
}

// Nop discards all data points.
type Nop struct{}

func (Nop) Publish(context.Context, []Datum) error { return nil }

// sortedDimensionKeys keeps the wire order of dimensions deterministic.
func sortedDimensionKeys(dims map[string]string) []string {
	keys := make([]string, 0, len(dims))
	for k := range dims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
