// Package state persists healthwatch's cross-run knowledge: the last notified
// report digest, the open-event snapshot, and a rolling history of rendered
// reports.
//
// The three artifacts are independent objects with no transactional coupling.
// A crash between writes is tolerable: the next run uses whichever artifacts
// completed, and the digest gate keeps notifications idempotent.
package state

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"healthwatch/internal/feed"
	"healthwatch/internal/objstore"
	"healthwatch/pkg/logx"
)

// DefaultMaxHistory bounds the report history. Derived from the trigger
// interval and a one-week rolling window: 12 runs/hour * 24 hours * 7 days.
const DefaultMaxHistory = 2016

const (
	digestObject   = "last-digest.txt"
	snapshotObject = "open-events.json"
	historyPrefix  = "report-"
	historyTSForm  = "20060102-150405"
)

type Config struct {
	// KeyPrefix namespaces one deployment's artifacts inside a shared bucket.
	KeyPrefix string
	// MaxHistory caps retained report artifacts. 0 means DefaultMaxHistory.
	MaxHistory int
}

// Store reads and writes the persisted artifacts. All read failures degrade
// to "no prior state" and all write failures are logged without aborting the
// run: persistence here is best-effort housekeeping, never a reason to lose a
// notification.
type Store struct {
	objs       objstore.Client
	prefix     string
	maxHistory int
	log        logx.Logger
}

func New(objs objstore.Client, cfg Config, log logx.Logger) *Store {
	maxHistory := cfg.MaxHistory
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{
		objs:       objs,
		prefix:     cfg.KeyPrefix,
		maxHistory: maxHistory,
		log:        log,
	}
}

// LastDigest returns the digest of the last notified report, or "" when none
// is stored or the read fails.
func (s *Store) LastDigest(ctx context.Context) string {
	key := s.prefix + digestObject
	ok, err := s.objs.Exists(ctx, key)
	if err != nil {
		s.log.Warn("digest lookup failed", logx.String("key", key), logx.Err(err))
		return ""
	}
	if !ok {
		return ""
	}
	b, err := s.objs.Get(ctx, key)
	if err != nil {
		s.log.Warn("digest read failed", logx.String("key", key), logx.Err(err))
		return ""
	}
	return strings.TrimSpace(string(b))
}

// SaveDigest persists the digest of the report being notified. Called before
// the notification is sent, matching the established ordering; a send failure
// after this point is logged, not rolled back.
func (s *Store) SaveDigest(ctx context.Context, digest string) {
	key := s.prefix + digestObject
	if err := s.objs.Put(ctx, key, []byte(digest)); err != nil {
		s.log.Error("digest write failed", logx.String("key", key), logx.Err(err))
	}
}

// Snapshot returns the open events persisted by the previous run. A missing
// or corrupt snapshot degrades to empty: first runs and lost snapshots mean
// "no closures to report", never a failed run.
func (s *Store) Snapshot(ctx context.Context) []feed.Event {
	key := s.prefix + snapshotObject
	b, err := s.objs.Get(ctx, key)
	if err != nil {
		if err != objstore.ErrNotExist {
			s.log.Warn("snapshot read failed", logx.String("key", key), logx.Err(err))
		}
		return nil
	}
	var events []feed.Event
	if err := json.Unmarshal(b, &events); err != nil {
		s.log.Warn("snapshot corrupt, treating as empty", logx.String("key", key), logx.Err(err))
		return nil
	}
	return events
}

// SaveSnapshot replaces the open-event snapshot. An empty current set is not
// written: the stale snapshot then keeps re-deriving the same closed events,
// whose unchanged report digest suppresses duplicate notifications.
func (s *Store) SaveSnapshot(ctx context.Context, events []feed.Event) {
	if len(events) == 0 {
		return
	}
	b, err := json.Marshal(events)
	if err != nil {
		s.log.Error("snapshot marshal failed", logx.Err(err))
		return
	}
	key := s.prefix + snapshotObject
	if err := s.objs.Put(ctx, key, b); err != nil {
		s.log.Error("snapshot write failed", logx.String("key", key), logx.Err(err))
	}
}

// AppendHistory stores the run's rendered report as a timestamped artifact.
// Empty reports are stored too: the history records every run.
func (s *Store) AppendHistory(ctx context.Context, body string, at time.Time) {
	key := s.prefix + historyPrefix + at.UTC().Format(historyTSForm) + ".txt"
	if err := s.objs.Put(ctx, key, []byte(body)); err != nil {
		s.log.Error("history write failed", logx.String("key", key), logx.Err(err))
	}
}

// Truncate enforces the history retention bound, deleting the oldest report
// artifacts first. Deletion failures are logged per key and never fail the
// run.
func (s *Store) Truncate(ctx context.Context) {
	objects, err := s.objs.List(ctx)
	if err != nil {
		s.log.Warn("history list failed", logx.Err(err))
		return
	}

	var history []objstore.ObjectInfo
	for _, o := range objects {
		if strings.HasPrefix(o.Key, s.prefix+historyPrefix) {
			history = append(history, o)
		}
	}
	if len(history) <= s.maxHistory {
		return
	}

	sort.Slice(history, func(i, j int) bool {
		if !history[i].LastModified.Equal(history[j].LastModified) {
			return history[i].LastModified.Before(history[j].LastModified)
		}
		return history[i].Key < history[j].Key
	})

	excess := len(history) - s.maxHistory
	keys := make([]string, 0, excess)
	for _, o := range history[:excess] {
		keys = append(keys, o.Key)
	}

	deleted, err := s.objs.Delete(ctx, keys)
	if err != nil {
		s.log.Error("history truncation failed", logx.Err(err))
	}
	if len(deleted) != len(keys) {
		gone := make(map[string]struct{}, len(deleted))
		for _, k := range deleted {
			gone[k] = struct{}{}
		}
		for _, k := range keys {
			if _, ok := gone[k]; !ok {
				s.log.Error("history artifact not deleted", logx.String("key", k))
			}
		}
	}
	s.log.Debug("history truncated",
		logx.Int("deleted", len(deleted)),
		logx.Int("retained", s.maxHistory))
}
