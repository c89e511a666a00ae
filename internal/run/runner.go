// Package run executes one reconciliation pass: pull events from the feed,
// render the report, infer closures against the stored snapshot, and notify
// when the report content actually changed.
package run

import (
	"context"
	"fmt"
	"time"

	"healthwatch/internal/feed"
	"healthwatch/internal/mail"
	"healthwatch/internal/metrics"
	"healthwatch/internal/report"
	"healthwatch/internal/state"
	"healthwatch/pkg/logx"
)

type Options struct {
	// Filter is the base event filter. When it asks for closed events and
	// carries no start-time bound, Lookback caps the window.
	Filter   feed.Filter
	Lookback time.Duration

	// Template wraps the report body in the outgoing mail. Empty sends the
	// report as-is.
	Template string
}

type Runner struct {
	feed   *feed.Client
	store  *state.Store
	sender mail.Sender
	pub    metrics.Publisher
	opts   Options
	log    logx.Logger

	// now is swappable for tests.
	now func() time.Time
}

func New(fc *feed.Client, store *state.Store, sender mail.Sender, pub metrics.Publisher, opts Options, log logx.Logger) *Runner {
	if opts.Lookback <= 0 {
		opts.Lookback = 90 * 24 * time.Hour
	}
	return &Runner{
		feed:   fc,
		store:  store,
		sender: sender,
		pub:    pub,
		opts:   opts,
		log:    log,
		now:    time.Now,
	}
}

// Execute performs one full pass. Only feed failures abort the run; state
// writes and mail delivery degrade to logged errors so a flaky backend
// cannot wedge the loop.
func (r *Runner) Execute(ctx context.Context) error {
	started := r.now()
	rec := metrics.NewRecorder()
	defer func() {
		rec.Duration("run_duration", r.now().Sub(started), nil)
		rec.Flush(ctx, r.pub, r.log)
	}()

	f := r.effectiveFilter(started)

	events, err := r.feed.FetchEvents(ctx, f)
	if err != nil {
		return fmt.Errorf("fetch events: %w", err)
	}
	rec.Count("events_fetched", float64(len(events)), nil)
	r.log.Info("fetched health events", logx.Int("count", len(events)))

	enriched, err := r.feed.Enrich(ctx, events)
	if err != nil {
		return fmt.Errorf("enrich events: %w", err)
	}
	body := report.Render(enriched, 1)

	// When the filter already covers closed events the feed is the source of
	// truth for closure. Otherwise closure is inferred by diffing against
	// the snapshot of the previous run.
	inferClosed := !f.IncludesClosed()
	if inferClosed {
		previous := r.store.Snapshot(ctx)
		closed := feed.Diff(previous, events)
		rec.Count("events_closed", float64(len(closed)), nil)
		if len(closed) > 0 {
			r.log.Info("events closed since last run", logx.Int("count", len(closed)))
			closedEnriched, err := r.feed.Enrich(ctx, closed)
			if err != nil {
				return fmt.Errorf("enrich closed events: %w", err)
			}
			body += report.Render(closedEnriched, len(events)+1)
		}
	}

	lastDigest := r.store.LastDigest(ctx)
	notify, digest := report.ShouldNotify(body, lastDigest)
	switch {
	case !notify && digest == "":
		r.log.Info("no health events matched the filter")
	case !notify:
		r.log.Info("report unchanged since last notification", logx.String("digest", digest))
	default:
		r.send(ctx, rec, body, digest)
	}

	r.store.AppendHistory(ctx, body, started)
	r.store.Truncate(ctx)
	if inferClosed {
		r.store.SaveSnapshot(ctx, events)
	}
	return nil
}

// send persists the digest before delivery: a send that fails after the
// digest is written is logged and not retried, because retrying on the next
// tick would duplicate mail whenever the failure was on the response path.
func (r *Runner) send(ctx context.Context, rec *metrics.Recorder, body, digest string) {
	r.store.SaveDigest(ctx, digest)

	msg := mail.Compose(r.opts.Template, body)
	r.log.Info("sending health report", logx.Int("bytes", len(msg)), logx.String("report", msg))
	id, err := r.sender.Send(ctx, "", msg)
	if err != nil {
		r.log.Error("report delivery failed", logx.Err(err), logx.String("digest", digest))
		return
	}
	rec.Count("notifications_sent", 1, nil)
	r.log.Info("health report sent", logx.String("message_id", id), logx.String("digest", digest))
}

func (r *Runner) effectiveFilter(now time.Time) feed.Filter {
	f := r.opts.Filter
	if f.IncludesClosed() && len(f.StartTimes) == 0 {
		f.StartTimes = []feed.TimeRange{{From: now.Add(-r.opts.Lookback), To: now}}
	}
	return f
}
