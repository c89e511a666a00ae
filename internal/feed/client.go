package feed

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"healthwatch/pkg/logx"
)

// Detail batch ceiling: the upstream detail call accepts at most 10 ARNs per
// request with a total request size around 1600 chars. Event ARNs are long, so
// the working ceiling is half the documented one.
const DefaultDetailBatchSize = 5

// API is the page-level surface of the upstream feed. One call, one page;
// the Client owns continuation-token loops and batching.
type API interface {
	EventsPage(ctx context.Context, f Filter, nextToken string) (events []Event, next string, err error)
	DetailsBatch(ctx context.Context, arns []string) ([]EventDetail, error)
	EntitiesPage(ctx context.Context, arns []string, nextToken string) (entities []AffectedEntity, next string, err error)
}

type Options struct {
	// DetailBatchSize caps ARNs per detail/entity request. Default 5.
	DetailBatchSize int
	// RatePerSec throttles upstream calls; the feed API has low account-level
	// throttles. Default 5.
	RatePerSec float64
}

// Client retrieves and enriches events. All upstream errors propagate to the
// caller: a failed fetch is fatal to the run and the next trigger retries.
type Client struct {
	api       API
	limiter   *rate.Limiter
	batchSize int
	log       logx.Logger
}

func NewClient(api API, opts Options, log logx.Logger) *Client {
	batch := opts.DetailBatchSize
	if batch <= 0 {
		batch = DefaultDetailBatchSize
	}
	rps := opts.RatePerSec
	if rps <= 0 {
		rps = 5
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{
		api:       api,
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
		batchSize: batch,
		log:       log,
	}
}

// FetchEvents returns all events matching the filter, following continuation
// tokens to exhaustion. Result size is bounded only by the feed and the
// filter's time ranges.
func (c *Client) FetchEvents(ctx context.Context, f Filter) ([]Event, error) {
	var (
		all   []Event
		token string
		pages int
	)
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		events, next, err := c.api.EventsPage(ctx, f, token)
		if err != nil {
			return nil, fmt.Errorf("fetch events page %d: %w", pages+1, err)
		}
		all = append(all, events...)
		pages++
		if next == "" {
			break
		}
		token = next
	}
	c.log.Debug("fetched events", logx.Int("count", len(all)), logx.Int("pages", pages))
	return all, nil
}

// Enrich retrieves descriptions and affected entities for the given events in
// size-bounded batches and joins entities back to their events by ARN content
// equality. An empty input returns immediately without any upstream call.
//
// Events whose detail lookup lands in the upstream failed set are absent from
// the result.
func (c *Client) Enrich(ctx context.Context, events []Event) ([]Enriched, error) {
	if len(events) == 0 {
		return nil, nil
	}

	arns := make([]string, 0, len(events))
	for _, e := range events {
		arns = append(arns, e.Arn)
	}

	var (
		details  []EventDetail
		entities []AffectedEntity
	)
	for _, batch := range chunk(arns, c.batchSize) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		d, err := c.api.DetailsBatch(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("describe event details: %w", err)
		}
		details = append(details, d...)

		ents, err := c.fetchEntities(ctx, batch)
		if err != nil {
			return nil, err
		}
		entities = append(entities, ents...)
	}

	// Join strictly by ARN string content.
	byEvent := make(map[string][]AffectedEntity, len(details))
	for _, ent := range entities {
		byEvent[ent.EventArn] = append(byEvent[ent.EventArn], ent)
	}

	out := make([]Enriched, 0, len(details))
	for _, d := range details {
		out = append(out, Enriched{
			Event:       d.Event,
			Description: d.LatestDescription,
			Entities:    byEvent[d.Event.Arn],
		})
	}
	c.log.Debug("enriched events",
		logx.Int("events", len(out)),
		logx.Int("entities", len(entities)))
	return out, nil
}

// fetchEntities follows continuation tokens for one ARN batch to exhaustion.
func (c *Client) fetchEntities(ctx context.Context, arns []string) ([]AffectedEntity, error) {
	var (
		all   []AffectedEntity
		token string
	)
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		ents, next, err := c.api.EntitiesPage(ctx, arns, token)
		if err != nil {
			return nil, fmt.Errorf("describe affected entities: %w", err)
		}
		all = append(all, ents...)
		if next == "" {
			return all, nil
		}
		token = next
	}
}

func chunk(arns []string, size int) [][]string {
	if size <= 0 {
		size = DefaultDetailBatchSize
	}
	var out [][]string
	for i := 0; i < len(arns); i += size {
		end := i + size
		if end > len(arns) {
			end = len(arns)
		}
		out = append(out, arns[i:end])
	}
	return out
}
