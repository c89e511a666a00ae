package feed

import (
	"strings"
	"time"
)

// Event is one health event as reported by the upstream feed.
//
// Identity is the ARN: two events are the same event iff their ARNs are equal
// as strings. Set operations (snapshot diffing) key on Arn only, never on the
// remaining fields and never on pointer identity.
type Event struct {
	Arn              string            `json:"arn"`
	AvailabilityZone string            `json:"availability_zone,omitempty"`
	Region           string            `json:"region"`
	Service          string            `json:"service"`
	TypeCode         string            `json:"type_code"`
	Category         string            `json:"category"`
	Status           string            `json:"status"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          time.Time         `json:"end_time,omitempty"`
	LastUpdatedTime  time.Time         `json:"last_updated_time,omitempty"`
	Tags             map[string]string `json:"tags,omitempty"`
}

// EventDetail is the enriched form of one event: the event as returned by the
// detail call plus its free-text description.
type EventDetail struct {
	Event             Event
	LatestDescription string
}

// AffectedEntity is one resource affected by an event. EventArn links it back
// to its owning event.
type AffectedEntity struct {
	EntityArn       string            `json:"entity_arn"`
	EntityURL       string            `json:"entity_url,omitempty"`
	EntityValue     string            `json:"entity_value,omitempty"`
	EventArn        string            `json:"event_arn"`
	StatusCode      string            `json:"status_code,omitempty"`
	LastUpdatedTime time.Time         `json:"last_updated_time,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
}

// Enriched bundles an event with its description and affected entities,
// ready for rendering.
type Enriched struct {
	Event       Event
	Description string
	Entities    []AffectedEntity
}

// TimeRange bounds event start or end times in a filter.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Filter selects events from the feed.
type Filter struct {
	Regions    []string
	Categories []string
	Statuses   []string
	Tags       []map[string]string

	// StartTimes MUST be set when Statuses includes "closed": without it the
	// feed returns unbounded history.
	StartTimes []TimeRange
	EndTimes   []TimeRange
}

// IncludesClosed reports whether the filter asks the feed for closed events.
// When it does not, closure is inferred locally by snapshot diffing.
func (f Filter) IncludesClosed() bool {
	for _, s := range f.Statuses {
		if strings.EqualFold(strings.TrimSpace(s), "closed") {
			return true
		}
	}
	return false
}
