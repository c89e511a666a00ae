// Package report renders health events into the deterministic text form that
// is hashed for notification dedup and mailed to operators.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"healthwatch/internal/feed"
)

type field struct {
	name  string
	value string
}

// eventFields is the versioned, explicit field list for one event block.
//
// The names are emitted in fixed alphabetical order. That ordering is
// load-bearing: the dedup hash is computed over the rendered text, so the
// field enumeration must be byte-stable across runs and upstream SDK updates.
// When adding a field, insert it in alphabetical position.
func eventFields(e feed.Event) []field {
	return []field{
		{"Arn", e.Arn},
		{"AvailabilityZone", e.AvailabilityZone},
		{"Category", e.Category},
		{"EndTime", formatTime(e.EndTime)},
		{"LastUpdatedTime", formatTime(e.LastUpdatedTime)},
		{"Region", e.Region},
		{"Service", e.Service},
		{"StartTime", formatTime(e.StartTime)},
		{"StatusCode", e.Status},
		{"Tags", formatTagsInline(e.Tags)},
		{"TypeCode", e.TypeCode},
	}
}

// Render turns enriched events into the report text.
//
// Blocks are ordered by start time descending (most recent first) with the
// ARN as the tie-break, numbered sequentially from counterOffset. The offset
// lets the current-events section and the recently-closed section of one run
// share continuous numbering.
//
// Render is a pure function of its input: same events in any input order
// yield byte-identical output. An empty input yields an empty string, which
// callers treat as "nothing to report".
func Render(items []feed.Enriched, counterOffset int) string {
	if len(items) == 0 {
		return ""
	}

	sorted := make([]feed.Enriched, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i].Event, sorted[j].Event
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.After(b.StartTime)
		}
		return a.Arn < b.Arn
	})

	var b strings.Builder
	num := counterOffset
	for _, it := range sorted {
		fmt.Fprintf(&b, "Event %d)\n", num)
		num++

		for _, f := range eventFields(it.Event) {
			b.WriteString(f.name)
			b.WriteString(": ")
			b.WriteString(f.value)
			b.WriteString("\n")
		}
		b.WriteString("\n")

		b.WriteString("\tSummary:\n\n")
		b.WriteString(indent(it.Description))
		b.WriteString("\n")

		entities := sortedEntities(it.Entities)
		if len(entities) > 0 {
			b.WriteString("\t\tAffected resources:\n\n")
		}
		for _, ent := range entities {
			b.WriteString("\t\tARN: " + ent.EntityArn + "\n")
			b.WriteString("\t\tURL: " + ent.EntityURL + "\n")
			b.WriteString("\t\tValue: " + ent.EntityValue + "\n")
			b.WriteString("\t\tStatus Code: " + ent.StatusCode + "\n")
			b.WriteString("\t\tLast Updated Time: " + formatTime(ent.LastUpdatedTime) + "\n")

			tags := sortedTags(ent.Tags)
			if len(tags) > 0 {
				b.WriteString("\t\tTags: \n")
			}
			for _, kv := range tags {
				b.WriteString("\t\t\tKey: " + kv[0] + "\tValue: " + kv[1] + "\n")
			}
		}
		b.WriteString("\n\n\n")
	}
	return b.String()
}

// sortedEntities orders affected entities by their own ARN so the block is
// stable regardless of upstream page order.
func sortedEntities(in []feed.AffectedEntity) []feed.AffectedEntity {
	if len(in) < 2 {
		return in
	}
	out := make([]feed.AffectedEntity, len(in))
	copy(out, in)
	sort.Slice(out, func(i, j int) bool { return out[i].EntityArn < out[j].EntityArn })
	return out
}

func sortedTags(tags map[string]string) [][2]string {
	if len(tags) == 0 {
		return nil
	}
	out := make([][2]string, 0, len(tags))
	for k, v := range tags {
		out = append(out, [2]string{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

func formatTagsInline(tags map[string]string) string {
	kvs := sortedTags(tags)
	parts := make([]string, 0, len(kvs))
	for _, kv := range kvs {
		parts = append(parts, kv[0]+"="+kv[1])
	}
	return strings.Join(parts, ", ")
}

// formatTime renders times in UTC so the SDK's timezone representation can
// never change the report bytes. Zero times render empty.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// indent prefixes every line of s with a tab.
func indent(s string) string {
	if s == "" {
		return "\t"
	}
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = "\t" + lines[i]
	}
	return strings.Join(lines, "\n")
}
