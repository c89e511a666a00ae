package report

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"healthwatch/internal/feed"
)

func enriched(arn string, start time.Time) feed.Enriched {
	return feed.Enriched{
		Event: feed.Event{
			Arn:       arn,
			Region:    "eu-west-1",
			Service:   "RDS",
			TypeCode:  "AWS_RDS_MAINTENANCE_SCHEDULED",
			Category:  "scheduledChange",
			Status:    "open",
			StartTime: start,
		},
		Description: "line one\nline two",
		Entities: []feed.AffectedEntity{
			{
				EntityArn:   "arn:aws:rds:eu-west-1:123:db:beta",
				EntityURL:   "https://example.test/beta",
				EntityValue: "beta",
				EventArn:    arn,
				StatusCode:  "IMPAIRED",
				Tags:        map[string]string{"team": "storage", "env": "prod"},
			},
			{
				EntityArn: "arn:aws:rds:eu-west-1:123:db:alpha",
				EventArn:  arn,
			},
		},
	}
}

func TestRenderEmptyInput(t *testing.T) {
	if got := Render(nil, 1); got != "" {
		t.Fatalf("Render(nil) = %q, want empty", got)
	}
}

func TestRenderDeterministicUnderInputOrder(t *testing.T) {
	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	items := []feed.Enriched{
		enriched("arn:a", base.Add(2*time.Hour)),
		enriched("arn:b", base),
		enriched("arn:c", base.Add(time.Hour)),
		enriched("arn:d", base), // same start as arn:b; tie broken by ARN
	}

	want := Render(items, 1)
	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := make([]feed.Enriched, len(items))
		copy(shuffled, items)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := Render(shuffled, 1); got != want {
			t.Fatalf("render differs for shuffled input %d", i)
		}
	}
}

func TestRenderOrdering(t *testing.T) {
	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	out := Render([]feed.Enriched{
		enriched("arn:old", base.Add(-time.Hour)),
		enriched("arn:new", base.Add(time.Hour)),
		enriched("arn:mid-b", base),
		enriched("arn:mid-a", base),
	}, 1)

	idx := func(s string) int { return strings.Index(out, s) }
	newPos, midAPos, midBPos, oldPos := idx("arn:new"), idx("arn:mid-a"), idx("arn:mid-b"), idx("arn:old")
	if newPos < 0 || midAPos < 0 || midBPos < 0 || oldPos < 0 {
		t.Fatalf("missing blocks in output:\n%s", out)
	}
	if !(newPos < midAPos && midAPos < midBPos && midBPos < oldPos) {
		t.Fatalf("wrong block order: new=%d mid-a=%d mid-b=%d old=%d", newPos, midAPos, midBPos, oldPos)
	}
}

func TestRenderCounterOffset(t *testing.T) {
	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	out := Render([]feed.Enriched{enriched("arn:x", base), enriched("arn:y", base.Add(time.Minute))}, 3)
	if !strings.Contains(out, "Event 3)") || !strings.Contains(out, "Event 4)") {
		t.Fatalf("expected numbering to start at offset 3:\n%s", out)
	}
	if strings.Contains(out, "Event 1)") {
		t.Fatalf("unexpected Event 1) block with offset 3")
	}
}

func TestRenderBlockContent(t *testing.T) {
	base := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	out := Render([]feed.Enriched{enriched("arn:x", base)}, 1)

	for _, wantLine := range []string{
		"Arn: arn:x",
		"Region: eu-west-1",
		"Service: RDS",
		"StartTime: 2026-02-10T08:00:00Z",
		"StatusCode: open",
		"TypeCode: AWS_RDS_MAINTENANCE_SCHEDULED",
		"\tSummary:",
		"\tline one",
		"\tline two",
		"\t\tAffected resources:",
		"\t\tARN: arn:aws:rds:eu-west-1:123:db:alpha",
		"\t\tStatus Code: IMPAIRED",
		"\t\t\tKey: env\tValue: prod",
		"\t\t\tKey: team\tValue: storage",
	} {
		if !strings.Contains(out, wantLine) {
			t.Fatalf("output missing %q:\n%s", wantLine, out)
		}
	}

	// Field names appear in alphabetical order inside the block.
	fields := []string{"Arn:", "AvailabilityZone:", "Category:", "EndTime:", "LastUpdatedTime:", "Region:", "Service:", "StartTime:", "StatusCode:", "Tags:", "TypeCode:"}
	last := -1
	for _, f := range fields {
		p := strings.Index(out, "\n"+f)
		if f == "Arn:" {
			p = strings.Index(out, f)
		}
		if p < 0 {
			t.Fatalf("field %q missing", f)
		}
		if p < last {
			t.Fatalf("field %q out of order", f)
		}
		last = p
	}

	// Entities sorted by their own ARN: alpha before beta.
	if strings.Index(out, "db:alpha") > strings.Index(out, "db:beta") {
		t.Fatal("entities not sorted by entity ARN")
	}
}

func TestDigestStable(t *testing.T) {
	d1 := Digest("hello\n")
	d2 := Digest("hello\n")
	if d1 != d2 {
		t.Fatal("digest not stable")
	}
	if len(d1) != 64 || strings.ToLower(d1) != d1 {
		t.Fatalf("digest not lowercase hex sha256: %q", d1)
	}
	if Digest("hello") == Digest("hello\n") {
		t.Fatal("digest insensitive to content change")
	}
}

func TestShouldNotify(t *testing.T) {
	if ok, _ := ShouldNotify("", "whatever"); ok {
		t.Fatal("empty report must never notify")
	}
	if ok, _ := ShouldNotify("   \n\t", "whatever"); ok {
		t.Fatal("whitespace-only report must never notify")
	}

	ok, d := ShouldNotify("report body", "")
	if !ok || d == "" {
		t.Fatal("first run (no last digest) must notify")
	}

	again, d2 := ShouldNotify("report body", d)
	if again {
		t.Fatal("unchanged report must not notify")
	}
	if d2 != d {
		t.Fatal("digest must be stable for unchanged report")
	}

	changed, d3 := ShouldNotify("report body v2", d)
	if !changed || d3 == d {
		t.Fatal("changed report must notify with a new digest")
	}
}
