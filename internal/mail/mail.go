// Package mail delivers the health report to operators.
//
// Delivery is fire-and-forget: a failed send is logged by the caller and
// never retried within a run.
package mail

import (
	"context"
	"fmt"
	"strings"
)

const DefaultSubject = "[healthwatch] Found new health events"

type Config struct {
	// Region the mail service is called in (it is a regional service and may
	// differ from the feed/storage region).
	Region string
	From   string
	// To holds one or more recipient addresses, comma-separated.
	To      string
	Subject string
	// Template is a format string with one substitution slot for the report
	// body. Empty means the body is sent as-is.
	Template string
}

// Sender sends one pre-composed message and returns the transport's delivery
// acknowledgment (message id).
type Sender interface {
	Send(ctx context.Context, subject, body string) (string, error)
}

// Recipients splits the comma-separated To field into trimmed addresses.
func Recipients(to string) []string {
	parts := strings.Split(to, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if addr := strings.TrimSpace(p); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Compose substitutes the report body into the configured template.
func Compose(template, body string) string {
	if strings.TrimSpace(template) == "" {
		return body
	}
	return fmt.Sprintf(template, body)
}
