package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
filter:
  regions: [us-east-1, eu-west-1]
  statuses: [open, upcoming]
  tags:
    - team: platform
feed:
  rate_per_sec: 2
mail:
  from: health@example.com
  to: ops@example.com, oncall@example.com
storage:
  driver: s3
  bucket: health-reports
  key_prefix: prod-
scheduler:
  enabled: true
logging:
  level: info
  console: true
  file:
    enabled: false
    path: ""
`

func TestLoadYAMLAppliesDefaults(t *testing.T) {
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Filter.LookbackDays != DefaultLookbackDays {
		t.Fatalf("lookback_days = %d, want %d", cfg.Filter.LookbackDays, DefaultLookbackDays)
	}
	if cfg.Feed.Region != DefaultFeedRegion {
		t.Fatalf("feed.region = %q, want %q", cfg.Feed.Region, DefaultFeedRegion)
	}
	if cfg.Mail.Region != cfg.Feed.Region {
		t.Fatalf("mail.region = %q, want feed region", cfg.Mail.Region)
	}
	if cfg.Scheduler.Spec != DefaultSchedulerSpec {
		t.Fatalf("scheduler.spec = %q, want %q", cfg.Scheduler.Spec, DefaultSchedulerSpec)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get returned a different config")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.yaml", validYAML+"\nsurprise: true\n")
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestParseRejectsTrailingJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"mail":{"from":"a@b.c","to":"x@y.z"},"storage":{"driver":"file","path":"/tmp/s"},"filter":{},"feed":{},"scheduler":{"enabled":false},"logging":{"level":"info","console":true,"file":{"enabled":false,"path":""}}}{}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatalf("expected trailing-data error")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		m := NewManager(writeConfig(t, "config.yaml", validYAML))
		cfg, err := m.Parse()
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing from", func(c *Config) { c.Mail.From = "" }, "mail.from"},
		{"missing to", func(c *Config) { c.Mail.To = " " }, "mail.to"},
		{"s3 without bucket", func(c *Config) { c.Storage.Bucket = "" }, "storage.bucket"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "dynamo" }, "unknown driver"},
		{"file without path", func(c *Config) { c.Storage.Driver = "file" }, "storage.path"},
		{"negative rate", func(c *Config) { c.Feed.RatePerSec = -1 }, "feed.rate_per_sec"},
		{"empty tag set", func(c *Config) { c.Filter.Tags = append(c.Filter.Tags, map[string]string{}) }, "filter.tags"},
		{"bad timezone", func(c *Config) { c.Scheduler.Timezone = "Mars/Olympus" }, "scheduler.timezone"},
		{"bad busy timeout", func(c *Config) { c.Storage.BusyTimeout = "soon" }, "busy_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	d, err := ParseDurationOrDefault("x", "", 5)
	if err != nil || d != 5 {
		t.Fatalf("got (%v, %v), want (5, nil)", d, err)
	}
	if _, err := ParseDurationField("x", "-2s"); err == nil {
		t.Fatalf("expected negative-duration error")
	}
}
