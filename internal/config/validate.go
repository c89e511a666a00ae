package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultLookbackDays  = 90
	DefaultFeedRegion    = "us-east-1"
	DefaultSchedulerSpec = "@every 5m"
)

// Normalize fills defaults in place. It is called after Parse and before
// Validate so validation sees the effective values.
func (c *Config) Normalize() {
	if c.Filter.LookbackDays <= 0 {
		c.Filter.LookbackDays = DefaultLookbackDays
	}
	if strings.TrimSpace(c.Feed.Region) == "" {
		c.Feed.Region = DefaultFeedRegion
	}
	if strings.TrimSpace(c.Mail.Region) == "" {
		c.Mail.Region = c.Feed.Region
	}
	if strings.TrimSpace(c.Storage.Driver) == "" {
		c.Storage.Driver = "s3"
	}
	if strings.TrimSpace(c.Scheduler.Spec) == "" {
		c.Scheduler.Spec = DefaultSchedulerSpec
	}
}

// Validate checks that the effective config can actually run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Mail.From) == "" {
		return fmt.Errorf("mail.from is required")
	}
	if strings.TrimSpace(c.Mail.To) == "" {
		return fmt.Errorf("mail.to is required")
	}

	switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
	case "s3":
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return fmt.Errorf("storage.bucket is required for the s3 driver")
		}
	case "file", "sqlite", "sqlite3":
		if strings.TrimSpace(c.Storage.Path) == "" {
			return fmt.Errorf("storage.path is required for the %s driver", c.Storage.Driver)
		}
	default:
		return fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver)
	}
	if c.Storage.MaxHistory < 0 {
		return fmt.Errorf("storage.max_history must be >= 0")
	}
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}

	if c.Feed.DetailBatchSize < 0 {
		return fmt.Errorf("feed.detail_batch_size must be >= 0")
	}
	if c.Feed.RatePerSec < 0 {
		return fmt.Errorf("feed.rate_per_sec must be >= 0")
	}

	for _, set := range c.Filter.Tags {
		if len(set) == 0 {
			return fmt.Errorf("filter.tags: empty tag set")
		}
	}

	if tz := strings.TrimSpace(c.Scheduler.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return fmt.Errorf("scheduler.timezone: %w", err)
		}
	}
	return nil
}
