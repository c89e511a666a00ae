package config

type Config struct {
	Filter    FilterConfig    `json:"filter"`
	Feed      FeedConfig      `json:"feed"`
	Mail      MailConfig      `json:"mail"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Logging   LoggingConfig   `json:"logging"`
	Metrics   MetricsConfig   `json:"metrics,omitempty"`
}

// FilterConfig narrows which health events are pulled from the feed.
// Empty slices mean "no restriction" for that dimension.
type FilterConfig struct {
	Regions    []string `json:"regions,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Statuses   []string `json:"statuses,omitempty"`

	// Tags is a list of tag sets; an event matches when any set matches.
	Tags []map[string]string `json:"tags,omitempty"`

	// LookbackDays bounds the start-time window applied when closed events
	// are part of the status filter. Defaults to 90.
	LookbackDays int `json:"lookback_days,omitempty"`
}

type FeedConfig struct {
	// Region the health API is called in. The service is global but the
	// endpoint is regional; defaults to "us-east-1".
	Region string `json:"region,omitempty"`

	DetailBatchSize int `json:"detail_batch_size,omitempty"`

	// RatePerSec throttles feed API calls. Zero disables throttling.
	RatePerSec float64 `json:"rate_per_sec,omitempty"`
}

type MailConfig struct {
	Region  string `json:"region,omitempty"`
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject,omitempty"`

	// Template is a format string with one substitution slot for the
	// report body. Empty sends the body as-is.
	Template string `json:"template,omitempty"`
}

// StorageConfig selects and configures the state backend.
//
// Example:
//
//	"storage": { "driver": "s3", "bucket": "health-reports", "key_prefix": "prod-" }
type StorageConfig struct {
	Driver string `json:"driver,omitempty"` // "s3" (default), "file", "sqlite"
	Bucket string `json:"bucket,omitempty"`
	Path   string `json:"path,omitempty"` // file/sqlite location

	KeyPrefix string `json:"key_prefix,omitempty"`

	// MaxHistory caps retained report objects; older ones are pruned.
	MaxHistory int `json:"max_history,omitempty"`

	DeleteBatch int    `json:"delete_batch,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type SchedulerConfig struct {
	Enabled bool `json:"enabled"`

	// Spec is a cron expression or descriptor (e.g. "@every 5m").
	Spec     string `json:"spec,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Namespace string `json:"namespace,omitempty"`
}
