// Package objstore provides the durable object storage behind healthwatch's
// cross-run state (dedup digest, open-event snapshot, report history).
//
// It currently supports:
//   - "s3": production backend
//   - "file": dependency-free local directory backend
//   - "sqlite": single-file database backend (optional build tag)
package objstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"healthwatch/pkg/logx"
)

// ErrNotExist is returned by Get for a missing key.
var ErrNotExist = errors.New("object does not exist")

// ObjectInfo is one stored object's listing entry.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

// Client is the minimal object-store API used by the state layer.
//
// Delete is best-effort: it returns the keys that were actually removed, and
// callers compare against what they asked for.
type Client interface {
	Put(ctx context.Context, key string, body []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context) ([]ObjectInfo, error)
	Delete(ctx context.Context, keys []string) (deleted []string, err error)
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// Config configures the store.
//
// Driver values: "s3", "file", "sqlite".
type Config struct {
	Driver string
	// Bucket is the target bucket (s3 driver).
	Bucket string
	// Path is the directory (file driver) or database file (sqlite driver).
	Path string
	// MaxDeleteBatch caps keys per delete request. 0 means the driver default.
	MaxDeleteBatch int
	// BusyTimeout is how long the sqlite driver waits on a locked database.
	BusyTimeout time.Duration
}

// Open initializes the configured store. awsCfg is only consulted by the s3
// driver.
func Open(cfg Config, awsCfg aws.Config, log logx.Logger) (Client, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "s3":
		return newS3(cfg, awsCfg, log)
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + cfg.Driver)
	}
}
