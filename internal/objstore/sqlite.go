//go:build sqlite
// +build sqlite

package objstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"healthwatch/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// sqliteStore keeps objects in a single database file. Useful for single-host
// deployments that want one durable artifact instead of a state directory.
type sqliteStore struct {
	db  *sql.DB
	log logx.Logger
}

func openSQLite(cfg Config, log logx.Logger) (Client, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for the sqlite driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec("PRAGMA busy_timeout = " + strconv.Itoa(int(cfg.BusyTimeout.Milliseconds())))
	}

	st := &sqliteStore{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Put(ctx context.Context, key string, body []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO objects(key, last_modified, body) VALUES(?,?,?)
		 ON CONFLICT(key) DO UPDATE SET last_modified=excluded.last_modified, body=excluded.body`,
		key, time.Now().UnixMilli(), body,
	)
	return err
}

func (s *sqliteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM objects WHERE key = ?`, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (s *sqliteStore) List(ctx context.Context) ([]ObjectInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, last_modified FROM objects ORDER BY last_modified, key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objects []ObjectInfo
	for rows.Next() {
		var (
			key string
			ms  int64
		)
		if err := rows.Scan(&key, &ms); err != nil {
			return nil, err
		}
		objects = append(objects, ObjectInfo{Key: key, LastModified: time.UnixMilli(ms)})
	}
	return objects, rows.Err()
}

func (s *sqliteStore) Delete(ctx context.Context, keys []string) ([]string, error) {
	var deleted []string
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE key = ?`, k); err != nil {
			s.log.Error("delete failed", logx.String("key", k), logx.Err(err))
			continue
		}
		deleted = append(deleted, k)
	}
	return deleted, nil
}

func (s *sqliteStore) Exists(ctx context.Context, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM objects WHERE key = ?`, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
