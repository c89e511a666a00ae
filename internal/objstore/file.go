package objstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"healthwatch/pkg/logx"
)

// fileStore keeps each object as one file under a root directory. Slashes in
// keys become subdirectories. Intended for local runs and tests; it makes no
// attempt at cross-process locking because a deployment runs at most one
// reconciliation at a time.
type fileStore struct {
	dir string
	log logx.Logger
}

func openFile(cfg Config, log logx.Logger) (Client, error) {
	dir := strings.TrimSpace(cfg.Path)
	if dir == "" {
		return nil, errors.New("storage.path is required for the file driver")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &fileStore{dir: dir, log: log}, nil
}

func (s *fileStore) path(key string) string {
	return filepath.Join(s.dir, filepath.FromSlash(key))
}

func (s *fileStore) Put(_ context.Context, key string, body []byte) error {
	p := s.path(key)
	if dir := filepath.Dir(p); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(p, body, 0o644)
}

func (s *fileStore) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	return b, nil
}

func (s *fileStore) List(_ context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Key:          filepath.ToSlash(rel),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (s *fileStore) Delete(_ context.Context, keys []string) ([]string, error) {
	var deleted []string
	for _, k := range keys {
		if err := os.Remove(s.path(k)); err != nil {
			if os.IsNotExist(err) {
				// Already gone counts as deleted.
				deleted = append(deleted, k)
				continue
			}
			s.log.Error("delete failed", logx.String("key", k), logx.Err(err))
			continue
		}
		deleted = append(deleted, k)
	}
	return deleted, nil
}

func (s *fileStore) Exists(_ context.Context, key string) (bool, error) {
	_, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *fileStore) Close() error { return nil }
