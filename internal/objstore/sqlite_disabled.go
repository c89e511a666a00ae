//go:build !sqlite
// +build !sqlite

package objstore

import (
	"errors"

	"healthwatch/pkg/logx"
)

func openSQLite(cfg Config, log logx.Logger) (Client, error) {
	_ = cfg
	_ = log
	return nil, errors.New("sqlite storage not built: build with -tags sqlite")
}
