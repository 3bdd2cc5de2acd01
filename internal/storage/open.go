package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"canvassync/pkg/logx"
)

// Store is the minimal persistence API used by the syncer.
type Store interface {
	// AppendRun records one completed sync pass.
	AppendRun(ctx context.Context, r SyncRun) error
	// MarkSeen records that an exported object was observed. It reports
	// whether the key was new (never seen before).
	MarkSeen(ctx context.Context, key string, at time.Time) (isNew bool, err error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
