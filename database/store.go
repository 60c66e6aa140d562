package database

import (
	"errors"
	"fmt"

	"ballot-bot/models"
)

// Keys of the snapshots kept by the election.
const (
	KeyRoster      = "users"
	KeyOpenBallots = "topics"
	KeyResults     = "vote_lists"
)

// ErrNotFound is returned by Load when nothing was saved under the key.
var ErrNotFound = errors.New("key not found")

// Store persists JSON snapshots by key. Save replaces the previous snapshot as a whole;
// a reader sees either the old or the new value, never a partial write.
type Store interface {
	Load(key string, v any) error
	Save(key string, v any) error
	Close() error
}

// New opens the store selected by the configuration.
func New(cfg models.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.Dir)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
