package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	BackendMemory = "memory"
	BackendPebble = "pebble"
	BackendSQLite = "sqlite"
)

// Options selects and locates the storage backend.
type Options struct {
	Backend string
	Path    string
}

// Open creates the configured backend and wraps it in a Store
func Open(opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		backend Backend
		err     error
	)
	switch opts.Backend {
	case "", BackendMemory:
		backend = NewMemoryBackend()
	case BackendPebble:
		if err := os.MkdirAll(opts.Path, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		backend, err = OpenPebble(opts.Path, logger)
	case BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		backend, err = OpenSQLite(opts.Path, logger)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}

	return NewStore(backend, logger.With(zap.String("component", "storage"))), nil
}
