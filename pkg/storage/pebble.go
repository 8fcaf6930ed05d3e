package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// PebbleBackend stores records in an embedded Pebble LSM tree. Keys are
// laid out as "<ns>/<key>" so a namespace is one contiguous key range.
type PebbleBackend struct {
	db     *pebble.DB
	path   string
	logger *zap.Logger
}

// OpenPebble opens (or creates) the database directory at path
func OpenPebble(path string, logger *zap.Logger) (*PebbleBackend, error) {
	db, err := pebble.Open(path, &pebble.Options{
		Logger: &pebbleLogger{logger},
	})
	if err != nil {
		return nil, fmt.Errorf("pebble open %s: %w", path, err)
	}
	logger.Info("Pebble storage opened", zap.String("path", path))
	return &PebbleBackend{db: db, path: path, logger: logger}, nil
}

func pebbleKey(ns, key string) []byte {
	return []byte(ns + "/" + key)
}

func (p *PebbleBackend) Get(_ context.Context, ns, key string) ([]byte, error) {
	data, closer, err := p.db.Get(pebbleKey(ns, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pebble get: %w", err)
	}
	defer closer.Close()

	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (p *PebbleBackend) Put(_ context.Context, ns, key string, value []byte) error {
	if err := p.db.Set(pebbleKey(ns, key), value, pebble.Sync); err != nil {
		return fmt.Errorf("pebble set: %w", err)
	}
	return nil
}

func (p *PebbleBackend) Delete(_ context.Context, ns, key string) error {
	if err := p.db.Delete(pebbleKey(ns, key), pebble.Sync); err != nil {
		return fmt.Errorf("pebble delete: %w", err)
	}
	return nil
}

func (p *PebbleBackend) List(_ context.Context, ns string) ([][]byte, error) {
	// '0' sorts right after '/', so [ns/, ns0) covers the namespace.
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(ns + "/"),
		UpperBound: []byte(ns + "0"),
	})
	if err != nil {
		return nil, fmt.Errorf("pebble iter: %w", err)
	}
	defer iter.Close()

	var values [][]byte
	for iter.First(); iter.Valid(); iter.Next() {
		v := make([]byte, len(iter.Value()))
		copy(v, iter.Value())
		values = append(values, v)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return values, nil
}

// Close flushes and closes the database
func (p *PebbleBackend) Close() error {
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return err
}

// pebbleLogger routes pebble's internal logging into zap.
type pebbleLogger struct {
	z *zap.Logger
}

func (l *pebbleLogger) Infof(format string, args ...any) {
	l.z.Sugar().Infof(format, args...)
}

func (l *pebbleLogger) Errorf(format string, args ...any) {
	l.z.Sugar().Errorf(format, args...)
}

func (l *pebbleLogger) Fatalf(format string, args ...any) {
	l.z.Sugar().Fatalf(format, args...)
}
