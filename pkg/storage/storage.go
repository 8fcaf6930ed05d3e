// Package storage persists hosted rings, joined-ring mirrors and the site
// records in a key-value backend. It holds no admission or health policy;
// callers express every mutation as a read-modify-write closure that runs
// under a per-record lock.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"ringlink/pkg/types"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrExists   = errors.New("storage: already exists")
)

const (
	nsHosted  = "hosted"
	nsJoined  = "joined"
	nsMeta    = "meta"
	keySite   = "site"
	keyWidget = "display"
)

// HostedMutation edits a hosted ring in place. Returning changed=false
// skips the write.
type HostedMutation func(ring *types.HostedRing) (changed bool, err error)

// JoinedMutation edits a joined-ring mirror in place.
type JoinedMutation func(ring *types.JoinedRing) (changed bool, err error)

// RingStore is the persistence contract used by the federation services.
type RingStore interface {
	GetHosted(ctx context.Context, id string) (*types.HostedRing, error)
	ListHosted(ctx context.Context) ([]*types.HostedRing, error)
	CreateHosted(ctx context.Context, ring *types.HostedRing) error
	UpdateHosted(ctx context.Context, id string, fn HostedMutation) error
	DeleteHosted(ctx context.Context, id string) error

	GetJoined(ctx context.Context, key string) (*types.JoinedRing, error)
	ListJoined(ctx context.Context) ([]*types.JoinedRing, error)
	PutJoined(ctx context.Context, ring *types.JoinedRing) error
	UpdateJoined(ctx context.Context, key string, fn JoinedMutation) error
	DeleteJoined(ctx context.Context, key string) error

	GetSite(ctx context.Context) (types.Identity, error)
	SaveSite(ctx context.Context, site types.Identity) error
	GetDisplay(ctx context.Context) (types.DisplaySettings, error)
	SaveDisplay(ctx context.Context, d types.DisplaySettings) error

	Close() error
}

// Backend is a namespaced byte-oriented key-value store.
type Backend interface {
	Get(ctx context.Context, ns, key string) ([]byte, error)
	Put(ctx context.Context, ns, key string, value []byte) error
	Delete(ctx context.Context, ns, key string) error
	// List returns every value in ns ordered by key.
	List(ctx context.Context, ns string) ([][]byte, error)
	Close() error
}

// Store implements RingStore on top of any Backend, encoding records as JSON.
type Store struct {
	backend Backend
	locks   *xsync.Map[string, *sync.Mutex]
	logger  *zap.Logger
}

// NewStore wraps a backend
func NewStore(backend Backend, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		locks:   xsync.NewMap[string, *sync.Mutex](),
		logger:  logger,
	}
}

// lock serializes every writer of one record; readers go straight to the
// backend and always see a complete value. A mutex dropped by forget while
// we waited on it is stale, so we retry on the current one.
func (s *Store) lock(ns, key string) func() {
	k := ns + "/" + key
	for {
		mu, _ := s.locks.LoadOrStore(k, &sync.Mutex{})
		mu.Lock()
		if cur, ok := s.locks.Load(k); ok && cur == mu {
			return mu.Unlock
		}
		mu.Unlock()
	}
}

// forget drops the lock of a deleted or missing record. Callers must hold it.
func (s *Store) forget(ns, key string) {
	s.locks.Delete(ns + "/" + key)
}

func (s *Store) GetHosted(ctx context.Context, id string) (*types.HostedRing, error) {
	var ring types.HostedRing
	if err := s.get(ctx, nsHosted, id, &ring); err != nil {
		return nil, err
	}
	return &ring, nil
}

func (s *Store) ListHosted(ctx context.Context) ([]*types.HostedRing, error) {
	values, err := s.backend.List(ctx, nsHosted)
	if err != nil {
		return nil, fmt.Errorf("list hosted rings: %w", err)
	}
	rings := make([]*types.HostedRing, 0, len(values))
	for _, v := range values {
		var ring types.HostedRing
		if err := json.Unmarshal(v, &ring); err != nil {
			s.logger.Warn("Skipping undecodable hosted ring", zap.Error(err))
			continue
		}
		rings = append(rings, &ring)
	}
	return rings, nil
}

func (s *Store) CreateHosted(ctx context.Context, ring *types.HostedRing) error {
	unlock := s.lock(nsHosted, ring.ID)
	defer unlock()

	if _, err := s.backend.Get(ctx, nsHosted, ring.ID); err == nil {
		return fmt.Errorf("hosted ring %s: %w", ring.ID, ErrExists)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.put(ctx, nsHosted, ring.ID, ring)
}

// UpdateHosted loads the ring, applies fn and stores the result as one
// atomic step with respect to other writers of the same ring.
func (s *Store) UpdateHosted(ctx context.Context, id string, fn HostedMutation) error {
	unlock := s.lock(nsHosted, id)
	defer unlock()

	ring, err := s.GetHosted(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.forget(nsHosted, id)
		}
		return err
	}
	changed, err := fn(ring)
	if err != nil || !changed {
		return err
	}
	return s.put(ctx, nsHosted, id, ring)
}

func (s *Store) DeleteHosted(ctx context.Context, id string) error {
	unlock := s.lock(nsHosted, id)
	defer unlock()

	if _, err := s.backend.Get(ctx, nsHosted, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.forget(nsHosted, id)
		}
		return err
	}
	if err := s.backend.Delete(ctx, nsHosted, id); err != nil {
		return err
	}
	s.forget(nsHosted, id)
	return nil
}

func (s *Store) GetJoined(ctx context.Context, key string) (*types.JoinedRing, error) {
	var ring types.JoinedRing
	if err := s.get(ctx, nsJoined, key, &ring); err != nil {
		return nil, err
	}
	return &ring, nil
}

func (s *Store) ListJoined(ctx context.Context) ([]*types.JoinedRing, error) {
	values, err := s.backend.List(ctx, nsJoined)
	if err != nil {
		return nil, fmt.Errorf("list joined rings: %w", err)
	}
	rings := make([]*types.JoinedRing, 0, len(values))
	for _, v := range values {
		var ring types.JoinedRing
		if err := json.Unmarshal(v, &ring); err != nil {
			s.logger.Warn("Skipping undecodable joined ring", zap.Error(err))
			continue
		}
		rings = append(rings, &ring)
	}
	return rings, nil
}

// PutJoined creates or overwrites a mirror
func (s *Store) PutJoined(ctx context.Context, ring *types.JoinedRing) error {
	unlock := s.lock(nsJoined, ring.Key)
	defer unlock()
	return s.put(ctx, nsJoined, ring.Key, ring)
}

func (s *Store) UpdateJoined(ctx context.Context, key string, fn JoinedMutation) error {
	unlock := s.lock(nsJoined, key)
	defer unlock()

	ring, err := s.GetJoined(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.forget(nsJoined, key)
		}
		return err
	}
	changed, err := fn(ring)
	if err != nil || !changed {
		return err
	}
	return s.put(ctx, nsJoined, key, ring)
}

func (s *Store) DeleteJoined(ctx context.Context, key string) error {
	unlock := s.lock(nsJoined, key)
	defer unlock()

	if _, err := s.backend.Get(ctx, nsJoined, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.forget(nsJoined, key)
		}
		return err
	}
	if err := s.backend.Delete(ctx, nsJoined, key); err != nil {
		return err
	}
	s.forget(nsJoined, key)
	return nil
}

func (s *Store) GetSite(ctx context.Context) (types.Identity, error) {
	var site types.Identity
	err := s.get(ctx, nsMeta, keySite, &site)
	return site, err
}

func (s *Store) SaveSite(ctx context.Context, site types.Identity) error {
	unlock := s.lock(nsMeta, keySite)
	defer unlock()
	return s.put(ctx, nsMeta, keySite, site.WithDefaults())
}

// GetDisplay returns the saved display defaults, falling back to the
// built-in defaults when nothing was saved.
func (s *Store) GetDisplay(ctx context.Context) (types.DisplaySettings, error) {
	var d types.DisplaySettings
	err := s.get(ctx, nsMeta, keyWidget, &d)
	if errors.Is(err, ErrNotFound) {
		return types.DefaultDisplaySettings(), nil
	}
	if err != nil {
		return d, err
	}
	return types.DefaultDisplaySettings().Merge(d), nil
}

func (s *Store) SaveDisplay(ctx context.Context, d types.DisplaySettings) error {
	unlock := s.lock(nsMeta, keyWidget)
	defer unlock()
	return s.put(ctx, nsMeta, keyWidget, d)
}

// Close releases the backend
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) get(ctx context.Context, ns, key string, out any) error {
	data, err := s.backend.Get(ctx, ns, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%s %s: %w", ns, key, ErrNotFound)
		}
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", ns, key, err)
	}
	return nil
}

func (s *Store) put(ctx context.Context, ns, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", ns, key, err)
	}
	if err := s.backend.Put(ctx, ns, key, data); err != nil {
		return fmt.Errorf("write %s %s: %w", ns, key, err)
	}
	return nil
}
