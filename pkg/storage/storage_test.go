package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ringlink/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// backends opens every backend implementation against a fresh location.
func backends(t *testing.T) map[string]*Store {
	t.Helper()
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()

	out := make(map[string]*Store)
	for _, opts := range []Options{
		{Backend: BackendMemory},
		{Backend: BackendPebble, Path: filepath.Join(dir, "pebble")},
		{Backend: BackendSQLite, Path: filepath.Join(dir, "sqlite", "ringlink.db")},
	} {
		s, err := Open(opts, logger)
		require.NoError(t, err, opts.Backend)
		t.Cleanup(func() { s.Close() })
		out[opts.Backend] = s
	}
	return out
}

func testRing(id string) *types.HostedRing {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.HostedRing{
		ID:      id,
		Name:    "Ring " + id,
		Type:    types.RingOpen,
		Members: []types.Member{types.NewMember(types.Identity{URL: "https://host.example", Name: "Host"}, now)},
		Created: now,
		Updated: now,
	}
}

func TestStoreHostedLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.CreateHosted(ctx, testRing("b")))
			require.NoError(t, s.CreateHosted(ctx, testRing("a")))

			err := s.CreateHosted(ctx, testRing("a"))
			assert.True(t, errors.Is(err, ErrExists))

			got, err := s.GetHosted(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "Ring a", got.Name)
			require.Len(t, got.Members, 1)
			assert.Equal(t, "https://host.example", got.Members[0].URL)

			rings, err := s.ListHosted(ctx)
			require.NoError(t, err)
			require.Len(t, rings, 2)
			assert.Equal(t, "a", rings[0].ID)
			assert.Equal(t, "b", rings[1].ID)

			require.NoError(t, s.DeleteHosted(ctx, "a"))
			_, err = s.GetHosted(ctx, "a")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.DeleteHosted(ctx, "a"), ErrNotFound)
		})
	}
}

func TestStoreUpdateHosted(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.CreateHosted(ctx, testRing("r1")))

			err := s.UpdateHosted(ctx, "r1", func(r *types.HostedRing) (bool, error) {
				r.Name = "renamed"
				return true, nil
			})
			require.NoError(t, err)

			// Unchanged mutations are not written.
			err = s.UpdateHosted(ctx, "r1", func(r *types.HostedRing) (bool, error) {
				r.Name = "discarded"
				return false, nil
			})
			require.NoError(t, err)

			boom := errors.New("boom")
			err = s.UpdateHosted(ctx, "r1", func(r *types.HostedRing) (bool, error) {
				r.Name = "also discarded"
				return true, boom
			})
			assert.ErrorIs(t, err, boom)

			got, err := s.GetHosted(ctx, "r1")
			require.NoError(t, err)
			assert.Equal(t, "renamed", got.Name)

			err = s.UpdateHosted(ctx, "missing", func(r *types.HostedRing) (bool, error) {
				t.Fatal("mutation must not run for a missing ring")
				return false, nil
			})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.CreateHosted(ctx, testRing("busy")))

			const writers = 20
			var wg sync.WaitGroup
			for i := 0; i < writers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					err := s.UpdateHosted(ctx, "busy", func(r *types.HostedRing) (bool, error) {
						r.Pending = append(r.Pending, types.PendingRequest{
							Identity: types.Identity{URL: fmt.Sprintf("https://site%d.example", i)},
						})
						return true, nil
					})
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			got, err := s.GetHosted(ctx, "busy")
			require.NoError(t, err)
			assert.Len(t, got.Pending, writers)
		})
	}
}

func TestStoreDropsLocksOfDeletedRecords(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 10; i++ {
				id := fmt.Sprintf("ring-%d", i)
				require.NoError(t, s.CreateHosted(ctx, testRing(id)))
				require.NoError(t, s.UpdateHosted(ctx, id, func(r *types.HostedRing) (bool, error) {
					r.Name = "renamed"
					return true, nil
				}))
				require.NoError(t, s.DeleteHosted(ctx, id))

				key := types.JoinedKey("https://host.example", id)
				require.NoError(t, s.PutJoined(ctx, &types.JoinedRing{Key: key, RingID: id}))
				require.NoError(t, s.DeleteJoined(ctx, key))
			}

			// Lookups of records that never existed leave nothing behind either.
			noop := func(*types.HostedRing) (bool, error) { return false, nil }
			assert.ErrorIs(t, s.UpdateHosted(ctx, "ghost", noop), ErrNotFound)
			assert.ErrorIs(t, s.DeleteHosted(ctx, "ghost"), ErrNotFound)
			assert.ErrorIs(t, s.DeleteJoined(ctx, "ghost"), ErrNotFound)

			assert.Zero(t, s.locks.Size())
		})
	}
}

func TestStoreDeleteRacesWithWriters(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend(), zaptest.NewLogger(t))

	for round := 0; round < 20; round++ {
		require.NoError(t, s.CreateHosted(ctx, testRing("churn")))

		var wg sync.WaitGroup
		results := make(chan error, 8)
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.DeleteHosted(ctx, "churn"))
		}()
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- s.CreateHosted(ctx, testRing("churn"))
			}()
		}
		wg.Wait()
		close(results)

		ok := 0
		for err := range results {
			if err == nil {
				ok++
			} else {
				assert.ErrorIs(t, err, ErrExists)
			}
		}
		// At most one creator wins after the single delete.
		assert.LessOrEqual(t, ok, 1)
		_ = s.DeleteHosted(ctx, "churn")
	}
}

func TestStoreJoined(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			key := types.JoinedKey("https://host.example", "webring")
			ring := &types.JoinedRing{
				Key:     key,
				HostURL: "https://host.example",
				RingID:  "webring",
				Pending: true,
			}
			require.NoError(t, s.PutJoined(ctx, ring))

			err := s.UpdateJoined(ctx, key, func(r *types.JoinedRing) (bool, error) {
				r.Pending = false
				r.Name = "Web Ring"
				return true, nil
			})
			require.NoError(t, err)

			got, err := s.GetJoined(ctx, key)
			require.NoError(t, err)
			assert.False(t, got.Pending)
			assert.Equal(t, "Web Ring", got.Name)

			list, err := s.ListJoined(ctx)
			require.NoError(t, err)
			assert.Len(t, list, 1)

			require.NoError(t, s.DeleteJoined(ctx, key))
			_, err = s.GetJoined(ctx, key)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreSiteAndDisplay(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.GetSite(ctx)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.SaveSite(ctx, types.Identity{URL: "https://me.example", Name: "Me"}))
			site, err := s.GetSite(ctx)
			require.NoError(t, err)
			assert.Equal(t, "https://me.example", site.PageURL)

			d, err := s.GetDisplay(ctx)
			require.NoError(t, err)
			assert.Equal(t, types.DefaultDisplaySettings(), d)

			require.NoError(t, s.SaveDisplay(ctx, types.DisplaySettings{Theme: types.ThemeDark}))
			d, err = s.GetDisplay(ctx)
			require.NoError(t, err)
			assert.Equal(t, types.ThemeDark, d.Theme)
			assert.Equal(t, types.ModeCarousel, d.Mode)
		})
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, s.CreateHosted(ctx, testRing("x")))
			require.NoError(t, s.PutJoined(ctx, &types.JoinedRing{Key: "x", RingID: "x"}))
			require.NoError(t, s.SaveSite(ctx, types.Identity{URL: "https://me.example"}))

			hosted, err := s.ListHosted(ctx)
			require.NoError(t, err)
			assert.Len(t, hosted, 1)

			joined, err := s.ListJoined(ctx)
			require.NoError(t, err)
			assert.Len(t, joined, 1)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(Options{Backend: "etcd"}, nil)
	assert.Error(t, err)
}
