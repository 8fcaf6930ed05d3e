package storage

import (
	"context"
	"sort"

	"github.com/puzpuzpuz/xsync/v4"
)

// MemoryBackend keeps everything in process memory. Used for tests and
// throwaway sites.
type MemoryBackend struct {
	data *xsync.Map[string, *xsync.Map[string, []byte]]
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: xsync.NewMap[string, *xsync.Map[string, []byte]]()}
}

func (m *MemoryBackend) namespace(ns string) *xsync.Map[string, []byte] {
	bucket, _ := m.data.LoadOrCompute(ns, func() (*xsync.Map[string, []byte], bool) {
		return xsync.NewMap[string, []byte](), false
	})
	return bucket
}

func (m *MemoryBackend) Get(_ context.Context, ns, key string) ([]byte, error) {
	v, ok := m.namespace(ns).Load(key)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Put(_ context.Context, ns, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.namespace(ns).Store(key, v)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, ns, key string) error {
	m.namespace(ns).Delete(key)
	return nil
}

func (m *MemoryBackend) List(_ context.Context, ns string) ([][]byte, error) {
	bucket := m.namespace(ns)
	keys := make([]string, 0, bucket.Size())
	bucket.Range(func(k string, _ []byte) bool {
		keys = append(keys, k)
		return true
	})
	sort.Strings(keys)

	values := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if v, ok := bucket.Load(k); ok {
			values = append(values, v)
		}
	}
	return values, nil
}

func (m *MemoryBackend) Close() error {
	return nil
}
