// internal/cache/cache.go
package cache

import (
	"sort"
	"sync"
)

// Store はローカルキャッシュの同期的なインターフェースです。
// プロセス全体のシングルトンではなく、必ず注入して使う（テストでは MemoryStore に差し替え）。
type Store interface {
	GetItem(key string) (string, bool)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Keys() ([]string, error)
}

// MemoryStore はメモリ上の Store 実装です。テストとRedis無効時のフォールバックに使う。
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]string)}
}

func (s *MemoryStore) GetItem(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

func (s *MemoryStore) SetItem(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *MemoryStore) RemoveItem(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	// mapの列挙順に依存しないようソートして返す
	sort.Strings(keys)
	return keys, nil
}

// Snapshot は現在の全内容のコピーを返します（テストの冪等性検証用）
func (s *MemoryStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[string]string, len(s.items))
	for k, v := range s.items {
		snap[k] = v
	}
	return snap
}
