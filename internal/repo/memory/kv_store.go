package memory

import (
	"bytes"
	"context"
	"sync"

	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/metrics"
)

var _ ports.KVStore = (*KVStore)(nil)

// KVStore — хранилище в памяти процесса (локальный запуск и тесты).
// Значения копируются на входе и выходе.
type KVStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewKVStore() *KVStore {
	return &KVStore{data: make(map[string][]byte)}
}

func (s *KVStore) Load(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(raw), true, nil
}

func (s *KVStore) Save(_ context.Context, key string, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = bytes.Clone(raw)
	metrics.KVEntries.Set(float64(len(s.data)))
	return nil
}

func (s *KVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	metrics.KVEntries.Set(float64(len(s.data)))
	return nil
}

// Len — количество ключей.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
