package detector

import (
	"context"
	"sync"
)

// MemoryStore keeps records for the lifetime of the process only
type MemoryStore struct {
	mu      sync.Mutex
	records []SeenToken
	keys    map[string]bool
}

func NewMemoryStore(initial ...SeenToken) *MemoryStore {
	s := &MemoryStore{keys: make(map[string]bool)}
	_ = s.Append(context.Background(), initial)
	return s
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]SeenToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SeenToken, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, records []SeenToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		key := r.Source + "\x00" + r.TokenID
		if s.keys[key] {
			continue
		}
		s.keys[key] = true
		s.records = append(s.records, r)
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
