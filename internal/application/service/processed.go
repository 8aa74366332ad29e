package service

import (
	"context"
	"sync"
)

// DefaultProcessedCapacity is the size at which the in-memory set evicts.
const DefaultProcessedCapacity = 10000

// ProcessedSet remembers recently delivered reminders so a redelivered job
// does not reach the transport twice. Implementations must be safe for
// concurrent use.
type ProcessedSet interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

type memoryProcessedSet struct {
	mu       sync.Mutex
	capacity int
	keys     map[string]struct{}
	order    []string // insertion order, oldest first
}

// NewMemoryProcessedSet returns a bounded in-process set. Once it holds more
// than capacity keys the oldest half is evicted. Contents are lost on restart.
func NewMemoryProcessedSet(capacity int) ProcessedSet {
	if capacity <= 0 {
		capacity = DefaultProcessedCapacity
	}
	return &memoryProcessedSet{
		capacity: capacity,
		keys:     make(map[string]struct{}, capacity),
	}
}

func (s *memoryProcessedSet) Seen(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok, nil
}

func (s *memoryProcessedSet) Mark(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return nil
	}
	s.keys[key] = struct{}{}
	s.order = append(s.order, key)

	if len(s.order) > s.capacity {
		evict := len(s.order) / 2
		for _, k := range s.order[:evict] {
			delete(s.keys, k)
		}
		s.order = append([]string(nil), s.order[evict:]...)
	}
	return nil
}
