package ratelimit

import (
	"sync"
	"time"
)

type Store interface {
	Increment(key string, resetTime time.Time) (count int, actualReset time.Time)
	Reset(key string)
}

type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*entry
}

type entry struct {
	count     int
	resetTime time.Time
}

func NewMemoryStore() *MemoryStore {
	store := &MemoryStore{
		data: make(map[string]*entry),
	}

	go store.cleanup()

	return store
}

func (s *MemoryStore) Increment(key string, resetTime time.Time) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.data[key]; exists && time.Now().Before(e.resetTime) {
		e.count++
		return e.count, e.resetTime
	}

	s.data[key] = &entry{
		count:     1,
		resetTime: resetTime,
	}

	return 1, resetTime
}

func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
}

func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()

		for key, e := range s.data {
			if now.After(e.resetTime) {
				delete(s.data, key)
			}
		}

		s.mu.Unlock()
	}
}
