package registry

import (
	"errors"
	"sync"
)

// fakeStorage is a map-backed Storage that can be told to fail.
type fakeStorage struct {
	mu      sync.Mutex
	data    map[string]string
	sets    map[string]int
	failGet error
	failSet error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: make(map[string]string), sets: make(map[string]int)}
}

func (s *fakeStorage) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet != nil {
		return "", false, s.failGet
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *fakeStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	s.data[key] = value
	s.sets[key]++
	return nil
}

func (s *fakeStorage) raw(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key]
}

func (s *fakeStorage) writes(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets[key]
}

var errDiskFull = errors.New("quota exceeded")

// countingMetrics records what the registries report.
type countingMetrics struct {
	mu        sync.Mutex
	observers int
	total     int
	visible   int
	failures  map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{failures: make(map[string]int)}
}

func (m *countingMetrics) SetObserverCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = n
}

func (m *countingMetrics) SetTLECounts(total, visible int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total, m.visible = total, visible
}

func (m *countingMetrics) StorageFailure(registry, op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[registry+"/"+op]++
}
