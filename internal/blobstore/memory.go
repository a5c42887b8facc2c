package blobstore

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryStore is the reference Store implementation: a process-local
// map, useful for tests and for activities that never actually spill
// past their size limit.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: map[string][]byte{}}
}

// memURL fabricates an s3://-shaped address for a stored blob so that
// callers downstream of Put (receiveURL's scheme assertion, in
// particular) see the same "the overflow store is addressed via
// s3://" contract regardless of whether InMemoryStore or S3Store is
// backing it.
func memURL(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}

func (s *InMemoryStore) Put(_ context.Context, bucket, key string, body []byte) (string, error) {
	url := memURL(bucket, key)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(body))
	copy(cp, body)
	s.data[url] = cp
	return url, nil
}

func (s *InMemoryStore) Get(_ context.Context, url string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.data[url]
	if !ok {
		return nil, fmt.Errorf("blobstore: no object at %s", url)
	}
	return body, nil
}
