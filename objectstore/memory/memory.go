package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"ali-crawler/objectstore"
)

// object stores an uploaded object in memory.
type object struct {
	ContentType string
	Data        []byte
}

// Store implements objectstore.Store using an in-memory map. It is used by
// tests and by dry runs that must not touch a real bucket.
type Store struct {
	mu      sync.RWMutex
	objects map[string]*object
	bucket  string
	puts    int
}

var _ objectstore.Store = (*Store)(nil)

// New creates a new in-memory store named after bucket.
func New(bucket string) *Store {
	return &Store{
		objects: make(map[string]*object),
		bucket:  bucket,
	}
}

// Put stores the object bytes in memory, replacing any previous object.
func (s *Store) Put(_ context.Context, input *objectstore.PutInput) (*objectstore.PutResult, error) {
	data, err := io.ReadAll(input.Data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", input.Key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[input.Key] = &object{ContentType: input.ContentType, Data: data}
	s.puts++

	return &objectstore.PutResult{
		Key: input.Key,
		URL: fmt.Sprintf("mem://%s/%s", s.bucket, input.Key),
	}, nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Get returns the bytes stored under key.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return obj.Data, true
}

// Keys returns the stored keys in lexical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Puts returns the number of Put calls served.
func (s *Store) Puts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.puts
}
