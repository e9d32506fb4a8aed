// Package xcom passes small values between the tasks of one DAG run.
package xcom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrNotFound is returned when no value was pushed for a run and task.
var ErrNotFound = errors.New("xcom: value not found")

// Store keeps the value each task returned, keyed by run and task id.
type Store interface {
	Push(ctx context.Context, runID, taskID string, value []byte) error
	Pull(ctx context.Context, runID, taskID string) ([]byte, error)
}

// PushJSON encodes v and pushes it.
func PushJSON(ctx context.Context, s Store, runID, taskID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("xcom: marshal %s: %w", taskID, err)
	}
	return s.Push(ctx, runID, taskID, data)
}

// PullJSON pulls the value of taskID and decodes it into v.
func PullJSON(ctx context.Context, s Store, runID, taskID string, v any) error {
	data, err := s.Pull(ctx, runID, taskID)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("xcom: unmarshal %s: %w", taskID, err)
	}
	return nil
}

// MemoryStore implements Store in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Push(_ context.Context, runID, taskID string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[Key(runID, taskID)] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Pull(_ context.Context, runID, taskID string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[Key(runID, taskID)]
	if !ok {
		return nil, fmt.Errorf("%w: run %s task %s", ErrNotFound, runID, taskID)
	}
	return append([]byte(nil), v...), nil
}

// Key returns the storage key of a run's task value.
func Key(runID, taskID string) string {
	return "xcom:" + runID + ":" + taskID
}
