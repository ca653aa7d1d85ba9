package persist

import (
	"context"
	"errors"
	"sync"

	"dealroom/internal/domain"
)

// Memory is an in-memory Persister for tests.
type Memory struct {
	mu    sync.Mutex
	snaps map[string]domain.Snapshot

	// FailSaves makes every Save return an error, for exercising the
	// best-effort persistence contract.
	FailSaves bool
	Saves     int
}

func NewMemory() *Memory {
	return &Memory{snaps: map[string]domain.Snapshot{}}
}

func (m *Memory) Save(_ context.Context, dealID string, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaves {
		return errors.New("save disabled")
	}
	if m.snaps == nil {
		m.snaps = map[string]domain.Snapshot{}
	}
	m.snaps[dealID] = snap.Clone()
	m.Saves++
	return nil
}

func (m *Memory) Load(_ context.Context, dealID string) (*domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[dealID]
	if !ok {
		return nil, nil
	}
	out := snap.Clone()
	return &out, nil
}
