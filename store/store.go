/*
Package store persists generated payment schedules.

PURPOSE:
  Every generation run is archived so past schedules can be retrieved
  and compared against what the engine produces after an endorsement or
  cancellation. Records hold the raw request and result JSON; the store
  never interprets either.

IMPLEMENTATIONS:
  store.Memory:  In-memory archive for tests and demos
  sqlite.Store:  SQLite-backed archive (see store/sqlite)
*/
package store

import (
	"context"
	"sync"
	"time"
)

// Record is one archived generation run.
type Record struct {
	ID            string
	PolicyLocator string
	ScheduleName  string
	Operation     string
	RequestJSON   string
	ResultJSON    string
	CreatedAt     time.Time
}

// Archive stores and retrieves schedule records.
type Archive interface {
	// SaveSchedule archives a generation run.
	SaveSchedule(ctx context.Context, rec Record) error

	// GetSchedule returns a record by ID, or nil if not found.
	GetSchedule(ctx context.Context, id string) (*Record, error)

	// ListSchedulesByPolicy returns a policy's records, newest first.
	ListSchedulesByPolicy(ctx context.Context, policyLocator string) ([]Record, error)
}

// Memory is an in-memory Archive.
type Memory struct {
	mu    sync.RWMutex
	byID  map[string]Record
	order []string
}

// NewMemory creates an empty in-memory archive.
func NewMemory() *Memory {
	return &Memory{byID: make(map[string]Record)}
}

func (m *Memory) SaveSchedule(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, seen := m.byID[rec.ID]; !seen { m.order = append(m.order, rec.ID) }
	m.byID[rec.ID] = rec
	return nil
}

func (m *Memory) GetSchedule(_ context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.byID[id]
	if !ok { return nil, nil }
	return &rec, nil
}

func (m *Memory) ListSchedulesByPolicy(_ context.Context, policyLocator string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for i := len(m.order) - 1; i >= 0; i-- {
		if rec := m.byID[m.order[i]]; rec.PolicyLocator == policyLocator {
			out = append(out, rec)
		}
	}
	return out, nil
}
