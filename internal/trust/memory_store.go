package trust

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore implements Store in memory.
type MemoryStore struct {
	mu        sync.RWMutex
	current   map[string]float64
	attempts  map[string]struct{}
	snapshots []*Snapshot
	nextID    int64
}

// NewMemoryStore creates an in-memory trust store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		current:  make(map[string]float64),
		attempts: make(map[string]struct{}),
		nextID:   1,
	}
}

func (m *MemoryStore) Current(_ context.Context, userID string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	score, ok := m.current[userID]
	if !ok {
		return 0, ErrUserNotFound
	}
	return score, nil
}

func (m *MemoryStore) Update(_ context.Context, userID, attemptID string, initial float64, fn UpdateFunc) (*Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if attemptID != "" {
		if _, seen := m.attempts[attemptID]; seen {
			return nil, ErrAttemptAlreadyScored
		}
	}

	old, ok := m.current[userID]
	if !ok {
		old = initial
	}
	snap, err := fn(old)
	if err != nil {
		return nil, err
	}

	snap.ID = m.nextID
	m.nextID++
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	cp := *snap
	m.snapshots = append(m.snapshots, &cp)
	m.current[userID] = snap.NewScore
	if attemptID != "" {
		m.attempts[attemptID] = struct{}{}
	}
	return snap, nil
}

func (m *MemoryStore) History(_ context.Context, q HistoryQuery) ([]*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []*Snapshot
	for _, s := range m.snapshots {
		if s.UserID != q.UserID {
			continue
		}
		if !q.From.IsZero() && s.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && s.CreatedAt.After(q.To) {
			continue
		}
		cp := *s
		results = append(results, &cp)
	}

	// Newest first; ID breaks ties between updates in the same instant.
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].ID > results[j].ID
		}
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
