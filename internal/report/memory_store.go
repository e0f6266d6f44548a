package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory Store for demo/test use. Reports are kept
// serialised so callers can never mutate a stored report.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string][]byte
	byUser  map[string][]string // userID -> report IDs in save order
}

// NewMemoryStore creates an in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string][]byte),
		byUser:  make(map[string][]string),
	}
}

func (s *MemoryStore) Save(_ context.Context, r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.Metadata.ReportID
	if _, exists := s.reports[id]; exists {
		return fmt.Errorf("report %s already saved", id)
	}
	s.reports[id] = data
	s.byUser[r.Metadata.UserID] = append(s.byUser[r.Metadata.UserID], id)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Report, error) {
	s.mu.RLock()
	data, ok := s.reports[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrReportNotFound
	}
	return decode(data)
}

func (s *MemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]*Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	if limit <= 0 || limit > len(ids) {
		limit = len(ids)
	}

	// Most recent first
	result := make([]*Report, 0, limit)
	for i := len(ids) - 1; i >= len(ids)-limit; i-- {
		r, err := decode(s.reports[ids[i]])
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, nil
}

func decode(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &r, nil
}
