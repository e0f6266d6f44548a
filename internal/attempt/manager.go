package attempt

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mbd888/trustscore/internal/idgen"
	"github.com/mbd888/trustscore/internal/logging"
	"github.com/mbd888/trustscore/internal/metrics"
	"github.com/mbd888/trustscore/internal/presence"
	"github.com/mbd888/trustscore/internal/report"
	"github.com/mbd888/trustscore/internal/scoring"
	"github.com/mbd888/trustscore/internal/similarity"
	"github.com/mbd888/trustscore/internal/syncutil"
)

// Manager owns every live session. Calls for the same attempt are
// serialised; different attempts proceed in parallel.
type Manager struct {
	scorer Scorer
	clock  presence.Clock
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	locks    *syncutil.ContextShardedMutex
}

// NewManager creates a manager that hands completed attempts to scorer.
func NewManager(scorer Scorer, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		scorer:   scorer,
		clock:    presence.SystemClock,
		logger:   logger,
		sessions: make(map[string]*session),
		locks:    syncutil.NewContextShardedMutex(),
	}
}

// WithClock replaces the clock used for timestamps and presence tracking.
func (m *Manager) WithClock(c presence.Clock) *Manager {
	m.clock = c
	return m
}

// Start opens a new attempt for userID.
func (m *Manager) Start(ctx context.Context, userID, assessmentID string) (*Attempt, error) {
	now := m.clock.Now()
	s := &session{
		Attempt: Attempt{
			ID:             idgen.Attempt(),
			UserID:         userID,
			AssessmentID:   assessmentID,
			Status:         StatusActive,
			StartedAt:      now,
			LastActivityAt: now,
		},
		monitor: presence.NewMonitor(m.clock),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.ActiveAttempts.Inc()

	logging.With(logging.WithAttemptID(ctx, s.ID), m.logger).Info("attempt started",
		"user_id", userID,
		"assessment_id", assessmentID,
	)
	return s.view(), nil
}

// Get returns the current view of an attempt.
func (m *Manager) Get(ctx context.Context, id string) (*Attempt, error) {
	var out *Attempt
	err := m.withSession(ctx, id, func(s *session) error {
		out = s.view()
		return nil
	})
	return out, err
}

// RecordEvent applies one behaviour event to an active attempt.
func (m *Manager) RecordEvent(ctx context.Context, id string, ev Event) (*Attempt, error) {
	if err := ev.validate(); err != nil {
		return nil, err
	}

	var out *Attempt
	err := m.withSession(ctx, id, func(s *session) error {
		if s.Status != StatusActive {
			return ErrAttemptClosed
		}

		ev.At = m.clock.Now()
		switch ev.Type {
		case EventTabSwitch:
			s.tabSwitches++
		case EventCopyPaste:
			s.copyPastes++
		case EventFaceStatus:
			s.monitor.UpdateFaceStatus(*ev.Present)
		case EventMultipleFaces:
			s.monitor.UpdateMultipleFaces(*ev.Detected)
		}

		if len(s.events) < MaxLoggedEvents {
			s.events = append(s.events, ev)
		} else {
			s.eventsDropped++
		}
		s.LastActivityAt = ev.At
		out = s.view()
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.BehaviorEventsTotal.WithLabelValues(string(ev.Type)).Inc()
	return out, nil
}

// Behavior returns the attempt's counters, presence summary and event log.
func (m *Manager) Behavior(ctx context.Context, id string) (*Behavior, error) {
	var out *Behavior
	err := m.withSession(ctx, id, func(s *session) error {
		out = s.behavior()
		return nil
	})
	return out, err
}

// Complete closes an active attempt and scores it. If scoring fails the
// attempt stays active so the submission can be retried.
func (m *Manager) Complete(ctx context.Context, id string, c Completion) (*report.Report, error) {
	ctx = logging.WithAttemptID(ctx, id)

	var rep *report.Report
	err := m.withSession(ctx, id, func(s *session) error {
		if s.Status != StatusActive {
			return ErrAttemptClosed
		}

		match, err := similarity.Best(ctx, c.Code, c.References)
		if err != nil {
			return err
		}
		sub := c.Submission
		if sub.CodeLengthChars == 0 && c.Code != "" {
			sub.CodeLengthChars = utf8.RuneCountInString(c.Code)
		}

		rep, err = m.scorer.Evaluate(ctx, scoring.Input{
			UserID:     s.UserID,
			AttemptID:  s.ID,
			FinalScore: c.FinalScore,
			Signals:    s.signals(match.Percent),
			Submission: sub,
		})
		if err != nil {
			return fmt.Errorf("failed to score attempt: %w", err)
		}

		now := m.clock.Now()
		s.Status = StatusCompleted
		s.CompletedAt = &now
		s.LastActivityAt = now
		s.ReportID = rep.Metadata.ReportID
		if match.Index >= 0 {
			logging.With(ctx, m.logger).Debug("closest reference",
				"reference_index", match.Index,
				"similarity_percent", match.Percent,
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ActiveAttempts.Dec()
	return rep, nil
}

// ReapIdle drops sessions with no activity since now minus idle. Active ones
// are abandoned without scoring. Returns the number removed.
func (m *Manager) ReapIdle(ctx context.Context, idle time.Duration) int {
	cutoff := m.clock.Now().Add(-idle)

	m.mu.RLock()
	candidates := make([]string, 0)
	for id, s := range m.sessions {
		if s.LastActivityAt.Before(cutoff) {
			candidates = append(candidates, id)
		}
	}
	m.mu.RUnlock()

	removed := 0
	for _, id := range candidates {
		err := m.withSession(ctx, id, func(s *session) error {
			if !s.LastActivityAt.Before(cutoff) {
				return nil
			}
			if s.Status == StatusActive {
				s.Status = StatusAbandoned
				metrics.ActiveAttempts.Dec()
				m.logger.Info("attempt abandoned",
					"attempt_id", s.ID,
					"user_id", s.UserID,
					"idle_since", s.LastActivityAt,
				)
			}
			m.mu.Lock()
			delete(m.sessions, id)
			m.mu.Unlock()
			removed++
			return nil
		})
		if err != nil && ctx.Err() != nil {
			break
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Manager) withSession(ctx context.Context, id string, fn func(*session) error) error {
	unlock, err := m.locks.LockContext(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrAttemptNotFound
	}
	return fn(s)
}
