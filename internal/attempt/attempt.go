// Package attempt manages live assessment sessions.
//
// A session collects behaviour events while the candidate works: tab
// switches, copy-pastes and face detector readings. When the submission
// arrives the session's counters, presence summary and best similarity match
// become the risk signals handed to the scoring pipeline.
package attempt

import (
	"context"
	"errors"
	"time"

	"github.com/mbd888/trustscore/internal/presence"
	"github.com/mbd888/trustscore/internal/report"
	"github.com/mbd888/trustscore/internal/risk"
	"github.com/mbd888/trustscore/internal/scoring"
	"github.com/mbd888/trustscore/internal/skill"
)

var (
	ErrAttemptNotFound = errors.New("attempt: not found")
	ErrAttemptClosed   = errors.New("attempt: already closed")
	ErrInvalidEvent    = errors.New("attempt: invalid event")
)

// MaxLoggedEvents bounds the per-attempt event log. Counters keep counting
// past it.
const MaxLoggedEvents = 10_000

// Status is the lifecycle state of an attempt.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

// EventType names a behaviour event.
type EventType string

const (
	EventTabSwitch     EventType = "tab_switch"
	EventCopyPaste     EventType = "copy_paste"
	EventFaceStatus    EventType = "face_status"
	EventMultipleFaces EventType = "multiple_faces"
)

// Event is one behaviour observation. Present is required for face_status and
// Detected for multiple_faces.
type Event struct {
	Type     EventType `json:"type"`
	Present  *bool     `json:"present,omitempty"`
	Detected *bool     `json:"detected,omitempty"`
	At       time.Time `json:"at"`
}

func (e Event) validate() error {
	switch e.Type {
	case EventTabSwitch, EventCopyPaste:
		return nil
	case EventFaceStatus:
		if e.Present == nil {
			return errors.Join(ErrInvalidEvent, errors.New("face_status requires present"))
		}
		return nil
	case EventMultipleFaces:
		if e.Detected == nil {
			return errors.Join(ErrInvalidEvent, errors.New("multiple_faces requires detected"))
		}
		return nil
	default:
		return errors.Join(ErrInvalidEvent, errors.New("unknown event type "+string(e.Type)))
	}
}

// Attempt is a point-in-time view of a session.
type Attempt struct {
	ID             string     `json:"attempt_id"`
	UserID         string     `json:"user_id"`
	AssessmentID   string     `json:"assessment_id,omitempty"`
	Status         Status     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ReportID       string     `json:"report_id,omitempty"`
	EventCount     int        `json:"event_count"`
}

// Behavior is the accumulated behaviour of an attempt so far.
type Behavior struct {
	AttemptID      string           `json:"attempt_id"`
	TabSwitchCount int              `json:"tab_switch_count"`
	CopyPasteCount int              `json:"copy_paste_count"`
	Presence       presence.Summary `json:"presence"`
	Events         []Event          `json:"events"`
	EventsDropped  int              `json:"events_dropped,omitempty"`
}

// Completion is the final submission closing an attempt.
type Completion struct {
	Code       string           `json:"code"`
	References []string         `json:"references,omitempty"`
	FinalScore float64          `json:"final_score"`
	Submission skill.Submission `json:"submission"`
}

// Scorer evaluates a finished attempt. *scoring.Pipeline implements it.
type Scorer interface {
	Evaluate(ctx context.Context, in scoring.Input) (*report.Report, error)
}

// session is the mutable state behind an Attempt. Guarded by the manager's
// per-attempt lock.
type session struct {
	Attempt
	monitor       *presence.Monitor
	tabSwitches   int
	copyPastes    int
	events        []Event
	eventsDropped int
}

func (s *session) view() *Attempt {
	a := s.Attempt
	a.EventCount = len(s.events) + s.eventsDropped
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		a.CompletedAt = &t
	}
	return &a
}

func (s *session) behavior() *Behavior {
	events := make([]Event, len(s.events))
	copy(events, s.events)
	return &Behavior{
		AttemptID:      s.ID,
		TabSwitchCount: s.tabSwitches,
		CopyPasteCount: s.copyPastes,
		Presence:       s.monitor.Peek(),
		Events:         events,
		EventsDropped:  s.eventsDropped,
	}
}

// signals closes out the presence interval; call it only when scoring.
func (s *session) signals(similarityPercent float64) risk.Signals {
	p := s.monitor.Summary()
	return risk.Signals{
		TabSwitchCount:        s.tabSwitches,
		FaceAbsentSeconds:     p.TotalAbsentSeconds,
		CodeSimilarityPercent: similarityPercent,
		CopyPasteCount:        s.copyPastes,
		MultipleFacesDetected: p.MultipleFacesDetected,
	}
}
