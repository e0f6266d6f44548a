// Package presence tracks webcam face presence for a single assessment attempt.
//
// A Monitor is a two-state machine (present, absent) fed by an external face
// detector. It accumulates whole seconds of absence and remembers whether more
// than one face was ever seen. A Monitor belongs to exactly one attempt and is
// not safe for concurrent use; callers serialise updates per attempt.
package presence

import "time"

// Clock supplies wall-clock readings.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads time.Now.
var SystemClock Clock = systemClock{}

// Summary is the accumulated face-presence state of an attempt.
type Summary struct {
	IsCurrentlyDetected   bool `json:"is_currently_detected"`
	TotalAbsentSeconds    int  `json:"total_absent_seconds"`
	MultipleFacesDetected bool `json:"multiple_faces_detected"`
}

// Monitor is the per-attempt face presence state machine.
type Monitor struct {
	clock Clock

	present           bool
	multipleFacesEver bool
	absentSeconds     int
	absenceStartedAt  time.Time // zero while present
}

// NewMonitor creates a monitor in the present state. A nil clock uses the
// system clock.
func NewMonitor(clock Clock) *Monitor {
	if clock == nil {
		clock = SystemClock
	}
	return &Monitor{clock: clock, present: true}
}

// UpdateFaceStatus records the latest detector reading.
func (m *Monitor) UpdateFaceStatus(facePresent bool) {
	switch {
	case !facePresent && m.present:
		m.absenceStartedAt = m.clock.Now()
	case facePresent && !m.present:
		m.flush(m.clock.Now())
		m.absenceStartedAt = time.Time{}
	}
	m.present = facePresent
}

// UpdateMultipleFaces latches the multiple-faces flag. Once set it stays set
// for the rest of the attempt.
func (m *Monitor) UpdateMultipleFaces(detected bool) {
	if detected {
		m.multipleFacesEver = true
	}
}

// Summary closes out any in-progress absence and returns the totals. While
// absent the interval clock restarts at the flush point, so repeated calls
// never count the same span twice.
func (m *Monitor) Summary() Summary {
	if !m.present {
		now := m.clock.Now()
		m.flush(now)
		m.absenceStartedAt = now
	}
	return Summary{
		IsCurrentlyDetected:   m.present,
		TotalAbsentSeconds:    m.absentSeconds,
		MultipleFacesDetected: m.multipleFacesEver,
	}
}

// Peek returns the totals as Summary would, including the open absence, but
// leaves the interval running. Polling it never changes what Summary reports.
func (m *Monitor) Peek() Summary {
	total := m.absentSeconds
	if !m.present {
		if elapsed := m.clock.Now().Sub(m.absenceStartedAt); elapsed > 0 {
			total += int(elapsed / time.Second)
		}
	}
	return Summary{
		IsCurrentlyDetected:   m.present,
		TotalAbsentSeconds:    total,
		MultipleFacesDetected: m.multipleFacesEver,
	}
}

// flush adds the whole seconds elapsed since the absence began.
func (m *Monitor) flush(now time.Time) {
	elapsed := now.Sub(m.absenceStartedAt)
	if elapsed > 0 {
		m.absentSeconds += int(elapsed / time.Second)
	}
}
