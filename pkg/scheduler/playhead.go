package scheduler

import "time"

// State is the playback state machine's current state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

// PlayheadState is the global playhead plus the wall-clock instant it was last advanced.
type PlayheadState struct {
	Position    time.Duration
	Playing     bool
	LastAdvance time.Time
}

// Advance adds the wall-clock time elapsed since LastAdvance to the position.
// A stopped or paused playhead only has its timestamp refreshed. A clock that
// went backwards never moves the playhead backwards.
func Advance(s PlayheadState, now time.Time) PlayheadState {
	if s.Playing && !s.LastAdvance.IsZero() {
		if d := now.Sub(s.LastAdvance); d > 0 {
			s.Position += d
		}
	}
	s.LastAdvance = now
	return s
}

// Clock supplies wall-clock time to the scheduler.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
