package pomodoro

// Phase is the unit of countdown.
type Phase string

const (
	PhaseStudy Phase = "study"
	PhaseBreak Phase = "break"
)

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p == PhaseStudy || p == PhaseBreak
}

// Label returns a display name for the phase.
func (p Phase) Label(longBreak bool) string {
	switch {
	case p == PhaseStudy:
		return "Study"
	case longBreak:
		return "Long break"
	default:
		return "Break"
	}
}

// NextDuration returns the length in seconds of the phase being entered and
// whether it is a long break. completedStudySessions is the count after the
// study phase that just ended has been counted.
func NextDuration(next Phase, completedStudySessions int, s Settings) (int, bool) {
	if next == PhaseStudy {
		return s.StudyMinutes * 60, false
	}
	if s.SessionsBeforeLongBreak > 0 && completedStudySessions%s.SessionsBeforeLongBreak == 0 {
		return s.LongBreakMinutes * 60, true
	}
	return s.BreakMinutes * 60, false
}
