// Package model defines shared data structures.
package model

import "time"

// PhaseRecord captures one completed timer phase.
type PhaseRecord struct {
	ID          int64
	Phase       string
	LongBreak   bool
	DurationSec int
	EndedAt     time.Time
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since *time.Time
	Days  int
}

// DaySummary aggregates completed study phases for one calendar day.
type DaySummary struct {
	Day          time.Time
	Sessions     int
	FocusSeconds int
}
