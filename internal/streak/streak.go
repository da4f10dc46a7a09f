// Package streak computes daily-completion streaks for a single task.
//
// All functions are pure: callers supply the task's counters and the
// calendar day they are evaluated against.
package streak

import "time"

// DateLayout is the format of every date string handled by this package.
const DateLayout = "2006-01-02"

// State holds the completion and streak fields of a task record.
type State struct {
	// Done is the completion flag for today.
	Done bool `json:"done"`

	// LastCompletedAt is the date of the most recent completion, or "".
	LastCompletedAt string `json:"lastCompletedAt,omitempty"`

	// CurrentStreak counts consecutive completed days ending at LastCompletedAt.
	CurrentStreak int `json:"currentStreak"`

	// BestStreak is the highest CurrentStreak ever observed.
	BestStreak int `json:"bestStreak"`
}

// Day is the pair of date strings a streak is evaluated against.
type Day struct {
	Today     string
	Yesterday string
}

// DayOf returns the Day containing t, in t's location.
func DayOf(t time.Time) Day {
	return Day{
		Today:     t.Format(DateLayout),
		Yesterday: t.AddDate(0, 0, -1).Format(DateLayout),
	}
}

// IsCurrent reports whether date is today or yesterday.
func (d Day) IsCurrent(date string) bool {
	return date != "" && (date == d.Today || date == d.Yesterday)
}

// ValidDate reports whether s is a well-formed YYYY-MM-DD date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Complete records a completion on d.Today.
// The second result is true when the completion set a new best streak.
func Complete(s State, d Day) (State, bool) {
	if s.LastCompletedAt == d.Today {
		s.Done = true
		return s, false
	}

	prevBest := s.BestStreak
	if s.LastCompletedAt == d.Yesterday {
		s.CurrentStreak++
	} else {
		s.CurrentStreak = 1
	}
	if s.CurrentStreak > s.BestStreak {
		s.BestStreak = s.CurrentStreak
	}
	s.LastCompletedAt = d.Today
	s.Done = true

	return s, s.CurrentStreak > prevBest
}

// Uncomplete reverses a completion made on d.Today.
// For any other state it only clears Done. The completion date that preceded
// today is not recoverable, so BestStreak and older history stay as they are.
func Uncomplete(s State, d Day) State {
	if s.LastCompletedAt != d.Today {
		s.Done = false
		return s
	}

	if s.CurrentStreak > 0 {
		s.CurrentStreak--
	}
	s.LastCompletedAt = ""
	s.Done = false
	return s
}

// Sanitize coerces s into a state the persisted format accepts: counters are
// not negative, BestStreak is at least CurrentStreak and LastCompletedAt is a
// valid date or "". The second result reports whether s was changed.
func Sanitize(s State) (State, bool) {
	orig := s
	s.CurrentStreak = max(s.CurrentStreak, 0)
	s.BestStreak = max(s.BestStreak, s.CurrentStreak)
	if s.LastCompletedAt != "" && !ValidDate(s.LastCompletedAt) {
		s.LastCompletedAt = ""
	}
	return s, s != orig
}

// Normalize resets CurrentStreak when the last completion is older than
// yesterday. The second result reports whether s was changed.
func Normalize(s State, d Day) (State, bool) {
	if d.IsCurrent(s.LastCompletedAt) || s.CurrentStreak == 0 {
		return s, false
	}
	s.CurrentStreak = 0
	return s, true
}
