package streak

import "math"

// DefaultGoal is the streak length the progress summary measures against.
const DefaultGoal = 7

// Milestones are the streak lengths worth celebrating, largest first.
var Milestones = []int{30, 7, 3}

// Summary describes streak progress across a collection of tasks.
type Summary struct {
	Average   float64 `json:"average"`
	Goal      int     `json:"goal"`
	Percent   int     `json:"percent"`
	Max       int     `json:"max"`
	Milestone int     `json:"milestone"`
}

// Summarize computes the average and maximum current streak of states and
// the progress of the average toward goal. A goal below 1 uses DefaultGoal.
func Summarize(states []State, goal int) Summary {
	if goal < 1 {
		goal = DefaultGoal
	}
	sum := Summary{Goal: goal}
	if len(states) == 0 {
		return sum
	}

	total := 0
	for _, s := range states {
		total += s.CurrentStreak
		if s.CurrentStreak > sum.Max {
			sum.Max = s.CurrentStreak
		}
	}
	sum.Average = float64(total) / float64(len(states))
	sum.Percent = int(math.Min(100, math.Round(sum.Average/float64(goal)*100)))
	sum.Milestone = MilestoneFor(sum.Max)
	return sum
}

// MilestoneFor returns the largest milestone n has reached, or 0.
func MilestoneFor(n int) int {
	for _, m := range Milestones {
		if n >= m {
			return m
		}
	}
	return 0
}

// IsMilestone reports whether n is exactly one of the milestones.
func IsMilestone(n int) bool {
	for _, m := range Milestones {
		if n == m {
			return true
		}
	}
	return false
}
