// Package service defines the task record and the interface commands and
// HTTP handlers use to manipulate the task collection.
package service

import (
	"errors"
	"time"

	"streaktodo/internal/streak"
)

// Task is a single todo item with its completion and streak metadata.
// The embedded streak fields serialize inline:
// {"id","text","done","lastCompletedAt","currentStreak","bestStreak"}.
type Task struct {
	ID   string `json:"id"`
	Text string `json:"text"`
	streak.State
}

// Patch carries the fields of a partial update. Nil fields are left alone.
type Patch struct {
	Text            *string `json:"text,omitempty"`
	Done            *bool   `json:"done,omitempty"`
	LastCompletedAt *string `json:"lastCompletedAt,omitempty"`
	CurrentStreak   *int    `json:"currentStreak,omitempty"`
	BestStreak      *int    `json:"bestStreak,omitempty"`
}

// Validate rejects values a stored task cannot hold.
func (p Patch) Validate() error {
	if p.LastCompletedAt != nil && *p.LastCompletedAt != "" && !streak.ValidDate(*p.LastCompletedAt) {
		return errors.New("lastCompletedAt must be YYYY-MM-DD")
	}
	if p.CurrentStreak != nil && *p.CurrentStreak < 0 {
		return errors.New("currentStreak must not be negative")
	}
	if p.BestStreak != nil && *p.BestStreak < 0 {
		return errors.New("bestStreak must not be negative")
	}
	return nil
}

// Apply merges p into t and returns the result.
func (p Patch) Apply(t Task) Task {
	if p.Text != nil {
		t.Text = *p.Text
	}
	if p.Done != nil {
		t.Done = *p.Done
	}
	if p.LastCompletedAt != nil {
		t.LastCompletedAt = *p.LastCompletedAt
	}
	if p.CurrentStreak != nil {
		t.CurrentStreak = *p.CurrentStreak
	}
	if p.BestStreak != nil {
		t.BestStreak = *p.BestStreak
	}
	return t
}

// Outcome is the result of a completion.
type Outcome struct {
	Task Task `json:"task"`

	// NewBest is true when the completion raised the best streak.
	NewBest bool `json:"newBest"`

	// Milestone is the streak length reached exactly by this completion
	// (3, 7 or 30), or 0.
	Milestone int `json:"milestone"`
}

// EventKind identifies a store event.
type EventKind string

const (
	EventNewBest   EventKind = "new_best"
	EventMilestone EventKind = "milestone"
)

// Event is emitted to subscribers after a mutation commits.
type Event struct {
	Kind EventKind `json:"kind"`
	Task Task      `json:"task"`
	// Streak is the current streak that triggered the event.
	Streak int       `json:"streak"`
	At     time.Time `json:"at"`
}
