package service

import "time"

// Service is the task collection as seen by commands and HTTP handlers.
//
// Operations never fail from the caller's point of view: persistence
// problems are logged by the implementation and the in-memory collection
// stays authoritative. Methods taking an id return false when no task
// has that id, in which case nothing changed.
type Service interface {
	// Tasks returns the collection, newest first.
	Tasks() []Task

	// Get returns the task with the given id.
	Get(id string) (Task, bool)

	// Add creates a task and places it first.
	Add(text string) Task

	// Update merges patch into the task.
	Update(id string, patch Patch) (Task, bool)

	// Delete removes the task.
	Delete(id string) bool

	// MarkComplete records today's completion and advances the streak.
	MarkComplete(id string) (Outcome, bool)

	// MarkIncomplete reverses today's completion where possible.
	MarkIncomplete(id string) (Task, bool)

	// Toggle completes an open task or reverses a done one.
	Toggle(id string) (Outcome, bool)

	// Reload replaces the in-memory collection with the persisted one.
	Reload() bool

	// LastSavedAt is the time of the last successful save.
	LastSavedAt() time.Time

	// Subscribe registers fn for store events and returns a function that
	// removes it.
	Subscribe(fn func(Event)) func()

	// Close releases the underlying storage.
	Close() error
}
