// Package store implements the task collection on top of a key-value storage.
//
// The collection lives in memory and is written back to storage in full after
// every mutation. Storage failures are logged and otherwise ignored, so a
// Store keeps working (without persistence) when its storage is unavailable.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"streaktodo/internal/kv"
	"streaktodo/internal/service"
	"streaktodo/internal/streak"
)

const (
	// DefaultKey is the storage key holding the serialized collection.
	DefaultKey = "whop:todos:v1"

	// storageTimeout bounds a single read or write.
	storageTimeout = 5 * time.Second
)

// Store is the task collection. It implements service.Service.
type Store struct {
	mu          sync.Mutex
	storage     kv.Storage
	key         string
	now         func() time.Time
	newID       func() string
	logger      *slog.Logger
	tasks       []service.Task
	lastSavedAt time.Time
	initialized bool

	subMu     sync.Mutex
	subs      map[int]func(service.Event)
	nextSubID int
}

var _ service.Service = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithClock sets the source of the current time. Dates are taken in the
// location of the returned time.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator sets the task id generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store over storage. A nil storage gives a Store that only
// lives in memory.
func New(storage kv.Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     DefaultKey,
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
		logger:  slog.Default().With("component", "store"),
		subs:    make(map[int]func(service.Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads the persisted collection, or seeds a demo collection when
// nothing usable is stored. It runs once; later calls do nothing. Every other
// method calls it on first use.
func (s *Store) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked()
}

func (s *Store) initLocked() {
	if s.initialized {
		return
	}
	s.initialized = true

	day := s.day()
	if tasks, ok := s.load(); ok {
		s.tasks = tasks
		if normalizeAll(s.tasks, day) {
			s.persistLocked()
		} else {
			s.lastSavedAt = s.now()
		}
		s.logger.Debug("loaded tasks", "count", len(s.tasks))
		return
	}

	s.tasks = s.seed()
	normalizeAll(s.tasks, day)
	s.persistLocked()
	s.logger.Debug("seeded tasks", "count", len(s.tasks))
}

// Tasks implements service.Service.
func (s *Store) Tasks() []service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked()

	out := make([]service.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get implements service.Service.
func (s *Store) Get(id string) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initLocked()

	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return service.Task{}, false
}

// Add implements service.Service.
func (s *Store) Add(text string) service.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked()

	t := service.Task{ID: s.newID(), Text: cleanText(text)}
	s.tasks = append([]service.Task{t}, s.tasks...)
	s.persistLocked()
	return t
}

// Update implements service.Service.
func (s *Store) Update(id string, patch service.Patch) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked()

	if patch.Text != nil {
		text := cleanText(*patch.Text)
		patch.Text = &text
	}

	i := s.indexOf(id)
	if i >= 0 {
		t := patch.Apply(s.tasks[i])
		var changed bool
		if t.State, changed = streak.Sanitize(t.State); changed {
			s.logger.Warn("clamped invalid streak fields", "id", id)
		}
		s.tasks[i] = t
	}
	s.persistLocked()
	if i < 0 {
		return service.Task{}, false
	}
	return s.tasks[i], true
}

// Delete implements service.Service.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginLocked()

	i := s.indexOf(id)
	if i >= 0 {
		s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	}
	s.persistLocked()
	return i >= 0
}

// MarkComplete implements service.Service.
func (s *Store) MarkComplete(id string) (service.Outcome, bool) {
	s.mu.Lock()
	out, events, ok := s.completeLocked(id)
	s.mu.Unlock()

	s.emit(events)
	return out, ok
}

// MarkIncomplete implements service.Service.
func (s *Store) MarkIncomplete(id string) (service.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uncompleteLocked(id)
}

// Toggle implements service.Service.
func (s *Store) Toggle(id string) (service.Outcome, bool) {
	s.mu.Lock()
	s.initLocked()

	i := s.indexOf(id)
	if i >= 0 && s.tasks[i].Done {
		t, ok := s.uncompleteLocked(id)
		s.mu.Unlock()
		return service.Outcome{Task: t}, ok
	}

	out, events, ok := s.completeLocked(id)
	s.mu.Unlock()

	s.emit(events)
	return out, ok
}

func (s *Store) completeLocked(id string) (service.Outcome, []service.Event, bool) {
	now, day := s.beginLocked()

	i := s.indexOf(id)
	if i < 0 {
		s.persistLocked()
		return service.Outcome{}, nil, false
	}

	before := s.tasks[i].State
	after, newBest := streak.Complete(before, day)
	s.tasks[i].State = after
	s.persistLocked()

	out := service.Outcome{Task: s.tasks[i], NewBest: newBest}
	var events []service.Event
	if newBest {
		events = append(events, service.Event{Kind: service.EventNewBest, Task: out.Task, Streak: after.CurrentStreak, At: now})
	}
	if after.CurrentStreak != before.CurrentStreak && streak.IsMilestone(after.CurrentStreak) {
		out.Milestone = after.CurrentStreak
		events = append(events, service.Event{Kind: service.EventMilestone, Task: out.Task, Streak: after.CurrentStreak, At: now})
	}
	return out, events, true
}

func (s *Store) uncompleteLocked(id string) (service.Task, bool) {
	_, day := s.beginLocked()

	i := s.indexOf(id)
	if i >= 0 {
		s.tasks[i].State = streak.Uncomplete(s.tasks[i].State, day)
	}
	s.persistLocked()
	if i < 0 {
		return service.Task{}, false
	}
	return s.tasks[i], true
}

// Reload implements service.Service. It returns false when storage held no
// usable collection, in which case memory is left untouched.
func (s *Store) Reload() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		s.initLocked()
		return true
	}

	tasks, ok := s.load()
	if !ok {
		return false
	}
	normalizeAll(tasks, s.day())
	s.tasks = tasks
	return true
}

// LastSavedAt implements service.Service.
func (s *Store) LastSavedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSavedAt
}

// Subscribe implements service.Service. Subscribers run synchronously on the
// goroutine that made the mutation, after the store's lock is released.
func (s *Store) Subscribe(fn func(service.Event)) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Close implements service.Service.
func (s *Store) Close() error {
	if s.storage == nil {
		return nil
	}
	return s.storage.Close()
}

func (s *Store) emit(events []service.Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	subs := make([]func(service.Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()

	for _, ev := range events {
		for _, fn := range subs {
			fn(ev)
		}
	}
}

// load reads the persisted collection. ok is false when nothing usable is stored.
func (s *Store) load() ([]service.Task, bool) {
	if s.storage == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()

	data, err := s.storage.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn("failed to read tasks", "key", s.key, "error", err)
		return nil, false
	}

	tasks, err := decode(data)
	if err != nil {
		s.logger.Warn("ignoring unreadable tasks", "key", s.key, "error", err)
		return nil, false
	}
	return tasks, true
}

// persistLocked writes the whole collection. Failures are logged only.
func (s *Store) persistLocked() {
	if s.storage == nil {
		s.lastSavedAt = s.now()
		return
	}

	data, err := encode(s.tasks)
	if err != nil {
		s.logger.Warn("failed to encode tasks", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	if err := s.storage.Set(ctx, s.key, data); err != nil {
		s.logger.Warn("failed to persist tasks", "key", s.key, "error", err)
		return
	}
	s.lastSavedAt = s.now()
}

// beginLocked prepares a mutation: the collection is loaded and streaks that
// went stale since the last mutation are reset.
func (s *Store) beginLocked() (time.Time, streak.Day) {
	s.initLocked()
	now := s.now()
	day := streak.DayOf(now)
	normalizeAll(s.tasks, day)
	return now, day
}

func (s *Store) indexOf(id string) int {
	for i, t := range s.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) day() streak.Day {
	return streak.DayOf(s.now())
}

// normalizeAll resets stale streaks in place and reports whether any changed.
func normalizeAll(tasks []service.Task, day streak.Day) bool {
	changed := false
	for i := range tasks {
		var c bool
		tasks[i].State, c = streak.Normalize(tasks[i].State, day)
		changed = changed || c
	}
	return changed
}

func cleanText(text string) string {
	return norm.NFC.String(strings.TrimSpace(text))
}
