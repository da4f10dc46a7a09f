package testutil

import (
	"io"
	"log/slog"

	"streaktodo/internal/kv"
	"streaktodo/internal/store"
)

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewStore creates a Store over storage with a fake clock, sequential ids and
// a silent logger.
func NewStore(storage kv.Storage, clock *Clock) *store.Store {
	return store.New(storage,
		store.WithClock(clock.Now),
		store.WithIDGenerator(SequentialIDs()),
		store.WithLogger(DiscardLogger()),
	)
}
