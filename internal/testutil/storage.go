package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"streaktodo/internal/kv"
)

// ErrUnavailable is the default error injected by FlakyStorage.
var ErrUnavailable = errors.New("storage unavailable")

// FlakyStorage is an in-memory kv.Storage with error injection.
type FlakyStorage struct {
	*kv.Memory

	mu     sync.Mutex
	writes int

	// Error injection for testing
	GetErr error
	SetErr error
}

// NewFlakyStorage creates an empty FlakyStorage that does not fail.
func NewFlakyStorage() *FlakyStorage {
	return &FlakyStorage{Memory: kv.NewMemory()}
}

// Get implements kv.Storage.
func (f *FlakyStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.Memory.Get(ctx, key)
}

// Set implements kv.Storage.
func (f *FlakyStorage) Set(ctx context.Context, key string, value []byte) error {
	if f.SetErr != nil {
		return f.SetErr
	}
	f.mu.Lock()
	f.writes++
	f.mu.Unlock()
	return f.Memory.Set(ctx, key, value)
}

// Writes returns the number of successful Set calls.
func (f *FlakyStorage) Writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes
}

// Raw returns the stored value for key as a string, or "" when absent.
func (f *FlakyStorage) Raw(key string) string {
	data, err := f.Memory.Get(context.Background(), key)
	if err != nil {
		return ""
	}
	return string(data)
}

// SequentialIDs returns an id generator producing "task-1", "task-2", ...
func SequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("task-%d", n)
	}
}
