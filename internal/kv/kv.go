// Package kv provides the key-value storage the task store persists into.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when a key holds no value.
var ErrNotFound = errors.New("not found")

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Storage is a flat string-keyed store of opaque values.
// Set overwrites any previous value wholesale.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open returns the storage backend named by backend, rooted at path.
// For the file backend path is a directory, for sqlite the database file and
// for postgres the connection string.
func Open(ctx context.Context, backend, path string) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		return NewFile(path)
	case BackendSQLite:
		return NewSQLite(path)
	case BackendMemory:
		return NewMemory(), nil
	case BackendPostgres:
		return NewPostgres(ctx, path)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}
