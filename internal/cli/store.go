package cli

import (
	"context"
	"log/slog"

	"streaktodo/internal/config"
	"streaktodo/internal/kv"
	"streaktodo/internal/service"
	"streaktodo/internal/store"
)

// OpenStore is the production ServiceFactory. It opens the configured
// storage backend and loads the task store from it. When the backend
// cannot be opened the store runs in memory only and a warning is logged.
func OpenStore(ctx context.Context, cfg *config.Config) (service.Service, error) {
	backend := cfg.Settings.Storage.Backend
	path := cfg.StoragePath()
	storage, err := kv.Open(ctx, backend, path)
	if err != nil {
		slog.Warn("storage unavailable, changes will not be saved",
			"backend", backend, "error", err)
		storage = nil
	}

	s := store.New(storage)
	s.Initialize()
	return s, nil
}
