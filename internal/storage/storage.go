// Package storage opens the key-value backend selected by configuration.
package storage

import (
	"fmt"
	"io"

	"github.com/signalsfoundry/sattrack/internal/config"
	"github.com/signalsfoundry/sattrack/internal/storage/file"
	"github.com/signalsfoundry/sattrack/internal/storage/memory"
	"github.com/signalsfoundry/sattrack/internal/storage/sqlite"
	"github.com/signalsfoundry/sattrack/registry"
)

// Store is a registry.Storage that owns resources.
type Store interface {
	registry.Storage
	io.Closer
}

var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*file.Store)(nil)
	_ Store = (*sqlite.Store)(nil)
)

// Open returns the backend named by cfg.Backend.
func Open(cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memory.NewStore(), nil
	case config.BackendFile:
		return file.NewStore(cfg.Path), nil
	case config.BackendSQLite:
		s, err := sqlite.NewStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
