package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/sattrack/internal/config"
	"github.com/signalsfoundry/sattrack/registry"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	for _, cfg := range []config.StorageConfig{
		{Backend: config.BackendMemory},
		{Backend: config.BackendFile, Path: filepath.Join(dir, "state.json")},
		{Backend: config.BackendSQLite, Path: filepath.Join(dir, "state.db")},
	} {
		t.Run(cfg.Backend, func(t *testing.T) {
			s, err := Open(cfg)
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.Set(registry.ObserversKey, "[]"))
			v, ok, err := s.Get(registry.ObserversKey)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "[]", v)
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(config.StorageConfig{Backend: "etcd"})
	require.ErrorContains(t, err, "unknown storage backend")
}
