package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/sattrack/events"
	"github.com/signalsfoundry/sattrack/model"
	"github.com/signalsfoundry/sattrack/registry"
)

var _ registry.Storage = (*Store)(nil)

func TestLoadMigrations(t *testing.T) {
	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	require.Equal(t, 1, migrations[0].Version)
}

func TestRunMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, runMigrations(db))
	require.NoError(t, runMigrations(db))

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	require.Equal(t, 1, count)
}

func TestStore_GetSet(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(registry.TLEKey)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(registry.TLEKey, `{}`))
	require.NoError(t, s.Set(registry.TLEKey, `{"iss":{"name":"ISS","tle1":"1","tle2":"2","visibleOnMap":true}}`))

	v, ok, err := s.Get(registry.TLEKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `{"iss":{"name":"ISS","tle1":"1","tle2":"2","visibleOnMap":true}}`, v)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sattrack.db")

	s, err := NewStore(path)
	require.NoError(t, err)
	reg := registry.NewObserverRegistry(s, events.NewChannel(nil))
	_, err = reg.Add(model.NewObserverInput("Svalbard", 78.23, 15.39))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer s2.Close()
	reloaded := registry.NewObserverRegistry(s2, nil)
	require.Equal(t, reg.List(), reloaded.List())
}

func TestStore_ClosedReportsError(t *testing.T) {
	s, err := NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get(registry.ObserversKey)
	require.Error(t, err)
	require.Error(t, s.Set(registry.ObserversKey, "[]"))
}
