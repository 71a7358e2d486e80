package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  backend: file
  path: /var/lib/sattrack/state.json
listen_addr: "127.0.0.1:7000"
log:
  level: debug
`), 0o600))

	t.Setenv("SATTRACK_LOG_FORMAT", "json")
	t.Setenv("SATTRACK_TRACING_SAMPLE_RATIO", "0.25")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, BackendFile, cfg.Storage.Backend)
	require.Equal(t, "/var/lib/sattrack/state.json", cfg.Storage.Path)
	require.Equal(t, "127.0.0.1:7000", cfg.ListenAddr)
	require.Equal(t, ":9090", cfg.MetricsAddr, "unset keys keep defaults")
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_InvalidBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SATTRACK_STORAGE_BACKEND", "redis")

	_, err := Load(viper.New(), "")
	require.ErrorContains(t, err, "storage.backend")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:   "memory needs no path",
			mutate: func(c *Config) { c.Storage = StorageConfig{Backend: BackendMemory} },
		},
		{
			name:   "file needs path",
			mutate: func(c *Config) { c.Storage = StorageConfig{Backend: BackendFile} },
			errMsg: "storage.path",
		},
		{
			name:   "bad log format",
			mutate: func(c *Config) { c.Log.Format = "xml" },
			errMsg: "log.format",
		},
		{
			name:   "bad exporter",
			mutate: func(c *Config) { c.Tracing.Enabled = true; c.Tracing.Exporter = "zipkin" },
			errMsg: "tracing.exporter",
		},
		{
			name:   "bad sample ratio",
			mutate: func(c *Config) { c.Tracing.Enabled = true; c.Tracing.SampleRatio = 1.5 },
			errMsg: "tracing.sample_ratio",
		},
		{
			name:   "ratio ignored when disabled",
			mutate: func(c *Config) { c.Tracing.SampleRatio = 7 },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestWriteDefault_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "sattrack.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	require.Equal(t, Defaults(), cfg)

	require.Error(t, WriteDefault(path), "existing file must not be overwritten")
}

func TestConversions(t *testing.T) {
	cfg := Defaults()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	cfg.Tracing.Enabled = true

	require.Equal(t, "warn", cfg.Logging().Level)
	require.Equal(t, "json", cfg.Logging().Format)

	tc := cfg.TracingSettings()
	require.True(t, tc.Enabled)
	require.Equal(t, "sattrack", tc.ServiceName)
	require.Equal(t, "stdout", tc.Exporter)
}
