package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signalsfoundry/sattrack/internal/config"
	"github.com/signalsfoundry/sattrack/internal/logging"
	"github.com/signalsfoundry/sattrack/model"
)

func TestServeStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.Storage = config.StorageConfig{Backend: config.BackendSQLite, Path: filepath.Join(t.TempDir(), "sattrack.db")}
	cfg.MetricsAddr = ""
	log := logging.New(logging.Config{Level: "warn", Output: io.Discard})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, lis)
	}()

	base := "http://" + lis.Addr().String()
	resp, err := http.Post(base+"/api/observers", "application/json",
		strings.NewReader(`{"name":"Svalbard","latitude":78.23,"longitude":15.39}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// An open event stream must not hold up shutdown.
	stream, err := http.Get(base + "/events")
	require.NoError(t, err)
	defer stream.Body.Close()

	resp, err = http.Get(base + "/api/observers")
	require.NoError(t, err)
	var list []model.Observer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLIObserversAndTLEs(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	storeFlags := []string{"--storage-backend", "file", "--storage-path", filepath.Join(dir, "state.json"), "--log-level", "error"}
	cli := func(args ...string) string {
		t.Helper()
		out, err := execute(t, append(append([]string{}, storeFlags...), args...)...)
		require.NoError(t, err, out)
		return out
	}

	cli("observers", "add", "Cape Town", "-33.92", "18.42")
	cli("observers", "add", "Null Island", "0", "0")
	out := cli("observers", "list", "--json")
	var observers []model.Observer
	require.NoError(t, json.Unmarshal([]byte(out), &observers))
	require.Equal(t, []model.Observer{
		{Name: "Cape Town", Latitude: -33.92, Longitude: 18.42},
		{Name: "Null Island"},
	}, observers)

	_, err := execute(t, append(append([]string{}, storeFlags...), "observers", "add", "Cape Town", "1", "1")...)
	require.Error(t, err, "duplicate observer must fail")

	require.Contains(t, cli("observers", "remove", "Cape Town"), "removed")
	require.Contains(t, cli("observers", "remove", "Cape Town"), "no observer")

	feed := filepath.Join(dir, "feed.tle")
	require.NoError(t, os.WriteFile(feed, []byte(
		"ISS (ZARYA)\n1 25544U 98067A\n2 25544  51.6416\nNOAA 19\n1 33591U 09005A\n2 33591  99.1\n"), 0o644))
	require.Contains(t, cli("tles", "import", feed), "imported 2 of 2")
	require.Contains(t, cli("tles", "toggle", "noaa 19"), "visible: false")

	var visible, all []model.TLERecord
	require.NoError(t, json.Unmarshal([]byte(cli("tles", "list", "--json")), &visible))
	require.NoError(t, json.Unmarshal([]byte(cli("tles", "list", "--all", "--json")), &all))
	require.Len(t, visible, 1)
	require.Len(t, all, 2)

	require.Contains(t, cli("tles", "clear"), "cleared 2")
	require.Contains(t, cli("tles", "list"), "NAME")
}

func TestCLIConfigInit(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	out, err := execute(t, "config", "init")
	require.NoError(t, err)
	require.Contains(t, out, "sattrack.yaml")

	_, err = os.Stat(filepath.Join(dir, "sattrack.yaml"))
	require.NoError(t, err)

	_, err = execute(t, "config", "init")
	require.Error(t, err)
}

func TestCLIRejectsUnknownBackend(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := execute(t, "--storage-backend", "redis", "observers", "list")
	require.ErrorContains(t, err, "storage.backend")
}
