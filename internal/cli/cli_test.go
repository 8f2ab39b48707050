package cli_test

import (
	"bytes"
	"fmt"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crs4/tdm/internal/cli"
	"github.com/crs4/tdm/internal/config"
	"github.com/crs4/tdm/internal/wrf"
)

const minimalYAML = `global:
  geogrid:
    io_form_geogrid: 2
  running:
    input:
      restart: false
  physics:
    ishallow: 0
domains:
  base:
    geometry:
      e_we: 130
      truelat1: 42
  dom1:
    parent: base
    geometry:
      e_we: 200
  dom2:
    parent: base
    timespan:
      start:
        year: 2018
        month: 1
`

func nlLine(name, values string) string {
	return fmt.Sprintf(" %-24s = %s,\n", name, values)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return executeWithLogger(t, slog.New(slog.NewTextHandler(io.Discard, nil)), args...)
}

func executeWithLogger(t *testing.T, logger *slog.Logger, args ...string) (string, error) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	cmd := cli.NewRootCommand(cfg, logger)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), err
}

func TestNewRootCommandRegistersSubcommands(t *testing.T) {
	cmd := cli.NewRootCommand(&config.Config{}, slog.Default())
	assert.Equal(t, "tdm", cmd.Use)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, expected := range []string{"wrf-config", "gfs-fetch"} {
		assert.True(t, names[expected], "expected subcommand %s", expected)
	}
}

func TestWRFConfigShow(t *testing.T) {
	out, err := execute(t, "wrf-config", "show", writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "ID  DOMAIN  PARENT\n"+
		"1   base    -\n"+
		"2   dom1    base\n"+
		"3   dom2    base\n", out)
}

func TestWRFConfigGet(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	out, err := execute(t, "wrf-config", "get", path, "running.input.restart", "@dom1.geometry.e_we", "@dom2.parent")
	require.NoError(t, err)
	assert.Equal(t, "running.input.restart = false\n"+
		"@dom1.geometry.e_we = 200\n"+
		"@dom2.parent = \"base\"\n", out)

	out, err = execute(t, "wrf-config", "get", "--inherit", path, "@dom1.geometry.truelat1")
	require.NoError(t, err)
	assert.Equal(t, "@dom1.geometry.truelat1 = 42\n", out)

	_, err = execute(t, "wrf-config", "get", path, "@dom1.geometry.truelat1")
	assert.ErrorIs(t, err, wrf.ErrKeyNotFound)

	_, err = execute(t, "wrf-config", "get", path, "@nowhere.e_we")
	assert.ErrorIs(t, err, wrf.ErrDomainNotFound)
}

func TestWRFConfigSet(t *testing.T) {
	path := writeConfig(t, minimalYAML)
	outPath := filepath.Join(t.TempDir(), "updated.yaml")

	_, err := execute(t, "wrf-config", "set", path,
		"@base.geometry.e_we=131",
		"geometry.truelat1=43",
		"foobar.foo.bar=this is a string",
		"-o", outPath,
	)
	require.NoError(t, err)

	out, err := execute(t, "wrf-config", "get", outPath,
		"@base.geometry.e_we", "geometry.truelat1", "foobar.foo.bar", "@dom1.geometry.e_we")
	require.NoError(t, err)
	assert.Equal(t, "@base.geometry.e_we = 131\n"+
		"geometry.truelat1 = 43\n"+
		"foobar.foo.bar = \"this is a string\"\n"+
		"@dom1.geometry.e_we = 200\n", out)
}

func TestWRFConfigSet_Errors(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	_, err := execute(t, "wrf-config", "set", path, "no-equals-sign")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PATH=VALUE")

	_, err = execute(t, "wrf-config", "set", path, "@dom1=1")
	assert.ErrorIs(t, err, wrf.ErrMalformedPath)

	_, err = execute(t, "wrf-config", "set", path, "@dom1.parent=dom2")
	assert.ErrorIs(t, err, wrf.ErrConfig)
}

func TestWRFConfigNamelist(t *testing.T) {
	path := writeConfig(t, minimalYAML)

	_, err := execute(t, "wrf-config", "namelist", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, wrf.ErrKeyNotFound)

	out, err := execute(t, "wrf-config", "namelist", path,
		"--set", "timespan.start.year=2018",
		"--set", "timespan.start.month=1",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "&domains\n")
	assert.Contains(t, out, nlLine("max_dom", "3"))
	assert.Contains(t, out, "&geometry\n")
	assert.Contains(t, out, nlLine("e_we", "130, 200, 130"))
	assert.Contains(t, out, nlLine("truelat1", "42, 42, 42"))
	assert.Contains(t, out, "&timespan\n")
	assert.Contains(t, out, nlLine("start_year", "2018, 2018, 2018"))
	assert.Contains(t, out, "&running\n")
	assert.Contains(t, out, nlLine("input_restart", ".false."))
}

func TestWRFConfig_InvalidFile(t *testing.T) {
	path := writeConfig(t, "domains:\n  a: {}\n  b: {}\n")

	_, err := execute(t, "wrf-config", "show", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, wrf.ErrConfig)
	assert.Contains(t, err.Error(), path)
}

func TestGFSFetch(t *testing.T) {
	var requests []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Path)
		_, _ = io.WriteString(w, "GRIB")
	}))
	defer srv.Close()
	t.Setenv("NOAA_BASE_URL", srv.URL+"/gfs/prod")

	root := t.TempDir()
	target := filepath.Join(root, "model_data")
	semaphore := filepath.Join(root, ".__success__")

	out, err := execute(t, "gfs-fetch",
		"--year", "2018", "--month", "10", "--day", "1", "--hour", "12",
		"--n-download-threads", "1",
		"--max-forecast-hour", "6",
		"--requested-resolution", "1p00",
		"--target-directory", target,
		"--semaphore-file", semaphore,
	)
	require.NoError(t, err)
	assert.Equal(t, "fetched 3 files (12 bytes) for run 2018100112 into "+target+"\n", out)

	assert.Equal(t, []string{
		"/gfs/prod/gfs.20181001/12/atmos/gfs.t12z.pgrb2.1p00.f000",
		"/gfs/prod/gfs.20181001/12/atmos/gfs.t12z.pgrb2.1p00.f003",
		"/gfs/prod/gfs.20181001/12/atmos/gfs.t12z.pgrb2.1p00.f006",
	}, requests)

	_, err = os.Stat(semaphore)
	require.NoError(t, err)

	// A second run into the same directory must refuse to overwrite it.
	_, err = execute(t, "gfs-fetch",
		"--year", "2018", "--month", "10", "--day", "1",
		"--max-forecast-hour", "0",
		"--target-directory", target,
		"--semaphore-file", semaphore,
	)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "already exists"))
}

func TestGFSFetch_LogsThroughConfiguredLogger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()
	t.Setenv("NOAA_BASE_URL", srv.URL)

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	root := t.TempDir()
	_, err := executeWithLogger(t, logger, "gfs-fetch",
		"--year", "2018", "--month", "10", "--day", "1",
		"--max-forecast-hour", "0",
		"--target-directory", filepath.Join(root, "model_data"),
		"--semaphore-file", filepath.Join(root, ".__success__"),
	)
	require.Error(t, err)

	var msgs []string
	for _, line := range strings.Split(strings.TrimSpace(logs.String()), "\n") {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		msgs = append(msgs, rec["msg"].(string))
	}
	assert.Contains(t, msgs, "fetch failed")
}

func TestGFSFetch_InvalidFlags(t *testing.T) {
	root := t.TempDir()
	for _, args := range [][]string{
		{"--hour", "3"},
		{"--requested-resolution", "2p00"},
		{"--month", "13"},
	} {
		full := append([]string{"gfs-fetch", "--target-directory", filepath.Join(root, "x"), "--semaphore-file", filepath.Join(root, "s")}, args...)
		_, err := execute(t, full...)
		assert.Error(t, err, "%v", args)
	}
	_, err := os.Stat(filepath.Join(root, "x"))
	assert.True(t, os.IsNotExist(err))
}
