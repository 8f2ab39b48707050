package observability

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "json")

	logger.Debug("planned files", "files", 129)

	assert.Contains(t, buf.String(), `"msg":"planned files"`)
	assert.Contains(t, buf.String(), `"files":129`)
}

func TestNewLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "text")

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestMetrics_Registered(t *testing.T) {
	m := NewMetrics()
	m.FilesDownloaded.Add(3)
	m.BytesDownloaded.Add(1024)

	assert.InDelta(t, 3, testutil.ToFloat64(m.FilesDownloaded), 0)
	n, err := testutil.GatherAndCount(m.Registry)
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	// A second instance must not collide with the first.
	assert.NotPanics(t, func() { NewMetrics() })
}

func TestMetrics_Push(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewMetrics()
	m.FilesPlanned.Set(129)
	require.NoError(t, m.Push(context.Background(), srv.URL, "tdm_gfs_fetch"))

	assert.Equal(t, "/metrics/job/tdm_gfs_fetch", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestMetrics_PushError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := NewMetrics().Push(context.Background(), srv.URL, "job")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "push metrics"))
}
