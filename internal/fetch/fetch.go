// Package fetch downloads one GFS run into a fresh directory and marks
// completion with a semaphore file that downstream jobs wait on.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/crs4/tdm/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Downloader copies one remote file into w.
type Downloader interface {
	Download(ctx context.Context, remotePath string, w io.Writer) (int64, error)
}

// Notifier announces a completed fetch.
type Notifier interface {
	NotifyFetched(ctx context.Context, res Result) error
}

// Request describes one fetch job.
type Request struct {
	Run             Run
	Resolution      Resolution
	MaxForecastHour int
	TargetDir       string
	SemaphoreFile   string
}

// Result summarizes a completed fetch. It is also the notification payload.
type Result struct {
	RunID       string    `json:"run"`
	Resolution  string    `json:"resolution"`
	Directory   string    `json:"directory"`
	Files       int       `json:"files"`
	Bytes       int64     `json:"bytes"`
	CompletedAt time.Time `json:"completed_at"`
}

// Fetcher runs fetch jobs with bounded download parallelism.
type Fetcher struct {
	downloader Downloader
	notifier   Notifier
	logger     *slog.Logger
	metrics    *observability.Metrics
	workers    int
}

// New creates a Fetcher. notifier may be nil. workers below 1 means 1.
func New(d Downloader, n Notifier, logger *slog.Logger, metrics *observability.Metrics, workers int) *Fetcher {
	if workers < 1 {
		workers = 1
	}
	return &Fetcher{
		downloader: d,
		notifier:   n,
		logger:     logger,
		metrics:    metrics,
		workers:    workers,
	}
}

// Fetch downloads every file of the requested run into req.TargetDir, which
// must not exist yet. The semaphore file is written only after all files are
// in place; on failure it is left absent.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (Result, error) {
	start := clock.Now()
	files, err := Plan(req.Run, req.Resolution, req.MaxForecastHour)
	if err != nil {
		return Result{}, err
	}
	f.metrics.FilesPlanned.Set(float64(len(files)))

	if err := os.Mkdir(req.TargetDir, 0o755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return Result{}, fmt.Errorf("target directory %s already exists: %w", req.TargetDir, err)
		}
		return Result{}, fmt.Errorf("create target directory: %w", err)
	}

	f.logger.Info("fetch started",
		"run", req.Run.ID(),
		"resolution", req.Resolution,
		"files", len(files),
		"workers", f.workers,
		"target", req.TargetDir,
	)

	total, err := f.downloadAll(ctx, files, req.TargetDir)
	if err != nil {
		f.logger.Error("fetch failed", "run", req.Run.ID(), "error", err)
		return Result{}, err
	}

	if err := os.WriteFile(req.SemaphoreFile, nil, 0o644); err != nil {
		return Result{}, fmt.Errorf("write semaphore file: %w", err)
	}

	res := Result{
		RunID:       req.Run.ID(),
		Resolution:  string(req.Resolution),
		Directory:   req.TargetDir,
		Files:       len(files),
		Bytes:       total,
		CompletedAt: clock.Now().UTC(),
	}
	f.metrics.FetchDuration.Set(clock.Since(start).Seconds())
	f.metrics.LastSuccess.Set(float64(res.CompletedAt.Unix()))
	f.logger.Info("fetch complete", "run", res.RunID, "files", res.Files, "bytes", res.Bytes,
		"semaphore", req.SemaphoreFile)

	if f.notifier != nil {
		if err := f.notifier.NotifyFetched(ctx, res); err != nil {
			f.metrics.NotifyFailures.Inc()
			f.logger.Warn("completion notification failed", "run", res.RunID, "error", err)
		}
	}
	return res, nil
}

// downloadAll fetches files with at most f.workers in flight. The first
// failure cancels the remaining downloads.
func (f *Fetcher) downloadAll(ctx context.Context, files []File, dir string) (int64, error) {
	sizes := make([]int64, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for i, file := range files {
		g.Go(func() error {
			n, err := f.downloadOne(gctx, file, dir)
			sizes[i] = n
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var total int64
	for _, n := range sizes {
		total += n
	}
	return total, nil
}

// downloadOne writes to a ".part" file and renames it on success, so a
// file with its final name is always complete.
func (f *Fetcher) downloadOne(ctx context.Context, file File, dir string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("download %s: %w", file.Name, err)
	}
	start := clock.Now()
	final := filepath.Join(dir, file.Name)
	tmp := final + ".part"

	out, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", tmp, err)
	}
	n, err := f.downloader.Download(ctx, file.Remote, out)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp)
		if ctx.Err() == nil {
			f.metrics.DownloadFailures.Inc()
		}
		return 0, fmt.Errorf("download %s: %w", file.Name, err)
	}
	if err := os.Rename(tmp, final); err != nil {
		return 0, fmt.Errorf("rename %s: %w", tmp, err)
	}

	f.metrics.FilesDownloaded.Inc()
	f.metrics.BytesDownloaded.Add(float64(n))
	f.metrics.DownloadDuration.Observe(clock.Since(start).Seconds())
	f.logger.Debug("file stored", "file", file.Name, "step", file.Step, "bytes", n)
	return n, nil
}
