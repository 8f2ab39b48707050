package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	kafkaadapter "github.com/crs4/tdm/internal/adapter/kafka"
	"github.com/crs4/tdm/internal/adapter/noaa"
	"github.com/crs4/tdm/internal/fetch"
	"github.com/crs4/tdm/internal/observability"
)

// pushTimeout bounds the Pushgateway call, which runs even after cancellation.
const pushTimeout = 10 * time.Second

type gfsFetchOptions struct {
	year, month, day, hour int
	workers                int
	maxForecastHour        int
	targetDir              string
	semaphoreFile          string
	resolution             string
}

func newGFSFetchCommand(a *app) *cobra.Command {
	y, m, d := fetch.Today()
	opts := gfsFetchOptions{
		year:            y,
		month:           m,
		day:             d,
		workers:         10,
		maxForecastHour: fetch.DefaultMaxForecastHour,
		targetDir:       "/gfs/model_data",
		semaphoreFile:   "/gfs/.__success__",
		resolution:      string(fetch.Res0p50),
	}

	cmd := &cobra.Command{
		Use:   "gfs-fetch",
		Short: "Download one GFS run from NOAA NOMADS and write a semaphore file on success",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.runGFSFetch(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %d files (%d bytes) for run %s into %s\n",
				res.Files, res.Bytes, res.RunID, res.Directory)
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.year, "year", opts.year, "run year (default today, UTC)")
	f.IntVar(&opts.month, "month", opts.month, "run month (default today, UTC)")
	f.IntVar(&opts.day, "day", opts.day, "run day (default today, UTC)")
	f.IntVar(&opts.hour, "hour", opts.hour, "run cycle hour: 0, 6, 12 or 18")
	f.IntVar(&opts.workers, "n-download-threads", opts.workers, "parallel downloads")
	f.IntVar(&opts.maxForecastHour, "max-forecast-hour", opts.maxForecastHour, "last forecast hour to fetch")
	f.StringVar(&opts.targetDir, "target-directory", opts.targetDir, "directory to create and fill; must not exist")
	f.StringVar(&opts.semaphoreFile, "semaphore-file", opts.semaphoreFile, "empty file written after a complete fetch")
	f.StringVar(&opts.resolution, "requested-resolution", opts.resolution, "grid resolution: 0p25, 0p50 or 1p00")

	return cmd
}

func (a *app) runGFSFetch(ctx context.Context, opts gfsFetchOptions) (fetch.Result, error) {
	run, err := fetch.NewRun(opts.year, opts.month, opts.day, opts.hour)
	if err != nil {
		return fetch.Result{}, err
	}
	res, err := fetch.ParseResolution(opts.resolution)
	if err != nil {
		return fetch.Result{}, err
	}

	metrics := observability.NewMetrics()
	client := noaa.NewClient(a.cfg.NOAABaseURL, a.cfg.NOAATimeout, a.logger)

	var notifier fetch.Notifier
	if a.cfg.NotifyEnabled() {
		kn := kafkaadapter.NewNotifier(a.cfg, a.logger)
		defer func() {
			if err := kn.Close(); err != nil {
				a.logger.Error("kafka notifier close error", "error", err)
			}
		}()
		notifier = kn
	}

	result, fetchErr := fetch.New(client, notifier, a.logger, metrics, opts.workers).Fetch(ctx, fetch.Request{
		Run:             run,
		Resolution:      res,
		MaxForecastHour: opts.maxForecastHour,
		TargetDir:       opts.targetDir,
		SemaphoreFile:   opts.semaphoreFile,
	})

	if a.cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		defer cancel()
		if err := metrics.Push(pushCtx, a.cfg.PushgatewayURL, a.cfg.PushgatewayJob); err != nil {
			a.logger.Warn("metrics push failed", "error", err)
		}
	}

	return result, fetchErr
}
