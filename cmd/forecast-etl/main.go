// Command forecast-etl scrapes mountain forecast pages, aligns each page's
// day headers with its time-slot columns, and upserts the records into the
// current month's dataset.
//
// Usage:
//
//	forecast-etl run              # one scrape, then exit
//	forecast-etl serve            # scheduled scrapes plus HTTP endpoints
//	forecast-etl render [MMYYYY]  # print a stored month as a grid
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/mountain-forecast-etl/internal/adapter/http"
	"github.com/couchcryptid/mountain-forecast-etl/internal/config"
	"github.com/couchcryptid/mountain-forecast-etl/internal/domain"
	"github.com/couchcryptid/mountain-forecast-etl/internal/observability"
	"github.com/couchcryptid/mountain-forecast-etl/internal/render"
	"github.com/couchcryptid/mountain-forecast-etl/internal/scheduler"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "forecast-etl",
		Short:         "Scrape mountain forecasts into a monthly dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(runCmd(), serveCmd(), renderCmd())
	return root
}

// setup loads configuration and builds the logger. Errors are reported with
// the default logger because the configured one does not exist yet.
func setup() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return nil, nil, err
	}
	return cfg, observability.NewLogger(cfg), nil
}

func runCmd() *cobra.Command {
	var grid bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scrape every page once and merge into the dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger, observability.NewMetrics())
			if err != nil {
				logger.Error("startup failed", "error", err)
				return err
			}
			defer a.Close()

			res, err := a.pipeline.Run(ctx)
			if err != nil {
				return err
			}
			if grid {
				return render.NewGrid().Render(cmd.OutOrStdout(), res.Forecasts)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&grid, "grid", false, "print the scraped forecasts as a grid")
	return cmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Scrape on RUN_INTERVAL and serve health, metrics and forecasts over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger, observability.NewMetrics())
			if err != nil {
				logger.Error("startup failed", "error", err)
				return err
			}
			defer a.Close()

			srv := httpadapter.NewServer(cfg.HTTPAddr, a.pipeline, render.NewGrid(), logger)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("http server error", "error", err)
				}
			}()

			sched := scheduler.New(a.pipeline, cfg.RunInterval, logger)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()

			sched.Stop()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
			logger.Info("shutdown complete")
			return nil
		},
	}
}

func renderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "render [MMYYYY]",
		Short: "Print a stored month's dataset as a grid (default: current month)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			cal := domain.Today()
			if len(args) == 1 {
				if cal, err = parseMonth(args[0]); err != nil {
					return err
				}
			}

			store, closeStore, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore() //nolint:errcheck // read-only

			ds, err := store.Load(cmd.Context(), cal)
			if err != nil {
				return err
			}
			if ds == nil {
				return fmt.Errorf("no dataset for %02d%d", int(cal.Month), cal.Year)
			}
			return render.NewGrid().Render(cmd.OutOrStdout(), ds.Group())
		},
	}
}

// parseMonth reads an "MMYYYY" argument.
func parseMonth(s string) (domain.Calendar, error) {
	t, err := time.Parse("012006", s)
	if err != nil {
		return domain.Calendar{}, fmt.Errorf("month %q: want MMYYYY", s)
	}
	return domain.Calendar{Year: t.Year(), Month: t.Month()}, nil
}
