package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asaidimu/go-ninja/ninja"
	"github.com/asaidimu/go-ninja/scheduler"
	"github.com/asaidimu/go-ninja/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 15 * time.Second
	warmTimeout     = 5 * time.Minute
)

func newServeCmd(opts *options) *cobra.Command {
	var warmOnStart bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve collection queries over HTTP",
		Long: `Start the HTTP query surface. When warm.schedule is set, snapshots of the
warm.leagues are refreshed in the background on that schedule.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			job := &ninja.WarmJob{
				Collections: a.collections,
				Leagues:     a.warmLeagues(),
				Timeout:     warmTimeout,
				Logger:      a.logger,
			}
			sched := scheduler.New(a.logger)
			if a.cfg.Warm.Schedule != "" {
				if err := sched.AddJob(a.cfg.Warm.Schedule, job); err != nil {
					return err
				}
			}
			sched.Start()
			defer sched.Stop()

			if warmOnStart {
				go func() {
					if err := sched.RunNow(job); err != nil {
						a.logger.Warn("Initial warm-up failed", zap.Error(err))
					}
				}()
			}

			srv := server.New(server.Config{
				Addr:        a.cfg.Listen,
				Collections: a.bindings(),
				Metrics:     a.metrics,
				Logger:      a.logger,
			})
			return run(ctx, srv, a.logger)
		},
	}
	cmd.Flags().BoolVar(&warmOnStart, "warm", false, "warm the configured leagues once at startup")
	return cmd
}

// run serves until ctx is done, then shuts the server down gracefully.
func run(ctx context.Context, srv *server.Server, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Shutdown failed", zap.Error(err))
		return err
	}
	return <-errCh
}
