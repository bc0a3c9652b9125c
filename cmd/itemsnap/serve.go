package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ItemSnap/internal/api"
	"github.com/IshaanNene/ItemSnap/internal/scheduler"
)

var (
	servePort     int
	serveSchedule string
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local extraction service",
		Long: `Serve POST /api/message ({"action":"extractData","url":...}) together
with the batch, export and metrics endpoints. When a refresh schedule is set
the batch is re-extracted on that cron spec.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default: api.port)")
	cmd.Flags().StringVar(&serveSchedule, "refresh", "", "cron spec with seconds, e.g. \"0 0 */6 * * *\" (default: batch.refresh_schedule)")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	if servePort > 0 {
		a.cfg.API.Port = servePort
	}
	if serveSchedule != "" {
		a.cfg.Batch.RefreshSchedule = serveSchedule
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch, err := a.openBatch(ctx)
	if err != nil {
		return err
	}

	srv := api.NewServer(a.cfg, a.handler, batch, a.metrics, a.logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	var refresher *scheduler.Refresher
	if spec := a.cfg.Batch.RefreshSchedule; spec != "" {
		refresher, err = scheduler.NewRefresher(spec, batch, a.handler, a.metrics, a.logger)
		if err != nil {
			return err
		}
		if err := refresher.Start(); err != nil {
			return err
		}
	}

	fmt.Printf("🛰  ItemSnap listening on :%d (page source: %s)\n", a.cfg.API.Port, a.opener.Mode())

	<-ctx.Done()
	a.logger.Info("shutting down...")

	if refresher != nil {
		refresher.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
