package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MrJamesThe3rd/fiado/internal/database"
	fiadoHttp "github.com/MrJamesThe3rd/fiado/internal/http"
	"github.com/MrJamesThe3rd/fiado/internal/http/health"
)

const shutdownTimeout = 10 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the operations server (health checks and metrics)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			checks := map[string]health.Checker{"database": database.NewPinger(a.DB)}
			if a.Queue != nil {
				checks["redis"] = a.Queue
			}

			router := fiadoHttp.New(
				a.Log,
				health.NewHandler(a.Config.App.Version, a.Config.Ops.Timeout, a.Log, checks),
				promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),
			)

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", a.Config.Ops.Port),
				Handler:           router,
				ReadHeaderTimeout: 5 * time.Second,
				WriteTimeout:      a.Config.Ops.Timeout,
			}

			errCh := make(chan error, 1)

			go func() {
				a.Log.Info("starting ops server", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("ops server: %w", err)
				}

				return nil
			case <-ctx.Done():
			}

			a.Log.Info("shutting down ops server")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			return srv.Shutdown(shutdownCtx)
		},
	}
}
