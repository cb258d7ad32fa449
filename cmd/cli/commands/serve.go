package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jakechorley/caregiver-planner/pkg/api"
	"github.com/jakechorley/caregiver-planner/pkg/metrics"
)

const shutdownTimeout = 10 * time.Second

// ServeCmd creates the serve command
func ServeCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = app.Cfg.ListenAddr()
			}

			registry := prometheus.NewRegistry()
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			recorder := metrics.NewPrometheus(registry, app.Cfg.MetricsNamespace)

			gin.SetMode(gin.ReleaseMode)
			handler := api.NewHandler(app.Database, app.Locker, recorder, app.Cfg, app.Logger)
			router := api.Setup(handler, registry, app.Logger)

			srv := &http.Server{
				Addr:              addr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(app.Ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				app.Logger.Info("HTTP server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			app.Logger.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(app.Ctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down http server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", "", "Listen address (defaults to httpAddr from config)")

	return cmd
}
