package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Skufu/postcovid-risk/internal/httpapi"
	"github.com/Skufu/postcovid-risk/internal/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			defer cc.Logger.Sync() //nolint:errcheck

			server, cleanup, err := buildServer(cmd.Context(), cc)
			if err != nil {
				return err
			}
			defer cleanup()

			errCh := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			cc.Logger.Info("server listening", zap.String("addr", server.Addr))
			return waitForShutdown(server, errCh, cc.Logger)
		},
	}
}

func buildServer(ctx context.Context, cc *CLIContext) (*http.Server, func(), error) {
	cfg := cc.Config
	gin.SetMode(cfg.Server.GinMode)

	m := metrics.New(true)
	deps := httpapi.Deps{Metrics: m, Logger: cc.Logger}
	cleanup := func() {}

	if cfg.Database.Enabled {
		st, err := openStore(ctx, cfg, cc.Logger)
		if err != nil {
			return nil, nil, err
		}
		cleanup = func() { _ = st.Close() }

		svc, err := newPredictionService(cfg, st, m, cc.Logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.DB = st
		deps.Patients = st
		deps.Service = svc
	} else {
		cc.Logger.Warn("database disabled; patient routes will answer 503")
	}

	router := httpapi.NewRouter(deps, httpapi.Options{
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
		AllowOrigins: cfg.Server.AllowOrigins,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return server, cleanup, nil
}

func waitForShutdown(server *http.Server, errCh <-chan error, logger *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
