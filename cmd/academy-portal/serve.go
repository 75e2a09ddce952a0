package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/academy-portal/internal/handler"
	"github.com/noah-isme/academy-portal/internal/middleware"
	"github.com/noah-isme/academy-portal/pkg/config"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(ctx, cfg, logr)
	if err != nil {
		return err
	}

	router := handler.NewRouter(handler.RouterDeps{
		Config:      cfg,
		Logger:      logr,
		Metrics:     a.metrics,
		Audit:       a.audit,
		RateLimiter: middleware.NewRateLimiter(cfg.Registration.RateLimit, cfg.Registration.RateBurst),
	}, a.handlers())

	// No write timeout: browse event streams stay open.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	a.audit.Start(gctx)

	g.Go(func() error {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("upstream", cfg.Upstream.BaseURL),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logr.Info("server shutting down")
		// Closing sessions first ends open event streams so Shutdown does not wait on them.
		a.browse.Shutdown()
		err := srv.Shutdown(shutdownCtx)
		a.close(shutdownCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		logr.Error("server stopped", zap.Error(err))
		return err
	}
	logr.Info("server stopped gracefully")
	return nil
}
