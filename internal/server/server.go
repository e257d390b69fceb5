// Package server owns the process lifecycle: the HTTP listener and the
// background jobs that run alongside it.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Job is a background task that runs until ctx is cancelled.
type Job func(ctx context.Context) error

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

type App struct {
	cfg     Config
	handler http.Handler
	logger  zerolog.Logger
	jobs    []Job
}

func NewApp(cfg Config, handler http.Handler, logger zerolog.Logger, jobs ...Job) *App {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 15 * time.Second
	}
	return &App{
		cfg:     cfg,
		handler: handler,
		logger:  logger,
		jobs:    jobs,
	}
}

// Run listens on the configured address and blocks until ctx is cancelled or
// a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.cfg.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server on ln together with the background jobs. In-flight
// requests get ShutdownTimeout to finish once ctx is done.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, job := range a.jobs {
		job := job
		g.Go(func() error {
			return job(gctx)
		})
	}

	g.Go(func() error {
		a.logger.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		a.logger.Info().Msg("shutting down HTTP server")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// Every returns a Job that calls fn on each tick. Errors are logged, not
// returned, so one failed run does not stop the process.
func Every(interval time.Duration, logger zerolog.Logger, name string, fn func(ctx context.Context) error) Job {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					logger.Debug().Err(err).Str("job", name).Msg("background job failed")
				}
			}
		}
	}
}
