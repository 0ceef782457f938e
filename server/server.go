// Package server owns the process lifecycle: migrations, background jobs, the
// HTTP listener and graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	WebServerPort       string
	WebServerPreHandler func(r *gin.Engine)

	MigrationEnabled bool
	MigrationHandler func(ctx context.Context) error

	JobsEnabled bool
	JobsHandler func()

	// ShutdownHandler releases clients once the listener has drained.
	ShutdownHandler func(ctx context.Context)

	Log *zap.Logger
}

func GetDefaultOptions() Options {
	return Options{
		WebServerPort:    "5000",
		MigrationEnabled: true,
		JobsEnabled:      true,
	}
}

// NewEngine builds the gin engine with the pre-handler applied.
func NewEngine(opts Options) *gin.Engine {
	r := gin.New()
	if opts.WebServerPreHandler != nil {
		opts.WebServerPreHandler(r)
	}
	return r
}

/*
* Run migrations, then start background jobs
* Serve until SIGINT or SIGTERM
* Drain in-flight requests, then release clients
 */
func Start(opts Options) error {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	if opts.MigrationEnabled && opts.MigrationHandler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := opts.MigrationHandler(ctx)
		cancel()
		if err != nil {
			return err
		}
	}
	if opts.JobsEnabled && opts.JobsHandler != nil {
		opts.JobsHandler()
	}

	srv := &http.Server{
		Addr:              ":" + opts.WebServerPort,
		Handler:           NewEngine(opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-quit:
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(ctx)
	if opts.ShutdownHandler != nil {
		opts.ShutdownHandler(ctx)
	}
	log.Info("server stopped")
	return err
}
