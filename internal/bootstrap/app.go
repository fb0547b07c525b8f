package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/yanqian/clinic-assistant/internal/infra/config"
)

// Task is a background loop that runs until ctx is cancelled.
type Task func(ctx context.Context)

// Tasks groups the background loops started alongside the HTTP server.
type Tasks []Task

// App encapsulates the HTTP server lifecycle and its background loops.
type App struct {
	cfg    *config.Config
	logger *slog.Logger
	server *http.Server
	tasks  Tasks
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, tasks Tasks) *App {
	return &App{cfg: cfg, logger: logger.With("component", "bootstrap"), server: server, tasks: tasks}
}

// Run starts the HTTP server and background tasks and blocks until shutdown.
func (a *App) Run(ctx context.Context) error {
	taskCtx, stopTasks := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for _, task := range a.tasks {
		if task == nil {
			continue
		}
		wg.Add(1)
		go func(run Task) {
			defer wg.Done()
			run(taskCtx)
		}(task)
	}
	defer func() {
		stopTasks()
		wg.Wait()
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address, "background_tasks", len(a.tasks))
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
