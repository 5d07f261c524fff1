// Package app wires config, storage, service and HTTP routing into a server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"todoTracker/internal/config"
	"todoTracker/internal/handlers"
	"todoTracker/internal/logger"
	"todoTracker/internal/middleware"
	"todoTracker/internal/migrations"
	"todoTracker/internal/repository/task/inmemory"
	"todoTracker/internal/repository/task/postgres"
	"todoTracker/internal/repository/task/sqlite"
	"todoTracker/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// store is a Repository that holds a connection to release on shutdown.
type store interface {
	service.Repository
	Close()
}

type App struct {
	config     *config.Config
	server     *http.Server
	router     *chi.Mux
	repository store
	service    *service.TaskService
	shutdowns  []func()
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(), 0),
	}
}

// Init builds every dependency. Run must not be called when Init fails;
// Shutdown still releases whatever was opened.
func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development, a.config.Logging.Level); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Shutting down logging")
		logger.Sync()
	})

	repo, err := openStore(ctx, a.config)
	if err != nil {
		return nil, err
	}
	a.repository = repo
	a.shutdowns = append(a.shutdowns, func() {
		logger.Info("Closing repository", zap.String("type", a.config.Repository.Type))
		repo.Close()
	})

	a.service = service.NewTaskService(repo, nil)

	handler, err := handlers.NewTaskHandler(a.service)
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	a.router = a.newRouter(handler)

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, "todo-tracker"),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.Repository.Type {
	case config.RepoPostgres:
		if cfg.Migrations.Enabled {
			if err := migrations.Up(cfg.Database.URL); err != nil {
				return nil, err
			}
		}
		repo, err := postgres.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return repo, nil
	case config.RepoInMemory:
		return inmemory.NewTaskStorage(), nil
	default:
		repo, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return repo, nil
	}
}

func (a *App) newRouter(h *handlers.TaskHandler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: a.config.HTTP.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimit(a.config.HTTP.RateLimit))
	r.Use(middleware.Timeout(a.config.HTTP.RequestTimeout))

	h.Register(r)
	return r
}

// Handler exposes the routed handler, mostly for tests.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server started",
			zap.String("addr", a.server.Addr),
			zap.String("repository", a.config.Repository.Type))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("Server shutting down")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Shutdown runs the registered cleanups in reverse order.
func (a *App) Shutdown() {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i]()
	}
}
