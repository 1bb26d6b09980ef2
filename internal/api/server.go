package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"xkeenui/internal/config"
	"xkeenui/internal/configs"
	"xkeenui/internal/core"
	"xkeenui/internal/logger"
	"xkeenui/internal/logs"
	"xkeenui/internal/settings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Server exposes the panel API and the static UI.
type Server struct {
	cfg      *config.Config
	configs  *configs.Store
	core     *core.Controller
	settings *settings.Store
	logs     *logs.Cache
	version  string
}

func NewServer(cfg *config.Config, store *configs.Store, ctl *core.Controller, st *settings.Store, cache *logs.Cache, version string) *Server {
	return &Server{
		cfg:      cfg,
		configs:  store,
		core:     ctl,
		settings: st,
		logs:     cache,
		version:  version,
	}
}

// Router builds the HTTP handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(
		chiMiddleware.RequestID,
		chiMiddleware.RealIP,
		requestLogger(logger.Named("http"), 500*time.Millisecond),
		chiMiddleware.Recoverer,
		cors,
	)

	r.Get("/ws", s.handleWebsocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(chiMiddleware.NoCache)

		r.Get("/configs", s.handleListConfigs)
		r.Post("/configs", s.handleConfigAction)
		r.Get("/configs/revisions", s.handleRevisions)

		r.Get("/control", s.handleControlStatus)
		r.Post("/control", s.handleControl)
		r.Get("/status", s.handleStatus)

		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSetSettings)

		r.Get("/logs", s.handleGetLogs)
		r.Post("/logs", s.handleLogAction)

		r.Post("/generate", s.handleGenerate)
		r.Get("/version", s.handleVersion)

		r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		})
	})

	r.Handle("/*", staticHandler(s.cfg.Server.StaticDir))
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("Listening on http://0.0.0.0%s", s.cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		logger.Log.Info("Shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}
