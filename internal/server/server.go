// Package server exposes the package catalog and wizard sessions over HTTP.
//
// Sessions live in a session.Store as wizard snapshots. Each request that
// touches a session restores the wizard from its snapshot, performs one step
// and stores the new snapshot, holding a per-session lock meanwhile.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
	"github.com/frederic-klein/eapkg/internal/profile"
	"github.com/frederic-klein/eapkg/internal/session"
)

// Server serves the eapkg HTTP API.
type Server struct {
	catalog  pkginfo.Catalog
	sessions session.Store
	profiles profile.Store
	ttl      time.Duration
	logger   *log.Logger
	locks    *keyedMutex
	router   chi.Router
}

// Option customizes a Server.
type Option func(*Server)

// WithSessionStore sets the session backend. The default keeps sessions in
// memory.
func WithSessionStore(st session.Store) Option {
	return func(s *Server) {
		if st != nil {
			s.sessions = st
		}
	}
}

// WithProfileStore enables the profile routes and profile-seeded sessions.
func WithProfileStore(st profile.Store) Option {
	return func(s *Server) { s.profiles = st }
}

// WithSessionTTL sets how long an idle session lives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithLogger sets the request and error logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a server for catalog c.
func New(c pkginfo.Catalog, opts ...Option) *Server {
	s := &Server{
		catalog:  c,
		sessions: session.NewMemoryStore(),
		ttl:      session.DefaultTTL,
		logger:   log.Default(),
		locks:    newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "packages": len(s.catalog)})
	})

	r.Route("/packages", func(r chi.Router) {
		r.Get("/", s.listPackages)
		r.Get("/{name}", s.getPackage)
		r.Get("/{name}/deps", s.getDeps)
		r.Get("/{name}/graph", s.getGraph)
	})

	r.Route("/profiles", func(r chi.Router) {
		r.Get("/", s.listProfiles)
		r.Get("/{id}", s.getProfile)
		r.Delete("/{id}", s.deleteProfile)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.deleteSession)
			r.Post("/toggle", s.toggle)
			r.Post("/choose", s.choose)
			r.Post("/apply", s.apply)
			r.Post("/confirm", s.confirm)
			r.Post("/reset", s.reset)
			r.Post("/autoselect", s.autoSelect)
			r.Get("/extensions", s.extensions)
			r.Post("/save", s.saveProfile)
		})
	})
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "packages", len(s.catalog))
		errc <- srv.ListenAndServe()
	}()

	go s.cleanupLoop(ctx)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.sessions.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "err", err)
			}
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start).Round(time.Microsecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
