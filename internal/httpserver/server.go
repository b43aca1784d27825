// internal/httpserver/server.go
//
// HTTP server wiring for the EcoSort backend.
// Responsibilities:
//   - Router + middleware (request IDs, real IP, access log, panic recovery,
//     timeouts, JSON, CORS, rate limits).
//   - Public endpoints: /api/health, /api/catalog, leaderboards, user lookup.
//   - Auth endpoints: /api/auth/* (register, login, logout, me).
//   - Game endpoints (optional auth): live sessions under /api/games, REST
//     commands plus a websocket stream.
//   - Session handoff: archive the finished game and submit logged-in
//     players' scores through the gateway.
//   - Lifecycle: Run serves until the context ends, sweeps idle sessions, and
//     drains sessions and pending score submissions on shutdown.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The websocket route sits outside the request timeout.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/robalobadob/ecosort/internal/accounts"
	"github.com/robalobadob/ecosort/internal/catalog"
	"github.com/robalobadob/ecosort/internal/config"
	"github.com/robalobadob/ecosort/internal/gateway"
	"github.com/robalobadob/ecosort/internal/history"
	"github.com/robalobadob/ecosort/internal/scores"
	"github.com/robalobadob/ecosort/internal/store"
)

// Deps are the collaborators a Server routes to.
type Deps struct {
	Config   config.Config
	Sessions store.Store
	Catalog  *catalog.Catalog
	Accounts *accounts.Store
	Scores   *scores.Store
	History  *history.Store
	Gateway  *gateway.Gateway
}

// Server bundles router, live session registry and the persistence stores.
type Server struct {
	r        *chi.Mux
	cfg      config.Config
	sessions store.Store
	catalog  *catalog.Catalog
	accounts *accounts.Store
	scores   *scores.Store
	history  *history.Store
	gateway  *gateway.Gateway
	limiter  *limiterSet
	upgrader websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
func New(d Deps) *Server {
	s := &Server{
		r:        chi.NewRouter(),
		cfg:      d.Config,
		sessions: d.Sessions,
		catalog:  d.Catalog,
		accounts: d.Accounts,
		scores:   d.Scores,
		history:  d.History,
		gateway:  d.Gateway,
		limiter:  newLimiterSet(d.Config.RateLimitRPS, d.Config.RateLimitBurst),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)       // one zerolog line per request
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(s.cors)          // credentials-friendly CORS

	s.r.Route("/api", func(api chi.Router) {
		// Long-lived; no timeout, no JSON content type.
		api.With(s.withOptionalAuth()).Get("/games/{id}/ws", s.handleGameWS)

		api.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
			r.Use(jsonContentType)                 // default JSON responses

			r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.sessions.Len()})
			})
			r.Get("/catalog", s.handleCatalog)

			s.mountAuthRoutes(r)
			s.mountScoreRoutes(r)
			s.mountGameRoutes(r)
		})
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves on addr until ctx ends, then shuts down gracefully: in-flight
// requests finish, live sessions close (waiting out running handoffs), then
// pending score submissions drain.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 10 * time.Second}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		s.janitor(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown")
		}
		s.sessions.CloseAll()
		if err := s.gateway.Wait(shutCtx); err != nil {
			log.Warn().Err(err).Msg("pending score submissions abandoned")
		}
		return nil
	})
	return g.Wait()
}

// janitor periodically drops handed-off and idle sessions.
func (s *Server) janitor(ctx context.Context) {
	every := min(s.cfg.SessionIdle/2, time.Minute)
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.sessions.Sweep(ctx, s.cfg.SessionIdle); n > 0 {
				log.Debug().Int("removed", n).Int("live", s.sessions.Len()).Msg("swept sessions")
			}
		}
	}
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"items":  s.catalog.Items(),
		"counts": s.catalog.CountBy(),
	})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured client origin.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", s.cfg.ClientOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkOrigin admits websocket upgrades from the client origin and from
// clients that send no Origin. Outside production any origin is accepted.
func (s *Server) checkOrigin(r *http.Request) bool {
	o := r.Header.Get("Origin")
	return o == "" || o == s.cfg.ClientOrigin || !s.cfg.Production
}

// accessLog attaches the global logger to the request and logs on completion.
func accessLog(next http.Handler) http.Handler {
	h := hlog.AccessHandler(func(r *http.Request, status, size int, dur time.Duration) {
		hlog.FromRequest(r).Info().
			Str("req", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("dur", dur).
			Msg("request")
	})(next)
	return hlog.NewHandler(log.Logger)(h)
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
