// internal/httpserver/routes_games.go
//
// Live game sessions over REST.
// Responsibilities:
//   - Start free-play or daily sessions (optional auth).
//   - Drag, drop, pause and key commands against a session.
//   - Owner checks: a logged-in player's session answers only to them.
//   - Handoff: archive finished games and submit logged-in scores through
//     the gateway.
//   - Daily board and the caller's archived games.

package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/robalobadob/ecosort/internal/daily"
	"github.com/robalobadob/ecosort/internal/game"
	"github.com/robalobadob/ecosort/internal/gateway"
	"github.com/robalobadob/ecosort/internal/history"
	"github.com/robalobadob/ecosort/internal/session"
	"github.com/robalobadob/ecosort/internal/store"
)

// newGameReq optionally sizes the play field to the client viewport. Daily
// runs ignore the size so every player gets the same field.
type newGameReq struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Daily  bool    `json:"daily"`
}

type dragReq struct {
	InstanceID string `json:"instanceId"`
}

type dropReq struct {
	Bin        string `json:"bin"`
	InstanceID string `json:"instanceId"`
}

type keyReq struct {
	Key string `json:"key"`
}

// commandRes is the reply to every game command.
type commandRes struct {
	OK     bool             `json:"ok"`
	Result *game.DropResult `json:"result,omitempty"`
	View   session.View     `json:"view"`
}

// mountGameRoutes registers the live session endpoints (optional auth).
func (s *Server) mountGameRoutes(r chi.Router) {
	r.With(s.requireAuth()).Get("/games/mine", s.handleMyGames)
	r.Get("/games/daily/leaderboard", s.handleDailyLeaderboard)

	r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Post("/games", s.handleNewGame)
		r.Get("/games/{id}", s.handleGetGame)
		r.Post("/games/{id}/drag", s.handleDrag)
		r.Post("/games/{id}/drop", s.handleDrop)
		r.Post("/games/{id}/pause", s.handlePause)
		r.Post("/games/{id}/key", s.handleKey)
		r.Delete("/games/{id}", s.handleEndGame)
	})
}

// rules returns the session rules for a field size, clamped to sane bounds.
func (s *Server) rules(req newGameReq) game.Rules {
	rules := game.DefaultRules()
	rules.Field.Width = s.cfg.FieldWidth
	rules.Field.Height = s.cfg.FieldHeight
	if req.Daily {
		return rules
	}
	if req.Width > 0 {
		rules.Field.Width = lo.Clamp(req.Width, 320, 3840)
	}
	if req.Height > 0 {
		rules.Field.Height = lo.Clamp(req.Height, 240, 2160)
	}
	return rules
}

// handleNewGame starts a session for the caller (guest or logged in).
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	userID := ""
	if me := currentUser(r); me != nil {
		userID = me.ID
	}
	opts := session.Options{
		UserID:    userID,
		Rules:     s.rules(req),
		Catalog:   s.catalog,
		OnHandoff: s.handoff,
	}
	if req.Daily {
		opts.Daily = daily.DateKey(time.Now())
		opts.Rand = daily.Rand(opts.Daily, s.cfg.DailySalt)
	}
	sess, err := session.New(opts)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("new session")
		writeError(w, http.StatusInternalServerError, "session_failed")
		return
	}
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		sess.Close()
		hlog.FromRequest(r).Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	sess.Start()

	v, err := sess.View(r.Context())
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// lookup resolves {id} and checks the caller may drive it. Sessions started
// by a logged-in player only answer to that player.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed")
		return nil, false
	}
	if owner := sess.UserID(); owner != "" {
		if me := currentUser(r); me == nil || me.ID != owner {
			writeError(w, http.StatusForbidden, "forbidden")
			return nil, false
		}
	}
	return sess, true
}

// sessionError maps session call failures to status codes.
func (s *Server) sessionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusGone, "session_closed")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "session_busy")
	default:
		hlog.FromRequest(r).Error().Err(err).Msg("session call")
		writeError(w, http.StatusInternalServerError, "session_failed")
	}
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	v, err := sess.View(r.Context())
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req dragReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	started, v, err := sess.BeginDrag(r.Context(), req.InstanceID)
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commandRes{OK: started, View: v})
}

// handleDrop releases the dragged item over a bin. A drop with nothing
// dragged is a no-op reported as ok=false, never an error.
func (s *Server) handleDrop(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req dropReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	res, dropped, v, err := sess.Drop(r.Context(), req.InstanceID, req.Bin)
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	out := commandRes{OK: dropped, View: v}
	if dropped {
		out.Result = &res
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	_, v, err := sess.TogglePause(r.Context())
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commandRes{OK: !v.Over, View: v})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	var req keyReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	handled, v, err := sess.PressKey(r.Context(), req.Key)
	if err != nil {
		s.sessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, commandRes{OK: handled, View: v})
}

// handleEndGame tears a session down. A session ended before game over is
// not archived or scored.
func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Delete(r.Context(), sess.ID()); err != nil {
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMyGames lists the caller's archived games and best score.
func (s *Server) handleMyGames(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	games, err := s.history.ForUser(r.Context(), me.ID, 50)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("list games")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	best, _, err := s.history.Best(r.Context(), me.ID)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("best score")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games, "best": best})
}

// handleDailyLeaderboard ranks one date's daily runs, today by default.
func (s *Server) handleDailyLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := daily.DateKey(time.Now())
	if q := r.URL.Query().Get("date"); q != "" {
		var ok bool
		if date, ok = daily.ParseKey(q); !ok {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
	}
	board, err := s.history.DailyLeaderboard(r.Context(), date, 50)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "entries": board})
}

/**
 * handoff receives each finished session exactly once.
 *
 * - Archives the game (guests included).
 * - For logged-in players, submits the score through the gateway.
 *
 * Both are best effort; failures are logged. Session.Close waits for this
 * to return, so shutdown does not cut it short.
 */
func (s *Server) handoff(h session.Handoff) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := log.With().Str("session", h.SessionID).Str("user", h.UserID).Logger()
	err := s.history.Record(ctx, history.Game{
		ID:          h.SessionID,
		UserID:      h.UserID,
		Score:       h.Final.Score,
		Level:       h.Final.Level,
		ItemsFallen: h.Final.ItemsFallen,
		Mistakes:    len(h.Final.Mistakes),
		StartedAt:   h.StartedAt,
		FinishedAt:  h.FinishedAt,
		Daily:       h.Daily,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("archive game")
	}

	if h.UserID == "" {
		return
	}
	name := ""
	if u, err := s.accounts.FindByID(ctx, h.UserID); err == nil {
		name = u.Name
	}
	s.gateway.SubmitAsync(gateway.Submission{
		UserID:   h.UserID,
		Name:     name,
		Score:    h.Final.Score,
		Level:    h.Final.Level,
		GameType: gateway.DefaultGameType,
	})
	logger.Info().Int("score", h.Final.Score).Int("level", h.Final.Level).Msg("score submitted")
}
