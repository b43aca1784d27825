// internal/httpserver/routes_scores.go
//
// Score endpoints.
//   - POST /scores                   record a score (rate limited)
//   - GET  /scores?userId=           a player's scores
//   - GET  /scores/leaderboard       top 50 from the database
//   - GET  /leaderboard              through the gateway, with its source
//   - GET  /leaderboard/localities   community rankings

package httpserver

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/robalobadob/ecosort/internal/accounts"
	"github.com/robalobadob/ecosort/internal/scores"
)

// submitScoreReq mirrors scores.Submission; Score is a pointer so a missing
// score is told apart from a zero one.
type submitScoreReq struct {
	UserID   string `json:"userId"`
	Score    *int   `json:"score"`
	Level    int    `json:"level"`
	GameType string `json:"gameType"`
}

type submitScoreRes struct {
	scores.Score
	Achievements []accounts.Achievement `json:"achievements,omitempty"`
}

// mountScoreRoutes registers /scores and the leaderboards.
func (s *Server) mountScoreRoutes(r chi.Router) {
	r.With(s.limiter.middleware).Post("/scores", s.handleSubmitScore)
	r.Get("/scores", s.handleUserScores)
	r.Get("/scores/leaderboard", s.handleScoreLeaderboard)
	r.Get("/leaderboard", s.handleGatewayLeaderboard)
	r.Get("/leaderboard/localities", s.handleLocalities)
}

// handleSubmitScore records a score for an existing user.
func (s *Server) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	var body submitScoreReq
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if body.Score == nil {
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	}
	res, err := s.scores.Submit(r.Context(), scores.Submission{
		UserID:   body.UserID,
		Score:    *body.Score,
		Level:    body.Level,
		GameType: body.GameType,
	})
	switch {
	case errors.Is(err, scores.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "Missing fields")
		return
	case errors.Is(err, scores.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "User not found")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("submit score")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusCreated, submitScoreRes{Score: res.Score, Achievements: res.Achievements})
}

// handleUserScores lists one player's scores: GET /scores?userId=...&limit=...
func (s *Server) handleUserScores(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.scores.ForUser(r.Context(), userID, limit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("user scores")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleScoreLeaderboard is the authoritative top 50 from the database.
// HTTPRemote gateways of other instances read this endpoint.
func (s *Server) handleScoreLeaderboard(w http.ResponseWriter, r *http.Request) {
	top, err := s.scores.Leaderboard(r.Context(), scores.MaxLimit)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, top)
}

// handleLocalities ranks communities by their players' summed scores.
func (s *Server) handleLocalities(w http.ResponseWriter, r *http.Request) {
	ranks, err := s.scores.Localities(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("locality leaderboard")
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, ranks)
}

// handleGatewayLeaderboard reads through the gateway: remote first, local
// board on failure, with the source reported.
func (s *Server) handleGatewayLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, src, err := s.gateway.Leaderboard(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"source": src, "entries": entries})
}
