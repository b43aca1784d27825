// internal/scores/scores.go
//
// Score submission and the global leaderboard.
//
// A submission inserts one score row, bumps the player's aggregates
// (total_score, games_played) and awards achievements, all in one
// transaction.

package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/robalobadob/ecosort/internal/accounts"
)

const (
	DefaultGameType = "waste-sorting"
	MaxLimit        = 50

	// Fixed-width UTC timestamps so ORDER BY date sorts chronologically.
	dateLayout = "2006-01-02T15:04:05.000Z"
)

var (
	ErrMissingFields = errors.New("missing fields")
	ErrUserNotFound  = errors.New("user not found")
)

// Score is one recorded game result.
type Score struct {
	ID       string    `json:"id"`
	UserID   string    `json:"userId"`
	Name     string    `json:"name"`
	Score    int       `json:"score"`
	Level    int       `json:"level"`
	GameType string    `json:"gameType"`
	Date     time.Time `json:"date"`
}

// Submission is the input to Submit.
type Submission struct {
	UserID   string `json:"userId"`
	Score    int    `json:"score"`
	Level    int    `json:"level"`
	GameType string `json:"gameType"`
}

// Result is what Submit produced.
type Result struct {
	Score        Score                  `json:"score"`
	Achievements []accounts.Achievement `json:"achievements,omitempty"`
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store { return &Store{db: db, now: time.Now} }

// Submit records sub for an existing user.
func (s *Store) Submit(ctx context.Context, sub Submission) (*Result, error) {
	if strings.TrimSpace(sub.UserID) == "" {
		return nil, ErrMissingFields
	}
	if sub.Level < 1 {
		sub.Level = 1
	}
	if sub.GameType == "" {
		sub.GameType = DefaultGameType
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var name string
	err = tx.QueryRowContext(ctx, `SELECT name FROM users WHERE id=?`, sub.UserID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	now := s.now().UTC().Truncate(time.Millisecond)
	sc := Score{
		ID:       uuid.NewString(),
		UserID:   sub.UserID,
		Name:     name,
		Score:    sub.Score,
		Level:    sub.Level,
		GameType: sub.GameType,
		Date:     now,
	}
	if _, err := tx.ExecContext(ctx, `
        INSERT INTO scores (id, user_id, name, score, level, game_type, date)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sc.ID, sc.UserID, sc.Name, sc.Score, sc.Level, sc.GameType, now.Format(dateLayout),
	); err != nil {
		return nil, fmt.Errorf("insert score: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET total_score = total_score + ?, games_played = games_played + 1 WHERE id=?`,
		sc.Score, sc.UserID,
	); err != nil {
		return nil, fmt.Errorf("update aggregates: %w", err)
	}
	unlocked, err := accounts.Award(ctx, tx, sc.UserID, now)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit score: %w", err)
	}
	return &Result{Score: sc, Achievements: unlocked}, nil
}

// Leaderboard returns the top scores, highest first, newest first on ties.
// limit is clamped to [1, MaxLimit]; zero means MaxLimit.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]Score, error) {
	return s.query(ctx, `
        SELECT id, user_id, name, score, level, game_type, date
        FROM scores
        ORDER BY score DESC, date DESC
        LIMIT ?`, clampLimit(limit))
}

// ForUser returns a player's scores, newest first.
func (s *Store) ForUser(ctx context.Context, userID string, limit int) ([]Score, error) {
	return s.query(ctx, `
        SELECT id, user_id, name, score, level, game_type, date
        FROM scores
        WHERE user_id=?
        ORDER BY date DESC
        LIMIT ?`, userID, clampLimit(limit))
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Score{}
	for rows.Next() {
		var sc Score
		var date string
		if err := rows.Scan(&sc.ID, &sc.UserID, &sc.Name, &sc.Score, &sc.Level, &sc.GameType, &date); err != nil {
			return nil, err
		}
		sc.Date, _ = time.Parse(dateLayout, date)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit == 0 {
		return MaxLimit
	}
	return lo.Clamp(limit, 1, MaxLimit)
}
