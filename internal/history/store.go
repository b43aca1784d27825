// internal/history/store.go
//
// Archive of finished game sessions. Each handed-off session writes one row;
// guests are archived with a NULL user. Daily challenge runs carry their date
// key and feed the per-date board.

package history

import (
	"context"
	"database/sql"
	"time"

	"github.com/robalobadob/ecosort/internal/game"
)

// Game is one archived session.
type Game struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	Score       int       `json:"score"`
	Level       int       `json:"level"`
	ItemsFallen int       `json:"itemsFallen"`
	Mistakes    int       `json:"mistakes"`
	StartedAt   time.Time `json:"startedAt"`
	FinishedAt  time.Time `json:"finishedAt"`
	Daily       string    `json:"daily,omitempty"`

	// Graded on read, not stored.
	Accuracy float64     `json:"accuracy"`
	Rating   game.Rating `json:"rating"`
}

// DailyEntry is one row of a daily challenge board.
type DailyEntry struct {
	Rank       int       `json:"rank"`
	Name       string    `json:"name"`
	Score      int       `json:"score"`
	Level      int       `json:"level"`
	FinishedAt time.Time `json:"finishedAt"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Record archives g. Recording the same session twice is a no-op.
func (s *Store) Record(ctx context.Context, g Game) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO games
            (id, user_id, score, level, items_fallen, mistakes, started_at, finished_at, daily)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, sql.NullString{String: g.UserID, Valid: g.UserID != ""},
		g.Score, g.Level, g.ItemsFallen, g.Mistakes,
		g.StartedAt.UTC().Format(time.RFC3339), g.FinishedAt.UTC().Format(time.RFC3339),
		sql.NullString{String: g.Daily, Valid: g.Daily != ""},
	)
	return err
}

// ForUser lists a player's archived games, most recent first.
func (s *Store) ForUser(ctx context.Context, userID string, limit int) ([]Game, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, COALESCE(user_id, ''), score, level, items_fallen, mistakes, started_at, finished_at, COALESCE(daily, '')
        FROM games
        WHERE user_id=?
        ORDER BY finished_at DESC
        LIMIT ?`, userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Game{}
	for rows.Next() {
		var g Game
		var started, finished string
		if err := rows.Scan(&g.ID, &g.UserID, &g.Score, &g.Level, &g.ItemsFallen, &g.Mistakes, &started, &finished, &g.Daily); err != nil {
			return nil, err
		}
		g.StartedAt, _ = time.Parse(time.RFC3339, started)
		g.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		g.Accuracy = game.Accuracy(g.ItemsFallen, g.Mistakes)
		g.Rating = game.RatingFor(g.Accuracy)
		out = append(out, g)
	}
	return out, rows.Err()
}

// Best returns the player's highest archived score, with ok=false when they
// have no archived games.
func (s *Store) Best(ctx context.Context, userID string) (best int, ok bool, err error) {
	var v sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(score) FROM games WHERE user_id=?`, userID).Scan(&v); err != nil {
		return 0, false, err
	}
	return int(v.Int64), v.Valid, nil
}

// DailyLeaderboard ranks the signed-in players' runs for one date key: score
// desc, earliest finish first on ties. Each player appears once, with their
// best run.
func (s *Store) DailyLeaderboard(ctx context.Context, date string, limit int) ([]DailyEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT u.name, g.score, g.level, g.finished_at
        FROM games g
        JOIN users u ON u.id = g.user_id
        WHERE g.daily = ?
          AND g.id = (
            SELECT g2.id FROM games g2
            WHERE g2.daily = g.daily AND g2.user_id = g.user_id
            ORDER BY g2.score DESC, g2.finished_at ASC
            LIMIT 1)
        ORDER BY g.score DESC, g.finished_at ASC
        LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DailyEntry{}
	for rows.Next() {
		var e DailyEntry
		var finished string
		if err := rows.Scan(&e.Name, &e.Score, &e.Level, &finished); err != nil {
			return nil, err
		}
		e.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}
