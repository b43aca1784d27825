// internal/accounts/achievements.go
//
// Achievement rules, checked after every recorded score.

package accounts

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/samber/lo"
)

// Achievement is a badge unlocked by play milestones.
type Achievement struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// rule unlocks an achievement once a user's aggregates satisfy it.
type rule struct {
	id, title string
	met       func(totalScore, gamesPlayed int) bool
}

var rules = []rule{
	{"first-sort", "First Sort", func(_, games int) bool { return games >= 1 }},
	{"sorting-streak", "Sorting Streak", func(_, games int) bool { return games >= 10 }},
	{"eco-champion", "Eco Champion", func(total, _ int) bool { return total >= 100 }},
}

// Queryer is the subset of *sql.DB / *sql.Tx that Award needs.
type Queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Award checks the user's aggregates and records any achievement newly
// earned. Already-held achievements are left untouched. It returns only the
// newly unlocked ones. Callers run it inside the transaction that changed
// the aggregates.
func Award(ctx context.Context, q Queryer, userID string, now time.Time) ([]Achievement, error) {
	var total, games int
	if err := q.QueryRowContext(ctx,
		`SELECT total_score, games_played FROM users WHERE id=?`, userID,
	).Scan(&total, &games); err != nil {
		return nil, fmt.Errorf("load aggregates: %w", err)
	}

	earned := lo.Filter(rules, func(r rule, _ int) bool { return r.met(total, games) })
	stamp := now.UTC().Truncate(time.Second)

	var unlocked []Achievement
	for _, r := range earned {
		res, err := q.ExecContext(ctx, `
            INSERT OR IGNORE INTO user_achievements (user_id, achievement_id, title, unlocked_at)
            VALUES (?, ?, ?, ?)`, userID, r.id, r.title, stamp.Format(time.RFC3339))
		if err != nil {
			return unlocked, fmt.Errorf("award %s: %w", r.id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			unlocked = append(unlocked, Achievement{ID: r.id, Title: r.title, UnlockedAt: stamp})
		}
	}
	return unlocked, nil
}
