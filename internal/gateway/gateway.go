// internal/gateway/gateway.go
//
// Persistence gateway for finished games.
//
//   - Submit makes exactly one attempt against the Remote, bounded by a
//     timeout. On failure the entry goes onto the local board instead and the
//     caller is not told about the remote error.
//   - SubmitAsync is the fire-and-forget form used by session handoff; Wait
//     drains in-flight submissions at shutdown.
//   - Leaderboard reads the Remote first and the local board on failure, and
//     reports which one answered.

package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultGameType = "waste-sorting"

// Source names where a result came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Submission is a final score to persist.
type Submission struct {
	UserID   string `json:"userId"`
	Name     string `json:"name,omitempty"`
	Score    int    `json:"score"`
	Level    int    `json:"level"`
	GameType string `json:"gameType"`
}

// Entry is one leaderboard row.
type Entry struct {
	Name  string    `json:"name"`
	Score int       `json:"score"`
	Level int       `json:"level"`
	Date  time.Time `json:"date"`
}

// Remote is the authoritative score service.
type Remote interface {
	SubmitScore(ctx context.Context, sub Submission) error
	Leaderboard(ctx context.Context) ([]Entry, error)
}

// Gateway routes submissions and reads between a Remote and the local board.
type Gateway struct {
	remote  Remote // nil means local only
	local   *LocalBoard
	timeout time.Duration
	now     func() time.Time

	wg sync.WaitGroup
}

// New builds a Gateway. remote may be nil.
func New(remote Remote, local *LocalBoard, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Gateway{remote: remote, local: local, timeout: timeout, now: time.Now}
}

// Submit persists sub and reports where it landed. An error means the local
// fallback failed as well.
func (g *Gateway) Submit(ctx context.Context, sub Submission) (Source, error) {
	if sub.GameType == "" {
		sub.GameType = DefaultGameType
	}
	if sub.Level < 1 {
		sub.Level = 1
	}

	if g.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, g.timeout)
		err := g.remote.SubmitScore(rctx, sub)
		cancel()
		if err == nil {
			return SourceRemote, nil
		}
		log.Warn().Err(err).Str("user", sub.UserID).Int("score", sub.Score).Msg("remote score submit failed; using local board")
	}

	if err := g.local.Add(Entry{Name: sub.Name, Score: sub.Score, Level: sub.Level, Date: g.now().UTC()}); err != nil {
		return SourceLocal, err
	}
	return SourceLocal, nil
}

// SubmitAsync runs Submit on its own goroutine, detached from any request.
func (g *Gateway) SubmitAsync(sub Submission) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if _, err := g.Submit(context.Background(), sub); err != nil {
			log.Error().Err(err).Str("user", sub.UserID).Msg("score lost: local board write failed")
		}
	}()
}

// Wait blocks until all SubmitAsync calls finish or ctx ends.
func (g *Gateway) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Leaderboard returns the top entries from the Remote, or from the local
// board if the Remote is absent or fails.
func (g *Gateway) Leaderboard(ctx context.Context) ([]Entry, Source, error) {
	if g.remote != nil {
		rctx, cancel := context.WithTimeout(ctx, g.timeout)
		entries, err := g.remote.Leaderboard(rctx)
		cancel()
		if err == nil {
			return capEntries(entries), SourceRemote, nil
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, SourceRemote, ctx.Err()
		}
		log.Warn().Err(err).Msg("remote leaderboard failed; using local board")
	}
	return g.local.Entries(), SourceLocal, nil
}
