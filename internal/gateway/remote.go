// internal/gateway/remote.go
//
// Remote implementations.
//   - StoreRemote writes straight into the local scores database.
//   - HTTPRemote talks to a score API at SCORE_API_URL
//     (POST /scores, GET /scores/leaderboard).

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samber/lo"

	"github.com/robalobadob/ecosort/internal/scores"
)

// StoreRemote submits straight into the local scores database. It is the
// Remote used when no SCORE_API_URL is configured.
type StoreRemote struct {
	Scores *scores.Store
}

func (r StoreRemote) SubmitScore(ctx context.Context, sub Submission) error {
	_, err := r.Scores.Submit(ctx, scores.Submission{
		UserID:   sub.UserID,
		Score:    sub.Score,
		Level:    sub.Level,
		GameType: sub.GameType,
	})
	return err
}

func (r StoreRemote) Leaderboard(ctx context.Context) ([]Entry, error) {
	top, err := r.Scores.Leaderboard(ctx, MaxEntries)
	if err != nil {
		return nil, err
	}
	return lo.Map(top, func(s scores.Score, _ int) Entry {
		return Entry{Name: s.Name, Score: s.Score, Level: s.Level, Date: s.Date}
	}), nil
}

// HTTPRemote talks to the score REST API rooted at BaseURL
// (e.g. https://host/api): POST /scores and GET /scores/leaderboard.
type HTTPRemote struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPRemote(baseURL string) *HTTPRemote {
	return &HTTPRemote{BaseURL: baseURL, Client: &http.Client{Timeout: 30 * time.Second}}
}

func (r *HTTPRemote) SubmitScore(ctx context.Context, sub Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/scores", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("submit score: %s", resp.Status)
	}
	return nil
}

func (r *HTTPRemote) Leaderboard(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.BaseURL+"/scores/leaderboard", nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("leaderboard: %s", resp.Status)
	}
	var out []Entry
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode leaderboard: %w", err)
	}
	return out, nil
}
