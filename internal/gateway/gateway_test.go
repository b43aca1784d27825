package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeRemote struct {
	err     error
	delay   time.Duration
	calls   atomic.Int32
	entries []Entry
}

func (f *fakeRemote) SubmitScore(ctx context.Context, sub Submission) error {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeRemote) Leaderboard(ctx context.Context) ([]Entry, error) {
	f.calls.Add(1)
	return f.entries, f.err
}

func scoresOf(es []Entry) []int { return lo.Map(es, func(e Entry, _ int) int { return e.Score }) }

func TestSubmitRemoteSuccess(t *testing.T) {
	local, err := OpenLocalBoard("")
	require.NoError(t, err)
	remote := &fakeRemote{}
	g := New(remote, local, time.Second)

	src, err := g.Submit(context.Background(), Submission{UserID: "u1", Score: 25})
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, src)
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Empty(t, local.Entries())
}

func TestSubmitFallsBackAfterOneAttempt(t *testing.T) {
	local, err := OpenLocalBoard("")
	require.NoError(t, err)
	remote := &fakeRemote{err: errors.New("connection refused")}
	g := New(remote, local, time.Second)

	src, err := g.Submit(context.Background(), Submission{UserID: "u1", Name: "Asha", Score: 25})
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, src)
	assert.Equal(t, int32(1), remote.calls.Load())

	entries := local.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Asha", entries[0].Name)
	assert.Equal(t, 1, entries[0].Level)
}

func TestSubmitTimeoutFallsBack(t *testing.T) {
	local, err := OpenLocalBoard("")
	require.NoError(t, err)
	g := New(&fakeRemote{delay: time.Minute}, local, 20*time.Millisecond)

	start := time.Now()
	src, err := g.Submit(context.Background(), Submission{Name: "slow", Score: 5})
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, src)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSubmitAsyncAndWait(t *testing.T) {
	defer goleak.VerifyNone(t)

	local, err := OpenLocalBoard("")
	require.NoError(t, err)
	g := New(&fakeRemote{err: errors.New("down")}, local, time.Second)
	for i := 0; i < 5; i++ {
		g.SubmitAsync(Submission{Name: "p", Score: i})
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, g.Wait(ctx))
	assert.Equal(t, []int{4, 3, 2, 1, 0}, scoresOf(local.Entries()))
}

func TestLocalBoardOrderingCapAndPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "board", "leaderboard.json")
	b, err := OpenLocalBoard(path)
	require.NoError(t, err)

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, b.Add(Entry{Name: "old", Score: 10, Date: base}))
	require.NoError(t, b.Add(Entry{Name: "new", Score: 10, Date: base.Add(time.Hour)}))
	require.NoError(t, b.Add(Entry{Name: "top", Score: 90, Date: base}))
	for i := 0; i < MaxEntries; i++ {
		require.NoError(t, b.Add(Entry{Name: "filler", Score: -i, Date: base}))
	}

	got := b.Entries()
	require.Len(t, got, MaxEntries)
	assert.Equal(t, []string{"top", "new", "old"}, lo.Map(got[:3], func(e Entry, _ int) string { return e.Name }))
	assert.Equal(t, -(MaxEntries - 4), got[MaxEntries-1].Score)

	reopened, err := OpenLocalBoard(path)
	require.NoError(t, err)
	assert.Equal(t, got, reopened.Entries())
}

func TestLeaderboardSources(t *testing.T) {
	local, err := OpenLocalBoard("")
	require.NoError(t, err)
	require.NoError(t, local.Add(Entry{Name: "local", Score: 1}))

	remote := &fakeRemote{entries: []Entry{{Name: "remote", Score: 50}}}
	g := New(remote, local, time.Second)

	entries, src, err := g.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, src)
	assert.Equal(t, "remote", entries[0].Name)

	remote.err = errors.New("503")
	entries, src, err = g.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, src)
	assert.Equal(t, "local", entries[0].Name)

	onlyLocal := New(nil, local, 0)
	_, src, err = onlyLocal.Leaderboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceLocal, src)
}

func TestHTTPRemote(t *testing.T) {
	var got Submission
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/scores":
			_ = json.NewDecoder(r.Body).Decode(&got)
			if got.UserID == "" {
				http.Error(w, `{"error":"Missing fields"}`, http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/scores/leaderboard":
			_, _ = w.Write([]byte(`[{"id":"x","name":"Asha","score":40,"level":2,"date":"2026-06-01T10:00:00.000Z"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewHTTPRemote(srv.URL + "/api")
	ctx := context.Background()

	require.NoError(t, r.SubmitScore(ctx, Submission{UserID: "u1", Score: 15, Level: 2, GameType: DefaultGameType}))
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, 15, got.Score)

	assert.Error(t, r.SubmitScore(ctx, Submission{Score: 15}))

	entries, err := r.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Asha", entries[0].Name)
	assert.Equal(t, 2026, entries[0].Date.Year())

	bad := NewHTTPRemote(srv.URL + "/nope")
	_, err = bad.Leaderboard(ctx)
	assert.Error(t, err)
}
