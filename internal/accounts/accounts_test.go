package accounts

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/ecosort/assets"
	"github.com/robalobadob/ecosort/internal/database"
)

func newTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := database.OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "test.db"), assets.Migrations())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s := NewStore(db)
	s.cost = bcrypt.MinCost
	return s, db
}

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	u, err := s.Register(ctx, Registration{Username: "Asha", Email: " Asha@Example.com ", Password: "recycle", Ward: "12"})
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "Asha", u.Name)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, "12", u.Ward)
	assert.Empty(t, u.Achievements)

	got, err := s.Authenticate(ctx, "ASHA@example.com", "recycle")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, 0, got.TotalScore)

	_, err = s.Authenticate(ctx, "asha@example.com", "landfill")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Authenticate(ctx, "nobody@example.com", "recycle")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	for name, r := range map[string]Registration{
		"no name":     {Email: "a@b.c", Password: "pw"},
		"no email":    {Name: "A", Password: "pw"},
		"no password": {Name: "A", Email: "a@b.c"},
		"blank name":  {Name: "   ", Email: "a@b.c", Password: "pw"},
	} {
		_, err := s.Register(ctx, r)
		assert.ErrorIs(t, err, ErrMissingFields, name)
	}

	u, err := s.Register(ctx, Registration{Name: "Ravi", Email: "ravi@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Ravi", u.Name)

	_, err = s.Register(ctx, Registration{Name: "Other", Email: "RAVI@example.com", Password: "pw"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestFindByID(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_, err := s.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	u, err := s.Register(ctx, Registration{Name: "Mei", Email: "mei@example.com", Password: "pw"})
	require.NoError(t, err)
	got, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.RegistrationDate, got.RegistrationDate)

	ok, err = s.Exists(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAwardUnlocksOnce(t *testing.T) {
	ctx := context.Background()
	s, db := newTestStore(t)
	u, err := s.Register(ctx, Registration{Name: "Lin", Email: "lin@example.com", Password: "pw"})
	require.NoError(t, err)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	got, err := Award(ctx, db, u.ID, now)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = db.Exec(`UPDATE users SET games_played=1, total_score=40 WHERE id=?`, u.ID)
	require.NoError(t, err)
	got, err = Award(ctx, db, u.ID, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first-sort", got[0].ID)

	_, err = db.Exec(`UPDATE users SET games_played=10, total_score=120 WHERE id=?`, u.ID)
	require.NoError(t, err)
	got, err = Award(ctx, db, u.ID, now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"sorting-streak", "eco-champion"}, []string{got[0].ID, got[1].ID})

	again, err := Award(ctx, db, u.ID, now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, again)

	loaded, err := s.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Achievements, 3)
	assert.Equal(t, "first-sort", loaded.Achievements[0].ID)
	assert.Equal(t, now, loaded.Achievements[0].UnlockedAt)
}
