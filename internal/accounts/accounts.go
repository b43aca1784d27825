// internal/accounts/accounts.go
//
// Player accounts: registration, login, lookup and achievements.
// Passwords are bcrypt hashed; emails are stored lowercased and unique.

package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingFields      = errors.New("missing fields")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User is the public view of an account. The password hash never leaves
// this package.
type User struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Email            string        `json:"email"`
	Ward             string        `json:"ward,omitempty"`
	Society          string        `json:"society,omitempty"`
	RegistrationDate time.Time     `json:"registrationDate"`
	TotalScore       int           `json:"totalScore"`
	GamesPlayed      int           `json:"gamesPlayed"`
	Achievements     []Achievement `json:"achievements"`
}

// Registration is the input to Register. Name falls back to Username.
type Registration struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Ward     string `json:"ward"`
	Society  string `json:"society"`
}

// Store reads and writes accounts in SQLite.
type Store struct {
	db   *sql.DB
	cost int
	now  func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, cost: bcrypt.DefaultCost, now: time.Now}
}

// Register validates r, hashes the password and inserts the user.
func (s *Store) Register(ctx context.Context, r Registration) (*User, error) {
	name := strings.TrimSpace(r.Username)
	if name == "" {
		name = strings.TrimSpace(r.Name)
	}
	email := normalizeEmail(r.Email)
	if name == "" || email == "" || r.Password == "" {
		return nil, ErrMissingFields
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE email=?`, email).Scan(&exists)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	h, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &User{
		ID:               uuid.NewString(),
		Name:             name,
		Email:            email,
		Ward:             strings.TrimSpace(r.Ward),
		Society:          strings.TrimSpace(r.Society),
		RegistrationDate: s.now().UTC().Truncate(time.Second),
		Achievements:     []Achievement{},
	}
	_, err = s.db.ExecContext(ctx, `
        INSERT INTO users (id, name, email, password_hash, ward, society, registration_date)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, string(h), u.Ward, u.Society, u.RegistrationDate.Format(time.RFC3339),
	)
	if err != nil {
		// Lost a race with a concurrent registration of the same email.
		var se sqlite3.Error
		if errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// Authenticate checks email + password. An unknown email is ErrNotFound, a
// wrong password ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	var id, hash string
	err := s.db.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=?`, email).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.FindByID(ctx, id)
}

// FindByID loads a user with their achievements.
func (s *Store) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT id, name, email, ward, society, registration_date, total_score, games_played
        FROM users WHERE id=?`, id)
	var u User
	var registered string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Ward, &u.Society, &registered, &u.TotalScore, &u.GamesPlayed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	u.RegistrationDate, _ = time.Parse(time.RFC3339, registered)

	u.Achievements, err = s.achievements(ctx, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists reports whether id names a user. Used by the auth middleware.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) achievements(ctx context.Context, userID string) ([]Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT achievement_id, title, unlocked_at
        FROM user_achievements WHERE user_id=? ORDER BY unlocked_at, achievement_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("load achievements: %w", err)
	}
	defer rows.Close()

	out := []Achievement{}
	for rows.Next() {
		var a Achievement
		var unlocked string
		if err := rows.Scan(&a.ID, &a.Title, &unlocked); err != nil {
			return nil, err
		}
		a.UnlockedAt, _ = time.Parse(time.RFC3339, unlocked)
		out = append(out, a)
	}
	return out, rows.Err()
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
