package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_PATH", "NODE_ENV", "ENV", "SCORE_API_URL", "SUBMIT_TIMEOUT", "FIELD_WIDTH", "DAILY_SALT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "./data/ecosort.db", cfg.DBPath)
	assert.False(t, cfg.Production)
	assert.Empty(t, cfg.ScoreAPIURL)
	assert.Equal(t, 5*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, 1280.0, cfg.FieldWidth)
	assert.Equal(t, 14, cfg.JWTExpiresDays)
	assert.Equal(t, "local_dev_salt", cfg.DailySalt)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("NODE_ENV", "production")
	t.Setenv("SCORE_API_URL", "https://scores.example.com/api/")
	t.Setenv("SUBMIT_TIMEOUT", "250ms")
	t.Setenv("RATE_LIMIT_RPS", "20")
	t.Setenv("FIELD_HEIGHT", "900")
	t.Setenv("SESSION_IDLE_TIMEOUT", "not-a-duration")
	t.Setenv("DAILY_SALT", "s3cret")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.True(t, cfg.Production)
	assert.Equal(t, "https://scores.example.com/api", cfg.ScoreAPIURL)
	assert.Equal(t, 250*time.Millisecond, cfg.SubmitTimeout)
	assert.Equal(t, 20, cfg.RateLimitRPS)
	assert.Equal(t, 900.0, cfg.FieldHeight)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdle)
	assert.Equal(t, "s3cret", cfg.DailySalt)
}
