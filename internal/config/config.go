// internal/config/config.go
//
// Runtime configuration read from the environment.
// main loads .env (godotenv) first, so values there behave like real env vars.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full server configuration.
type Config struct {
	Port             string
	DBPath           string
	JWTSecret        string
	JWTExpiresDays   int
	CookieName       string
	ClientOrigin     string
	Production       bool
	LogLevel         string
	LocalLeaderboard string        // file backing the local fallback board; "" keeps it in memory
	ScoreAPIURL      string        // remote score API; "" submits straight into the local DB
	SubmitTimeout    time.Duration // bound on one score submission attempt
	RateLimitRPS     int
	RateLimitBurst   int
	FieldWidth       float64
	FieldHeight      float64
	SessionIdle      time.Duration
	DailySalt        string
}

// Load reads the configuration from the environment, applying defaults.
func Load() Config {
	env := strings.ToLower(getEnv("NODE_ENV", getEnv("ENV", "development")))
	return Config{
		Port:             getEnv("PORT", "5000"),
		DBPath:           getEnv("DB_PATH", "./data/ecosort.db"),
		JWTSecret:        getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays:   getEnvInt("JWT_EXPIRES_DAYS", 14),
		CookieName:       getEnv("COOKIE_NAME", "ecosort_token"),
		ClientOrigin:     getEnv("CLIENT_ORIGIN", "http://localhost:3000"),
		Production:       env == "production",
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LocalLeaderboard: getEnv("LOCAL_LEADERBOARD", "./data/leaderboard.json"),
		ScoreAPIURL:      strings.TrimRight(getEnv("SCORE_API_URL", ""), "/"),
		SubmitTimeout:    getEnvDuration("SUBMIT_TIMEOUT", 5*time.Second),
		RateLimitRPS:     getEnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 10),
		FieldWidth:       getEnvFloat("FIELD_WIDTH", 1280),
		FieldHeight:      getEnvFloat("FIELD_HEIGHT", 720),
		SessionIdle:      getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		DailySalt:        getEnv("DAILY_SALT", "local_dev_salt"),
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return n
	}
	return def
}

func getEnvFloat(k string, def float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(k), 64); err == nil && f > 0 {
		return f
	}
	return def
}

func getEnvDuration(k string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(k)); err == nil && d > 0 {
		return d
	}
	return def
}
