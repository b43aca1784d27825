package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/ecosort/internal/catalog"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestCatalogCommand(t *testing.T) {
	text := execute(t, "catalog", "--json=false")
	assert.Contains(t, text, "CATEGORY")
	assert.Equal(t, 19, strings.Count(text, "\n"))

	var items []catalog.Item
	require.NoError(t, json.Unmarshal([]byte(execute(t, "catalog", "toxic", "--json")), &items))
	assert.Len(t, items, 6)
	for _, it := range items {
		assert.Equal(t, catalog.Toxic, it.Category)
	}

	rootCmd.SetArgs([]string{"catalog", "plastic"})
	assert.Error(t, rootCmd.Execute())
}

func TestMigrateAndLeaderboardCommands(t *testing.T) {
	t.Setenv("SCORE_API_URL", "")
	t.Setenv("LOCAL_LEADERBOARD", filepath.Join(t.TempDir(), "board.json"))
	db := filepath.Join(t.TempDir(), "cli.db")

	out := execute(t, "migrate", "--db", db)
	assert.Contains(t, out, "applied 001_init.sql")
	assert.Contains(t, out, "applied 002_games.sql")

	out = execute(t, "migrate", "--db", db)
	assert.Contains(t, out, "up to date")

	out = execute(t, "leaderboard", "--db", db)
	assert.Contains(t, out, "source: remote")
	assert.Contains(t, out, "NAME")
}
