// main.go
//
// Entry point for the ecosort binary.
//
// Subcommands:
//   serve        run the HTTP + websocket game server
//   migrate      apply the embedded SQL migrations
//   catalog      print the waste item catalog
//   leaderboard  print the leaderboard as the gateway sees it
//
// Configuration comes from the environment (a .env file is loaded first);
// flags override the port and database path.

package main

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/ecosort/internal/config"
)

// cfg is filled in before any subcommand runs.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "ecosort",
	Short:         "EcoSort waste-sorting game server",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg = config.Load()
		setupLogging(cfg)
		if db, _ := cmd.Flags().GetString("db"); db != "" {
			cfg.DBPath = db
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides DB_PATH)")
	rootCmd.AddCommand(serveCmd, migrateCmd, catalogCmd, leaderboardCmd)
}

func setupLogging(c config.Config) {
	if lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if !c.Production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("ecosort failed")
		os.Exit(1)
	}
}
