// cmd_serve.go
//
// `ecosort serve`: opens the database, builds the stores and the score
// gateway, then runs the HTTP + websocket server until SIGINT/SIGTERM.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/robalobadob/ecosort/assets"
	"github.com/robalobadob/ecosort/internal/accounts"
	"github.com/robalobadob/ecosort/internal/catalog"
	"github.com/robalobadob/ecosort/internal/config"
	"github.com/robalobadob/ecosort/internal/database"
	"github.com/robalobadob/ecosort/internal/gateway"
	"github.com/robalobadob/ecosort/internal/history"
	"github.com/robalobadob/ecosort/internal/httpserver"
	"github.com/robalobadob/ecosort/internal/scores"
	"github.com/robalobadob/ecosort/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP + websocket game server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "listen port (overrides PORT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		cfg.Port = p
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Default()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	db, err := database.OpenAndMigrate(ctx, cfg.DBPath, assets.Migrations())
	if err != nil {
		return err
	}
	defer db.Close()

	sc := scores.NewStore(db)
	gw, err := buildGateway(cfg, sc)
	if err != nil {
		return err
	}

	srv := httpserver.New(httpserver.Deps{
		Config:   cfg,
		Sessions: store.NewMemoryStore(),
		Catalog:  cat,
		Accounts: accounts.NewStore(db),
		Scores:   sc,
		History:  history.NewStore(db),
		Gateway:  gw,
	})
	log.Info().Str("port", cfg.Port).Str("db", cfg.DBPath).Int("items", cat.Len()).Msg("starting ecosort server")
	return srv.Run(ctx, ":"+cfg.Port)
}

// buildGateway picks the remote from config: the REST API at SCORE_API_URL
// when set, otherwise the local scores database.
func buildGateway(c config.Config, sc *scores.Store) (*gateway.Gateway, error) {
	local, err := gateway.OpenLocalBoard(c.LocalLeaderboard)
	if err != nil {
		return nil, err
	}
	var remote gateway.Remote = gateway.StoreRemote{Scores: sc}
	if c.ScoreAPIURL != "" {
		remote = gateway.NewHTTPRemote(c.ScoreAPIURL)
	}
	return gateway.New(remote, local, c.SubmitTimeout), nil
}

// openDB is shared by the one-shot commands.
func openDB(ctx context.Context) (*sql.DB, error) {
	return database.OpenAndMigrate(ctx, cfg.DBPath, assets.Migrations())
}
