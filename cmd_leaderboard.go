// cmd_leaderboard.go
//
// `ecosort leaderboard`: reads the leaderboard through the gateway.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/robalobadob/ecosort/internal/scores"
)

var leaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Print the leaderboard (remote first, local board on failure)",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		gw, err := buildGateway(cfg, scores.NewStore(db))
		if err != nil {
			return err
		}
		entries, src, err := gw.Leaderboard(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "source: %s\n", src)
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tNAME\tSCORE\tLEVEL\tDATE")
		for i, e := range entries {
			fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n", i+1, e.Name, e.Score, e.Level, e.Date.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}
