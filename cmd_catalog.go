// cmd_catalog.go
//
// `ecosort catalog [wet|dry|toxic]`: prints the item catalog as a table, or
// as JSON with --json.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/robalobadob/ecosort/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog [wet|dry|toxic]",
	Short: "Print the waste item catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalog,
}

func init() {
	catalogCmd.Flags().Bool("json", false, "print as JSON")
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cat, err := catalog.Default()
	if err != nil {
		return err
	}
	items := cat.Items()
	if len(args) == 1 {
		c, ok := catalog.ParseCategory(args[0])
		if !ok {
			return fmt.Errorf("unknown category %q", args[0])
		}
		items = lo.Filter(items, func(it catalog.Item, _ int) bool { return it.Category == c })
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tNAME\tICON")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.ID, it.Category, it.Name, it.Icon)
	}
	return tw.Flush()
}
