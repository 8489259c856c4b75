package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/conductor/internal/cli"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List the workers a plan may use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		cat, err := cli.LoadCatalog(cfg.Workers.CatalogFile)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(cat.Entries())
		}

		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tCONSTRAINTS\tCAPABILITY")
		for _, e := range cat.Entries() {
			constraints := strings.Join(e.Constraints(), "; ")
			if constraints == "" {
				constraints = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.ID, e.Name, constraints, e.Capability)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().Bool("json", false, "Print entries as JSON")
}
