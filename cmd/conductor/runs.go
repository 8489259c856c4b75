package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/conductor/internal/cli"
	"github.com/aretw0/conductor/internal/presentation/graph"
	"github.com/aretw0/conductor/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect archived runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived run ids",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		archive, err := cli.OpenArchive(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer archive.Close()
		if archive.Store == nil {
			return errors.New("runs are not archived (store.backend is none)")
		}

		ids, err := archive.Store.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup(cmd)
		if err != nil {
			return err
		}
		archive, err := cli.OpenArchive(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer archive.Close()
		if archive.Store == nil {
			return errors.New("runs are not archived (store.backend is none)")
		}

		t, err := archive.Store.Load(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(t)
		}
		if asGraph, _ := cmd.Flags().GetBool("graph"); asGraph {
			fmt.Fprint(out, graph.GenerateMermaid(t.Plan, t.ReplanAttempts, graph.OverlayOf(t)))
			return nil
		}

		fmt.Fprintf(out, "Run:      %s\nQuery:    %s\nStarted:  %s\nDuration: %s\n",
			t.RunID, t.UserQuery, t.StartedAt.Format("2006-01-02 15:04:05"), t.FinishedAt.Sub(t.StartedAt))
		if t.Error != "" {
			fmt.Fprintf(out, "Error:    %s\n", t.Error)
		}
		fmt.Fprintln(out)
		for _, m := range t.Messages {
			fmt.Fprintf(out, "[%s] %s\n", m.Author, m.Content)
		}
		if t.Finished {
			fmt.Fprintln(out)
			fmt.Fprint(out, tui.Answer(t.Answer, t.Chart, t.Plan))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	runsShowCmd.Flags().Bool("json", false, "Print the transcript as JSON")
	runsShowCmd.Flags().Bool("graph", false, "Print the plan as a Mermaid flowchart")
}
