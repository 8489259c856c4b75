package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/conductor"
	"github.com/aretw0/conductor/internal/cli"
	"github.com/aretw0/conductor/internal/presentation/tui"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/runner"
	"github.com/spf13/cobra"
)

type askOutput struct {
	RunID    string                `json:"run_id"`
	Answer   string                `json:"answer"`
	Chart    *domain.ChartArtifact `json:"chart,omitempty"`
	Plan     domain.Plan           `json:"plan,omitempty"`
	Messages []domain.Message      `json:"messages,omitempty"`
	Error    string                `json:"error,omitempty"`
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Long: `Plans and runs the workers needed to answer the question, then prints
the answer rendered as markdown. Ctrl+C stops the run at the next step.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		agents, _ := cmd.Flags().GetStringSlice("agents")
		asJSON, _ := cmd.Flags().GetBool("json")
		raw, _ := cmd.Flags().GetBool("raw")

		enabled, err := domain.ParseWorkerIDs(agents)
		if err != nil {
			return err
		}

		sm := runner.NewSignalManager(cmd.Context())
		defer sm.Stop()

		app, err := cli.Build(sm.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		if !asJSON && tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(out, conductor.Version)
		}

		res, runErr := app.Engine.Run(sm.Context(), conductor.Request{
			Query:         strings.Join(args, " "),
			EnabledAgents: enabled,
		})
		if sm.Interrupted() {
			return errors.New("interrupted")
		}

		if asJSON {
			o := askOutput{}
			if res != nil {
				o.RunID, o.Answer, o.Chart = res.RunID, res.Answer, res.Chart
				o.Plan, o.Messages = res.State.Plan, res.State.Messages
			}
			if runErr != nil {
				o.Error = runErr.Error()
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(o); err != nil {
				return err
			}
			return runErr
		}
		if runErr != nil {
			return runErr
		}

		render := tui.Renderer(tui.Plain)
		if !raw {
			if render, err = tui.NewRenderer(100); err != nil {
				return err
			}
		}
		text, err := render(tui.Answer(res.Answer, res.Chart, res.State.Plan))
		if err != nil {
			return err
		}
		fmt.Fprint(out, text)
		logger.Debug("run archived", "run_id", res.RunID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringSlice("agents", nil, "Comma-separated worker ids to enable (default: every available worker)")
	askCmd.Flags().Bool("json", false, "Print the run result as JSON")
	askCmd.Flags().Bool("raw", false, "Print markdown without terminal styling")
}
