package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/conductor"
	"github.com/aretw0/conductor/internal/cli"
	"github.com/aretw0/conductor/internal/config"
	"github.com/aretw0/conductor/internal/presentation/tui"
	httpadapter "github.com/aretw0/conductor/pkg/adapters/http"
	"github.com/aretw0/conductor/pkg/adapters/mcp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the run API over HTTP until interrupted. With --mcp the MCP
server is started alongside it over SSE.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTP.Address = addr
		}
		withMCP, _ := cmd.Flags().GetBool("mcp")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := cli.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		if tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(cmd.OutOrStdout(), conductor.Version)
		}

		opts := []httpadapter.Option{httpadapter.WithLogger(logger)}
		if app.Sessions != nil {
			opts = append(opts, httpadapter.WithSessions(app.Sessions))
		}
		if app.Metrics != nil {
			opts = append(opts, httpadapter.WithMetrics(app.Metrics, app.Registry))
		}
		handler := httpadapter.NewServer(app.Engine, opts...).Handler()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return httpadapter.Serve(ctx, cfg.HTTP.Address, handler, logger)
		})
		if withMCP {
			g.Go(func() error {
				srv := mcp.NewServer(app.Engine, mcp.WithLogger(logger))
				return srv.ServeSSE(ctx, cfg.MCP.Address, cfg.MCP.BaseURL)
			})
		}
		err = g.Wait()
		logger.Info("server stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides http.address)")
	serveCmd.Flags().Bool("mcp", false, "Also serve MCP over SSE on mcp.address")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes conductor as MCP tools (ask, list_workers, get_run).

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		if t, _ := cmd.Flags().GetString("transport"); t != "" {
			cfg.MCP.Transport = t
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := cli.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Engine, mcp.WithLogger(logger))
		switch cfg.MCP.Transport {
		case config.TransportSSE:
			return srv.ServeSSE(ctx, cfg.MCP.Address, cfg.MCP.BaseURL)
		default:
			logger.Info("Starting MCP server (stdio)")
			return srv.ServeStdio()
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringP("transport", "t", "", "Transport: stdio or sse (overrides mcp.transport)")
}
