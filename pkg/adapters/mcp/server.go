// Package mcp exposes the engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/conductor"
	"github.com/aretw0/conductor/internal/logging"
	"github.com/aretw0/conductor/pkg/catalog"
	"github.com/aretw0/conductor/pkg/domain"
	"github.com/aretw0/conductor/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// CatalogURI names the catalog resource.
const CatalogURI = "conductor://catalog"

var encodeJSON = json.Marshal

// AskResponse is the structured result of the ask tool.
type AskResponse struct {
	RunID    string                `json:"run_id" jsonschema_description:"Identifier of the archived run"`
	Answer   string                `json:"answer" jsonschema_description:"Final answer produced by the terminal worker"`
	Chart    *domain.ChartArtifact `json:"chart,omitempty" jsonschema_description:"Rendered chart, when one was produced"`
	Plan     domain.Plan           `json:"plan" jsonschema_description:"Plan in force when the run ended"`
	Messages []domain.Message      `json:"messages" jsonschema_description:"Append-only run log"`
}

// WorkersResponse is the structured result of the list_workers tool.
type WorkersResponse struct {
	Workers []catalog.Entry `json:"workers"`
}

type askArgs struct {
	Query         string `json:"query"`
	EnabledAgents string `json:"enabled_agents,omitempty"`
}

type runArgs struct {
	RunID string `json:"run_id"`
}

// Engine is the part of conductor.Engine the server needs.
type Engine interface {
	Run(ctx context.Context, req conductor.Request) (*conductor.Result, error)
	Catalog() *catalog.Catalog
	Transcripts() ports.TranscriptStore
}

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("conductor", conductor.Version),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio serves on stdin and stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	ids := make([]string, 0, s.engine.Catalog().Len())
	for _, id := range s.engine.Catalog().IDs() {
		ids = append(ids, id.String())
	}

	s.mcpServer.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Answer a question by planning and running a team of workers."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The user request")),
		mcp.WithString("enabled_agents", mcp.Description("Comma-separated worker ids to enable; empty enables all of: "+strings.Join(ids, ", "))),
		mcp.WithOutputSchema[AskResponse](),
	), mcp.NewStructuredToolHandler(s.handleAsk))

	s.mcpServer.AddTool(mcp.NewTool("list_workers",
		mcp.WithDescription("List the workers a plan may use."),
		mcp.WithOutputSchema[WorkersResponse](),
	), mcp.NewStructuredToolHandler(s.handleListWorkers))

	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Fetch the archived transcript of a run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier returned by ask")),
	), s.handleGetRun)
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args runArgs
	if err := request.BindArguments(&args); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	t, err := s.getRun(ctx, args.RunID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, err := encodeJSON(t)
	if err != nil {
		s.logger.Error("failed to encode transcript", "run_id", args.RunID, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode run %s: %v", args.RunID, err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleAsk(ctx context.Context, _ mcp.CallToolRequest, args askArgs) (AskResponse, error) {
	enabled, err := domain.ParseWorkerIDs(strings.Split(args.EnabledAgents, ","))
	if err != nil {
		return AskResponse{}, err
	}

	res, err := s.engine.Run(ctx, conductor.Request{Query: args.Query, EnabledAgents: enabled})
	if err != nil {
		s.logger.Warn("MCP ask failed", "err", err)
		return AskResponse{}, fmt.Errorf("run failed: %w", err)
	}
	return AskResponse{
		RunID:    res.RunID,
		Answer:   res.Answer,
		Chart:    res.Chart,
		Plan:     res.State.Plan,
		Messages: res.State.Messages,
	}, nil
}

func (s *Server) handleListWorkers(context.Context, mcp.CallToolRequest, struct{}) (WorkersResponse, error) {
	return WorkersResponse{Workers: s.engine.Catalog().Entries()}, nil
}

func (s *Server) getRun(ctx context.Context, runID string) (*domain.Transcript, error) {
	store := s.engine.Transcripts()
	if store == nil {
		return nil, errors.New("runs are not archived")
	}
	return store.Load(ctx, runID)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(CatalogURI, "Worker Catalog",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := encodeJSON(s.engine.Catalog().Entries())
		if err != nil {
			return nil, fmt.Errorf("failed to encode catalog: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      CatalogURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
