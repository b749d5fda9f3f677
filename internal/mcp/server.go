// Package mcp exposes the operator board over the Model Context
// Protocol so an assistant can inspect governance state. The tool
// surface is strictly read-only: there is no kill-switch tool here,
// engagement stays behind the console's dwell gate.
package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/chainboard/internal/client"
)

// Config holds MCP server configuration.
type Config struct {
	BaseURL    string        // OC API base, e.g. http://127.0.0.1:8600
	Timeout    time.Duration // per-request API timeout
	RunbookDir string        // operator runbook overrides
	Version    string        // served implementation version
	Logger     *zap.Logger
}

// Server wraps the MCP SDK server around the read-only API client.
type Server struct {
	mcpServer  *mcpsdk.Server
	api        *client.Client
	runbookDir string
	logger     *zap.Logger
}

// New creates an MCP server with the board tools registered.
func New(cfg Config) (*Server, error) {
	api, err := client.New(cfg.BaseURL, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("mcp: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	s := &Server{
		api:        api,
		runbookDir: cfg.RunbookDir,
		logger:     cfg.Logger,
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "chainboard",
			Version: version,
		},
		nil,
	)
	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// registerTools adds the read-only board tools.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "chainboard_board",
		Description: "Fetch the full operator board: agent lanes, decision stream, governance rail, kill-switch state and ledger tail. Sections that fail to fetch are flagged unavailable.",
	}, s.handleBoard)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "chainboard_agent",
		Description: "Fetch one agent lane by GID, e.g. GID-03.",
	}, s.handleAgent)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "chainboard_invariant",
		Description: "Fetch one governance invariant by ID (S-INV, M-INV, X-INV, T-INV, A-INV, F-INV, C-INV) together with its operator runbook.",
	}, s.handleInvariant)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "chainboard_ledger_tail",
		Description: "Fetch the newest entries of the server's tamper-evident ledger, optionally filtered by category, e.g. scram_engaged.",
	}, s.handleLedgerTail)
}
