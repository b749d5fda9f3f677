package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/chainboard/internal/config"
	"github.com/ppiankov/chainboard/internal/logging"
	chainmcp "github.com/ppiankov/chainboard/internal/mcp"
)

var (
	mcpAPI        string
	mcpRunbookDir string
)

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpAPI, "api", "", "OC API base URL (overrides config)")
	mcpCmd.Flags().StringVar(&mcpRunbookDir, "runbook-dir", "", "Override directory for runbooks (default ~/.chainboard/runbooks)")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the read-only MCP tool server",
	Long: "Runs chainboard as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes read-only tools: chainboard_board, chainboard_agent,\n" +
		"chainboard_invariant, chainboard_ledger_tail.\n\n" +
		"There is no kill-switch tool; engagement requires the console.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if mcpAPI != "" {
		cfg.API.BaseURL = mcpAPI
	}
	dir := mcpRunbookDir
	if dir == "" {
		dir = runbookOverrideDir()
	}

	// stdio carries the protocol, so diagnostics go to stderr.
	logger, err := logging.NewStderrLogger(cfg.Log.Debug)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	srv, err := chainmcp.New(chainmcp.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout(),
		RunbookDir: dir,
		Version:    version,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "chainboard MCP server running on stdio")
	fmt.Fprintf(os.Stderr, "Board source: %s\n", cfg.API.BaseURL)
	fmt.Fprintln(os.Stderr)

	return srv.Run(ctx)
}
