package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/chainboard/internal/integrity"
)

var (
	configPath    string
	skipIntegrity bool
)

var rootCmd = &cobra.Command{
	Use:   "chainboard",
	Short: "Read-only operator console for the agentic governance board",
	Long: "Renders agent lanes, settlement decisions, and governance invariants\n" +
		"from an operator console feed. The board is observe-only; the single\n" +
		"control is the kill switch, gated behind a dwell timer and a confirm press.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipIntegrity {
			fmt.Fprintln(os.Stderr, "integrity: check skipped (--skip-integrity)")
			return nil
		}
		if err := integrity.Verify(); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
			os.Exit(78) // EX_CONFIG
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.chainboard/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&skipIntegrity, "skip-integrity", false, "Skip the binary self-checksum at startup (dev builds)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
