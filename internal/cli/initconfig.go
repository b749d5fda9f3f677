package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/chainboard/internal/config"
)

var initForce bool

func init() {
	initConfigCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initConfigCmd)
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Bootstrap the chainboard state directory",
	Long: `Creates ~/.chainboard with a commented config.yaml, the runbook
override directory, and the break-glass token directory.

Existing files are left alone unless --force is given.`,
	RunE: runInitConfig,
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	dir := config.DefaultDir()

	var created []string

	// Runbook overrides shadow built-ins by file name.
	if err := os.MkdirAll(filepath.Join(dir, "runbooks"), 0o755); err != nil {
		return fmt.Errorf("create runbooks directory: %w", err)
	}
	// Break-glass tokens are secrets.
	if err := os.MkdirAll(filepath.Join(dir, "overrides"), 0o700); err != nil {
		return fmt.Errorf("create overrides directory: %w", err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	if wrote, err := writeIfMissing(cfgPath, config.DefaultConfigYAML()); err != nil {
		return err
	} else if wrote {
		created = append(created, cfgPath)
	}

	fmt.Println("chainboard init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
		fmt.Println()
	}

	fmt.Println("Try it without a server:")
	fmt.Println("  chainboard console --mock")
	fmt.Println()
	fmt.Println("Point it at an operator console API:")
	fmt.Printf("  chainboard console --api %s\n", config.DefaultConfig().API.BaseURL)

	return nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
