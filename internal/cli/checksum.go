package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/chainboard/internal/config"
	"github.com/ppiankov/chainboard/internal/integrity"
)

var checksumWrite bool

func init() {
	rootCmd.AddCommand(checksumCmd)
	checksumCmd.Flags().BoolVar(&checksumWrite, "write", false, "Also install the hash as ~/.chainboard/binary.sha256")
}

var checksumCmd = &cobra.Command{
	Use:   "checksum",
	Short: "Print the SHA-256 of the running binary",
	Long: "Prints the self-hash the startup integrity check compares against.\n" +
		"With --write, installs it as the expected checksum so later runs\n" +
		"verify against it. After replacing the binary, re-pin with:\n" +
		"  chainboard --skip-integrity checksum --write",
	RunE: runChecksum,
}

func runChecksum(cmd *cobra.Command, args []string) error {
	hash, err := integrity.HashSelf()
	if err != nil {
		return fmt.Errorf("hash binary: %w", err)
	}
	fmt.Println(hash)

	if checksumWrite {
		path := filepath.Join(config.DefaultDir(), "binary.sha256")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create state directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(hash+"\n"), 0o644); err != nil {
			return fmt.Errorf("write checksum file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	}
	return nil
}
