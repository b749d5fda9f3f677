package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at build time via:
//
//	-ldflags "-X github.com/ppiankov/chainboard/internal/cli.version=v1.2.0"
var version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := map[string]string{
			"version": version,
			"name":    "chainboard",
		}
		out, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(out))
	},
}
