package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/chainboard/internal/runbook"
)

var runbookDirFlag string

func init() {
	rootCmd.AddCommand(runbookCmd)
	runbookCmd.Flags().StringVar(&runbookDirFlag, "dir", "", "Override directory searched before built-ins (default ~/.chainboard/runbooks)")
}

var runbookCmd = &cobra.Command{
	Use:   "runbook <invariant>",
	Short: "Print the investigation checklist for an invariant",
	Long: "Resolves the runbook for a governance invariant. Accepts short or full\n" +
		"IDs (\"x\" and \"X-INV\" both work). Operator overrides in\n" +
		"~/.chainboard/runbooks/ win over the built-in checklists; unknown\n" +
		"invariants get the generic checklist.",
	Args: cobra.ExactArgs(1),
	RunE: runRunbook,
}

func runRunbook(cmd *cobra.Command, args []string) error {
	id := runbook.Normalize(args[0])
	if id == "" {
		return fmt.Errorf("empty invariant ID")
	}

	dir := runbookDirFlag
	if dir == "" {
		dir = runbookOverrideDir()
	}

	rb := runbook.Lookup(dir, id)
	fmt.Printf("%s: %s\n", rb.Invariant, rb.Name)
	fmt.Printf("source: %s\n\n", rb.Source)
	for i, s := range rb.Steps {
		fmt.Printf("%d. %s\n", i+1, s.Check)
		if s.Purpose != "" {
			fmt.Printf("   %s\n", s.Purpose)
		}
	}
	return nil
}
