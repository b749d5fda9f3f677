package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/ppiankov/chainboard/internal/client"
	"github.com/ppiankov/chainboard/internal/config"
	"github.com/ppiankov/chainboard/internal/model"
	"github.com/ppiankov/chainboard/internal/registry"
	"github.com/ppiankov/chainboard/internal/store"
)

var (
	snapshotJSON    bool
	snapshotHistory int
	snapshotAPI     string
)

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().BoolVar(&snapshotJSON, "json", false, "Dump the snapshot as JSON")
	snapshotCmd.Flags().IntVar(&snapshotHistory, "history", 0, "Show the last N stored boards instead of fetching")
	snapshotCmd.Flags().StringVar(&snapshotAPI, "api", "", "OC API base URL (overrides config)")
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch the board once and print it",
	Long: "One-shot board fetch without the TUI. Prints a text summary by default,\n" +
		"the raw snapshot with --json, or recent boards from the local history\n" +
		"store with --history N.",
	RunE: runSnapshot,
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if snapshotAPI != "" {
		cfg.API.BaseURL = snapshotAPI
	}

	if snapshotHistory > 0 {
		return printHistory(cfg, snapshotHistory)
	}

	api, err := client.New(cfg.API.BaseURL, cfg.API.Timeout())
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snap, err := api.FetchBoard(ctx)
	if err != nil {
		if !snap.Available.Agents && !snap.Available.Decisions && !snap.Available.Rail &&
			!snap.Available.KillSwitch && !snap.Available.Ledger {
			return fmt.Errorf("fetch board: %w", err)
		}
		fmt.Fprintf(os.Stderr, "warning: partial board: %v\n", err)
	}

	if snapshotJSON {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal snapshot: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Print(formatBoard(snap, registry.New(cfg.Agents)))
	return nil
}

// printHistory replays the newest N boards from the local SQLite store,
// one summary line each.
func printHistory(cfg *config.Config, n int) error {
	history, err := store.Open(cfg.StoreFile())
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer history.Close()

	records, err := history.Recent(n)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("history empty")
		return nil
	}

	if snapshotJSON {
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal history: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	for _, rec := range records {
		fmt.Printf("%s  overall %-7s  switch %-8s  %d agents\n",
			rec.FetchedAt.UTC().Format(time.RFC3339), rec.Overall, rec.SwitchPhase, rec.AgentCount)
	}
	return nil
}

// formatBoard renders a snapshot as the console's panels, flattened to
// plain text. Sections that failed their fetch print as UNAVAILABLE, the
// same rule the TUI follows.
func formatBoard(snap model.BoardSnapshot, reg *registry.Registry) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CHAINBOARD  fetched %s\n", snap.FetchedAt.UTC().Format(time.RFC3339))

	b.WriteString("\nAGENTS\n")
	switch {
	case !snap.Available.Agents:
		b.WriteString("  UNAVAILABLE\n")
	case len(snap.Agents) == 0:
		b.WriteString("  no agents registered\n")
	default:
		for _, a := range snap.Agents {
			fmt.Fprintf(&b, "  %-7s %-10s %-9s %-10s %-9s %d active, %d done\n",
				a.GID, a.Name, a.Lane, a.Health, a.ExecState, a.ActiveTasks, a.CompletedTasks)
		}
		if unknown := reg.Unregistered(snap.Agents); reg.Len() > 0 && len(unknown) > 0 {
			fmt.Fprintf(&b, "  unregistered: %s\n", strings.Join(unknown, ", "))
		}
	}

	b.WriteString("\nDECISION STREAM\n")
	switch {
	case !snap.Available.Decisions:
		b.WriteString("  UNAVAILABLE\n")
	case len(snap.PDOs) == 0 && len(snap.BERs) == 0:
		b.WriteString("  no settlement activity\n")
	default:
		for _, p := range snap.PDOs {
			amount := humanize.FormatFloat("#,###.##", float64(p.AmountMinor)/100)
			fmt.Fprintf(&b, "  %-10s %-7s %14s %s  %-8s wrap %d/%d\n",
				p.PDOID, p.AgentGID, amount, p.Currency, p.State,
				p.WRAP.DoneCount(), len(p.WRAP.Stages))
		}
		for _, r := range snap.BERs {
			fmt.Fprintf(&b, "  %-10s %-7s %-12s %d anomalies\n",
				r.BERID, r.PACID, r.Verdict, r.AnomalyCount)
		}
	}

	b.WriteString("\nGOVERNANCE RAIL\n")
	if !snap.Available.Rail {
		b.WriteString("  UNAVAILABLE\n")
	} else {
		fmt.Fprintf(&b, "  overall %s\n", snap.Rail.Overall)
		for _, inv := range snap.Rail.Invariants {
			fmt.Fprintf(&b, "  %-6s %-8s %s\n", inv.ID, inv.State, inv.Name)
			if inv.Detail != "" && inv.State != model.InvPassing {
				fmt.Fprintf(&b, "         %s\n", inv.Detail)
			}
		}
	}

	b.WriteString("\nKILL SWITCH\n")
	if !snap.Available.KillSwitch {
		b.WriteString("  UNAVAILABLE\n")
	} else {
		fmt.Fprintf(&b, "  %s  auth %s", snap.KillSwitch.Phase, snap.KillSwitch.Auth)
		if snap.KillSwitch.Scope != "" {
			fmt.Fprintf(&b, "  scope %s", snap.KillSwitch.Scope)
		}
		b.WriteString("\n")
	}

	b.WriteString("\nSERVER LEDGER\n")
	switch {
	case !snap.Available.Ledger:
		b.WriteString("  UNAVAILABLE\n")
	case len(snap.Ledger) == 0:
		b.WriteString("  ledger empty\n")
	default:
		for _, e := range snap.Ledger {
			fmt.Fprintf(&b, "  #%04d %-18s %s\n", e.Sequence, e.Category, e.Summary)
		}
	}

	return b.String()
}
