package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/chainboard/internal/alert"
	"github.com/ppiankov/chainboard/internal/client"
	"github.com/ppiankov/chainboard/internal/config"
	"github.com/ppiankov/chainboard/internal/console"
	"github.com/ppiankov/chainboard/internal/feed"
	"github.com/ppiankov/chainboard/internal/ledger"
	"github.com/ppiankov/chainboard/internal/logging"
	"github.com/ppiankov/chainboard/internal/mock"
	"github.com/ppiankov/chainboard/internal/model"
	"github.com/ppiankov/chainboard/internal/monitor"
	"github.com/ppiankov/chainboard/internal/registry"
	"github.com/ppiankov/chainboard/internal/scram"
	"github.com/ppiankov/chainboard/internal/store"
)

var (
	consoleMock    bool
	consoleAPI     string
	consoleFeedDir string
	consoleRefresh time.Duration
	consoleAuth    string
	consoleActor   string
	consoleDebug   bool
)

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().BoolVar(&consoleMock, "mock", false, "Run against a scripted local board, no server needed")
	consoleCmd.Flags().StringVar(&consoleAPI, "api", "", "OC API base URL (overrides config)")
	consoleCmd.Flags().StringVar(&consoleFeedDir, "feed-dir", "", "JSONL snapshot directory to tail instead of the API")
	consoleCmd.Flags().DurationVar(&consoleRefresh, "refresh", 0, "Board refresh interval (overrides config)")
	consoleCmd.Flags().StringVar(&consoleAuth, "auth", string(model.AuthArmOnly), "Operator authorization level (ARM_ONLY|FULL_ACCESS)")
	consoleCmd.Flags().StringVar(&consoleActor, "actor", "operator", "Operator label recorded in ledger entries")
	consoleCmd.Flags().BoolVar(&consoleDebug, "debug", false, "Debug logging to the console log file")
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Run the operator board TUI",
	Long: "Renders the governance board full-screen: agent lanes, decision stream,\n" +
		"governance rail, kill switch, and server ledger.\n\n" +
		"The board is read-only. The kill-switch panel is the one control, and\n" +
		"engaging it requires an uninterrupted dwell period with the panel\n" +
		"visible, then a second confirming press.",
	RunE: runConsole,
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if consoleAPI != "" {
		cfg.API.BaseURL = consoleAPI
	}
	if consoleFeedDir != "" {
		cfg.Feed.Dir = consoleFeedDir
	}
	refresh := cfg.Console.Refresh()
	if consoleRefresh > 0 {
		refresh = consoleRefresh
	}

	// The TUI owns the terminal, so diagnostics go to a file.
	logger, err := logging.NewFileLogger(cfg.LogFile(), cfg.Log.Debug || consoleDebug)
	if err != nil {
		return fmt.Errorf("open console log: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	led, err := ledger.Open(cfg.LedgerFile())
	if err != nil {
		return fmt.Errorf("open operator ledger: %w", err)
	}
	defer led.Close()

	overrides, err := scram.NewStore(cfg.OverrideStoreDir())
	if err != nil {
		return fmt.Errorf("open break-glass store: %w", err)
	}

	history, err := store.Open(cfg.StoreFile())
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	defer history.Close()

	// Board source: scripted mock, JSONL directory, or the OC API.
	// The mock provider mirrors local kill-switch transitions back onto
	// the board so the panel and the server section agree.
	var (
		source     feed.Source
		sourceName string
		onChange   func(scram.State)
	)
	switch {
	case consoleMock:
		provider := mock.NewProvider(mock.Options{Interval: refresh})
		onChange = func(st scram.State) { provider.SetKillSwitch(st.View()) }
		source = provider
		sourceName = "mock"
	case cfg.Feed.Dir != "":
		source = feed.NewFileSource(cfg.Feed.Dir, feed.FileOptions{
			Poll:   cfg.Feed.PollInterval(),
			Logger: logger,
		})
		sourceName = "feed:" + cfg.Feed.Dir
	default:
		api, err := client.New(cfg.API.BaseURL, cfg.API.Timeout())
		if err != nil {
			return fmt.Errorf("api client: %w", err)
		}
		source = feed.NewHTTPSource(api, refresh, logger)
		sourceName = cfg.API.BaseURL
	}

	ctrl := scram.New(scram.Options{
		Auth:           model.ParseAuthLevel(consoleAuth),
		Actor:          consoleActor,
		CustomDwell:    cfg.DwellOverrideMS("LAW"),
		ConfirmTimeout: cfg.Scram.ConfirmTimeout(),
		Cooldown:       cfg.Scram.Cooldown(),
		MaxAttempts:    cfg.Scram.MaxArmAttempts,
		LockoutWindow:  cfg.Scram.LockoutWindow(),
		Ledger:         led,
		Overrides:      overrides,
		OnChange:       onChange,
	})
	defer ctrl.Close()

	ann := console.NewAnnouncer()
	reg := registry.New(cfg.Agents)
	mon := monitor.New(monitor.Config{
		Registry:   reg,
		Dispatcher: alert.NewDispatcher(cfg.Alerts),
		OnAlert:    console.AlertAnnouncer(ann),
	})

	if err := led.Append(ledger.Entry{
		Category: ledger.CategoryConsoleStarted,
		Actor:    consoleActor,
		Summary:  fmt.Sprintf("console started, source %s", sourceName),
	}); err != nil {
		return fmt.Errorf("ledger append: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	logger.Info("console starting",
		zap.String("source", sourceName),
		zap.String("auth", consoleAuth),
	)

	return console.Run(ctx, console.Options{
		Source:     source,
		Controller: ctrl,
		Monitor:    mon,
		Registry:   reg,
		Store:      history,
		StoreKeep:  cfg.Store.Keep,
		RunbookDir: runbookOverrideDir(),
		Refresh:    refresh,
		Announcer:  ann,
		Logger:     logger,
	})
}

// runbookOverrideDir is where operator-supplied runbooks shadow the
// built-in checklists.
func runbookOverrideDir() string {
	return filepath.Join(config.DefaultDir(), "runbooks")
}
