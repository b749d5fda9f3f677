// Package console renders the operator board as a full-screen terminal
// UI: the agent lane grid, the PDO/BER decision stream, the governance
// rail, the server ledger tail and the kill-switch panel. The board is
// read-only; the single write path is the scram controller behind the
// kill-switch panel, and every state change the operator should notice
// goes through the Announcer into the status line.
package console

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/ppiankov/chainboard/internal/feed"
	"github.com/ppiankov/chainboard/internal/friction"
	"github.com/ppiankov/chainboard/internal/model"
	"github.com/ppiankov/chainboard/internal/monitor"
	"github.com/ppiankov/chainboard/internal/registry"
	"github.com/ppiankov/chainboard/internal/runbook"
	"github.com/ppiankov/chainboard/internal/scram"
	"github.com/ppiankov/chainboard/internal/store"
)

// DefaultRefresh is the board refresh period when none is configured.
const DefaultRefresh = 2 * time.Second

// gateTickEvery drives the dwell, confirm and cooldown countdowns
// between board refreshes. Only scheduled while the switch is active.
const gateTickEvery = 100 * time.Millisecond

// pruneEvery throttles history pruning to every Nth stored snapshot.
const pruneEvery = 50

// panel identifies one focusable board region, in tab order.
type panel int

const (
	panelAgents panel = iota
	panelStream
	panelRail
	panelScram
	panelCount
)

// armScopes is the scope carousel order for the kill-switch panel.
var armScopes = []model.Scope{
	model.ScopeShadow,
	model.ScopeTrading,
	model.ScopeNetwork,
	model.ScopeTotal,
}

type (
	snapshotMsg   model.BoardSnapshot
	feedClosedMsg struct{}
	refreshMsg    time.Time
	gateMsg       time.Time
)

// Options wires a Model. Source and Controller come from the command
// layer; Monitor, Store and Announcer are optional and degrade to
// no-ops when absent.
type Options struct {
	Source     feed.Source
	Controller *scram.Controller
	Monitor    *monitor.Monitor
	Registry   *registry.Registry // known agents; unknown GIDs get an UNREGISTERED badge
	Store      *store.Store
	StoreKeep  int           // rows retained when pruning history, 0 = never prune
	RunbookDir string        // operator runbook overrides
	Refresh    time.Duration // board refresh period
	Announcer  *Announcer    // shared with the watchdog's OnAlert
	Logger     *zap.Logger
}

// Model is the bubbletea model for the operator board.
type Model struct {
	keys   keyMap
	styles Styles
	ann    *Announcer
	spin   spinner.Model
	stream table.Model

	snaps      <-chan model.BoardSnapshot
	ctrl       *scram.Controller
	mon        *monitor.Monitor
	reg        *registry.Registry
	history    *store.Store
	keep       int
	runbookDir string
	refresh    time.Duration
	logger     *zap.Logger

	board  model.BoardSnapshot
	loaded bool
	feedUp bool

	sw       scram.State
	scopeIdx int
	railSel  int

	focus     panel
	termFocus bool
	gateLoop  bool

	overlay *runbook.Runbook

	width  int
	height int
	stored int
}

// New builds a Model from Options. The feed channel is attached by Run;
// tests inject one directly.
func New(opts Options) Model {
	if opts.Refresh <= 0 {
		opts.Refresh = DefaultRefresh
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Announcer == nil {
		opts.Announcer = NewAnnouncer()
	}
	if opts.Registry == nil {
		opts.Registry = registry.New(nil)
	}

	styles := DefaultStyles()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	st := table.New(
		table.WithColumns(streamColumns()),
		table.WithFocused(false),
		table.WithHeight(8),
	)
	st.SetStyles(streamTableStyles(styles))

	m := Model{
		keys:       defaultKeyMap(),
		styles:     styles,
		ann:        opts.Announcer,
		spin:       sp,
		stream:     st,
		ctrl:       opts.Controller,
		mon:        opts.Monitor,
		reg:        opts.Registry,
		history:    opts.Store,
		keep:       opts.StoreKeep,
		runbookDir: opts.RunbookDir,
		refresh:    opts.Refresh,
		logger:     opts.Logger,
		termFocus:  true,
		feedUp:     true,
	}
	if m.ctrl != nil {
		m.sw = m.ctrl.State()
	}
	return m
}

// AlertAnnouncer adapts an Announcer into a watchdog alert callback.
// Observe runs on the update loop, so the unlocked Announcer is safe.
func AlertAnnouncer(ann *Announcer) func(monitor.Alert) {
	return func(a monitor.Alert) {
		ann.Announce(fmt.Sprintf("ALERT %s: %s", a.Type, a.Detail))
	}
}

// Run builds the program and blocks until the operator quits. The feed
// channel closes when ctx ends; the board freezes rather than exiting
// so the operator keeps the last known state.
func Run(ctx context.Context, opts Options) error {
	if opts.Source == nil {
		return fmt.Errorf("console: nil feed source")
	}
	m := New(opts)
	m.snaps = opts.Source.Snapshots(ctx)

	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithReportFocus(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil // shutdown via signal, not a failure
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.waitSnapshot(), m.refreshTick())
}

// waitSnapshot receives one board from the feed and re-arms itself from
// the handler, the standard one-message-per-receive bridge.
func (m Model) waitSnapshot() tea.Cmd {
	if m.snaps == nil {
		return nil
	}
	ch := m.snaps
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return feedClosedMsg{}
		}
		return snapshotMsg(snap)
	}
}

func (m Model) refreshTick() tea.Cmd {
	return tea.Tick(m.refresh, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func gateTick() tea.Cmd {
	return tea.Tick(gateTickEvery, func(t time.Time) tea.Msg { return gateMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layoutStream()
		return m, nil

	case tea.FocusMsg:
		m.termFocus = true
		m.syncVisible()
		return m, nil

	case tea.BlurMsg:
		m.termFocus = false
		m.syncVisible()
		return m, nil

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case snapshotMsg:
		return m.onSnapshot(model.BoardSnapshot(msg))

	case feedClosedMsg:
		m.feedUp = false
		m.ann.Announce("feed closed, board frozen")
		m.logger.Warn("snapshot feed closed")
		return m, nil

	case refreshMsg:
		cmds := []tea.Cmd{m.refreshTick()}
		if m.loaded && m.mon != nil {
			// Re-observing the last board lets the staleness rules see
			// time advance even when the feed has gone quiet.
			m.mon.Observe(m.board)
		}
		m.syncSwitch(&cmds)
		return m, tea.Batch(cmds...)

	case gateMsg:
		m.gateLoop = false
		var cmds []tea.Cmd
		m.syncSwitch(&cmds)
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		return m.onKey(msg)
	}
	return m, nil
}

func (m Model) onSnapshot(snap model.BoardSnapshot) (tea.Model, tea.Cmd) {
	m.board = snap
	m.loaded = true
	if n := len(snap.Rail.Invariants); n == 0 {
		m.railSel = 0
	} else if m.railSel >= n {
		m.railSel = n - 1
	}
	m.stream.SetRows(streamRows(snap.PDOs))

	if m.history != nil {
		if err := m.history.Insert(snap); err != nil {
			m.logger.Warn("snapshot store insert failed", zap.Error(err))
		} else {
			m.stored++
			if m.keep > 0 && m.stored%pruneEvery == 0 {
				if _, err := m.history.Prune(m.keep); err != nil {
					m.logger.Warn("snapshot store prune failed", zap.Error(err))
				}
			}
		}
	}
	if m.mon != nil {
		m.mon.Observe(snap)
	}

	cmds := []tea.Cmd{m.waitSnapshot()}
	m.syncSwitch(&cmds)
	return m, tea.Batch(cmds...)
}

func (m Model) onKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.overlay != nil {
		if key.Matches(msg, m.keys.Close) || key.Matches(msg, m.keys.Runbook) {
			m.overlay = nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.NextPanel):
		m.focus = (m.focus + 1) % panelCount
		if m.focus == panelStream {
			m.stream.Focus()
		} else {
			m.stream.Blur()
		}
		m.syncVisible()
		return m, nil

	case key.Matches(msg, m.keys.Runbook):
		m.openRunbook()
		return m, nil
	}

	switch m.focus {
	case panelScram:
		return m.onScramKey(msg)

	case panelRail:
		if key.Matches(msg, m.keys.Up) && m.railSel > 0 {
			m.railSel--
		}
		if key.Matches(msg, m.keys.Down) && m.railSel < len(m.board.Rail.Invariants)-1 {
			m.railSel++
		}
		return m, nil

	case panelStream:
		var cmd tea.Cmd
		m.stream, cmd = m.stream.Update(msg)
		return m, cmd
	}
	return m, nil
}

// onScramKey drives the kill-switch state machine. Scope is chosen
// while DISARMED and fixed for the rest of the cycle.
func (m Model) onScramKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ctrl == nil {
		return m, nil
	}
	var cmds []tea.Cmd

	switch {
	case key.Matches(msg, m.keys.Left):
		if m.sw.Phase == model.SwitchDisarmed {
			m.scopeIdx = (m.scopeIdx + len(armScopes) - 1) % len(armScopes)
		}

	case key.Matches(msg, m.keys.Right):
		if m.sw.Phase == model.SwitchDisarmed {
			m.scopeIdx = (m.scopeIdx + 1) % len(armScopes)
		}

	case key.Matches(msg, m.keys.Arm):
		scope := armScopes[m.scopeIdx]
		if err := m.ctrl.Arm(scope); err != nil {
			m.ann.Announce(fmt.Sprintf("arm rejected: %v", err))
			m.logger.Warn("arm rejected", zap.String("scope", string(scope)), zap.Error(err))
		} else {
			m.logger.Info("kill switch armed", zap.String("scope", string(scope)))
			m.syncVisible()
		}

	case key.Matches(msg, m.keys.Engage):
		res, err := m.ctrl.Engage(context.Background())
		switch {
		case err != nil:
			m.ann.Announce(fmt.Sprintf("engage rejected: %v", err))
			m.logger.Warn("engage rejected", zap.Error(err))
		case res == friction.PressIgnored:
			m.ann.Announce(fmt.Sprintf("engage ignored, dwell %s", m.sw.Dwell.Display))
		case res == friction.PressExecuted:
			m.logger.Warn("kill switch engaged", zap.String("scope", string(m.sw.Scope)))
		}

	case key.Matches(msg, m.keys.Disarm):
		if err := m.ctrl.Disarm(); err != nil {
			m.ann.Announce(fmt.Sprintf("disarm rejected: %v", err))
		} else {
			m.logger.Info("kill switch disarm requested")
		}
	}

	m.syncSwitch(&cmds)
	return m, tea.Batch(cmds...)
}

// syncSwitch samples the controller, announces transitions and keeps
// the countdown tick alive while the switch is anywhere but DISARMED.
func (m *Model) syncSwitch(cmds *[]tea.Cmd) {
	if m.ctrl == nil {
		return
	}
	prev := m.sw
	m.sw = m.ctrl.State()
	m.announceSwitch(prev, m.sw)

	active := m.sw.Phase != model.SwitchDisarmed || m.sw.LockoutRemaining > 0
	if active && !m.gateLoop {
		m.gateLoop = true
		*cmds = append(*cmds, gateTick())
	}
}

func (m Model) announceSwitch(prev, cur scram.State) {
	if prev.Phase != cur.Phase {
		switch cur.Phase {
		case model.SwitchArmed:
			m.ann.Announce(fmt.Sprintf("armed %s, dwell %s", cur.Scope, cur.Dwell.Display))
		case model.SwitchEngaged:
			m.ann.Announce(fmt.Sprintf("kill switch ENGAGED, scope %s", cur.Scope))
		case model.SwitchCooldown:
			m.ann.Announce(fmt.Sprintf("cooldown %s, controls locked", cur.CooldownRemaining.Round(time.Second)))
		case model.SwitchDisarmed:
			if prev.Phase == model.SwitchCooldown {
				m.ann.Announce("cooldown complete, kill switch ready")
			} else {
				m.ann.Announce("arm cancelled")
			}
		}
		return
	}

	if cur.Phase == model.SwitchArmed {
		if !prev.Dwell.Satisfied && cur.Dwell.Satisfied {
			m.ann.Announce("dwell satisfied, press e to engage")
		}
		if !prev.Confirming && cur.Confirming {
			m.ann.Announce("confirm armed, press e again")
		}
		if prev.Confirming && !cur.Confirming && !cur.Executing {
			m.ann.Announce("confirmation expired")
		}
	}
	if prev.LockoutRemaining <= 0 && cur.LockoutRemaining > 0 {
		m.ann.Announce(fmt.Sprintf("arming locked out for %s", cur.LockoutRemaining.Round(time.Second)))
	}
}

// syncVisible feeds terminal and panel focus into the engage gate. An
// unfocused kill-switch panel does not accrue review time.
func (m Model) syncVisible() {
	if m.ctrl == nil {
		return
	}
	m.ctrl.SetVisible(m.termFocus && m.focus == panelScram)
}

func (m *Model) openRunbook() {
	invs := m.board.Rail.Invariants
	if len(invs) == 0 {
		m.ann.Announce("no invariants on the rail")
		return
	}
	sel := m.railSel
	if sel >= len(invs) {
		sel = len(invs) - 1
	}
	m.overlay = runbook.Lookup(m.runbookDir, invs[sel].ID)
}

// layoutStream resizes the decision table to the panel it lives in.
func (m *Model) layoutStream() {
	h := m.height - 16
	if h < 4 {
		h = 4
	}
	if h > 12 {
		h = 12
	}
	m.stream.SetHeight(h)
}
