package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	humanize "github.com/dustin/go-humanize"

	"github.com/ppiankov/chainboard/internal/model"
)

func (m Model) View() string {
	if m.overlay != nil {
		return m.viewOverlay()
	}
	if !m.loaded {
		return m.viewLoading()
	}

	leftW, rightW := m.split()
	top := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewAgents(leftW),
		m.viewRail(rightW),
	)
	mid := lipgloss.JoinHorizontal(lipgloss.Top,
		m.viewStream(leftW),
		m.viewScram(rightW),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		top,
		mid,
		m.viewLedger(leftW+rightW+2),
		m.viewStatus(),
		m.viewHelp(),
	)
}

// split divides the terminal into the left (agents, stream) and right
// (rail, kill switch) content widths, borders accounted for.
func (m Model) split() (int, int) {
	w := m.width
	if w < 60 {
		w = 96
	}
	left := (w*3)/5 - 2
	right := w - (left + 2) - 2
	return left, right
}

// panel frames a body with a title, thick-bordered when focused.
func (m Model) panel(title string, focused bool, width int, body string) string {
	frame := m.styles.Panel
	if focused {
		frame = m.styles.PanelFocused
	}
	if width > 0 {
		frame = frame.Width(width)
	}
	return frame.Render(m.styles.PanelTitle.Render(title) + "\n" + body)
}

func (m Model) viewLoading() string {
	return "\n  " + m.spin.View() + " fetching board from feed...\n\n  " +
		m.styles.Muted.Render("q quit")
}

func (m Model) viewHeader() string {
	title := m.styles.Header.Render(" CHAINBOARD · OPERATOR CONSOLE ")
	parts := []string{title}
	if !m.board.FetchedAt.IsZero() {
		parts = append(parts, "  ", m.styles.Muted.Render("fetched "+humanize.Time(m.board.FetchedAt)))
	}
	if !m.feedUp {
		parts = append(parts, "  ", m.styles.Failing.Render("FEED CLOSED"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m Model) viewAgents(width int) string {
	focused := m.focus == panelAgents
	if !m.board.Available.Agents {
		return m.panel("AGENTS", focused, width, m.styles.Unavailable.Render("UNAVAILABLE, agents fetch failed"))
	}

	var lines []string
	for _, a := range m.board.Agents {
		dot := m.styles.laneStyle(a.Lane).Render("●")
		health := m.styles.healthStyle(a.Health).Render(string(a.Health))
		if m.reg.Len() > 0 && !m.reg.IsRegistered(a.GID) {
			health += " " + m.styles.Warning.Render("UNREGISTERED")
		}
		hb := "never"
		if !a.LastHeartbeat.IsZero() {
			hb = shortAge(time.Since(a.LastHeartbeat))
		}
		lines = append(lines,
			fmt.Sprintf("%s %-7s %-12s %s", dot, a.GID, truncate(a.Name, 12), health),
			m.styles.Muted.Render(fmt.Sprintf("  %s · %d active · %d done · hb %s",
				strings.ToLower(string(a.ExecState)), a.ActiveTasks, a.CompletedTasks, hb)),
		)
	}
	if len(m.board.Agents) == 0 {
		lines = append(lines, m.styles.Muted.Render("no agents registered"))
	}
	return m.panel("AGENTS", focused, width, strings.Join(lines, "\n"))
}

func (m Model) viewRail(width int) string {
	focused := m.focus == panelRail
	if !m.board.Available.Rail {
		return m.panel("GOVERNANCE RAIL", focused, width, m.styles.Unavailable.Render("UNAVAILABLE, rail fetch failed"))
	}

	invs := m.board.Rail.Invariants
	var lines []string
	lines = append(lines, "overall "+m.styles.invariantStyle(m.board.Rail.Overall).Render(string(m.board.Rail.Overall)))
	for i, inv := range invs {
		cursor := "  "
		if focused && i == m.railSel {
			cursor = "▸ "
		}
		badge := m.styles.invariantStyle(inv.State).Render(string(inv.State))
		lines = append(lines, fmt.Sprintf("%s%-6s %-12s %s", cursor, inv.ID, truncate(inv.Name, 12), badge))
	}
	if len(invs) == 0 {
		lines = append(lines, m.styles.Muted.Render("no invariants reported"))
	}
	if m.railSel < len(invs) && invs[m.railSel].Detail != "" {
		lines = append(lines, m.styles.Muted.Render(truncate(invs[m.railSel].Detail, width-2)))
	}
	lines = append(lines, m.styles.Muted.Render("r runbook"))
	return m.panel("GOVERNANCE RAIL", focused, width, strings.Join(lines, "\n"))
}

func (m Model) viewStream(width int) string {
	focused := m.focus == panelStream
	if !m.board.Available.Decisions {
		return m.panel("DECISION STREAM", focused, width, m.styles.Unavailable.Render("UNAVAILABLE, decisions fetch failed"))
	}

	body := m.stream.View()
	if len(m.board.PDOs) == 0 {
		body = m.styles.Muted.Render("no settlement activity")
	}

	if bers := m.board.BERs; len(bers) > 0 {
		if len(bers) > 3 {
			bers = bers[len(bers)-3:]
		}
		parts := make([]string, 0, len(bers))
		for _, b := range bers {
			st := m.styles.Passing
			switch b.Verdict {
			case model.VerdictFail:
				st = m.styles.Failing
			case model.VerdictInconclusive:
				st = m.styles.Warning
			}
			tag := fmt.Sprintf("%s %s", b.BERID, b.Verdict)
			if b.AnomalyCount > 0 {
				tag += fmt.Sprintf(" (%d anomalies)", b.AnomalyCount)
			}
			parts = append(parts, st.Render(tag))
		}
		body += "\n" + m.styles.Muted.Render("BER ") + strings.Join(parts, m.styles.Muted.Render(" · "))
	}
	return m.panel("DECISION STREAM", focused, width, body)
}

func (m Model) viewScram(width int) string {
	s := m.styles
	sw := m.sw
	phase := sw.Phase
	if phase == "" {
		phase = model.SwitchDisarmed
	}

	var lines []string
	badge := s.phaseStyle(phase).Render("■ " + string(phase))
	if phase != model.SwitchDisarmed && sw.Scope != "" {
		badge += s.Bold.Render("  " + string(sw.Scope))
	}
	lines = append(lines, badge)

	switch phase {
	case model.SwitchDisarmed:
		lines = append(lines, fmt.Sprintf("scope  ‹ %s ›", armScopes[m.scopeIdx]))
		if sw.LockoutRemaining > 0 {
			lines = append(lines, s.Failing.Render("LOCKED OUT "+fmtSeconds(sw.LockoutRemaining)))
		} else {
			lines = append(lines, s.Muted.Render("a arm · ←/→ scope"))
		}

	case model.SwitchArmed:
		d := sw.Dwell
		barStyle := s.Armed
		if d.Satisfied {
			barStyle = s.Passing
		}
		lines = append(lines, barStyle.Render(dwellBar(d.Progress, 18))+" "+d.Display)
		switch {
		case sw.Confirming:
			lines = append(lines, s.Engaged.Render("CONFIRM: press e again"))
		case d.Satisfied:
			lines = append(lines, s.Passing.Render("ready · e engage"))
		case !d.Running:
			lines = append(lines, s.Warning.Render("dwell paused, panel not visible"))
		default:
			lines = append(lines, s.Muted.Render("reviewing · d cancel"))
		}

	case model.SwitchEngaged:
		since := "now"
		if !sw.EngagedAt.IsZero() {
			since = shortAge(time.Since(sw.EngagedAt)) + " ago"
		}
		lines = append(lines, s.Engaged.Render("execution halted "+since))
		lines = append(lines, s.Muted.Render("d disarm to cooldown"))

	case model.SwitchCooldown:
		lines = append(lines, s.Cooldown.Render("cooldown "+fmtSeconds(sw.CooldownRemaining)))
		lines = append(lines, s.Muted.Render("controls return when it expires"))
	}

	auth := sw.Auth
	if auth == "" {
		auth = model.AuthUnauthorized
	}
	authLine := "auth " + string(auth)
	if sw.Elevated {
		authLine += " (break-glass)"
	}
	lines = append(lines, s.Muted.Render(authLine))

	if m.board.Available.KillSwitch {
		srv := "server: " + string(m.board.KillSwitch.Phase)
		if m.board.KillSwitch.Scope != "" {
			srv += " " + string(m.board.KillSwitch.Scope)
		}
		lines = append(lines, s.Muted.Render(srv))
	} else if m.loaded {
		lines = append(lines, s.Unavailable.Render("server state UNAVAILABLE"))
	}

	return m.panel("KILL SWITCH", m.focus == panelScram, width, strings.Join(lines, "\n"))
}

func (m Model) viewLedger(width int) string {
	if !m.board.Available.Ledger {
		return m.panel("SERVER LEDGER", false, width, m.styles.Unavailable.Render("UNAVAILABLE, ledger fetch failed"))
	}

	entries := m.board.Ledger
	n := len(entries)
	var lines []string
	for i := n - 1; i >= 0 && i > n-5; i-- {
		e := entries[i]
		lines = append(lines, fmt.Sprintf("%s %-18s %s %s",
			m.styles.Muted.Render(fmt.Sprintf("#%04d", e.Sequence)),
			e.Category,
			truncate(e.Summary, width-40),
			m.styles.Muted.Render(shortAge(time.Since(e.At))+" ago"),
		))
	}
	if n == 0 {
		lines = append(lines, m.styles.Muted.Render("ledger empty"))
	}
	return m.panel("SERVER LEDGER", false, width, strings.Join(lines, "\n"))
}

func (m Model) viewStatus() string {
	parts := []string{}
	cur := m.ann.Current()
	if cur.Text != "" {
		parts = append(parts, m.styles.StatusLine.Render(fmt.Sprintf(" %s (%s) ", cur.Text, shortAge(time.Since(cur.At)))))
	} else {
		parts = append(parts, m.styles.StatusLine.Render(" "))
	}
	if m.mon != nil {
		if active := len(m.mon.Active()); active > 0 {
			parts = append(parts, m.styles.Failing.Render(fmt.Sprintf(" watchdog: %d active", active)))
		} else {
			parts = append(parts, m.styles.Muted.Render(" watchdog: clear"))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m Model) viewHelp() string {
	bindings := []key.Binding{
		m.keys.NextPanel, m.keys.Up, m.keys.Down, m.keys.Left, m.keys.Right,
		m.keys.Arm, m.keys.Engage, m.keys.Disarm, m.keys.Runbook, m.keys.Quit,
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.styles.Muted.Render(" " + strings.Join(parts, " · "))
}

// viewOverlay renders the operator runbook for the selected invariant
// in place of the board.
func (m Model) viewOverlay() string {
	rb := m.overlay
	var b strings.Builder
	b.WriteString(m.styles.Header.Render(" RUNBOOK · "+rb.Invariant+" ") + "\n")
	b.WriteString(m.styles.Bold.Render(rb.Name) + "\n")
	b.WriteString(m.styles.Muted.Render("source: "+rb.Source) + "\n\n")
	for i, step := range rb.Steps {
		b.WriteString(fmt.Sprintf(" %d. %s\n", i+1, m.styles.Bold.Render(step.Check)))
		if step.Purpose != "" {
			b.WriteString(m.styles.Muted.Render("    "+step.Purpose) + "\n")
		}
	}
	b.WriteString("\n" + m.styles.Muted.Render("esc close"))
	return m.styles.Panel.Render(b.String())
}

func streamColumns() []table.Column {
	return []table.Column{
		{Title: "PDO", Width: 10},
		{Title: "AGENT", Width: 7},
		{Title: "AMOUNT", Width: 14},
		{Title: "STATE", Width: 9},
		{Title: "WRAP", Width: 6},
		{Title: "AGE", Width: 5},
	}
}

func streamRows(pdos []model.PDOCard) []table.Row {
	rows := make([]table.Row, 0, len(pdos))
	for _, p := range pdos {
		rows = append(rows, table.Row{
			p.PDOID,
			p.AgentGID,
			formatAmount(p.AmountMinor, p.Currency),
			string(p.State),
			wrapCell(p.WRAP),
			shortAge(time.Since(p.At)),
		})
	}
	return rows
}

func streamTableStyles(s Styles) table.Styles {
	ts := table.DefaultStyles()
	ts.Header = ts.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(s.Theme.Border).
		BorderBottom(true).
		Bold(true)
	ts.Selected = ts.Selected.
		Foreground(s.Theme.Focus).
		Bold(true)
	return ts
}

// wrapCell compresses WRAP progress into dots, one per stage.
func wrapCell(w model.WRAPProgress) string {
	total := len(w.Stages)
	if total == 0 {
		return "-"
	}
	done := w.DoneCount()
	return strings.Repeat("●", done) + strings.Repeat("○", total-done)
}

// formatAmount renders minor units as a grouped decimal amount.
func formatAmount(minor int64, currency string) string {
	s := humanize.FormatFloat("#,###.##", float64(minor)/100)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

func shortAge(d time.Duration) string {
	switch {
	case d < 0:
		return "0s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
}

func fmtSeconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func dwellBar(progress float64, width int) string {
	if width < 1 {
		width = 10
	}
	filled := int(progress / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, n int) string {
	if n <= 1 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
