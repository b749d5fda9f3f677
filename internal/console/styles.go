package console

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/chainboard/internal/model"
)

// Semantic colors, identical in both themes. Governance state must read
// the same on every operator terminal.
var (
	colorPassing  = lipgloss.Color("#8BC34A")
	colorWarning  = lipgloss.Color("#FFC107")
	colorFailing  = lipgloss.Color("#e53935")
	colorEngaged  = lipgloss.Color("#e53935")
	colorArmed    = lipgloss.Color("#FF9800")
	colorCooldown = lipgloss.Color("#2196F3")
	colorInfo     = lipgloss.Color("#2196F3")
)

// laneColors maps the fixed agent lane names to their display colors.
var laneColors = map[string]lipgloss.Color{
	"TEAL":     lipgloss.Color("#4db6ac"),
	"BLUE":     lipgloss.Color("#2196F3"),
	"WHITE":    lipgloss.Color("#eceff1"),
	"DARK RED": lipgloss.Color("#b71c1c"),
	"ORANGE":   lipgloss.Color("#FF9800"),
	"PURPLE":   lipgloss.Color("#9C27B0"),
}

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Focus      lipgloss.Color
	Header     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light terminal theme.
func LightTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#101F38"),
		Muted:      lipgloss.Color("#7a8699"),
		Border:     lipgloss.Color("#dce0e5"),
		Focus:      lipgloss.Color("#101F38"),
		Header:     lipgloss.Color("#101F38"),
		IsDark:     false,
	}
}

// DarkTheme returns the dark terminal theme.
func DarkTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#f2f2f2"),
		Muted:      lipgloss.Color("#6b7a94"),
		Border:     lipgloss.Color("#2a3850"),
		Focus:      lipgloss.Color("#8BC34A"),
		Header:     lipgloss.Color("#8BC34A"),
		IsDark:     true,
	}
}

// DetectTheme picks a theme from the terminal background, defaulting to
// dark. COLORFGBG is the usual "fg;bg" hint; CHAINBOARD_LIGHT_MODE=1
// forces light.
func DetectTheme() Theme {
	if os.Getenv("CHAINBOARD_LIGHT_MODE") == "1" {
		return LightTheme()
	}
	if colorTerm := os.Getenv("COLORFGBG"); colorTerm != "" {
		parts := strings.Split(colorTerm, ";")
		if len(parts) >= 2 {
			if bgIdx, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
				if bgIdx == 7 || bgIdx == 15 {
					return LightTheme()
				}
			}
		}
	}
	return DarkTheme()
}

// Styles holds the styled components for the board.
type Styles struct {
	Theme Theme

	Header       lipgloss.Style
	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	PanelTitle   lipgloss.Style
	Muted        lipgloss.Style
	Bold         lipgloss.Style

	Passing  lipgloss.Style
	Warning  lipgloss.Style
	Failing  lipgloss.Style
	Engaged  lipgloss.Style
	Armed    lipgloss.Style
	Cooldown lipgloss.Style
	Info     lipgloss.Style

	Unavailable lipgloss.Style
	StatusLine  lipgloss.Style
	Spinner     lipgloss.Style
}

// NewStyles builds the style set for a theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Foreground(theme.Header).
			Bold(true),

		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),

		PanelFocused: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(theme.Focus).
			Padding(0, 1),

		PanelTitle: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Bold: lipgloss.NewStyle().
			Foreground(theme.Foreground).
			Bold(true),

		Passing:  lipgloss.NewStyle().Foreground(colorPassing),
		Warning:  lipgloss.NewStyle().Foreground(colorWarning).Bold(true),
		Failing:  lipgloss.NewStyle().Foreground(colorFailing).Bold(true),
		Engaged:  lipgloss.NewStyle().Foreground(colorEngaged).Bold(true).Blink(true),
		Armed:    lipgloss.NewStyle().Foreground(colorArmed).Bold(true),
		Cooldown: lipgloss.NewStyle().Foreground(colorCooldown),
		Info:     lipgloss.NewStyle().Foreground(colorInfo),

		Unavailable: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		StatusLine: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Spinner: lipgloss.NewStyle().Foreground(colorInfo),
	}
}

// DefaultStyles returns styles with the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// laneStyle returns the color style for an agent lane name.
func (s Styles) laneStyle(lane string) lipgloss.Style {
	if c, ok := laneColors[lane]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return s.Bold
}

// healthStyle maps agent health to a status style.
func (s Styles) healthStyle(h model.Health) lipgloss.Style {
	switch h {
	case model.Healthy:
		return s.Passing
	case model.Degraded:
		return s.Warning
	case model.Critical, model.Offline:
		return s.Failing
	default:
		return s.Muted
	}
}

// invariantStyle maps an invariant state to a status style.
func (s Styles) invariantStyle(st model.InvariantState) lipgloss.Style {
	switch st {
	case model.InvPassing:
		return s.Passing
	case model.InvWarning:
		return s.Warning
	case model.InvFailing:
		return s.Failing
	default:
		return s.Muted
	}
}

// phaseStyle maps a kill-switch phase to a status style.
func (s Styles) phaseStyle(p model.SwitchPhase) lipgloss.Style {
	switch p {
	case model.SwitchArmed:
		return s.Armed
	case model.SwitchEngaged:
		return s.Engaged
	case model.SwitchCooldown:
		return s.Cooldown
	default:
		return s.Passing
	}
}
