package cli

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Theme holds the color scheme for CLI output.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
	plain   bool
}

// defaultTheme provides the color palette used when stdout is a terminal.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"),
	Success: lipgloss.Color("#00D787"),
	Error:   lipgloss.Color("#FF005F"),
	Hint:    lipgloss.Color("#6C6C6C"),
}

// themeFor returns defaultTheme, or a colorless variant when w isn't an
// interactive terminal (piped output, redirected to a file, CI logs).
func themeFor(w *os.File) Theme {
	if !term.IsTerminal(int(w.Fd())) {
		return Theme{plain: true}
	}
	return defaultTheme
}

func (t Theme) style(c lipgloss.Color, bold bool) lipgloss.Style {
	if t.plain {
		return lipgloss.NewStyle()
	}
	s := lipgloss.NewStyle().Foreground(c)
	if bold {
		s = s.Bold(true)
	}
	return s
}

func (t Theme) statusStyle() lipgloss.Style  { return t.style(t.Status, false) }
func (t Theme) successStyle() lipgloss.Style { return t.style(t.Success, true) }
func (t Theme) errorStyle() lipgloss.Style   { return t.style(t.Error, true) }

func (t Theme) hintStyle() lipgloss.Style {
	if t.plain {
		return lipgloss.NewStyle()
	}
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}
