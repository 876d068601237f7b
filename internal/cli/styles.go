package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	colorPass   = lipgloss.AdaptiveColor{Light: "#86b300", Dark: "#c2d94c"}
	colorWarn   = lipgloss.AdaptiveColor{Light: "#f2ae49", Dark: "#ffb454"}
	colorMuted  = lipgloss.AdaptiveColor{Light: "#828c99", Dark: "#6c7680"}
	colorAccent = lipgloss.AdaptiveColor{Light: "#399ee6", Dark: "#59c2ff"}

	styleTitle  = lipgloss.NewStyle().Bold(true)
	styleOK     = lipgloss.NewStyle().Foreground(colorPass).Bold(true)
	styleWarn   = lipgloss.NewStyle().Foreground(colorWarn).Bold(true)
	styleDim    = lipgloss.NewStyle().Foreground(colorMuted)
	styleAccent = lipgloss.NewStyle().Foreground(colorAccent)
)

// configureColor picks the lipgloss colour profile for out. Colours are
// off for --json, NO_COLOR and anything that is not a terminal.
func configureColor(out io.Writer, plain bool) {
	if plain || !isTerminal(out) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.TrueColor)
	lipgloss.SetHasDarkBackground(termenv.HasDarkBackground())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
