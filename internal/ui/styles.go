// Package ui renders search responses for the terminal.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette - single lime accent over grays.
const (
	ColorLime     = "154" // Primary accent - bright lime green
	ColorLimeDim  = "106" // Dimmed lime for secondary accents
	ColorWhite    = "255" // Headers, important text
	ColorGray     = "245" // Secondary text, labels
	ColorDarkGray = "238" // Separators
	ColorRed      = "196" // Errors, rank drops
	ColorYellow   = "220" // Warnings
)

// Styles holds the rendering styles.
type Styles struct {
	Header     lipgloss.Style
	Title      lipgloss.Style
	Score      lipgloss.Style
	Label      lipgloss.Style
	Dim        lipgloss.Style
	Up         lipgloss.Style
	Down       lipgloss.Style
	Warning    lipgloss.Style
	Error      lipgloss.Style
	CaseID     lipgloss.Style
	Provenance lipgloss.Style
}

// DefaultStyles returns styled components for color terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Title:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Score:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLimeDim)),
		Label:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Dim:        lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Up:         lipgloss.NewStyle().Foreground(lipgloss.Color(ColorLime)),
		Down:       lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Warning:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		CaseID:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)),
		Provenance: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
	}
}

// NoColorStyles returns unstyled components for plain output.
func NoColorStyles() Styles {
	return Styles{
		Header:     lipgloss.NewStyle(),
		Title:      lipgloss.NewStyle(),
		Score:      lipgloss.NewStyle(),
		Label:      lipgloss.NewStyle(),
		Dim:        lipgloss.NewStyle(),
		Up:         lipgloss.NewStyle(),
		Down:       lipgloss.NewStyle(),
		Warning:    lipgloss.NewStyle(),
		Error:      lipgloss.NewStyle(),
		CaseID:     lipgloss.NewStyle(),
		Provenance: lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	if w == nil {
		return false
	}
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// DetectNoColor checks if the NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}
