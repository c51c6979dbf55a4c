// Package style holds the colors and icons shared by the terminal output.
package style

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	Indigo = lipgloss.Color("#6366F1")
	Slate  = lipgloss.Color("#667085")
	Green  = lipgloss.Color("#22A06B")
	Red    = lipgloss.Color("#D93025")
	Yellow = lipgloss.Color("#F59E0B")
)

// Icons.
const (
	Check   = "✓"
	Cross   = "✗"
	Warning = "!"
	Arrow   = "→"
)
