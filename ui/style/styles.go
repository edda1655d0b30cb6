package style

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles holds all the lipgloss styles for the terminal front ends.
type Styles struct {
	// Layout
	StatusBar lipgloss.Style

	// Status indicators
	StatusConnected lipgloss.Style
	StatusClosing   lipgloss.Style
	StatusClosed    lipgloss.Style
	StatusLive      lipgloss.Style
	StatusScrolled  lipgloss.Style

	// Input
	InputPrompt lipgloss.Style
	InputText   lipgloss.Style

	// Scrollback lines
	Echo   lipgloss.Style
	Error  lipgloss.Style
	Notice lipgloss.Style
	Muted  lipgloss.Style
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return New(lipgloss.DefaultRenderer())
}

// New builds the styles for a specific renderer, so colors follow the
// capabilities of the writer the renderer was made for.
func New(r *lipgloss.Renderer) Styles {
	return Styles{
		StatusBar: r.NewStyle().
			Foreground(lipgloss.Color("252")),

		// Status indicators - subtle colors
		StatusConnected: r.NewStyle().
			Foreground(lipgloss.Color("71")), // Muted green
		StatusClosing: r.NewStyle().
			Foreground(lipgloss.Color("179")), // Muted yellow
		StatusClosed: r.NewStyle().
			Foreground(lipgloss.Color("243")), // Gray
		StatusLive: r.NewStyle().
			Foreground(lipgloss.Color("243")),
		StatusScrolled: r.NewStyle().
			Foreground(lipgloss.Color("179")),

		// Input
		InputPrompt: r.NewStyle().
			Foreground(lipgloss.Color("2")).
			Bold(true),
		InputText: r.NewStyle(),

		Echo: r.NewStyle().
			Foreground(lipgloss.Color("2")),
		Error: r.NewStyle().
			Foreground(lipgloss.Color("1")),
		Notice: r.NewStyle().
			Foreground(lipgloss.Color("220")),
		Muted: r.NewStyle().
			Foreground(lipgloss.Color("240")),
	}
}
