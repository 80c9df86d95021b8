package console

import (
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Colors
//
//nolint:gochecknoglobals // Read-only palette.
var (
	colorPrimary   = lipgloss.Color("63")
	colorUser      = lipgloss.Color("39")
	colorAssistant = lipgloss.Color("213")
	colorTool      = lipgloss.Color("214")
	colorError     = lipgloss.Color("196")
	colorMuted     = lipgloss.Color("241")
)

// styles holds the lipgloss styles bound to one output.
type styles struct {
	banner    lipgloss.Style
	prompt    lipgloss.Style
	assistant lipgloss.Style
	tool      lipgloss.Style
	muted     lipgloss.Style
	heading   lipgloss.Style
	err       lipgloss.Style
}

// newStyles binds styles to out so colors are dropped when out is not a terminal.
func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)

	return styles{
		banner:    r.NewStyle().Foreground(colorPrimary).Bold(true),
		prompt:    r.NewStyle().Foreground(colorUser).Bold(true),
		assistant: r.NewStyle().Foreground(colorAssistant).Bold(true),
		tool:      r.NewStyle().Foreground(colorTool),
		muted:     r.NewStyle().Foreground(colorMuted),
		heading:   r.NewStyle().Foreground(colorPrimary).Bold(true),
		err:       r.NewStyle().Foreground(colorError).Bold(true),
	}
}

// newMarkdownRenderer creates a glamour renderer wrapping at width.
func newMarkdownRenderer(width int) (*glamour.TermRenderer, error) {
	return glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
}
