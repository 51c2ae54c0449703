package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	red        = lipgloss.Color("#FF2442")
	pink       = lipgloss.Color("#FF6F91")
	green      = lipgloss.Color("#39D353")
	yellow     = lipgloss.Color("#FFD23F")
	orange     = lipgloss.Color("#FF8C42")
	cyan       = lipgloss.Color("#4CC9F0")
	dimGray    = lipgloss.Color("#8A8A8A")
	emptyGray  = lipgloss.Color("#3A3A3A")
	brightText = lipgloss.Color("#FFFFFF")
)

// styles are bound to one renderer so color detection follows the writer
// being printed to, not os.Stdout
type styles struct {
	title    lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	dim      lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	failure  lipgloss.Style
	accent   lipgloss.Style
	panel    lipgloss.Style
	barFull  lipgloss.Style
	barEmpty lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().
			Background(red).
			Foreground(brightText).
			Bold(true).
			Padding(0, 1),
		label: r.NewStyle().
			Foreground(cyan).
			Bold(true),
		value: r.NewStyle().
			Foreground(yellow),
		dim: r.NewStyle().
			Foreground(dimGray),
		success: r.NewStyle().
			Foreground(green).
			Bold(true),
		warning: r.NewStyle().
			Foreground(orange).
			Bold(true),
		failure: r.NewStyle().
			Foreground(red).
			Bold(true),
		accent: r.NewStyle().
			Foreground(pink),
		panel: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		barFull: r.NewStyle().
			Foreground(green),
		barEmpty: r.NewStyle().
			Foreground(emptyGray),
	}
}
