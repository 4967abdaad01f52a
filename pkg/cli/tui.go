package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for reports.
type Theme struct {
	Primary lipgloss.Color // borders and labels
	Dim     lipgloss.Color // secondary text
	Good    lipgloss.Color
	Bad     lipgloss.Color
	Warn    lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Good:    lipgloss.Color("#3fb950"),
	Bad:     lipgloss.Color("#f85149"),
	Warn:    lipgloss.Color("#d29922"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title  lipgloss.Style
	Label  lipgloss.Style
	Border lipgloss.Style
	Help   lipgloss.Style
	Good   lipgloss.Style
	Bad    lipgloss.Style
	Warn   lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary).Padding(0, 1),
		Label:  lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Border: lipgloss.NewStyle().Foreground(t.Primary),
		Help:   lipgloss.NewStyle().Foreground(t.Dim),
		Good:   lipgloss.NewStyle().Bold(true).Foreground(t.Good),
		Bad:    lipgloss.NewStyle().Bold(true).Foreground(t.Bad),
		Warn:   lipgloss.NewStyle().Foreground(t.Warn),
	}
}

// Section is a labeled block of lines.
type Section struct {
	Label string
	Lines []string
}

// Frame renders a bordered report with a title, a status tag and
// labeled sections.
type Frame struct {
	Styles   Styles
	Title    string
	Status   string
	Sections []Section
	Help     string
}

// Render renders the frame to a string of the given width. Sections are
// as tall as their content; lines wider than the frame are truncated.
func (f Frame) Render(width int) string {
	width = max(width, 20)
	bc := f.Styles.Border
	maxContentWidth := width - 4

	var lines []string
	lines = append(lines, bc.Render("╭"+strings.Repeat("─", width-2)+"╮"))

	// │ title [status]    │
	title := f.Styles.Title.Render(f.Title)
	status := ""
	if f.Status != "" {
		status = f.Styles.Help.Render("[" + f.Status + "]")
	}
	padding := max(0, width-5-lipgloss.Width(title)-lipgloss.Width(status))
	lines = append(lines, bc.Render("│")+" "+title+" "+status+
		strings.Repeat(" ", padding)+" "+bc.Render("│"))

	for _, sec := range f.Sections {
		lines = append(lines, f.renderSection(bc, sec, width, maxContentWidth)...)
	}

	lines = append(lines, bc.Render("╰"+strings.Repeat("─", width-2)+"╯"))
	if f.Help != "" {
		lines = append(lines, f.Styles.Help.Render(f.Help))
	}
	return strings.Join(lines, "\n")
}

// renderSection renders a single section with embedded label.
func (f Frame) renderSection(bc lipgloss.Style, sec Section, width, maxContentWidth int) []string {
	// ├─Label────────┤
	labelText := f.Styles.Label.Render(sec.Label)
	padding := max(0, width-3-lipgloss.Width(labelText))
	lines := []string{bc.Render("├") + bc.Render("─") + labelText +
		bc.Render(strings.Repeat("─", padding)) + bc.Render("┤")}

	for _, text := range sec.Lines {
		if lipgloss.Width(text) > maxContentWidth {
			text = truncateString(text, maxContentWidth-1) + "…"
		}
		lines = append(lines, bc.Render("│")+" "+text+
			strings.Repeat(" ", max(0, maxContentWidth-lipgloss.Width(text)))+" "+bc.Render("│"))
	}
	return lines
}

// truncateString safely truncates a string to the given width,
// handling multi-byte characters correctly.
func truncateString(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	currentWidth := 0
	for i, r := range runes {
		w := lipgloss.Width(string(r))
		if currentWidth+w > width {
			return string(runes[:i])
		}
		currentWidth += w
	}
	return s
}

// Bar renders value in [0, 1] as a fixed-width meter.
func Bar(value float64, width int) string {
	value = min(max(value, 0), 1)
	filled := int(value*float64(width) + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
