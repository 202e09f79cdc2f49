package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// HelpModel is the help screen model
type HelpModel struct{}

// NewHelpModel creates a new help model
func NewHelpModel() HelpModel {
	return HelpModel{}
}

// Init initializes the help screen
func (m HelpModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m HelpModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m, nil
}

// View renders the help screen
func (m HelpModel) View() string {
	var sections []string

	sections = append(sections, cardTitleStyle.Render("Keyboard Shortcuts"))

	sections = append(sections, m.renderSection("Navigation", []keyHelp{
		{"1", "Ride list"},
		{"2", "Workout library"},
		{"3 or s", "Sync screen"},
		{"?", "Help (this screen)"},
		{"q", "Quit"},
		{"esc", "Back / close help"},
	}))

	sections = append(sections, m.renderSection("Ride List", []keyHelp{
		{"j / down", "Move cursor down"},
		{"k / up", "Move cursor up"},
		{"enter", "Score ride against a workout"},
		{"r", "Refresh list"},
	}))

	sections = append(sections, m.renderSection("Report", []keyHelp{
		{"j / k", "Scroll"},
		{"esc", "Back to rides"},
	}))

	sections = append(sections, m.renderSection("Sync Screen", []keyHelp{
		{"s / enter", "Start sync"},
	}))

	sections = append(sections, m.renderScoringHelp())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

type keyHelp struct {
	key  string
	desc string
}

func (m HelpModel) renderSection(title string, keys []keyHelp) string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, sectionTitleStyle.Render(title))

	for _, k := range keys {
		lines = append(lines, "  "+RenderKeyHelp(k.key, k.desc))
	}

	return strings.Join(lines, "\n")
}

func (m HelpModel) renderScoringHelp() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, sectionTitleStyle.Render("Scoring Explained"))
	lines = append(lines, "")

	items := []struct {
		name string
		desc string
	}{
		{"Power compliance", "How closely ridden power stayed inside the planned band."},
		{"Zone compliance", "Whether the dominant zone matched the planned zone."},
		{"Duration compliance", "Ridden vs planned segment length."},
		{"Segment score", "Weighted blend: 50% power, 30% zone, 20% duration."},
		{"Grade", "A >= 90, B >= 80, C >= 70, D >= 60, else F."},
		{"Skipped", "Segment with no aligned riding; excluded from the overall score."},
	}

	for _, it := range items {
		lines = append(lines, "  "+helpKeyStyle.Render(it.name))
		lines = append(lines, "  "+helpDescStyle.Render(it.desc))
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n")
}
