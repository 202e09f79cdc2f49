package tui

import (
	"context"
	"fmt"

	"veloscore/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SyncModel is the sync screen model
type SyncModel struct {
	syncService *service.SyncService
	syncing     bool
	result      *service.SyncResult
	err         error
	done        bool
}

// NewSyncModel creates a new sync model. syncService may be nil when Strava
// is not configured.
func NewSyncModel(ss *service.SyncService) SyncModel {
	return SyncModel{syncService: ss}
}

// Init initializes the sync screen
func (m SyncModel) Init() tea.Cmd {
	return nil
}

// SyncDoneMsg is sent when sync finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SyncDoneMsg:
		m.syncing = false
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, func() tea.Msg { return SyncCompleteMsg{} }

	case tea.KeyMsg:
		if !m.syncing && m.syncService != nil {
			switch msg.String() {
			case "enter", "s":
				m.syncing = true
				m.done = false
				m.err = nil
				m.result = nil
				return m, m.runSync
			}
		}
	}
	return m, nil
}

func (m SyncModel) runSync() tea.Msg {
	// Progress channel stays nil: a full sync is seconds, not minutes, and
	// an unread channel would block the service.
	result, err := m.syncService.SyncAll(context.Background(), nil)
	return SyncDoneMsg{Result: result, Err: err}
}

// View renders the sync screen
func (m SyncModel) View() string {
	var sections []string
	sections = append(sections, cardTitleStyle.Render("Strava Sync"))

	if m.syncService == nil {
		sections = append(sections, "\n  Strava is not connected.")
		sections = append(sections, statusStyle.Render("  Add your API credentials to ~/.veloscore/config.json and restart."))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)))
		sections = append(sections, "\n"+statusStyle.Render("  Press 's' or Enter to retry"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.done && !m.syncing {
		sections = append(sections, successStyle.Render("\n  Sync complete!"))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press '1' to view rides"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.syncing {
		sections = append(sections, "\n  Syncing with Strava...")
		sections = append(sections, statusStyle.Render("  Fetching rides and power streams. This may take a moment."))
	} else {
		sections = append(sections, m.renderStartPrompt())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SyncModel) renderStartPrompt() string {
	short, daily := m.syncService.RateLimitStatus()
	return "\n  This will sync your Strava rides:\n\n" +
		"  1. Fetch new power-meter rides\n" +
		"  2. Download 1Hz watt streams\n\n" +
		statusStyle.Render(fmt.Sprintf("  API limits: %d/100 (15min), %d/1000 (daily)", short, daily)) +
		"\n" + statusStyle.Render("  Press 's' or Enter to start sync")
}

func (m SyncModel) renderSummary() string {
	if m.result == nil {
		return ""
	}
	summary := fmt.Sprintf("\n  Rides fetched:   %d\n  Rides stored:    %d\n  Streams fetched: %d",
		m.result.RidesFetched, m.result.RidesStored, m.result.StreamsFetched)
	if len(m.result.Errors) > 0 {
		summary += warningStyle.Render(fmt.Sprintf("\n  Errors:          %d (first: %v)",
			len(m.result.Errors), m.result.Errors[0]))
	}
	return summary
}
