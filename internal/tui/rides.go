package tui

import (
	"fmt"

	"veloscore/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// RidesModel is the ride list screen model
type RidesModel struct {
	store   *store.Store
	rides   []store.Ride
	scores  map[int64]string // ride ID -> best cached "score grade"
	cursor  int
	loading bool
	err     error
}

// NewRidesModel creates a new rides model
func NewRidesModel(st *store.Store) RidesModel {
	return RidesModel{store: st, loading: true}
}

// Init initializes the rides screen
func (m RidesModel) Init() tea.Cmd {
	return m.load
}

type ridesLoadedMsg struct {
	rides  []store.Ride
	scores map[int64]string
	err    error
}

func (m RidesModel) load() tea.Msg {
	rides, err := m.store.ListRides(100)
	if err != nil {
		return ridesLoadedMsg{err: err}
	}

	scores := make(map[int64]string)
	for _, r := range rides {
		reports, err := m.store.ListReportsForRide(r.ID)
		if err != nil || len(reports) == 0 {
			continue
		}
		best := reports[0]
		for _, rep := range reports[1:] {
			if rep.Score > best.Score {
				best = rep
			}
		}
		scores[r.ID] = fmt.Sprintf("%3.0f %s", best.Score, best.Grade)
	}

	return ridesLoadedMsg{rides: rides, scores: scores}
}

// Update handles messages
func (m RidesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case ridesLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.rides = msg.rides
		m.scores = msg.scores
		if m.cursor >= len(m.rides) {
			m.cursor = 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.rides)-1 {
				m.cursor++
			}
		case "r":
			m.loading = true
			return m, m.load
		case "enter":
			if len(m.rides) > 0 && m.cursor < len(m.rides) {
				rideID := m.rides[m.cursor].ID
				return m, func() tea.Msg {
					return OpenReportMsg{RideID: rideID}
				}
			}
		}
	}
	return m, nil
}

// View renders the ride list
func (m RidesModel) View() string {
	if m.loading {
		return "\n  Loading rides..."
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}
	if len(m.rides) == 0 {
		return "\n  No rides yet. Press '3' to sync with Strava or import a FIT file."
	}

	var sections []string
	sections = append(sections, cardTitleStyle.Render(fmt.Sprintf("Rides (%d)", len(m.rides))))

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-12s  %-28s  %8s  %6s  %6s  %7s",
		"Date", "Name", "Duration", "Avg W", "NP", "Score"))
	sections = append(sections, header)

	for i, r := range m.rides {
		avg := "-"
		if r.AvgPower != nil {
			avg = fmt.Sprintf("%.0f", *r.AvgPower)
		}
		np := "-"
		if r.NormalizedPower != nil {
			np = fmt.Sprintf("%.0f", *r.NormalizedPower)
		}
		score := m.scores[r.ID]
		if score == "" {
			score = "-"
		}

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-12s  %-28s  %8s  %6s  %6s  %7s",
			cursor,
			humanize.Time(r.StartTime),
			truncateName(r.Name, 28),
			formatDuration(r.DurationSeconds),
			avg,
			np,
			score,
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	sections = append(sections, statusStyle.Render("\n  enter: score against a workout  j/k: navigate  r: refresh"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// truncateName shortens a name to fit a column
func truncateName(name string, max int) string {
	if len(name) <= max {
		return name
	}
	return name[:max-1] + "…"
}

// formatDuration renders seconds as h:mm:ss or m:ss
func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
