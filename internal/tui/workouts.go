package tui

import (
	"fmt"

	"veloscore/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// WorkoutsModel is the workout library screen model
type WorkoutsModel struct {
	store    *store.Store
	workouts []store.Workout
	cursor   int
	loading  bool
	err      error
}

// NewWorkoutsModel creates a new workouts model
func NewWorkoutsModel(st *store.Store) WorkoutsModel {
	return WorkoutsModel{store: st, loading: true}
}

// Init initializes the workouts screen
func (m WorkoutsModel) Init() tea.Cmd {
	return m.load
}

type workoutsLoadedMsg struct {
	workouts []store.Workout
	err      error
}

func (m WorkoutsModel) load() tea.Msg {
	workouts, err := m.store.ListWorkouts()
	return workoutsLoadedMsg{workouts: workouts, err: err}
}

// Update handles messages
func (m WorkoutsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case workoutsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.workouts = msg.workouts
		if m.cursor >= len(m.workouts) {
			m.cursor = 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.workouts)-1 {
				m.cursor++
			}
		case "r":
			m.loading = true
			return m, m.load
		}
	}
	return m, nil
}

// View renders the workout library
func (m WorkoutsModel) View() string {
	if m.loading {
		return "\n  Loading workouts..."
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}
	if len(m.workouts) == 0 {
		return "\n  No workouts in the library. Import one with:\n\n" +
			"    veloscore -import-workout path/to/workout.yaml"
	}

	var sections []string
	sections = append(sections, cardTitleStyle.Render(fmt.Sprintf("Workout Library (%d)", len(m.workouts))))

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-30s  %8s  %6s  %-28s",
		"Name", "Duration", "TSS", "Description"))
	sections = append(sections, header)

	for i, w := range m.workouts {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-30s  %8s  %6.1f  %-28s",
			cursor,
			truncateName(w.Name, 30),
			formatDuration(w.TotalSeconds),
			w.PlannedTSS,
			truncateName(w.Description, 28),
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	sections = append(sections, statusStyle.Render("\n  j/k: navigate  r: refresh"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
