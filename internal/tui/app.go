// Package tui is the Bubble Tea terminal interface: workout library, ride
// list, compliance reports, and the Strava sync screen.
package tui

import (
	"veloscore/internal/service"
	"veloscore/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen identifiers
type Screen int

const (
	ScreenRides Screen = iota
	ScreenWorkouts
	ScreenReport
	ScreenSync
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	rides    RidesModel
	workouts WorkoutsModel
	report   ReportModel
	sync     SyncModel
	help     HelpModel

	store    *store.Store
	analysis *service.AnalysisService
	syncSvc  *service.SyncService

	width  int
	height int
}

// NewApp creates a new App with all dependencies. syncSvc may be nil when
// Strava is not connected; the sync screen then shows setup instructions.
func NewApp(st *store.Store, analysis *service.AnalysisService, syncSvc *service.SyncService) *App {
	return &App{
		screen:   ScreenRides,
		store:    st,
		analysis: analysis,
		syncSvc:  syncSvc,
		rides:    NewRidesModel(st),
		workouts: NewWorkoutsModel(st),
		sync:     NewSyncModel(syncSvc),
		help:     NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.rides.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings, suspended while a sync is running
		if a.screen != ScreenSync || !a.sync.syncing {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenRides
				return a, a.rides.Init()
			case "2":
				a.screen = ScreenWorkouts
				return a, a.workouts.Init()
			case "3", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.sync.Init()
				}
			case "?":
				a.prevScreen = a.screen
				a.screen = ScreenHelp
				return a, nil
			case "esc":
				switch a.screen {
				case ScreenHelp:
					a.screen = a.prevScreen
					return a, nil
				case ScreenReport:
					a.screen = ScreenRides
					return a, a.rides.Init()
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case OpenReportMsg:
		a.screen = ScreenReport
		a.report = NewReportModel(a.store, a.analysis, msg.RideID, a.width, a.height)
		return a, a.report.Init()

	case SyncCompleteMsg:
		a.screen = ScreenRides
		return a, a.rides.Init()
	}

	var cmd tea.Cmd
	switch a.screen {
	case ScreenRides:
		var m tea.Model
		m, cmd = a.rides.Update(msg)
		a.rides = m.(RidesModel)
	case ScreenWorkouts:
		var m tea.Model
		m, cmd = a.workouts.Update(msg)
		a.workouts = m.(WorkoutsModel)
	case ScreenReport:
		var m tea.Model
		m, cmd = a.report.Update(msg)
		a.report = m.(ReportModel)
	case ScreenSync:
		var m tea.Model
		m, cmd = a.sync.Update(msg)
		a.sync = m.(SyncModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	header := headerStyle.Render("VeloScore - Workout Compliance")
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenRides:
		content = a.rides.View()
	case ScreenWorkouts:
		content = a.workouts.View()
	case ScreenReport:
		content = a.report.View()
	case ScreenSync:
		content = a.sync.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content)
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Rides", ScreenRides},
		{"2", "Workouts", ScreenWorkouts},
		{"3", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}
		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}
	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

// OpenReportMsg asks the app to open the compliance report screen for a ride.
type OpenReportMsg struct {
	RideID int64
}

// SyncCompleteMsg is sent when sync finishes
type SyncCompleteMsg struct{}
