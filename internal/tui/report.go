package tui

import (
	"fmt"
	"strings"

	"veloscore/internal/compliance"
	"veloscore/internal/service"
	"veloscore/internal/store"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// ReportModel is the compliance report screen. It first asks which workout to
// score the ride against, then renders the cached or freshly computed report.
type ReportModel struct {
	store    *store.Store
	analysis *service.AnalysisService
	rideID   int64

	choosing bool
	workouts []store.Workout
	cursor   int

	report   *compliance.ComplianceReport
	steps    []compliance.PlannedStep
	actual   []compliance.PowerSample
	viewport viewport.Model
	loading  bool
	err      error
	width    int
	height   int
	ready    bool
}

// NewReportModel creates a report model for a ride.
func NewReportModel(st *store.Store, analysis *service.AnalysisService, rideID int64, width, height int) ReportModel {
	m := ReportModel{
		store:    st,
		analysis: analysis,
		rideID:   rideID,
		choosing: true,
		loading:  true,
		width:    width,
		height:   height,
	}
	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6)
		m.ready = true
	}
	return m
}

// Init initializes the report screen
func (m ReportModel) Init() tea.Cmd {
	return m.loadWorkouts
}

type reportWorkoutsMsg struct {
	workouts []store.Workout
	err      error
}

type reportReadyMsg struct {
	report *compliance.ComplianceReport
	steps  []compliance.PlannedStep
	actual []compliance.PowerSample
	err    error
}

func (m ReportModel) loadWorkouts() tea.Msg {
	workouts, err := m.store.ListWorkouts()
	return reportWorkoutsMsg{workouts: workouts, err: err}
}

func (m ReportModel) analyze(workoutID int64) tea.Cmd {
	return func() tea.Msg {
		report, err := m.analysis.AnalyzeRide(workoutID, m.rideID)
		if err != nil {
			return reportReadyMsg{err: err}
		}
		steps, err := m.analysis.WorkoutSteps(workoutID)
		if err != nil {
			return reportReadyMsg{err: err}
		}
		actual, err := m.store.GetPowerSamples(m.rideID)
		if err != nil {
			return reportReadyMsg{err: err}
		}
		return reportReadyMsg{report: report, steps: steps, actual: actual}
	}
}

// Update handles messages
func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case reportWorkoutsMsg:
		m.loading = false
		m.err = msg.err
		m.workouts = msg.workouts

	case reportReadyMsg:
		m.loading = false
		m.err = msg.err
		m.report = msg.report
		m.steps = msg.steps
		m.actual = msg.actual
		if m.ready && m.report != nil {
			m.viewport.SetContent(m.renderReport())
			m.viewport.GotoTop()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.report != nil {
			m.viewport.SetContent(m.renderReport())
		}

	case tea.KeyMsg:
		if m.choosing {
			switch msg.String() {
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(m.workouts)-1 {
					m.cursor++
				}
			case "enter":
				if len(m.workouts) > 0 && m.cursor < len(m.workouts) {
					m.choosing = false
					m.loading = true
					return m, m.analyze(m.workouts[m.cursor].ID)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the report screen
func (m ReportModel) View() string {
	if m.loading {
		if m.choosing {
			return "\n  Loading workouts..."
		}
		return "\n  Analyzing ride..."
	}
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)) +
			statusStyle.Render("\n\n  esc: back to rides")
	}

	if m.choosing {
		return m.renderPicker()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  esc: back  j/k or arrows: scroll")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m ReportModel) renderPicker() string {
	if len(m.workouts) == 0 {
		return "\n  No workouts in the library to score against.\n" +
			statusStyle.Render("\n  esc: back to rides")
	}

	var sections []string
	sections = append(sections, cardTitleStyle.Render("Score ride against which workout?"))

	for i, w := range m.workouts {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		row := fmt.Sprintf("%s%-30s  %8s  TSS %.0f",
			cursor, truncateName(w.Name, 30), formatDuration(w.TotalSeconds), w.PlannedTSS)
		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	sections = append(sections, statusStyle.Render("\n  enter: analyze  j/k: navigate  esc: back"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ReportModel) renderReport() string {
	r := m.report

	var sections []string
	sections = append(sections, m.renderOverall())
	sections = append(sections, m.renderChart())
	sections = append(sections, m.renderSegments())

	meta := fmt.Sprintf("  data quality: %s   algorithm: %s   computed in %dms",
		r.Metadata.DataQuality, r.Metadata.AlgorithmVersion, r.Metadata.AnalysisDurationMS)
	sections = append(sections, statusStyle.Render(meta))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ReportModel) renderOverall() string {
	o := m.report.Overall
	grade := scoreStyle(o.Score).Render(fmt.Sprintf("%s (%.1f)", o.Grade, o.Score))

	var lines []string
	lines = append(lines, cardTitleStyle.Render("Compliance Report"))
	lines = append(lines, fmt.Sprintf("  Overall: %s", grade))
	lines = append(lines, fmt.Sprintf("  Segments: %d completed, %d skipped",
		o.SegmentsCompleted, o.SegmentsSkipped))
	lines = append(lines, fmt.Sprintf("  Planned TSS: %.1f", compliance.WorkoutTSS(m.steps)))
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// renderChart plots actual power against the expanded plan target.
func (m ReportModel) renderChart() string {
	target, err := m.analysis.Analyzer().ExpandStepsToSeconds(m.steps)
	if err != nil || len(m.actual) < 3 {
		return ""
	}

	actual := make([]float64, len(m.actual))
	for i, s := range m.actual {
		actual[i] = s.Watts
	}

	const points = 60
	series := [][]float64{
		chartSeries(target, points),
		chartSeries(actual, points),
	}

	var lines []string
	lines = append(lines, sectionTitleStyle.Render("Power: planned vs ridden (W)"))
	lines = append(lines, asciigraph.PlotMany(series,
		asciigraph.Height(8),
		asciigraph.Width(64),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
	))
	lines = append(lines, statusStyle.Render("  blue: planned   red: ridden"))
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m ReportModel) renderSegments() string {
	var lines []string
	lines = append(lines, sectionTitleStyle.Render("Segments"))

	header := tableHeaderStyle.Render(fmt.Sprintf("%-3s %-10s %9s %9s %7s %7s %6s %-10s",
		"#", "Type", "Plan W", "Avg W", "Zone", "Dur", "Score", "Quality"))
	lines = append(lines, header)

	for _, seg := range m.report.Segments {
		if seg.MatchQuality == compliance.QualitySkipped {
			row := fmt.Sprintf("%-3d %-10s %9s %9s %7s %7s %6s %-10s",
				seg.SegmentIndex+1, seg.Type, planBand(seg), "-", "-", "-", "-", "skipped")
			lines = append(lines, errorStyle.Render(" "+row))
			continue
		}

		row := fmt.Sprintf("%-3d %-10s %9s %9.0f %7s %7s %5.0f  %-10s",
			seg.SegmentIndex+1,
			seg.Type,
			planBand(seg),
			seg.ActualAvgPowerWatts,
			seg.ActualDominantZone,
			formatDuration(seg.ActualDurationSeconds),
			seg.OverallSegmentScore,
			seg.MatchQuality,
		)
		lines = append(lines, scoreStyle(seg.OverallSegmentScore).Render(" "+row))

		if seg.Assessment != "" {
			lines = append(lines, statusStyle.Render("      "+seg.Assessment))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// planBand formats the planned watt band for a segment row.
func planBand(seg compliance.SegmentAnalysis) string {
	if seg.PlannedPowerLowWatts == seg.PlannedPowerHighWatts {
		return fmt.Sprintf("%.0f", seg.PlannedPowerLowWatts)
	}
	return fmt.Sprintf("%.0f-%.0f", seg.PlannedPowerLowWatts, seg.PlannedPowerHighWatts)
}

// chartSeries block-averages a watt sequence down to at most n points.
func chartSeries(data []float64, n int) []float64 {
	if len(data) <= n {
		out := make([]float64, len(data))
		copy(out, data)
		return out
	}
	block := len(data) / n
	out := make([]float64, 0, n)
	for i := 0; i+block <= len(data); i += block {
		sum := 0.0
		for _, v := range data[i : i+block] {
			sum += v
		}
		out = append(out, sum/float64(block))
	}
	return out
}
