package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/oauth2"

	tea "github.com/charmbracelet/bubbletea"

	"veloscore/internal/auth"
	"veloscore/internal/compliance"
	"veloscore/internal/config"
	"veloscore/internal/fitfile"
	"veloscore/internal/service"
	"veloscore/internal/store"
	"veloscore/internal/strava"
	"veloscore/internal/tui"
	"veloscore/internal/workout"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var (
		workoutPath   = flag.String("workout", "", "workout file (.yaml/.zwo) for one-shot analysis")
		fitPath       = flag.String("fit", "", "FIT activity file for one-shot analysis")
		jsonOut       = flag.Bool("json", false, "print the one-shot report as JSON")
		ftpOverride   = flag.Float64("ftp", 0, "override the configured FTP in watts")
		importWorkout = flag.String("import-workout", "", "import a workout file into the library and exit")
		importFit     = flag.String("import-fit", "", "import a FIT activity into the database and exit")
	)
	flag.Parse()

	// One-shot mode needs no database and no Strava credentials
	if *workoutPath != "" || *fitPath != "" {
		if *workoutPath == "" || *fitPath == "" {
			return errors.New("one-shot analysis needs both -workout and -fit")
		}
		return analyzeOnce(*workoutPath, *fitPath, *ftpOverride, *jsonOut)
	}

	cfg, err := loadConfig()
	if err != nil || cfg == nil {
		return err
	}
	if *ftpOverride > 0 {
		cfg.Athlete.FTPWatts = *ftpOverride
	}

	st, err := store.Open()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	analysisSvc := service.NewAnalysisService(st, cfg.Athlete, cfg.Analysis)

	if *importWorkout != "" {
		w, err := analysisSvc.ImportWorkout(*importWorkout)
		if err != nil {
			return fmt.Errorf("importing workout: %w", err)
		}
		fmt.Printf("Imported workout %q (%s, TSS %.1f)\n", w.Name, formatDuration(w.TotalSeconds), w.PlannedTSS)
		return nil
	}
	if *importFit != "" {
		r, err := analysisSvc.ImportRide(*importFit)
		if err != nil {
			return fmt.Errorf("importing ride: %w", err)
		}
		fmt.Printf("Imported ride %q (%s)\n", r.Name, formatDuration(r.DurationSeconds))
		return nil
	}

	// Strava is optional; without credentials the TUI runs on imported rides
	var syncSvc *service.SyncService
	if cfg.Strava.ClientID != "" && cfg.Strava.ClientID != "YOUR_CLIENT_ID" {
		tokenSource, err := connectStrava(context.Background(), st, cfg)
		if err != nil {
			return err
		}
		syncSvc = service.NewSyncService(strava.NewClient(tokenSource), st)
	}

	app := tui.NewApp(st, analysisSvc, syncSvc)
	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

// loadConfig loads the config, creating an example on first run. A nil config
// with nil error means "printed instructions, exit cleanly".
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(); err != nil {
			return nil, fmt.Errorf("creating example config: %w", err)
		}
		configDir, _ := config.GetConfigDir()
		fmt.Printf("\nPlease edit the config file at:\n  %s/config.json\n\n", configDir)
		fmt.Println("Set athlete.ftp_watts, and add Strava API credentials if you")
		fmt.Println("want ride sync: https://www.strava.com/settings/api")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Athlete.FTPWatts <= 0 {
		return nil, errors.New("config: athlete.ftp_watts must be set")
	}
	return cfg, nil
}

// connectStrava validates stored tokens, running the browser OAuth flow when
// there are none or they no longer refresh.
func connectStrava(ctx context.Context, st *store.Store, cfg *config.Config) (oauth2.TokenSource, error) {
	oauthCfg := auth.NewOAuthConfig(auth.Credentials{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
	}, fmt.Sprintf("http://localhost:%d/callback", auth.CallbackPort))

	storedAuth, err := st.GetAuth()
	if errors.Is(err, store.ErrNoAuth) {
		fmt.Println("No Strava authentication found. Starting OAuth flow...")
		if storedAuth, err = authorize(ctx, st, oauthCfg); err != nil {
			return nil, fmt.Errorf("authentication: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking auth: %w", err)
	}

	tokenSource := auth.NewTokenSource(oauthCfg, &oauth2.Token{
		AccessToken:  storedAuth.AccessToken,
		RefreshToken: storedAuth.RefreshToken,
		Expiry:       storedAuth.ExpiresAt,
	}, func(t *oauth2.Token) error {
		return st.UpdateTokens(t.AccessToken, t.RefreshToken, t.Expiry)
	})

	if _, err := tokenSource.Token(); err != nil {
		fmt.Println("Stored token is invalid or expired. Re-authenticating...")
		if storedAuth, err = authorize(ctx, st, oauthCfg); err != nil {
			return nil, fmt.Errorf("re-authentication: %w", err)
		}
		tokenSource = auth.NewTokenSource(oauthCfg, &oauth2.Token{
			AccessToken:  storedAuth.AccessToken,
			RefreshToken: storedAuth.RefreshToken,
			Expiry:       storedAuth.ExpiresAt,
		}, func(t *oauth2.Token) error {
			return st.UpdateTokens(t.AccessToken, t.RefreshToken, t.Expiry)
		})
	}

	return tokenSource, nil
}

func authorize(ctx context.Context, st *store.Store, oauthCfg *oauth2.Config) (*store.Auth, error) {
	result, err := auth.Authorize(ctx, oauthCfg)
	if err != nil {
		return nil, err
	}

	storedAuth := &store.Auth{
		AthleteID:    result.AthleteID,
		AccessToken:  result.Token.AccessToken,
		RefreshToken: result.Token.RefreshToken,
		ExpiresAt:    result.Token.Expiry,
	}
	if err := st.SaveAuth(storedAuth); err != nil {
		return nil, fmt.Errorf("saving auth: %w", err)
	}

	fmt.Println()
	fmt.Printf("Successfully authenticated as athlete %d!\n", result.AthleteID)
	return storedAuth, nil
}

// analyzeOnce scores a FIT ride against a workout file and prints the report.
func analyzeOnce(workoutPath, fitPath string, ftpOverride float64, jsonOut bool) error {
	ftp := ftpOverride
	if ftp <= 0 {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("no -ftp given and config unavailable: %w", err)
		}
		ftp = cfg.Athlete.FTPWatts
	}
	if ftp <= 0 {
		return errors.New("FTP is required: pass -ftp or set athlete.ftp_watts")
	}

	w, err := workout.LoadFile(workoutPath)
	if err != nil {
		return fmt.Errorf("loading workout: %w", err)
	}
	ride, err := fitfile.DecodeFile(fitPath)
	if err != nil {
		return fmt.Errorf("decoding FIT file: %w", err)
	}

	analyzer := compliance.NewAnalyzer(ftp)
	aligned, err := analyzer.AlignSteps(w.Steps, ride.Samples)
	if err != nil {
		return err
	}
	report, err := analyzer.AnalyzeWithAlignedSeries(w.Steps, aligned)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(w, ride, report)
	return nil
}

func printReport(w *workout.Workout, ride *fitfile.Ride, report *compliance.ComplianceReport) {
	fmt.Printf("Workout:  %s (%s, TSS %.1f)\n", w.Name, formatDuration(w.TotalSeconds()), w.TSS())
	fmt.Printf("Ride:     %s (%s, NP %.0fW)\n", ride.Name, formatDuration(ride.DurationSeconds), ride.NormalizedPower)
	fmt.Printf("Overall:  %s (%.1f)  %d completed, %d skipped\n\n",
		report.Overall.Grade, report.Overall.Score,
		report.Overall.SegmentsCompleted, report.Overall.SegmentsSkipped)

	fmt.Printf("%-3s %-10s %10s %8s %6s %8s %7s %-10s\n",
		"#", "Type", "Plan W", "Avg W", "Zone", "Dur", "Score", "Quality")
	for _, seg := range report.Segments {
		if seg.MatchQuality == compliance.QualitySkipped {
			fmt.Printf("%-3d %-10s %6.0f-%.0f %8s %6s %8s %7s %-10s\n",
				seg.SegmentIndex+1, seg.Type,
				seg.PlannedPowerLowWatts, seg.PlannedPowerHighWatts,
				"-", "-", "-", "-", "skipped")
			continue
		}
		fmt.Printf("%-3d %-10s %6.0f-%.0f %8.0f %6s %8s %6.0f  %-10s\n",
			seg.SegmentIndex+1, seg.Type,
			seg.PlannedPowerLowWatts, seg.PlannedPowerHighWatts,
			seg.ActualAvgPowerWatts, seg.ActualDominantZone,
			formatDuration(seg.ActualDurationSeconds),
			seg.OverallSegmentScore, seg.MatchQuality)
	}

	fmt.Printf("\nData quality: %s  (%s)\n", report.Metadata.DataQuality, report.Metadata.AlgorithmVersion)
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
