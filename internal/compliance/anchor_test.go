package compliance

import "testing"

// flat appends n copies of watts.
func flat(dst []float64, n int, watts float64) []float64 {
	for i := 0; i < n; i++ {
		dst = append(dst, watts)
	}
	return dst
}

func TestDetectAnchor(t *testing.T) {
	cfg := DefaultAnchorConfig()

	t.Run("finds the first sustained effort after a warmup", func(t *testing.T) {
		var seq []float64
		seq = flat(seq, 300, 140)  // warmup
		seq = flat(seq, 480, 260)  // threshold block
		seq = flat(seq, 300, 140)  // recovery
		seq = flat(seq, 480, 260)  // second block
		if got := detectAnchor(seq, cfg); got != 300 {
			t.Errorf("detectAnchor = %d, want 300", got)
		}
	})

	t.Run("ignores a spike shorter than the minimum run", func(t *testing.T) {
		var seq []float64
		seq = flat(seq, 200, 140)
		seq = flat(seq, 20, 300) // sprint out of a corner, not the main set
		seq = flat(seq, 180, 140)
		seq = flat(seq, 480, 260)
		if got := detectAnchor(seq, cfg); got != 400 {
			t.Errorf("detectAnchor = %d, want 400", got)
		}
	})

	t.Run("steady ride anchors at the start", func(t *testing.T) {
		// steady power: p90 == every sample, and the whole ride "qualifies",
		// so the effort run starts immediately
		seq := flat(nil, 1200, 200)
		if got := detectAnchor(seq, cfg); got != 0 {
			t.Errorf("detectAnchor = %d, want 0", got)
		}
	})

	t.Run("no anchor when the effort starts past the search window", func(t *testing.T) {
		var seq []float64
		seq = flat(seq, cfg.SearchWindowSeconds+60, 140)
		seq = flat(seq, 480, 260)
		if got := detectAnchor(seq, cfg); got != NoAnchor {
			t.Errorf("detectAnchor = %d, want NoAnchor", got)
		}
	})

	t.Run("run started inside the window may finish past it", func(t *testing.T) {
		var seq []float64
		seq = flat(seq, cfg.SearchWindowSeconds-10, 140)
		seq = flat(seq, 480, 260)
		if got := detectAnchor(seq, cfg); got != cfg.SearchWindowSeconds-10 {
			t.Errorf("detectAnchor = %d, want %d", got, cfg.SearchWindowSeconds-10)
		}
	})

	t.Run("empty sequence", func(t *testing.T) {
		if got := detectAnchor(nil, cfg); got != NoAnchor {
			t.Errorf("detectAnchor(nil) = %d, want NoAnchor", got)
		}
	})

	t.Run("all-zero power", func(t *testing.T) {
		seq := flat(nil, 600, 0)
		if got := detectAnchor(seq, cfg); got != NoAnchor {
			t.Errorf("detectAnchor(zeros) = %d, want NoAnchor", got)
		}
	})
}

func TestFindIntervalAnchorsIndependent(t *testing.T) {
	a := NewAnalyzer(250)

	var planned []float64
	planned = flat(planned, 300, 150)
	planned = flat(planned, 600, 260)

	// rider skipped the warmup entirely
	var actual []float64
	actual = flat(actual, 600, 255)

	pa, aa := a.FindIntervalAnchors(planned, actual)
	if pa != 300 {
		t.Errorf("planned anchor = %d, want 300", pa)
	}
	if aa != 0 {
		t.Errorf("actual anchor = %d, want 0", aa)
	}
}

func TestPercentile(t *testing.T) {
	seq := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	if got := percentile(seq, 0.9); got != 90 {
		t.Errorf("percentile(0.9) = %v, want 90", got)
	}
	if got := percentile(seq, 0.5); got != 50 {
		t.Errorf("percentile(0.5) = %v, want 50", got)
	}
}
