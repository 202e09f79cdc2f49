package compliance

import "fmt"

// Zone is a power training zone, Z1 (recovery) through Z6 (anaerobic).
type Zone int

const (
	Zone1 Zone = 1 // active recovery, <=55% FTP
	Zone2 Zone = 2 // endurance, <=75% FTP
	Zone3 Zone = 3 // tempo, <=90% FTP
	Zone4 Zone = 4 // threshold, <=105% FTP
	Zone5 Zone = 5 // VO2max, <=120% FTP
	Zone6 Zone = 6 // anaerobic, >120% FTP
)

// Zone upper bounds in percent of FTP. Bands are contiguous and each
// bound is inclusive for its own zone.
var zoneUpperPct = []float64{55, 75, 90, 105, 120}

// ZoneForPercent classifies a power target expressed as a percentage of FTP.
func ZoneForPercent(pct float64) Zone {
	for i, upper := range zoneUpperPct {
		if pct <= upper {
			return Zone(i + 1)
		}
	}
	return Zone6
}

// ZoneForPower classifies an absolute power reading against the athlete's FTP.
// The comparison happens in watts so that an exact boundary reading (137.5W at
// FTP 250 is exactly 55%) stays inclusive despite float division rounding.
func ZoneForPower(watts, ftp float64) (Zone, error) {
	if ftp <= 0 {
		return 0, fmt.Errorf("%w: FTP must be positive, got %.1f", ErrInvalidInput, ftp)
	}
	for i, upper := range zoneUpperPct {
		if watts <= ftp*upper/100 {
			return Zone(i + 1), nil
		}
	}
	return Zone6, nil
}

// String returns the conventional zone label ("Z1".."Z6").
func (z Zone) String() string {
	return fmt.Sprintf("Z%d", int(z))
}
