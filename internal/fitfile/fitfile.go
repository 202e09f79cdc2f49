// Package fitfile decodes FIT activity files into the power stream the
// compliance engine consumes.
package fitfile

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/tormoder/fit"

	"veloscore/internal/compliance"
)

// ErrNoPower is returned when an activity file carries no power records.
var ErrNoPower = errors.New("activity has no power data")

// Ride is a decoded activity: the 1Hz power stream plus summary fields the
// store and the ride list display.
type Ride struct {
	Name            string
	Sport           string
	StartTime       time.Time
	DurationSeconds int
	AvgPowerWatts   float64
	MaxPowerWatts   float64
	NormalizedPower float64
	Samples         []compliance.PowerSample
}

// DecodeFile decodes a FIT activity file from disk.
func DecodeFile(path string) (*Ride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading FIT file: %w", err)
	}
	return Decode(data)
}

// Decode decodes FIT bytes into a Ride.
func Decode(data []byte) (*Ride, error) {
	decoded, err := fit.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}

	ride := &Ride{}
	if len(activity.Sessions) > 0 {
		session := activity.Sessions[0]
		ride.Sport = fmt.Sprint(session.Sport)
		if !session.StartTime.IsZero() && !fit.IsBaseTime(session.StartTime) {
			ride.StartTime = session.StartTime
		}
	}

	ride.Samples = buildPowerStream(activity.Records)
	if len(ride.Samples) == 0 {
		return nil, ErrNoPower
	}

	ride.DurationSeconds = ride.Samples[len(ride.Samples)-1].TimeOffset + 1
	watts := make([]float64, len(ride.Samples))
	for i, s := range ride.Samples {
		watts[i] = s.Watts
		if s.Watts > ride.MaxPowerWatts {
			ride.MaxPowerWatts = s.Watts
		}
	}
	ride.AvgPowerWatts = mean(watts)
	ride.NormalizedPower = NormalizedPower(watts)

	if ride.StartTime.IsZero() && len(activity.Records) > 0 {
		ride.StartTime = activity.Records[0].Timestamp
	}
	return ride, nil
}

// buildPowerStream extracts (time offset, watts) pairs from record messages,
// sorted by timestamp and offset from the first record. Records without a
// valid power field become gaps, not zero samples.
func buildPowerStream(records []*fit.RecordMsg) []compliance.PowerSample {
	type row struct {
		ts    time.Time
		watts float64
	}

	rows := make([]row, 0, len(records))
	for _, rec := range records {
		if rec == nil || rec.Power == math.MaxUint16 {
			continue
		}
		ts := rec.Timestamp
		if ts.IsZero() || fit.IsBaseTime(ts) {
			continue
		}
		rows = append(rows, row{ts: ts, watts: float64(rec.Power)})
	}
	if len(rows) == 0 {
		return nil
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].ts.Before(rows[j].ts) })

	start := rows[0].ts
	samples := make([]compliance.PowerSample, 0, len(rows))
	lastOffset := -1
	for _, r := range rows {
		offset := int(r.ts.Sub(start).Seconds())
		if offset <= lastOffset {
			continue // duplicate timestamp, keep the first reading
		}
		samples = append(samples, compliance.PowerSample{TimeOffset: offset, Watts: r.watts})
		lastOffset = offset
	}
	return samples
}

// NormalizedPower is the 30s-rolling-average fourth-power mean. Streams
// shorter than the window fall back to the plain average.
func NormalizedPower(watts []float64) float64 {
	if len(watts) == 0 {
		return 0
	}
	const window = 30
	if len(watts) < window {
		return mean(watts)
	}

	sum := 0.0
	for i := 0; i < window; i++ {
		sum += watts[i]
	}
	fourthTotal := 0.0
	count := 0
	for i := window - 1; i < len(watts); i++ {
		if i >= window {
			sum += watts[i] - watts[i-window]
		}
		rolling := sum / window
		fourthTotal += math.Pow(rolling, 4)
		count++
	}
	return math.Pow(fourthTotal/float64(count), 0.25)
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
