package strava

import "time"

// Activity represents a Strava activity from the API. Only the fields the
// sync pipeline consumes are mapped.
type Activity struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Type                 string    `json:"type"`
	SportType            string    `json:"sport_type"`
	StartDate            time.Time `json:"start_date"`
	Distance             float64   `json:"distance"`     // meters
	MovingTime           int       `json:"moving_time"`  // seconds
	ElapsedTime          int       `json:"elapsed_time"` // seconds
	AverageWatts         float64   `json:"average_watts"`
	MaxWatts             float64   `json:"max_watts"`
	WeightedAverageWatts float64   `json:"weighted_average_watts"`
	DeviceWatts          bool      `json:"device_watts"`
}

// IsPowerRide reports whether the activity is a cycling activity with real
// power-meter data (as opposed to Strava's estimated power).
func (a Activity) IsPowerRide() bool {
	switch a.Type {
	case "Ride", "VirtualRide":
		return a.DeviceWatts
	}
	return false
}

// Streams holds activity stream data keyed by type (key_by_type=true).
type Streams struct {
	Time  *StreamData[int]     `json:"time"`
	Watts *StreamData[float64] `json:"watts"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// HasPower returns true if a non-empty watts stream exists alongside its
// time stream.
func (s *Streams) HasPower() bool {
	return s != nil && s.Watts != nil && len(s.Watts.Data) > 0 &&
		s.Time != nil && len(s.Time.Data) == len(s.Watts.Data)
}
