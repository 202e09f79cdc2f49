package service

import (
	"context"
	"fmt"
	"time"

	"veloscore/internal/fitfile"
	"veloscore/internal/store"
	"veloscore/internal/strava"
)

// streamBatchSize bounds how many power streams one sync fetches, so a large
// backlog doesn't burn the whole 15-minute rate window.
const streamBatchSize = 50

// SyncService pulls power rides and their watt streams from Strava.
type SyncService struct {
	client *strava.Client
	store  *store.Store
}

// NewSyncService creates a new sync service
func NewSyncService(client *strava.Client, s *store.Store) *SyncService {
	return &SyncService{client: client, store: s}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase       string // "rides", "streams"
	Total       int
	Completed   int
	CurrentRide string
	Error       error
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	RidesFetched   int
	RidesStored    int
	StreamsFetched int
	Errors         []error
}

// SyncAll performs a full sync: ride summaries, then power streams for rides
// that don't have one yet.
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}

	if err := s.syncRides(ctx, progress, result); err != nil {
		return result, fmt.Errorf("syncing rides: %w", err)
	}
	if err := s.syncStreams(ctx, progress, result); err != nil {
		return result, fmt.Errorf("syncing streams: %w", err)
	}

	return result, nil
}

// RateLimitStatus returns the current rate limit status from the client
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}

// syncRides fetches power ride summaries since the last sync and stores them.
func (s *SyncService) syncRides(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	lastSyncStr, _ := s.store.GetSyncState("last_ride_sync")
	var after time.Time
	if lastSyncStr != "" {
		after, _ = time.Parse(time.RFC3339, lastSyncStr)
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "rides"}
	}

	rides, err := s.client.GetPowerRides(ctx, after, func(fetched int) {
		if progress != nil {
			progress <- SyncProgress{Phase: "rides", Total: fetched, Completed: fetched}
		}
	})
	result.RidesFetched = len(rides)
	if err != nil {
		return err
	}

	for _, a := range rides {
		stravaID := a.ID
		rec := &store.Ride{
			StravaID:        &stravaID,
			Name:            a.Name,
			Sport:           a.SportType,
			StartTime:       a.StartDate,
			DurationSeconds: a.MovingTime,
		}
		if a.AverageWatts > 0 {
			avg := a.AverageWatts
			rec.AvgPower = &avg
		}
		if a.MaxWatts > 0 {
			max := a.MaxWatts
			rec.MaxPower = &max
		}
		if a.WeightedAverageWatts > 0 {
			np := a.WeightedAverageWatts
			rec.NormalizedPower = &np
		}
		if _, err := s.store.SaveRide(rec); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("storing ride %d: %w", a.ID, err))
			continue
		}
		result.RidesStored++
	}

	s.store.SetSyncState("last_ride_sync", time.Now().Format(time.RFC3339))
	return nil
}

// syncStreams fetches watt streams for rides that don't have samples yet.
func (s *SyncService) syncStreams(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	rides, err := s.store.RidesNeedingSamples()
	if err != nil {
		return fmt.Errorf("finding rides needing streams: %w", err)
	}
	if len(rides) > streamBatchSize {
		rides = rides[:streamBatchSize]
	}
	if len(rides) == 0 {
		return nil
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "streams", Total: len(rides)}
	}

	for i, ride := range rides {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:       "streams",
				Total:       len(rides),
				Completed:   i,
				CurrentRide: ride.Name,
			}
		}

		samples, err := s.client.GetPowerStream(ctx, *ride.StravaID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("ride %d (%s): %w", ride.ID, ride.Name, err))
			continue
		}
		if samples == nil {
			// No watts stream despite device_watts; don't retry forever
			ride.SamplesSynced = true
			if _, err := s.store.SaveRide(&ride); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("marking ride %d: %w", ride.ID, err))
			}
			continue
		}

		if err := s.store.SavePowerSamples(ride.ID, samples); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("saving stream for ride %d: %w", ride.ID, err))
			continue
		}
		result.StreamsFetched++

		// Strava's weighted average can be missing on the summary; fill the
		// normalized power from the stream when we have it.
		if ride.NormalizedPower == nil && len(samples) > 0 {
			watts := make([]float64, len(samples))
			for j, smp := range samples {
				watts[j] = smp.Watts
			}
			np := fitfile.NormalizedPower(watts)
			ride.NormalizedPower = &np
			ride.SamplesSynced = true
			if _, err := s.store.SaveRide(&ride); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("updating ride %d: %w", ride.ID, err))
			}
		}
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "streams", Total: len(rides), Completed: len(rides)}
	}

	return nil
}
