package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"veloscore/internal/compliance"
)

const BaseURL = "https://www.strava.com/api/v3"

// Client is a Strava API client
type Client struct {
	httpClient  *http.Client
	rateLimiter *RateLimiter
}

// NewClient creates a new Strava API client
func NewClient(tokenSource oauth2.TokenSource) *Client {
	return &Client{
		httpClient:  oauth2.NewClient(context.Background(), tokenSource),
		rateLimiter: NewRateLimiter(),
	}
}

// GetActivities fetches one page of activities after the given timestamp.
func (c *Client) GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	if !after.IsZero() {
		params.Set("after", strconv.FormatInt(after.Unix(), 10))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	resp, err := c.get(ctx, "/athlete/activities", params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("decoding activities: %w", err)
	}
	return activities, nil
}

// GetPowerRides fetches all activities after the given time and returns only
// cycling activities recorded with a power meter. Pagination is handled
// automatically within the client's rate limits.
func (c *Client) GetPowerRides(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]Activity, error) {
	var rides []Activity
	page := 1
	perPage := 100 // max allowed by Strava

	for {
		activities, err := c.GetActivities(ctx, after, page, perPage)
		if err != nil {
			return rides, fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(activities) == 0 {
			break
		}

		for _, a := range activities {
			if a.IsPowerRide() {
				rides = append(rides, a)
			}
		}
		if onProgress != nil {
			onProgress(len(rides))
		}

		if len(activities) < perPage {
			break
		}
		page++
	}

	return rides, nil
}

// GetPowerStream fetches the 1Hz watts stream for an activity as offset
// samples. Returns nil if the activity has no power stream.
func (c *Client) GetPowerStream(ctx context.Context, activityID int64) ([]compliance.PowerSample, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("keys", "time,watts")
	params.Set("key_by_type", "true")

	resp, err := c.get(ctx, fmt.Sprintf("/activities/%d/streams", activityID), params)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var streams Streams
	if err := json.NewDecoder(resp.Body).Decode(&streams); err != nil {
		return nil, fmt.Errorf("decoding streams: %w", err)
	}
	if !streams.HasPower() {
		return nil, nil
	}

	samples := make([]compliance.PowerSample, 0, len(streams.Watts.Data))
	for i, w := range streams.Watts.Data {
		samples = append(samples, compliance.PowerSample{
			TimeOffset: streams.Time.Data[i],
			Watts:      w,
		})
	}
	return samples, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	reqURL := BaseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	c.rateLimiter.UpdateFromHeaders(resp.Header)

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}
