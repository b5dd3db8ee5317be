package traveltime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fieldops-dispatch/internal/geo"
	"fieldops-dispatch/internal/metrics"

	"golang.org/x/time/rate"
)

const defaultDistanceMatrixURL = "https://maps.googleapis.com"

// ErrRateLimited is returned when the local request budget is exhausted.
// The call is not queued.
var ErrRateLimited = errors.New("distance matrix: rate limited")

// DistanceMatrixConfig configures the Google Distance Matrix client.
type DistanceMatrixConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	RPS        float64
	HTTPClient *http.Client
}

// DistanceMatrixClient asks the Google Distance Matrix API for a single
// origin/destination driving estimate.
type DistanceMatrixClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

// distanceMatrixResponse is the subset of the API response we read.
type distanceMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
		} `json:"elements"`
	} `json:"rows"`
}

func NewDistanceMatrixClient(cfg DistanceMatrixConfig) *DistanceMatrixClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultDistanceMatrixURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	limit := rate.Inf
	burst := 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		burst = max(1, int(cfg.RPS))
	}

	return &DistanceMatrixClient{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		timeout:    timeout,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
	}
}

func (c *DistanceMatrixClient) Name() Source { return SourceDistanceMatrix }

// Estimate makes one bounded call. It never waits for a rate-limit token.
func (c *DistanceMatrixClient) Estimate(ctx context.Context, origin, destination geo.GeoPoint) (Estimate, error) {
	if !c.limiter.Allow() {
		metrics.ExternalCallDuration.WithLabelValues("distance_matrix", "rate_limited").Observe(0)
		return Estimate{}, ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	est, err := c.fetch(ctx, origin, destination)
	metrics.ExternalCallDuration.WithLabelValues("distance_matrix", outcome(err)).Observe(time.Since(start).Seconds())
	return est, err
}

func (c *DistanceMatrixClient) fetch(ctx context.Context, origin, destination geo.GeoPoint) (Estimate, error) {
	q := url.Values{}
	q.Set("origins", latLng(origin))
	q.Set("destinations", latLng(destination))
	q.Set("mode", "driving")
	q.Set("units", "imperial")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/maps/api/distancematrix/json?"+q.Encode(), nil)
	if err != nil {
		return Estimate{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Estimate{}, fmt.Errorf("distance matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Estimate{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Estimate{}, fmt.Errorf("distance matrix returned status %d", resp.StatusCode)
	}

	var apiResp distanceMatrixResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return Estimate{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if apiResp.Status != "OK" {
		return Estimate{}, fmt.Errorf("distance matrix status %s: %s", apiResp.Status, apiResp.ErrorMessage)
	}
	if len(apiResp.Rows) == 0 || len(apiResp.Rows[0].Elements) == 0 {
		return Estimate{}, errors.New("distance matrix returned no elements")
	}

	el := apiResp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return Estimate{}, fmt.Errorf("distance matrix element status %s", el.Status)
	}

	return Estimate{
		DurationSeconds: el.Duration.Value,
		DistanceMeters:  el.Distance.Value,
		Source:          SourceDistanceMatrix,
	}, nil
}

func latLng(p geo.GeoPoint) string {
	return fmt.Sprintf("%.6f,%.6f", p.Latitude, p.Longitude)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
