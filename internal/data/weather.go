package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"

	"energy-ml/internal/metrics"
	"energy-ml/internal/model"
)

// DefaultWeatherBaseURL is the Visual Crossing timeline endpoint.
const DefaultWeatherBaseURL = "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline"

// UpstreamError reports a failed call to the weather provider.
type UpstreamError struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// WeatherOptions configures a WeatherClient.
type WeatherOptions struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration // per attempt
	MaxRetries int
	RetryWait  time.Duration // initial backoff interval
	Cache      *ConditionsCache
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// WeatherClient fetches current conditions from the Visual Crossing API.
type WeatherClient struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	retryWait  time.Duration
	cache      *ConditionsCache
	client     *http.Client
	logger     *slog.Logger
	group      singleflight.Group
}

// NewWeatherClient applies defaults: the public base URL, a 10s timeout
// and two retries.
func NewWeatherClient(opts WeatherOptions) *WeatherClient {
	c := &WeatherClient{
		apiKey:     opts.APIKey,
		baseURL:    opts.BaseURL,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		retryWait:  opts.RetryWait,
		cache:      opts.Cache,
		client:     opts.HTTPClient,
		logger:     opts.Logger,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultWeatherBaseURL
	}
	if c.timeout <= 0 {
		c.timeout = 10 * time.Second
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.retryWait <= 0 {
		c.retryWait = 250 * time.Millisecond
	}
	if c.client == nil {
		c.client = &http.Client{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

type timelineResponse struct {
	CurrentConditions struct {
		Temp           *float64 `json:"temp"`
		Pressure       *float64 `json:"pressure"`
		CloudCover     *float64 `json:"cloudcover"`
		WindSpeed      *float64 `json:"windspeed"`
		SolarRadiation *float64 `json:"solarradiation"`
	} `json:"currentConditions"`
}

// CurrentConditions returns the latest reading for a coordinate. Missing
// fields in the provider response read as 0. Concurrent calls for the same
// coordinate share one upstream request.
func (c *WeatherClient) CurrentConditions(ctx context.Context, lat, lon float64) (model.Conditions, error) {
	key := CacheKey(lat, lon)
	if cond, ok := c.cache.Get(key); ok {
		metrics.IncWeatherCache(true)
		return cond, nil
	}
	if c.cache != nil {
		metrics.IncWeatherCache(false)
	}

	// The shared fetch outlives the caller that started it; each attempt is
	// still bounded by the client timeout.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		cond, err := c.fetchWithRetry(shared, lat, lon)
		if err == nil {
			c.cache.Set(key, cond)
		}
		return cond, err
	})
	select {
	case <-ctx.Done():
		return model.Conditions{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return model.Conditions{}, res.Err
		}
		return res.Val.(model.Conditions), nil
	}
}

func (c *WeatherClient) fetchWithRetry(ctx context.Context, lat, lon float64) (model.Conditions, error) {
	if c.apiKey == "" {
		return model.Conditions{}, &UpstreamError{
			Code:    "MISSING_API_KEY",
			Message: "weather API key is not configured",
		}
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryWait
	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.maxRetries)), ctx)

	attempt := 0
	cond, err := backoff.RetryWithData(func() (model.Conditions, error) {
		attempt++
		cond, err := c.fetch(ctx, lat, lon)
		if err != nil {
			var ue *UpstreamError
			if errors.As(err, &ue) && !ue.Retryable {
				return cond, backoff.Permanent(err)
			}
			c.logger.Warn("weather request failed",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
		}
		return cond, err
	}, b)
	if err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) {
			return model.Conditions{}, ue
		}
		return model.Conditions{}, &UpstreamError{
			Code:      "UPSTREAM_UNAVAILABLE",
			Message:   fmt.Sprintf("Failed to fetch weather data: %v", err),
			Retryable: true,
		}
	}
	return cond, nil
}

func (c *WeatherClient) fetch(ctx context.Context, lat, lon float64) (model.Conditions, error) {
	u, err := url.Parse(c.baseURL + "/" + strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64))
	if err != nil {
		return model.Conditions{}, &UpstreamError{Code: "INVALID_BASE_URL", Message: fmt.Sprintf("invalid base URL: %v", err)}
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	q.Set("unitGroup", "metric")
	q.Set("include", "current")
	u.RawQuery = q.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Conditions{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		if isTimeout(err) {
			metrics.IncWeatherRequest("timeout")
			return model.Conditions{}, &UpstreamError{
				Code:      "UPSTREAM_TIMEOUT",
				Message:   fmt.Sprintf("weather request timed out after %v", c.timeout),
				Retryable: true,
			}
		}
		metrics.IncWeatherRequest("error")
		return model.Conditions{}, &UpstreamError{
			Code:      "UPSTREAM_UNAVAILABLE",
			Message:   fmt.Sprintf("failed to execute weather request: %v", err),
			Retryable: true,
		}
	}
	defer resp.Body.Close()

	c.logger.Debug("weather response",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
		slog.Float64("lat", lat),
		slog.Float64("lon", lon))

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		metrics.IncWeatherRequest("error")
		return model.Conditions{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Code:       "UPSTREAM_UNAVAILABLE",
			Message:    fmt.Sprintf("Failed to fetch weather data: provider returned %d", resp.StatusCode),
			Retryable:  true,
		}
	default:
		metrics.IncWeatherRequest("error")
		return model.Conditions{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Code:       "UPSTREAM_REJECTED",
			Message:    fmt.Sprintf("Failed to fetch weather data: provider returned %d", resp.StatusCode),
		}
	}

	var body timelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		metrics.IncWeatherRequest("error")
		return model.Conditions{}, &UpstreamError{
			StatusCode: resp.StatusCode,
			Code:       "UPSTREAM_BAD_RESPONSE",
			Message:    fmt.Sprintf("failed to decode weather response: %v", err),
		}
	}
	metrics.IncWeatherRequest("ok")

	cc := body.CurrentConditions
	return model.Conditions{
		Temperature:    deref(cc.Temp),
		Pressure:       deref(cc.Pressure),
		CloudCover:     deref(cc.CloudCover),
		WindSpeed:      deref(cc.WindSpeed),
		SolarRadiation: deref(cc.SolarRadiation),
	}, nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
