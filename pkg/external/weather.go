// Package external wraps the third-party collaborators: weather, routing,
// and email providers. Every client carries a hard timeout, a response cache
// to bound outbound load, and a heuristic fallback so a provider outage
// degrades answers instead of failing shipments.
package external

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// WeatherSignal is the weather contribution to fused risk.
type WeatherSignal struct {
	Location     string  `json:"location"`
	RiskScore    float64 `json:"risk_score"`
	Condition    string  `json:"condition"`
	APIAvailable bool    `json:"api_available"`
}

type weatherCacheEntry struct {
	signal    WeatherSignal
	expiresAt time.Time
}

// WeatherClient queries the weather provider with a 5 second timeout and a
// ~30 minute response cache. Lookups are read-only and never retried.
type WeatherClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	clock      func() time.Time
	logger     *slog.Logger

	mu    sync.Mutex
	cache map[string]weatherCacheEntry
	ttl   time.Duration
}

// NewWeatherClient builds a weather client against baseURL.
func NewWeatherClient(baseURL, apiKey string) *WeatherClient {
	return &WeatherClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5),
		clock:      time.Now,
		logger:     slog.Default().With("component", "weather-client"),
		cache:      make(map[string]weatherCacheEntry),
		ttl:        30 * time.Minute,
	}
}

// WithClock overrides the clock for testing.
func (c *WeatherClient) WithClock(clock func() time.Time) *WeatherClient {
	c.clock = clock
	return c
}

// RiskFor returns the weather risk for a location, from cache when fresh.
// Provider failures return the heuristic fallback, never an error: weather is
// advisory input, not a gate.
func (c *WeatherClient) RiskFor(ctx context.Context, location string) WeatherSignal {
	c.mu.Lock()
	if entry, ok := c.cache[location]; ok && c.clock().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.signal
	}
	c.mu.Unlock()

	signal, err := c.fetch(ctx, location)
	if err != nil {
		c.logger.Warn("weather lookup failed, using heuristic",
			"location", location, "error", err)
		signal = heuristicWeather(location)
	}

	c.mu.Lock()
	c.cache[location] = weatherCacheEntry{signal: signal, expiresAt: c.clock().Add(c.ttl)}
	c.mu.Unlock()
	return signal
}

func (c *WeatherClient) fetch(ctx context.Context, location string) (WeatherSignal, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return WeatherSignal{}, fmt.Errorf("weather rate limit: %w", err)
	}

	u := fmt.Sprintf("%s/data/2.5/weather?q=%s&appid=%s",
		c.baseURL, url.QueryEscape(location), url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return WeatherSignal{}, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WeatherSignal{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return WeatherSignal{}, fmt.Errorf("weather provider returned %d", resp.StatusCode)
	}

	var body struct {
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain map[string]float64 `json:"rain"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return WeatherSignal{}, fmt.Errorf("decode weather response: %w", err)
	}

	condition := "Clear"
	if len(body.Weather) > 0 {
		condition = body.Weather[0].Main
	}
	return WeatherSignal{
		Location:     location,
		RiskScore:    weatherRisk(condition, body.Wind.Speed, len(body.Rain) > 0),
		Condition:    condition,
		APIAvailable: true,
	}, nil
}

// weatherRisk maps conditions onto a 0..100 score.
func weatherRisk(condition string, windSpeed float64, raining bool) float64 {
	score := 10.0
	switch condition {
	case "Thunderstorm":
		score = 85
	case "Snow":
		score = 75
	case "Rain", "Drizzle":
		score = 55
	case "Fog", "Mist", "Haze":
		score = 45
	case "Clouds":
		score = 25
	}
	if windSpeed > 15 {
		score += 10
	}
	if raining && score < 55 {
		score = 55
	}
	if score > 100 {
		score = 100
	}
	return score
}

// heuristicWeather produces a stable moderate estimate when the provider is
// unreachable. Deterministic per location so repeated fallbacks agree.
func heuristicWeather(location string) WeatherSignal {
	h := fnv.New32a()
	h.Write([]byte(location))
	return WeatherSignal{
		Location:     location,
		RiskScore:    20 + float64(h.Sum32()%30),
		Condition:    "UNKNOWN",
		APIAvailable: false,
	}
}
