package timezone

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultGeoURL — публичный endpoint ip-api.com (без ключа, только http).
const DefaultGeoURL = "http://ip-api.com/json/"

const defaultLookupTimeout = 5 * time.Second

// ErrLookupFailed — geo-сервис не вернул зону.
var ErrLookupFailed = errors.New("geo lookup failed")

// GeoResult — ответ geo-сервиса.
type GeoResult struct {
	Zone        string
	CountryCode string
}

// geoResponse — ответ ip-api.com.
type geoResponse struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	CountryCode string `json:"countryCode"`
	Timezone    string `json:"timezone"`
}

// GeoClient — клиент ip-api.com.
type GeoClient struct {
	baseURL string
	client  *http.Client
}

// NewGeoClient создаёт клиент. Пустой baseURL — DefaultGeoURL,
// timeout <= 0 — 5s.
func NewGeoClient(baseURL string, timeout time.Duration) *GeoClient {
	if baseURL == "" {
		baseURL = DefaultGeoURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	return &GeoClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Lookup определяет зону по IP.
func (c *GeoClient) Lookup(ctx context.Context, ip string) (GeoResult, error) {
	endpoint := c.baseURL + url.PathEscape(ip) + "?fields=status,message,countryCode,timezone"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return GeoResult{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return GeoResult{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return GeoResult{}, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var body geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return GeoResult{}, fmt.Errorf("%w: decode response: %v", ErrLookupFailed, err)
	}

	if body.Status != "success" {
		return GeoResult{CountryCode: body.CountryCode}, fmt.Errorf("%w: %s", ErrLookupFailed, body.Message)
	}
	if body.Timezone == "" {
		return GeoResult{CountryCode: body.CountryCode}, fmt.Errorf("%w: empty timezone", ErrLookupFailed)
	}

	return GeoResult{Zone: body.Timezone, CountryCode: body.CountryCode}, nil
}
