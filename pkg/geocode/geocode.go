// Package geocode resolves street addresses to WGS84 coordinates using the
// Census Bureau geocoding service. Matched coordinates feed the spatial
// block-group assignment for parcels whose tax roll carries no geo_id.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://geocoding.geo.census.gov/geocoder"
	censusBenchmark = "Public_AR_Current"
)

// Address is one input address. ID ties batch results back to their inputs.
type Address struct {
	ID      string
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result is a geocoding outcome. Matched is false when the service found no
// candidate for the address.
type Result struct {
	Latitude  float64
	Longitude float64
	Quality   string // "rooftop" for exact matches, "range" for interpolated
	Matched   bool
}

// Client talks to the Census geocoder.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the geocoder base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient creates a geocoding client with a conservative default rate limit;
// the Census geocoder throttles aggressive callers.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    rate.NewLimiter(5, 5),
		baseURL:    defaultBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}
