// Package geocode provides single-address geocoding via the US Census
// Geocoder one-line endpoint (no API key required).
package geocode

import (
	"context"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the Census one-line address endpoint.
	DefaultBaseURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"

	// DefaultBenchmark is the current public address ranges benchmark.
	DefaultBenchmark = "Public_AR_Current"
)

// Client resolves a free-form address string to coordinates.
type Client interface {
	// Geocode looks up a single one-line address. An address the service
	// cannot match is not an error: the returned Result has Matched=false.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for one address.
type Result struct {
	Latitude  float64
	Longitude float64
	Side      string // TIGER line side indicator, used as a confidence tag
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the Census endpoint URL.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		if u != "" {
			g.baseURL = u
		}
	}
}

// WithBenchmark overrides the Census benchmark identifier.
func WithBenchmark(b string) Option {
	return func(g *geocoder) {
		if b != "" {
			g.benchmark = b
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(g *geocoder) {
		g.httpClient.Timeout = d
	}
}

type geocoder struct {
	httpClient *http.Client
	baseURL    string
	benchmark  string
}

// NewClient creates a Census geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		baseURL:    DefaultBaseURL,
		benchmark:  DefaultBenchmark,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
