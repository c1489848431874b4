package geocode

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimProvider geocodes via the public Nominatim API. The usage policy
// requires at most one request per second and an identifying User-Agent.
type NominatimProvider struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	ua      string
	country string
}

// NominatimOption configures a NominatimProvider.
type NominatimOption func(*NominatimProvider)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(u string) NominatimOption {
	return func(p *NominatimProvider) { p.baseURL = u }
}

// WithCountry biases results toward a country code, e.g. "in".
func WithCountry(code string) NominatimOption {
	return func(p *NominatimProvider) { p.country = code }
}

// WithRateLimit overrides the request rate, used by tests.
func WithRateLimit(rps float64) NominatimOption {
	return func(p *NominatimProvider) { p.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// NewNominatim creates a Nominatim provider with the policy-compliant
// 1 req/s limiter.
func NewNominatim(userAgent string, opts ...NominatimOption) *NominatimProvider {
	if userAgent == "" {
		userAgent = "geocrime-cli/1.0"
	}
	p := &NominatimProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(1, 1),
		baseURL: defaultNominatimURL,
		ua:      userAgent,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return "nominatim" }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Geocode implements Provider. A place the API does not know returns an
// unmatched Result, not an error.
func (p *NominatimProvider) Geocode(ctx context.Context, place string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limiter wait")
	}

	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")
	if p.country != "" {
		q.Set("countrycodes", p.country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", p.ua)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: search %q", place)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("nominatim: search %q: unexpected status %d", place, resp.StatusCode)
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, eris.Wrap(err, "nominatim: decode response")
	}
	if len(places) == 0 {
		zap.L().Debug("nominatim: no match", zap.String("place", place))
		return &Result{Matched: false, Source: "nominatim"}, nil
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: parse latitude %q", places[0].Lat)
	}
	lon, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: parse longitude %q", places[0].Lon)
	}

	return &Result{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: places[0].DisplayName,
		Matched:     true,
		Source:      "nominatim",
	}, nil
}
