package geocode

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Client geocodes place names through a provider with a write-through cache.
type Client struct {
	provider         Provider
	cache            *FileCache
	batchConcurrency int
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithCache attaches a file cache to the client.
func WithCache(cache *FileCache) ClientOption {
	return func(c *Client) { c.cache = cache }
}

// WithBatchConcurrency sets the max parallel lookups for BatchGeocode.
func WithBatchConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.batchConcurrency = n
		}
	}
}

// NewClient creates a geocoding client around a provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{provider: provider, batchConcurrency: 4}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode resolves one place name, consulting the cache first. Cached
// non-matches are returned without another provider call.
func (c *Client) Geocode(ctx context.Context, place string) (*Result, error) {
	if c.cache != nil {
		if r, ok := c.cache.Get(place); ok {
			zap.L().Debug("geocode cache hit", zap.String("place", place), zap.Bool("matched", r.Matched))
			return &r, nil
		}
	}

	r, err := c.provider.Geocode(ctx, place)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		if err := c.cache.Put(place, *r); err != nil {
			zap.L().Warn("geocode cache write failed", zap.Error(err))
		}
	}
	return r, nil
}

// BatchGeocode resolves place names in parallel. Individual failures become
// unmatched results rather than failing the batch.
func (c *Client) BatchGeocode(ctx context.Context, places []string) ([]Result, error) {
	if len(places) == 0 {
		return nil, nil
	}

	results := make([]Result, len(places))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchConcurrency)

	for i, place := range places {
		i, place := i, place
		eg.Go(func() error {
			r, err := c.Geocode(gCtx, place)
			if err != nil || r == nil {
				zap.L().Warn("geocode failed", zap.String("place", place), zap.Error(err))
				results[i] = Result{Matched: false, Source: c.provider.Name()}
				return nil //nolint:nilerr // individual failures don't fail the batch
			}
			results[i] = *r
			return nil
		})
	}

	_ = eg.Wait()
	return results, nil
}
