package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/geocrime/geocrime-cli/internal/model"
)

// Fetcher downloads remote incident datasets with a local file cache so
// repeated runs do not hammer open-data portals.
type Fetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	cacheDir string
	ua       string
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	CacheDir  string
	UserAgent string
	Timeout   time.Duration
	// RequestsPerSecond caps outbound requests; defaults to 2.
	RequestsPerSecond float64
}

// NewFetcher creates a Fetcher, defaulting the timeout to 60s.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "geocrime-cli/1.0"
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}
	return &Fetcher{
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		cacheDir: opts.CacheDir,
		ua:       opts.UserAgent,
	}
}

// FetchDataset downloads a dataset URL to the cache and returns the local
// path. A previously downloaded copy is reused without a network round trip.
func (f *Fetcher) FetchDataset(ctx context.Context, rawURL string) (string, error) {
	if f.cacheDir == "" {
		return "", eris.Wrap(model.ErrConfiguration, "ingest: fetcher cache dir not set")
	}
	if err := os.MkdirAll(f.cacheDir, 0o755); err != nil {
		return "", eris.Wrapf(model.ErrPersistence, "ingest: create cache dir: %v", err)
	}

	sum := sha256.Sum256([]byte(rawURL))
	dest := filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8])+".dat")

	log := zap.L().With(zap.String("component", "ingest.fetch"))
	if _, err := os.Stat(dest); err == nil {
		log.Debug("dataset cache hit", zap.String("url", rawURL), zap.String("path", dest))
		return dest, nil
	}

	log.Info("downloading dataset", zap.String("url", rawURL))
	if err := f.download(ctx, rawURL, dest); err != nil {
		return "", err
	}
	return dest, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, dest string) error {
	if err := f.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "ingest: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return eris.Wrapf(model.ErrConfiguration, "ingest: build request: %v", err)
	}
	req.Header.Set("User-Agent", f.ua)

	resp, err := f.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "ingest: download %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("ingest: download %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	tmp := dest + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return eris.Wrapf(model.ErrPersistence, "ingest: create cache file: %v", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(tmp)
		return eris.Wrapf(model.ErrPersistence, "ingest: write cache file: %v", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return eris.Wrapf(model.ErrPersistence, "ingest: close cache file: %v", err)
	}
	if err := os.Rename(tmp, dest); err != nil {
		return eris.Wrapf(model.ErrPersistence, "ingest: finalize cache file: %v", err)
	}
	return nil
}
