package asset

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/housika/receipts/internal/infrastructure/config"
	"github.com/housika/receipts/internal/infrastructure/storage"
)

// Source schemes understood by Router.
const (
	SchemeBundled = "bundled:"
	SchemeFile    = "file://"
	SchemeS3      = "s3://"
)

// DefaultLogoSource is the logo shipped inside the binary.
const DefaultLogoSource = SchemeBundled + "logo.png"

const defaultMaxBytes int64 = 2 << 20

//go:embed bundled/*.png
var bundledFS embed.FS

// ErrAssetTooLarge is returned when an asset exceeds the configured limit.
var ErrAssetTooLarge = errors.New("asset exceeds size limit")

// Fetcher loads the raw bytes behind a source identifier.
type Fetcher interface {
	Fetch(ctx context.Context, sourceID string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, sourceID string) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, sourceID string) ([]byte, error) {
	return f(ctx, sourceID)
}

// BundledFetcher serves assets compiled into the binary.
type BundledFetcher struct{}

// Fetch reads bundled:<name>.
func (BundledFetcher) Fetch(_ context.Context, sourceID string) ([]byte, error) {
	name := strings.TrimPrefix(sourceID, SchemeBundled)
	data, err := bundledFS.ReadFile(path.Join("bundled", path.Clean("/" + name)[1:]))
	if err != nil {
		return nil, fmt.Errorf("bundled asset %s: %w", name, err)
	}
	return data, nil
}

// FileFetcher reads assets from the local filesystem.
type FileFetcher struct {
	MaxBytes int64
}

// Fetch reads a file:// URL or a bare path.
func (f FileFetcher) Fetch(_ context.Context, sourceID string) ([]byte, error) {
	p := strings.TrimPrefix(sourceID, SchemeFile)
	file, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer file.Close()
	return readLimited(file, f.MaxBytes)
}

// HTTPFetcher downloads assets over HTTP(S).
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPFetcher creates a fetcher whose requests time out after timeout.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		Client:   &http.Client{Timeout: timeout},
		MaxBytes: maxBytes,
	}
}

// Fetch performs a GET and requires a 2xx response.
func (f *HTTPFetcher) Fetch(ctx context.Context, sourceID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch asset: unexpected status %d", resp.StatusCode)
	}
	return readLimited(resp.Body, f.MaxBytes)
}

// S3Fetcher reads s3://bucket/key sources from object storage.
type S3Fetcher struct {
	Store storage.ObjectStore
}

// Fetch requires the URL's bucket to match the configured store.
func (f S3Fetcher) Fetch(ctx context.Context, sourceID string) ([]byte, error) {
	if f.Store == nil {
		return nil, errors.New("object storage is not configured")
	}
	u, err := url.Parse(sourceID)
	if err != nil {
		return nil, fmt.Errorf("invalid s3 source: %w", err)
	}
	if u.Host != f.Store.Bucket() {
		return nil, fmt.Errorf("s3 bucket %q is not configured (have %q)", u.Host, f.Store.Bucket())
	}
	key := strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return nil, errors.New("s3 source has no key")
	}
	return f.Store.Get(ctx, key)
}

// Router dispatches a source identifier to the fetcher for its scheme.
type Router struct {
	bundled Fetcher
	file    Fetcher
	http    Fetcher
	s3      Fetcher
}

// NewRouter builds a router from asset configuration. objects may be nil when
// S3 is disabled; s3:// sources then fail to fetch.
func NewRouter(cfg config.AssetsConfig, objects storage.ObjectStore) *Router {
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Router{
		bundled: BundledFetcher{},
		file:    FileFetcher{MaxBytes: maxBytes},
		http:    NewHTTPFetcher(timeout, maxBytes),
		s3:      S3Fetcher{Store: objects},
	}
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, sourceID string) ([]byte, error) {
	switch {
	case strings.HasPrefix(sourceID, SchemeBundled):
		return r.bundled.Fetch(ctx, sourceID)
	case strings.HasPrefix(sourceID, SchemeS3):
		return r.s3.Fetch(ctx, sourceID)
	case strings.HasPrefix(sourceID, "http://"), strings.HasPrefix(sourceID, "https://"):
		return r.http.Fetch(ctx, sourceID)
	case sourceID == "":
		return nil, errors.New("empty asset source")
	default:
		return r.file.Fetch(ctx, sourceID)
	}
}

func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read asset: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, ErrAssetTooLarge
	}
	return data, nil
}
