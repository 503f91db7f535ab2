package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

const (
	apiFunction   = "package_manager_get_package_info"
	cacheFileName = "package_info.json"
	cacheTTL      = 24 * time.Hour
)

// ErrAPI is returned when WHM answers with a failed metadata result.
var ErrAPI = errors.New("whm api call failed")

// Client fetches the package catalog from the WHM JSON API and caches the
// raw response on disk.
type Client struct {
	baseURL   string
	user      string
	token     string
	cacheDir  string
	cacheTTL  time.Duration
	http      *http.Client
	logger    *log.Logger
	cacheFile string
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithAPIToken authenticates requests with a WHM API token.
func WithAPIToken(user, token string) ClientOption {
	return func(c *Client) {
		c.user = user
		c.token = token
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithCacheTTL sets how long a cached response stays fresh. Zero disables
// the cache.
func WithCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.cacheTTL = ttl
	}
}

// WithClientLogger sets the logger used for fetch progress.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the WHM instance at baseURL
// (e.g. "https://host:2087"). An empty cacheDir disables caching.
func NewClient(baseURL, cacheDir string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		cacheDir: cacheDir,
		cacheTTL: cacheTTL,
		http:     &http.Client{Timeout: 2 * time.Minute},
		logger:   log.Default(),
	}
	if cacheDir != "" {
		c.cacheFile = filepath.Join(cacheDir, cacheFileName)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the catalog, from the cache when it is fresh and from the API
// otherwise.
func (c *Client) Load(ctx context.Context) (pkginfo.Catalog, error) {
	if c.isCacheValid() {
		c.logger.Debug("using cached catalog", "path", c.cacheFile)
		return c.parseCache()
	}
	return c.Refresh(ctx)
}

// Refresh fetches the catalog from the API regardless of the cache and
// updates the cache on success.
func (c *Client) Refresh(ctx context.Context) (pkginfo.Catalog, error) {
	data, err := c.download(ctx)
	if err != nil {
		return nil, err
	}

	records, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}

	if c.cacheFile != "" && c.cacheTTL > 0 {
		if err := c.writeCache(data); err != nil {
			c.logger.Warn("could not cache catalog", "err", err)
		}
	}
	return Build(records), nil
}

func (c *Client) isCacheValid() bool {
	if c.cacheFile == "" || c.cacheTTL <= 0 {
		return false
	}
	info, err := os.Stat(c.cacheFile)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < c.cacheTTL
}

func (c *Client) endpoint() string {
	q := url.Values{}
	q.Set("api.version", "1")
	q.Set("ns", "ea")
	q.Set("disable-excludes", "1")
	return fmt.Sprintf("%s/json-api/%s?%s", c.baseURL, apiFunction, q.Encode())
}

func (c *Client) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(), nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("whm %s:%s", c.user, c.token))
	}

	c.logger.Debug("fetching catalog", "url", c.baseURL)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading catalog: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading catalog response: %w", err)
	}
	return data, nil
}

func (c *Client) writeCache(data []byte) error {
	if err := os.MkdirAll(c.cacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	tmp, err := os.CreateTemp(c.cacheDir, cacheFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := os.Rename(tmpPath, c.cacheFile); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

func (c *Client) parseCache() (pkginfo.Catalog, error) {
	data, err := os.ReadFile(c.cacheFile)
	if err != nil {
		return nil, fmt.Errorf("opening cache file: %w", err)
	}
	records, err := decodeJSON(data)
	if err != nil {
		return nil, fmt.Errorf("parsing cache file: %w", err)
	}
	return Build(records), nil
}

// CachePath returns the cache file location, or "" when caching is off.
func (c *Client) CachePath() string {
	return c.cacheFile
}
