// Package downloader fetches remote EA4 profile documents in parallel into a
// profile directory.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/eapkg/internal/profile"
)

// maxProfileSize bounds a single profile download.
const maxProfileSize = 1 << 20

// Job represents a profile download.
type Job struct {
	URL string
	ID  string // storage ID; derived from the URL when empty
}

// Result represents a download result.
type Result struct {
	Job     Job
	Path    string
	Skipped bool // already present and not forced
	Error   error
}

// Downloader handles parallel profile downloads.
type Downloader struct {
	workers int
	dir     string
	force   bool
	client  *http.Client
	logger  *log.Logger
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithForce overwrites profiles that already exist.
func WithForce(force bool) Option {
	return func(d *Downloader) { d.force = force }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Downloader) { d.logger = l }
}

// NewDownloader creates a downloader writing into dir with the given number
// of workers.
func NewDownloader(workers int, dir string, opts ...Option) *Downloader {
	if workers < 1 {
		workers = 1
	}
	d := &Downloader{
		workers: workers,
		dir:     dir,
		client:  &http.Client{},
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// JobID derives a storage ID from a profile URL: the last path element
// without its .json suffix.
func JobID(rawURL string) string {
	base := rawURL
	if i := strings.IndexAny(base, "?#"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSuffix(path.Base(base), ".json")
}

// Download fetches all jobs in parallel. Results are returned in job order.
func (d *Downloader) Download(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		for i, job := range jobs {
			results[i] = Result{Job: job, Error: fmt.Errorf("creating profile dir: %w", err)}
		}
		return results
	}

	jobChan := make(chan int, len(jobs))
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobChan {
				results[idx] = d.downloadOne(ctx, jobs[idx])
			}
		}()
	}

	for i := range jobs {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	return results
}

func (d *Downloader) downloadOne(ctx context.Context, job Job) Result {
	if job.ID == "" {
		job.ID = JobID(job.URL)
	}
	res := Result{Job: job}
	if !profile.ValidID(job.ID) {
		res.Error = fmt.Errorf("%w: cannot derive id from %s", profile.ErrInvalid, job.URL)
		return res
	}
	res.Path = filepath.Join(d.dir, job.ID+".json")

	if !d.force {
		if _, err := os.Stat(res.Path); err == nil {
			res.Skipped = true
			return res
		}
	}

	data, err := d.fetch(ctx, job.URL)
	if err != nil {
		res.Error = err
		return res
	}

	// Only documents that parse as profiles land in the directory.
	p, err := profile.NewParser(bytes.NewReader(data)).Parse()
	if err != nil {
		res.Error = fmt.Errorf("%s: %w", job.URL, err)
		return res
	}
	p.ID = job.ID
	var buf bytes.Buffer
	if err := profile.NewEmitter(&buf).Emit(p); err != nil {
		res.Error = err
		return res
	}

	if err := writeFile(res.Path, buf.Bytes()); err != nil {
		res.Error = err
		return res
	}
	d.logger.Debug("fetched profile", "id", job.ID, "pkgs", len(p.Pkgs))
	return res
}

func (d *Downloader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading %s: HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileSize))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return data, nil
}

// writeFile writes to a temp file first, then renames.
func writeFile(dest string, data []byte) error {
	tmpPath := dest + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming file: %w", err)
	}
	return nil
}

// Dir returns the target directory.
func (d *Downloader) Dir() string {
	return d.dir
}
