package downloader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/frederic-klein/eapkg/internal/profile"
)

const profileDoc = `{"name":"PHP 8.1","tags":["PHP"],"pkgs":["ea-php81","ea-apache24"]}`

func TestDownloader_Download_SingleProfile(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profileDoc))
	}))
	defer server.Close()

	dir := t.TempDir()
	dl := NewDownloader(2, dir)

	// Act
	results := dl.Download(context.Background(), []Job{{URL: server.URL + "/profiles/php81.json"}})

	// Assert
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Error != nil {
		t.Fatalf("Download() error = %v", results[0].Error)
	}
	if want := filepath.Join(dir, "php81.json"); results[0].Path != want {
		t.Errorf("Path = %q, want %q", results[0].Path, want)
	}

	store, err := profile.NewFileStore(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	p, err := store.Get(context.Background(), "php81")
	if err != nil {
		t.Fatalf("stored profile unreadable: %v", err)
	}
	if p.Name != "PHP 8.1" || len(p.Pkgs) != 2 || p.Pkgs[0] != "ea-apache24" {
		t.Errorf("stored profile = %+v", p)
	}
}

func TestDownloader_Download_Existing(t *testing.T) {
	// Arrange: pre-create the profile
	dir := t.TempDir()
	dest := filepath.Join(dir, "mine.json")
	if err := os.WriteFile(dest, []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}

	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(profileDoc))
	}))
	defer server.Close()

	job := Job{URL: server.URL + "/x.json", ID: "mine"}

	// Act
	results := NewDownloader(1, dir).Download(context.Background(), []Job{job})

	// Assert
	if results[0].Error != nil || !results[0].Skipped {
		t.Errorf("result = %+v, want skipped", results[0])
	}
	if requests.Load() != 0 {
		t.Errorf("server was called %d times, want 0", requests.Load())
	}
	data, _ := os.ReadFile(dest)
	if string(data) != "existing" {
		t.Error("existing profile was overwritten")
	}

	// Act: forced
	results = NewDownloader(1, dir, WithForce(true)).Download(context.Background(), []Job{job})

	// Assert
	if results[0].Error != nil || results[0].Skipped {
		t.Errorf("forced result = %+v", results[0])
	}
	if requests.Load() != 1 {
		t.Errorf("server was called %d times, want 1", requests.Load())
	}
}

func TestDownloader_Download_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.json":
			w.WriteHeader(http.StatusNotFound)
		case "/garbage.json":
			w.Write([]byte("<html>"))
		case "/nopkgs.json":
			w.Write([]byte(`{"name":"x"}`))
		}
	}))
	defer server.Close()

	tests := []struct {
		name    string
		job     Job
		invalid bool
	}{
		{name: "http error", job: Job{URL: server.URL + "/missing.json"}},
		{name: "not json", job: Job{URL: server.URL + "/garbage.json"}},
		{name: "no packages", job: Job{URL: server.URL + "/nopkgs.json"}, invalid: true},
		{name: "bad id", job: Job{URL: server.URL + "/garbage.json", ID: "../up"}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			results := NewDownloader(1, dir).Download(context.Background(), []Job{tt.job})
			if results[0].Error == nil {
				t.Fatal("Download() should fail")
			}
			if tt.invalid && !errors.Is(results[0].Error, profile.ErrInvalid) {
				t.Errorf("error = %v, want ErrInvalid", results[0].Error)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("dir has %d entries, want 0", len(entries))
			}
		})
	}
}

func TestDownloader_Download_Parallel(t *testing.T) {
	// Arrange
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profileDoc))
	}))
	defer server.Close()

	dir := t.TempDir()
	dl := NewDownloader(3, dir)

	jobs := []Job{
		{URL: server.URL + "/a.json"},
		{URL: server.URL + "/b.json"},
		{URL: server.URL + "/c.json?raw=1"},
	}

	// Act
	results := dl.Download(context.Background(), jobs)

	// Assert
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	for i, want := range []string{"a", "b", "c"} {
		if results[i].Error != nil {
			t.Errorf("Download(%s) error = %v", results[i].Job.URL, results[i].Error)
		}
		if results[i].Job.ID != want {
			t.Errorf("results[%d].Job.ID = %q, want %q", i, results[i].Job.ID, want)
		}
		if _, err := os.Stat(filepath.Join(dir, want+".json")); err != nil {
			t.Errorf("profile %s was not created", want)
		}
	}
}

func TestDownloader_Download_Canceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(profileDoc))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewDownloader(1, t.TempDir()).Download(ctx, []Job{{URL: server.URL + "/a.json"}})
	if !errors.Is(results[0].Error, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", results[0].Error)
	}
}

func TestJobID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/profiles/cpanel-default.json", "cpanel-default"},
		{"https://example.com/p/basic.json?token=1", "basic"},
		{"https://example.com/p/plain", "plain"},
	}
	for _, tt := range tests {
		if got := JobID(tt.url); got != tt.want {
			t.Errorf("JobID(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
