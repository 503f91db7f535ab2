package cli

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"testing"

	"github.com/frederic-klein/eapkg/internal/profile"
)

const (
	apache  = "ea-apache24"
	cgid    = "ea-apache24-mod_cgid"
	event   = "ea-apache24-mod_mpm_event"
	worker  = "ea-apache24-mod_mpm_worker"
	prefork = "ea-apache24-mod_mpm_prefork"
	php81   = "ea-php81"
	pear81  = "ea-php81-pear"
	php82   = "ea-php82"
	pear82  = "ea-php82-pear"
)

const catalogJSON = `[
  {"package": "ea-apache24", "version": "2.4.62", "state": "installed"},
  {"package": "ea-apache24-mod_cgid", "version": "2.4.62", "state": "not_installed",
   "pkg_dep": {"requires": ["ea-apache24", ["ea-apache24-mod_mpm_event", "ea-apache24-mod_mpm_worker"]]}},
  {"package": "ea-apache24-mod_mpm_event", "version": "2.4.62", "state": "not_installed",
   "pkg_dep": {"requires": ["ea-apache24"], "conflicts": ["ea-apache24-mod_mpm_worker", "ea-apache24-mod_mpm_prefork"]}},
  {"package": "ea-apache24-mod_mpm_worker", "version": "2.4.62", "state": "not_installed",
   "pkg_dep": {"requires": ["ea-apache24"], "conflicts": ["ea-apache24-mod_mpm_event", "ea-apache24-mod_mpm_prefork"]}},
  {"package": "ea-apache24-mod_mpm_prefork", "version": "2.4.62", "state": "installed",
   "pkg_dep": {"requires": ["ea-apache24"], "conflicts": ["ea-apache24-mod_mpm_event", "ea-apache24-mod_mpm_worker"]}},
  {"package": "ea-php81", "version": "8.1.31", "state": "installed"},
  {"package": "ea-php81-pear", "version": "1.10.15", "state": "updatable", "pkg_dep": {"requires": ["ea-php81"]}},
  {"package": "ea-php82", "version": "8.2.27", "state": "installed"},
  {"package": "ea-php82-pear", "version": "1.10.15", "state": "not_installed", "pkg_dep": {"requires": ["ea-php82"]}}
]`

// env is a scratch directory with a catalog dump and a config file whose
// profile directory lives in the same place.
type env struct {
	t       *testing.T
	dir     string
	catalog string
	config  string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	e := &env{
		t:       t,
		dir:     dir,
		catalog: filepath.Join(dir, "catalog.json"),
		config:  filepath.Join(dir, "config.toml"),
	}
	if err := os.WriteFile(e.catalog, []byte(catalogJSON), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := fmt.Sprintf("[profiles]\ndir = %q\nworkers = 2\n", e.profileDir())
	if err := os.WriteFile(e.config, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}
	return e
}

func (e *env) profileDir() string {
	return filepath.Join(e.dir, "profiles")
}

// run executes the CLI and returns stdout, stderr and the error.
func (e *env) run(args ...string) (string, string, error) {
	e.t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.config, "--catalog", e.catalog}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	out, stderr, err := e.run(args...)
	if err != nil {
		e.t.Fatalf("%v: %v\nstderr: %s", args, err, stderr)
	}
	return out
}

func parsePkgs(t *testing.T, doc string) []string {
	t.Helper()
	p, err := profile.NewParser(strings.NewReader(doc)).Parse()
	if err != nil {
		t.Fatalf("parsing %q: %v", doc, err)
	}
	return p.Pkgs
}

func TestList(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("list", "--type", "mpm")
	for _, name := range []string{event, worker, prefork} {
		if !strings.Contains(out, name) {
			t.Errorf("list --type mpm missing %s:\n%s", name, out)
		}
	}
	if strings.Contains(out, cgid) {
		t.Errorf("list --type mpm shows %s", cgid)
	}

	out = e.mustRun("list", "--selected")
	if !strings.Contains(out, pear81) || strings.Contains(out, pear82) {
		t.Errorf("list --selected:\n%s", out)
	}

	if _, _, err := e.run("list", "--type", "bogus"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestDeps(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("deps", cgid)
	if !strings.Contains(out, "One of") || !strings.Contains(out, event+" | "+worker) {
		t.Errorf("deps output missing OR-group:\n%s", out)
	}

	out = e.mustRun("deps", "--reverse", apache)
	if !strings.Contains(out, prefork) {
		t.Errorf("deps --reverse missing %s:\n%s", prefork, out)
	}

	if _, _, err := e.run("deps", "ea-nope"); err == nil {
		t.Error("expected error for unknown package")
	}
}

func TestSelect(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "out.json")

	out := e.mustRun("select", cgid, "--choose", worker, "--yes", "-o", path)
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("output:\n%s", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{apache, cgid, worker, php81, pear81, php82}
	if got := parsePkgs(t, string(data)); !reflect.DeepEqual(got, sortedCopy(want)) {
		t.Errorf("pkgs = %v, want %v", got, sortedCopy(want))
	}
}

func sortedCopy(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return out
}

func TestSelect_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unanswered choice", []string{"select", cgid}, "--choose"},
		{"choice not in group", []string{"select", cgid, "--choose", prefork}, "--choose"},
		{"removal without yes", []string{"select", cgid, "--choose", event}, "--yes"},
		{"unknown package", []string{"select", "ea-nope"}, "not in the catalog"},
		{"leaves no mpm", []string{"unselect", prefork}, "--force"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			_, _, err := e.run(tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestSelect_AlreadySelected(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun("select", apache)
	if !strings.Contains(out, apache+" is already selected") || !strings.Contains(out, "Selection unchanged") {
		t.Errorf("output:\n%s", out)
	}
}

func TestUnselect_Force(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("unselect", prefork, "--force", "-o", "-")
	want := []string{apache, php81, pear81, php82}
	if got := parsePkgs(t, out); !reflect.DeepEqual(got, sortedCopy(want)) {
		t.Errorf("pkgs = %v, want %v", got, sortedCopy(want))
	}
}

func TestUnselect_Cascades(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("unselect", php81, "-o", "-")
	want := []string{apache, prefork, php82}
	if got := parsePkgs(t, out); !reflect.DeepEqual(got, sortedCopy(want)) {
		t.Errorf("pkgs = %v, want %v", got, sortedCopy(want))
	}
}

func TestAutoSelect(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("autoselect", "--php", php82, "-o", "-")
	if got := parsePkgs(t, out); !reflect.DeepEqual(got, sortedCopy([]string{apache, prefork, php81, pear81, php82, pear82})) {
		t.Errorf("pkgs = %v", got)
	}

	out = e.mustRun("autoselect", cgid)
	if !strings.Contains(out, "Skipped "+cgid) {
		t.Errorf("output:\n%s", out)
	}

	if _, _, err := e.run("autoselect"); err == nil {
		t.Error("expected error without packages")
	}
}

func TestGraph(t *testing.T) {
	e := newEnv(t)

	out := e.mustRun("graph", cgid)
	if !strings.HasPrefix(out, "digraph") || !strings.Contains(out, worker) {
		t.Errorf("graph output:\n%s", out)
	}
	if strings.Contains(out, php81) {
		t.Errorf("graph of %s includes %s", cgid, php81)
	}
	if !strings.Contains(out, fmt.Sprintf("%q [label=%q, fillcolor=lightblue];", apache, apache)) {
		t.Errorf("installed %s not drawn as selected:\n%s", apache, out)
	}
	if strings.Contains(out, fmt.Sprintf("%q [label=%q, fillcolor=lightblue];", cgid, cgid)) {
		t.Errorf("%s drawn as selected:\n%s", cgid, out)
	}

	path := filepath.Join(e.dir, "cgid.dot")
	e.mustRun("graph", cgid, "-o", path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != out {
		t.Error("file output differs from stdout output")
	}
}

func TestProfileCommands(t *testing.T) {
	e := newEnv(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/profiles/php.json" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"name": "PHP", "desc": "PHP 8.1", "pkgs": ["ea-php81-pear", "ea-php56"]}`)
	}))
	defer srv.Close()

	out := e.mustRun("profile", "fetch", srv.URL+"/profiles/php.json")
	if !strings.Contains(out, "Fetched php") {
		t.Errorf("fetch output:\n%s", out)
	}
	if _, _, err := e.run("profile", "fetch", srv.URL+"/profiles/missing.json"); err == nil {
		t.Error("expected error for failed download")
	}

	out = e.mustRun("profile", "list")
	if !strings.Contains(out, "php") || !strings.Contains(out, "2 packages") {
		t.Errorf("list output:\n%s", out)
	}

	out = e.mustRun("profile", "show", "php")
	if !strings.Contains(out, "Not on this server: ea-php56") {
		t.Errorf("show output:\n%s", out)
	}

	// A profile seeds the selection with its packages and their requirements.
	out = e.mustRun("--profile", "php", "select", php82, "-o", "-")
	if got := parsePkgs(t, out); !reflect.DeepEqual(got, []string{php81, pear81, php82}) {
		t.Errorf("pkgs = %v", got)
	}

	e.mustRun("select", php82, "--save", "saved")
	if _, err := os.Stat(filepath.Join(e.profileDir(), "saved.json")); err != nil {
		t.Errorf("saved profile: %v", err)
	}

	e.mustRun("profile", "delete", "php")
	if _, _, err := e.run("profile", "show", "php"); err == nil {
		t.Error("expected error for deleted profile")
	}
}

func TestSelect_WarnsAboutBrokenRequirements(t *testing.T) {
	e := newEnv(t)
	doc := `[
  {"package": "ea-apache24-mod_mpm_prefork", "state": "installed"},
  {"package": "ea-t", "state": "not_installed", "pkg_dep": {"requires": ["ea-q", "ea-d"]}},
  {"package": "ea-d", "state": "installed", "pkg_dep": {"requires": ["ea-s"]}},
  {"package": "ea-s", "state": "installed", "pkg_dep": {"conflicts": ["ea-q"]}},
  {"package": "ea-q", "state": "not_installed"}
]`
	if err := os.WriteFile(e.catalog, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	out, _, err := e.run("select", "ea-t")
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("error = %v, want it to ask for --yes", err)
	}
	if !strings.Contains(out, "ea-t still requires ea-d, ea-s") {
		t.Errorf("output missing broken requirement warning:\n%s", out)
	}
}
