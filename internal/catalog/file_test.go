package catalog

import (
	"bytes"
	"compress/gzip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

const envelopeJSON = `{
  "metadata": {"result": 1, "reason": "OK", "command": "package_manager_get_package_info"},
  "data": {"payload": [
    {"package": "ea-apache24", "version": "2.4.62", "state": "installed",
     "pkg_dep": {"requires": [], "conflicts": []}},
    {"package": "ea-apache24-mod_cgid", "version": 2.4, "state": "not_installed",
     "pkg_dep": {"requires": ["ea-apache24", ["ea-apache24-mod_mpm_event", "ea-apache24-mod_mpm_worker"]],
                 "conflicts": ["ea-apache24-mod_cgi"]}}
  ]}
}`

const payloadYAML = `
- package: ea-apache24
  version: 2.4.62
  state: installed
- package: ea-apache24-mod_cgid
  version: 2.4
  pkg_dep:
    requires:
      - ea-apache24
      - [ea-apache24-mod_mpm_event, ea-apache24-mod_mpm_worker]
    conflicts: [ea-apache24-mod_cgi]
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	gw.Write([]byte(s))
	gw.Close()
	return buf.Bytes()
}

func xzed(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	xw.Write([]byte(s))
	if err := xw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestLoadFile(t *testing.T) {
	tests := []struct {
		name string
		file string
		data func(t *testing.T) []byte
	}{
		{"json envelope", "catalog.json", func(t *testing.T) []byte { return []byte(envelopeJSON) }},
		{"yaml payload", "catalog.yaml", func(t *testing.T) []byte { return []byte(payloadYAML) }},
		{"gzip json", "catalog.json.gz", func(t *testing.T) []byte { return gzipped(t, envelopeJSON) }},
		{"xz yaml", "catalog.yml.xz", func(t *testing.T) []byte { return xzed(t, payloadYAML) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.data(t))

			c, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile() error = %v", err)
			}
			if len(c) != 2 {
				t.Fatalf("len(catalog) = %d, want 2", len(c))
			}

			cgid := c["ea-apache24-mod_cgid"]
			if cgid.Version != "2.4" {
				t.Errorf("Version = %q, want %q", cgid.Version, "2.4")
			}
			if len(cgid.Requires) != 2 || cgid.Requires[0].IsGroup() || !cgid.Requires[1].IsGroup() {
				t.Fatalf("Requires = %+v, want plain then OR-group", cgid.Requires)
			}
			if !cgid.ConflictsWith("ea-apache24-mod_cgi") {
				t.Errorf("Conflicts = %v", cgid.Conflicts)
			}
			if c["ea-apache24"].State != pkginfo.StateInstalled {
				t.Errorf("State = %q, want installed", c["ea-apache24"].State)
			}
		})
	}
}

func TestLoadFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		data    string
		wantAPI bool
	}{
		{"api failure", "catalog.json", `{"metadata":{"result":0,"reason":"Access denied"}}`, true},
		{"empty", "catalog.json", "  ", false},
		{"bad requirement", "catalog.json", `[{"package":"ea-a","pkg_dep":{"requires":[{"x":1}]}}]`, false},
		{"bad yaml", "catalog.yaml", "- package: [", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeFile(t, tt.file, []byte(tt.data)))
			if err == nil {
				t.Fatal("LoadFile() error = nil, want error")
			}
			if got := errors.Is(err, ErrAPI); got != tt.wantAPI {
				t.Errorf("errors.Is(err, ErrAPI) = %v, want %v (err = %v)", got, tt.wantAPI, err)
			}
		})
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("LoadFile() on missing file error = nil")
	}
}

func TestDecode_PayloadArray(t *testing.T) {
	records, err := Decode(strings.NewReader(`[{"package":"ea-php81","version":"8.1.31"}]`), FormatJSON)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(records) != 1 || records[0].Package != "ea-php81" || records[0].Version != "8.1.31" {
		t.Errorf("Decode() = %+v", records)
	}
}

func TestDecode_NumericVersion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trailing zero kept", `1.10`, "1.10"},
		{"integer", `2`, "2"},
		{"string", `"8.1.31"`, "8.1.31"},
		{"null", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `[{"package":"ea-php81-pear","version":` + tt.in + `}]`
			records, err := Decode(strings.NewReader(doc), FormatJSON)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if got := string(records[0].Version); got != tt.want {
				t.Errorf("Version = %q, want %q", got, tt.want)
			}
		})
	}
}
