package profile

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

func TestEmitter_Emit(t *testing.T) {
	tests := []struct {
		name    string
		profile *Profile
		want    string
	}{
		{
			name: "sorted and deduplicated",
			profile: &Profile{
				ID:      "basic",
				Name:    "Basic",
				Desc:    "Apache with PHP 8.1",
				Version: "1.0",
				Tags:    []string{"PHP 8.1", "Apache 2.4"},
				Pkgs:    []string{"ea-php81", "ea-apache24", "ea-php81"},
			},
			want: `{
   "name": "Basic",
   "desc": "Apache with PHP 8.1",
   "version": "1.0",
   "tags": [
      "Apache 2.4",
      "PHP 8.1"
   ],
   "pkgs": [
      "ea-apache24",
      "ea-php81"
   ]
}
`,
		},
		{
			name:    "empty package list",
			profile: &Profile{Name: "Empty"},
			want: `{
   "name": "Empty",
   "pkgs": []
}
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewEmitter(&buf).Emit(tt.profile); err != nil {
				t.Fatalf("Emit() error = %v", err)
			}
			if got := buf.String(); got != tt.want {
				t.Errorf("Emit() =\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestEmitter_DoesNotModifyProfile(t *testing.T) {
	p := &Profile{Name: "x", Pkgs: []string{"ea-b", "ea-a"}}
	if err := NewEmitter(&bytes.Buffer{}).Emit(p); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(p.Pkgs, []string{"ea-b", "ea-a"}) {
		t.Errorf("Pkgs = %v, want original order", p.Pkgs)
	}
}

func TestParser_Parse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *Profile
		wantErr bool
	}{
		{
			name:  "cpanel profile",
			input: `{"name":"cPanel Default","desc":"Default","version":"1.1","tags":["Apache 2.4"],"pkgs":["ea-apache24","ea-php81"]}`,
			want: &Profile{
				Name:    "cPanel Default",
				Desc:    "Default",
				Version: "1.1",
				Tags:    []string{"Apache 2.4"},
				Pkgs:    []string{"ea-apache24", "ea-php81"},
			},
		},
		{name: "missing pkgs", input: `{"name":"x"}`, wantErr: true},
		{name: "not json", input: `name: x`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewParser(strings.NewReader(tt.input)).Parse()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProfile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		wantErr bool
	}{
		{"ok", Profile{ID: "my-profile_2.0", Name: "Mine", Pkgs: []string{"ea-apache24"}}, false},
		{"path in id", Profile{ID: "../etc/passwd", Name: "Mine", Pkgs: []string{"ea-apache24"}}, true},
		{"no name", Profile{ID: "a", Pkgs: []string{"ea-apache24"}}, true},
		{"no packages", Profile{ID: "a", Name: "A"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.profile.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate() error = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestProfile_MissingFrom(t *testing.T) {
	c := pkginfo.Catalog{}
	c.Add(&pkginfo.Package{Name: "ea-apache24"})
	p := &Profile{Pkgs: []string{"ea-php56", "ea-apache24", "ea-php55", "ea-php56"}}

	if got, want := p.MissingFrom(c), []string{"ea-php55", "ea-php56"}; !reflect.DeepEqual(got, want) {
		t.Errorf("MissingFrom() = %v, want %v", got, want)
	}
}

func TestFromSelection(t *testing.T) {
	p := FromSelection("custom", "Custom", []string{"ea-php81", "ea-apache24"})
	if p.ID != "custom" || !reflect.DeepEqual(p.Pkgs, []string{"ea-apache24", "ea-php81"}) {
		t.Errorf("FromSelection() = %+v", p)
	}
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "custom")
	store, err := NewFileStore(dir, log.New(&bytes.Buffer{}))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	if _, err := store.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() missing error = %v, want ErrNotFound", err)
	}

	a := &Profile{ID: "beta", Name: "Beta", Pkgs: []string{"ea-php81", "ea-apache24"}}
	b := &Profile{ID: "alpha", Name: "Alpha", Tags: []string{"PHP"}, Pkgs: []string{"ea-apache24"}}
	for _, p := range []*Profile{a, b} {
		if err := store.Put(ctx, p); err != nil {
			t.Fatalf("Put(%s) error = %v", p.ID, err)
		}
	}

	got, err := store.Get(ctx, "beta")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	want := &Profile{ID: "beta", Name: "Beta", Pkgs: []string{"ea-apache24", "ea-php81"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}

	// Unreadable files are skipped by List.
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var ids []string
	for _, p := range list {
		ids = append(ids, p.ID)
	}
	if want := []string{"alpha", "beta"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("List() ids = %v, want %v", ids, want)
	}

	if err := store.Delete(ctx, "alpha"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "alpha"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}

	if err := store.Put(ctx, &Profile{ID: "../x", Name: "x", Pkgs: []string{"ea-a"}}); !errors.Is(err, ErrInvalid) {
		t.Errorf("Put() bad id error = %v, want ErrInvalid", err)
	}
	if _, err := store.Get(ctx, "../beta"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() bad id error = %v, want ErrNotFound", err)
	}
}
