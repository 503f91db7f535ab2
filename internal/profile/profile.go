// Package profile reads, writes and stores EasyApache 4 profiles: named
// package lists that seed the customize wizard.
package profile

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"sort"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

var (
	// ErrNotFound is returned when a store has no profile with the given ID.
	ErrNotFound = errors.New("profile not found")

	// ErrInvalid is returned for profiles that cannot be stored.
	ErrInvalid = errors.New("invalid profile")
)

var idRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Profile is an EA4 profile document.
type Profile struct {
	// ID is the storage key: the file name without .json, or the document
	// _id. It is not part of the document.
	ID      string   `json:"-" bson:"_id"`
	Name    string   `json:"name" bson:"name"`
	Desc    string   `json:"desc,omitempty" bson:"desc,omitempty"`
	Version string   `json:"version,omitempty" bson:"version,omitempty"`
	Tags    []string `json:"tags,omitempty" bson:"tags,omitempty"`
	Pkgs    []string `json:"pkgs" bson:"pkgs"`
}

// ValidID reports whether id can be used as a storage key.
func ValidID(id string) bool {
	return idRe.MatchString(id)
}

// Validate checks that the profile can be stored.
func (p *Profile) Validate() error {
	if !ValidID(p.ID) {
		return fmt.Errorf("%w: bad id %q", ErrInvalid, p.ID)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalid, p.ID)
	}
	if len(p.Pkgs) == 0 {
		return fmt.Errorf("%w: %s has no packages", ErrInvalid, p.ID)
	}
	return nil
}

// Normalize sorts and deduplicates the package and tag lists.
func (p *Profile) Normalize() {
	p.Pkgs = sortedUnique(p.Pkgs)
	p.Tags = sortedUnique(p.Tags)
}

func sortedUnique(in []string) []string {
	if in == nil {
		return nil
	}
	out := slices.Clone(in)
	sort.Strings(out)
	return slices.Compact(out)
}

// MissingFrom returns the profile packages absent from c, sorted. A profile
// with missing packages cannot be provisioned on this server as-is.
func (p *Profile) MissingFrom(c pkginfo.Catalog) []string {
	var missing []string
	for _, name := range p.Pkgs {
		if _, ok := c.Lookup(name); !ok {
			missing = append(missing, name)
		}
	}
	return sortedUnique(missing)
}

// FromSelection builds a profile from a wizard selection.
func FromSelection(id, name string, selected []string) *Profile {
	p := &Profile{ID: id, Name: name, Pkgs: slices.Clone(selected)}
	p.Normalize()
	return p
}
