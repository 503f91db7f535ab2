// Package catalog loads the EasyApache package catalog and turns raw WHM
// package records into a pkginfo.Catalog.
//
// Records come from the WHM API (Client), or from a JSON or YAML dump on disk
// (LoadFile). Either way they pass through Build, which drops debug packages,
// converts nested requirement arrays into OR-groups and derives the display
// name shown in the wizard.
package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

var (
	eaPrefix        = regexp.MustCompile(`(?i)^ea-`)
	apacheModPrefix = regexp.MustCompile(`(?i)^ea-apache\d{2}-`)
	debugInfo       = regexp.MustCompile(`-debuginfo`)
)

// Kind is a package category of the customize wizard.
type Kind string

const (
	KindMPM        Kind = "mpm"
	KindModules    Kind = "modules"
	KindPHP        Kind = "php"
	KindExtensions Kind = "extensions"
	KindRuby       Kind = "ruby"
	KindAdditional Kind = "additional"
)

var kindPatterns = map[Kind]*regexp.Regexp{
	KindMPM:        regexp.MustCompile(`(?i)ea-apache24-mod[_-]mpm.*`),
	KindModules:    regexp.MustCompile(`(?i)ea-apache24-mod.*`),
	KindPHP:        regexp.MustCompile(`(?i)^ea-php\d{2}$`),
	KindExtensions: regexp.MustCompile(`(?i)ea-php\d{2}-.*`),
	KindRuby:       regexp.MustCompile(`(?i)ea-ruby\d{2}-.*`),
}

// Kinds returns every category in wizard order.
func Kinds() []Kind {
	return []Kind{KindMPM, KindModules, KindPHP, KindExtensions, KindRuby, KindAdditional}
}

// ParseKind validates a category name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == strings.ToLower(s) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown package type %q", s)
}

// Matches reports whether name belongs to the category. Categories overlap:
// every MPM is also an Apache module. A name is additional when it is an
// EasyApache package that fits no other category.
func (k Kind) Matches(name string) bool {
	if k == KindAdditional {
		if !eaPrefix.MatchString(name) {
			return false
		}
		for _, re := range kindPatterns {
			if re.MatchString(name) {
				return false
			}
		}
		return true
	}
	re, ok := kindPatterns[k]
	return ok && re.MatchString(name)
}

// Subset returns the sorted names of packages in c matching kind.
func Subset(c pkginfo.Catalog, kind Kind) []string {
	var names []string
	for name := range c {
		if kind.Matches(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// DisplayName strips the EasyApache prefix from a package name:
// "ea-apache24-mod_cgid" is shown as "mod_cgid", "ea-php81" as "php81".
// The bare Apache PHP DSO package is labelled "php (DSO)".
func DisplayName(name string) string {
	stripped := name
	if apacheModPrefix.MatchString(name) {
		stripped = apacheModPrefix.ReplaceAllString(name, "")
	} else {
		stripped = eaPrefix.ReplaceAllString(name, "")
	}
	if stripped == "php" {
		stripped = "php (DSO)"
	}
	return stripped
}

func parseState(s string) pkginfo.State {
	switch pkginfo.State(s) {
	case pkginfo.StateInstalled:
		return pkginfo.StateInstalled
	case pkginfo.StateUpdatable:
		return pkginfo.StateUpdatable
	}
	return pkginfo.StateNotInstalled
}

// Build converts raw records into a catalog. Debug-info packages and records
// without a name are skipped; a later record replaces an earlier one with the
// same name.
func Build(records []Record) pkginfo.Catalog {
	c := make(pkginfo.Catalog, len(records))
	for _, rec := range records {
		name := strings.TrimSpace(string(rec.Package))
		if name == "" || debugInfo.MatchString(name) {
			continue
		}

		p := &pkginfo.Package{
			Name:        name,
			DisplayName: DisplayName(name),
			Version:     string(rec.Version),
			Summary:     rec.Summary,
			State:       parseState(rec.State),
		}
		for _, req := range rec.PkgDep.Requires {
			if len(req.Names) == 0 && !req.Group {
				continue
			}
			p.Requires = append(p.Requires, req.Requirement())
		}
		for _, con := range rec.PkgDep.Conflicts {
			if con != "" {
				p.Conflicts = append(p.Conflicts, con)
			}
		}
		c.Add(p)
	}
	return c
}

// ExpandSelection returns names followed by every EasyApache package they
// transitively require through plain requirements, without duplicates.
// Names unknown to the catalog are kept as given but not followed. This is
// how a profile's package list becomes the wizard's initial selection.
func ExpandSelection(c pkginfo.Catalog, names []string) []string {
	var out []string
	seen := make(map[string]bool)

	var visit func(name string)
	visit = func(name string) {
		p, ok := c.Lookup(name)
		if !ok {
			return
		}
		for _, req := range p.Requires {
			if req.IsGroup() || seen[req.Name] || !eaPrefix.MatchString(req.Name) {
				continue
			}
			if _, ok := c.Lookup(req.Name); !ok {
				continue
			}
			seen[req.Name] = true
			out = append(out, req.Name)
			visit(req.Name)
		}
	}

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
		visit(name)
	}
	return out
}
