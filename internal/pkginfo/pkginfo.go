package pkginfo

import (
	"slices"
	"sort"
)

// State is the install state reported by the package manager.
type State string

const (
	StateNotInstalled State = "not_installed"
	StateInstalled    State = "installed"
	StateUpdatable    State = "updatable"
)

// Requirement is one requirement slot of a package. Exactly one of Name or
// AnyOf is set: Name for a plain requirement, AnyOf for an OR-group that any
// single member satisfies.
type Requirement struct {
	Name  string
	AnyOf []string
}

// Single returns a plain requirement on name.
func Single(name string) Requirement {
	return Requirement{Name: name}
}

// AnyOf returns an OR-group requirement. With no names it is still a group,
// one that nothing can satisfy.
func AnyOf(names ...string) Requirement {
	group := make([]string, 0, len(names))
	return Requirement{AnyOf: append(group, names...)}
}

// IsGroup reports whether r is an OR-group.
func (r Requirement) IsGroup() bool {
	return r.AnyOf != nil
}

// Package is an installable EasyApache package.
type Package struct {
	Name        string        // e.g., "ea-apache24-mod_cgid"
	DisplayName string        // e.g., "mod_cgid"
	Version     string        // e.g., "2.4.62-1.cp108~el8"
	Summary     string        // one-line description from the repo
	State       State         // install state on this server
	Requires    []Requirement // plain names and OR-groups
	Conflicts   []string      // plain names only
	Selected    bool          // currently part of the selection
}

// PlainRequires reports whether name is one of p's plain (non OR-group)
// requirements.
func (p *Package) PlainRequires(name string) bool {
	for _, r := range p.Requires {
		if !r.IsGroup() && r.Name == name {
			return true
		}
	}
	return false
}

// ConflictsWith reports whether name is listed in p's conflicts.
func (p *Package) ConflictsWith(name string) bool {
	return slices.Contains(p.Conflicts, name)
}

// Clone returns a deep copy of p.
func (p *Package) Clone() *Package {
	c := *p
	if p.Requires != nil {
		c.Requires = make([]Requirement, len(p.Requires))
		for i, r := range p.Requires {
			c.Requires[i] = Requirement{Name: r.Name, AnyOf: slices.Clone(r.AnyOf)}
		}
	}
	c.Conflicts = slices.Clone(p.Conflicts)
	return &c
}

// Catalog maps package names to their metadata.
type Catalog map[string]*Package

// Lookup finds a package in the catalog.
func (c Catalog) Lookup(name string) (*Package, bool) {
	p, ok := c[name]
	return p, ok
}

// Add inserts p, replacing any package with the same name.
func (c Catalog) Add(p *Package) {
	c[p.Name] = p
}

// Names returns all package names sorted alphabetically.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Selected returns the names of selected packages sorted alphabetically.
func (c Catalog) Selected() []string {
	var names []string
	for name, p := range c {
		if p.Selected {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// SetSelected marks exactly the given names as selected. Unknown names are
// ignored.
func (c Catalog) SetSelected(names []string) {
	for _, p := range c {
		p.Selected = false
	}
	for _, name := range names {
		if p, ok := c[name]; ok {
			p.Selected = true
		}
	}
}

// Clone returns a deep copy of the catalog.
func (c Catalog) Clone() Catalog {
	out := make(Catalog, len(c))
	for name, p := range c {
		out[name] = p.Clone()
	}
	return out
}
