package resolver

import "github.com/frederic-klein/eapkg/internal/pkginfo"

// Blocked is an unsafe candidate together with the selected packages that
// stand in its way.
type Blocked struct {
	Name string   `json:"name"`
	By   []string `json:"by"`
}

// Structure partitions candidates into those that can be applied as-is and
// those that first need other selected packages removed.
type Structure struct {
	Safe   []string  `json:"safe"`
	Unsafe []Blocked `json:"unsafe"`
}

// BuildRequireStructure classifies each candidate requirement. A requirement
// is unsafe when a selected package lists it as a conflict.
func BuildRequireStructure(candidates, selected []string, catalog pkginfo.Catalog) Structure {
	return partition(candidates, selected, catalog, func(sel *pkginfo.Package, cand string) bool {
		return sel.ConflictsWith(cand)
	})
}

// BuildConflictStructure classifies each conflicting package that is currently
// selected. A conflict is unsafe when another selected package still requires
// it.
func BuildConflictStructure(candidates, selected []string, catalog pkginfo.Catalog) Structure {
	return partition(candidates, selected, catalog, func(sel *pkginfo.Package, cand string) bool {
		return sel.PlainRequires(cand)
	})
}

func partition(candidates, selected []string, catalog pkginfo.Catalog, blocks func(*pkginfo.Package, string) bool) Structure {
	s := Structure{Safe: []string{}}
	for _, cand := range candidates {
		var by []string
		for _, name := range selected {
			sel, ok := catalog.Lookup(name)
			if ok && blocks(sel, cand) {
				by = append(by, name)
			}
		}
		if len(by) == 0 {
			s.Safe = append(s.Safe, cand)
			continue
		}
		s.Unsafe = append(s.Unsafe, Blocked{Name: cand, By: by})
	}
	return s
}
