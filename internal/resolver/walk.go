package resolver

import (
	"slices"

	"github.com/frederic-klein/eapkg/internal/pkginfo"
)

// walkSelect collects the transitive plain requirements of p into requires and
// every namespaced conflict met on the way into conflicts. OR-groups are queued
// for the multi-requirement chooser instead of being followed. origin is the
// package the walk started from; it is never added to requires here.
func (res *Resolution) walkSelect(p *pkginfo.Package, origin string) {
	name := p.Name
	if !res.r.namespaced(name) {
		return
	}
	if res.visited.has(name) || res.requires.has(name) {
		return
	}
	res.visited.add(name)

	if name != origin {
		res.requires.add(name)
	}
	res.r.logger.Debug("walk", "package", name, "origin", origin)

	for _, c := range p.Conflicts {
		if res.r.namespaced(c) {
			res.conflicts.add(c)
		}
	}

	var next []string
	for _, req := range p.Requires {
		if req.IsGroup() {
			res.queueGroup(req.AnyOf)
			continue
		}
		if res.r.namespaced(req.Name) && !res.requires.has(req.Name) {
			next = append(next, req.Name)
		}
	}

	for _, dep := range next {
		if dp, ok := res.r.catalog.Lookup(dep); ok {
			res.walkSelect(dp, origin)
		}
	}
}

// walkUnselect finds every package in scope that plainly requires p, marks it
// for removal, and repeats the search for each of them. Packages found are
// pulled out of scope so each is examined once.
func (res *Resolution) walkUnselect(p *pkginfo.Package, origin string, scope *[]string) {
	name := p.Name
	if !res.r.namespaced(name) {
		return
	}
	if res.visited.has(name) {
		return
	}
	res.visited.add(name)

	if name != origin {
		res.requires.add(name)
	}

	var dependents []string
	for _, s := range *scope {
		sp, ok := res.r.catalog.Lookup(s)
		if ok && sp.PlainRequires(name) {
			res.removed.add(s)
			dependents = append(dependents, s)
		}
	}
	*scope = without(*scope, dependents...)

	for _, d := range dependents {
		if !res.r.namespaced(d) || res.visited.has(d) {
			continue
		}
		res.r.logger.Debug("dependent removed", "package", d, "requires", name)
		if dp, ok := res.r.catalog.Lookup(d); ok {
			res.walkUnselect(dp, origin, scope)
		}
	}
}

// Deps is the outcome of walking a package's requirements without resolving
// anything against a selection.
type Deps struct {
	Requires  []string   `json:"requires"`
	Conflicts []string   `json:"conflicts"`
	OrGroups  [][]string `json:"orGroups"`
}

// Dependencies returns the transitive plain requirements, the conflicts
// collected along the way, and the OR-groups met, for the named package.
func (r *Resolver) Dependencies(name string) (Deps, error) {
	p, ok := r.catalog.Lookup(name)
	if !ok {
		return Deps{}, unknown("walking", name)
	}
	res := r.newResolution(name, true, nil)
	res.walkSelect(p, name)

	groups := make([][]string, 0, len(res.groups))
	for _, g := range res.groups {
		groups = append(groups, slices.Clone(g))
	}
	return Deps{
		Requires:  res.requires.list(),
		Conflicts: res.conflicts.list(),
		OrGroups:  groups,
	}, nil
}

// Dependents returns the packages in selected that would have to go if name
// were removed, excluding name itself.
func (r *Resolver) Dependents(name string, selected []string) ([]string, error) {
	p, ok := r.catalog.Lookup(name)
	if !ok {
		return nil, unknown("walking", name)
	}
	res := r.newResolution(name, false, selected)
	scope := slices.Clone(selected)
	res.walkUnselect(p, name, &scope)
	return res.removed.list(), nil
}
