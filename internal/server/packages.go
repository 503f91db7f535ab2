package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frederic-klein/eapkg/internal/catalog"
	apierr "github.com/frederic-klein/eapkg/internal/errors"
	"github.com/frederic-klein/eapkg/internal/graph"
	"github.com/frederic-klein/eapkg/internal/pkginfo"
	"github.com/frederic-klein/eapkg/internal/resolver"
)

type packageSummary struct {
	Name        string        `json:"name"`
	DisplayName string        `json:"displayName"`
	Version     string        `json:"version"`
	State       pkginfo.State `json:"state"`
}

type packageView struct {
	packageSummary
	Summary   string     `json:"summary"`
	Requires  []string   `json:"requires"`
	OrGroups  [][]string `json:"orGroups"`
	Conflicts []string   `json:"conflicts"`
}

func summarize(p *pkginfo.Package) packageSummary {
	return packageSummary{Name: p.Name, DisplayName: p.DisplayName, Version: p.Version, State: p.State}
}

func (s *Server) listPackages(w http.ResponseWriter, r *http.Request) {
	names := s.catalog.Names()
	if t := r.URL.Query().Get("type"); t != "" {
		kind, err := catalog.ParseKind(t)
		if err != nil {
			s.writeError(w, r, apierr.Wrap(apierr.ErrCodeInvalidInput, err, "%v", err))
			return
		}
		names = catalog.Subset(s.catalog, kind)
	}

	out := make([]packageSummary, 0, len(names))
	for _, name := range names {
		out = append(out, summarize(s.catalog[name]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) lookup(name string) (*pkginfo.Package, error) {
	p, ok := s.catalog.Lookup(name)
	if !ok {
		return nil, notFoundf(apierr.ErrCodePackageNotFound, "package %s not found", name)
	}
	return p, nil
}

func (s *Server) getPackage(w http.ResponseWriter, r *http.Request) {
	p, err := s.lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	view := packageView{
		packageSummary: summarize(p),
		Summary:        p.Summary,
		Requires:       []string{},
		OrGroups:       [][]string{},
		Conflicts:      append([]string{}, p.Conflicts...),
	}
	for _, req := range p.Requires {
		if req.IsGroup() {
			view.OrGroups = append(view.OrGroups, req.AnyOf)
		} else {
			view.Requires = append(view.Requires, req.Name)
		}
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getDeps(w http.ResponseWriter, r *http.Request) {
	deps, err := resolver.New(s.catalog, resolver.WithLogger(s.logger)).Dependencies(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deps)
}

func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	p, err := s.lookup(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dot := graph.ToDOT(s.catalog, graph.Options{
		Roots:        []string{p.Name},
		DisplayNames: r.URL.Query().Get("labels") == "display",
	})
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.Write([]byte(dot))
}
