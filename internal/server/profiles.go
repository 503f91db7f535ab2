package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierr "github.com/frederic-klein/eapkg/internal/errors"
	"github.com/frederic-klein/eapkg/internal/profile"
)

type profileView struct {
	ID string `json:"id"`
	*profile.Profile
	// NotOnServer lists packages the catalog lacks.
	NotOnServer []string `json:"notOnServer"`
}

func (s *Server) viewProfile(p *profile.Profile) profileView {
	missing := p.MissingFrom(s.catalog)
	if missing == nil {
		missing = []string{}
	}
	return profileView{ID: p.ID, Profile: p, NotOnServer: missing}
}

func (s *Server) profile(r *http.Request, id string) (*profile.Profile, error) {
	if s.profiles == nil {
		return nil, notFoundf(apierr.ErrCodeProfileNotFound, "profile %s not found", id)
	}
	return s.profiles.Get(r.Context(), id)
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	out := []profileView{}
	if s.profiles != nil {
		list, err := s.profiles.List(r.Context())
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		for _, p := range list {
			out = append(out, s.viewProfile(p))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.profile(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.viewProfile(p))
}

func (s *Server) deleteProfile(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.profiles == nil {
		s.writeError(w, r, notFoundf(apierr.ErrCodeProfileNotFound, "profile %s not found", id))
		return
	}
	if err := s.profiles.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
