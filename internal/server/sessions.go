package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frederic-klein/eapkg/internal/catalog"
	apierr "github.com/frederic-klein/eapkg/internal/errors"
	"github.com/frederic-klein/eapkg/internal/profile"
	"github.com/frederic-klein/eapkg/internal/session"
	"github.com/frederic-klein/eapkg/internal/wizard"
)

type createRequest struct {
	Profile  string   `json:"profile"`
	Selected []string `json:"selected"`
}

type packageRequest struct {
	Package string `json:"package"`
}

type autoSelectRequest struct {
	Packages []string `json:"packages"`
}

type saveRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

type sessionView struct {
	ID        string      `json:"id"`
	Profile   string      `json:"profile,omitempty"`
	Selected  []string    `json:"selected"`
	Step      wizard.Step `json:"step"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

func viewOf(sess *session.Session, wz *wizard.Session) sessionView {
	selected := wz.Selected()
	if selected == nil {
		selected = []string{}
	}
	return sessionView{
		ID:        sess.ID,
		Profile:   sess.Profile,
		Selected:  selected,
		Step:      wz.State(),
		ExpiresAt: sess.ExpiresAt,
	}
}

func (s *Server) newWizard(selected []string) *wizard.Session {
	return wizard.New(s.catalog, selected, wizard.WithLogger(s.logger))
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	var selected []string
	if req.Profile != "" {
		p, err := s.profile(r, req.Profile)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if missing := p.MissingFrom(s.catalog); len(missing) > 0 {
			s.logger.Warn("profile packages not on server", "profile", p.ID, "missing", missing)
		}
		for _, name := range catalog.ExpandSelection(s.catalog, p.Pkgs) {
			if _, ok := s.catalog.Lookup(name); ok {
				selected = append(selected, name)
			}
		}
	}
	selected = append(selected, req.Selected...)
	for _, name := range selected {
		if _, err := s.lookup(name); err != nil {
			s.writeError(w, r, err)
			return
		}
	}

	wz := s.newWizard(selected)
	sess := session.New(req.Profile, wz.Snapshot(), s.ttl)
	if err := s.sessions.Set(r.Context(), sess); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("session created", "id", sess.ID, "profile", req.Profile, "selected", len(wz.Selected()))
	writeJSON(w, http.StatusCreated, viewOf(sess, wz))
}

// withSession restores the wizard of the session named in the URL, runs fn
// and stores the resulting state. When fn fails the stored state is left as
// it was.
func (s *Server) withSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session, *wizard.Session) error) {
	if view, ok := s.runSession(w, r, fn); ok {
		writeJSON(w, http.StatusOK, view)
	}
}

// runSession is withSession without the success response. It reports whether
// the step succeeded; on failure the error response has been written.
func (s *Server) runSession(w http.ResponseWriter, r *http.Request, fn func(*session.Session, *wizard.Session) error) (sessionView, bool) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.Lock(id)
	defer unlock()

	ctx := r.Context()
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return sessionView{}, false
	}
	wz, err := wizard.Restore(s.catalog, sess.State, wizard.WithLogger(s.logger))
	if err != nil {
		s.writeError(w, r, apierr.Wrap(apierr.ErrCodeConflict, err, "session %s no longer matches the catalog", id))
		return sessionView{}, false
	}

	if err := fn(sess, wz); err != nil {
		s.writeError(w, r, err)
		return sessionView{}, false
	}

	sess.State = wz.Snapshot()
	sess.Touch(s.ttl)
	if err := s.sessions.Set(ctx, sess); err != nil {
		s.writeError(w, r, err)
		return sessionView{}, false
	}
	return viewOf(sess, wz), true
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(*session.Session, *wizard.Session) error { return nil })
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.sessions.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.sessions.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// packageStep decodes {"package": ...} and runs one wizard step with it.
func (s *Server) packageStep(w http.ResponseWriter, r *http.Request, step func(*wizard.Session, string) (wizard.Step, error)) {
	var req packageRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := requirePackage(req.Package); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.withSession(w, r, func(_ *session.Session, wz *wizard.Session) error {
		_, err := step(wz, req.Package)
		return err
	})
}

func (s *Server) toggle(w http.ResponseWriter, r *http.Request) {
	s.packageStep(w, r, (*wizard.Session).Toggle)
}

func (s *Server) choose(w http.ResponseWriter, r *http.Request) {
	s.packageStep(w, r, (*wizard.Session).Choose)
}

func (s *Server) apply(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(_ *session.Session, wz *wizard.Session) error {
		_, err := wz.Apply()
		return err
	})
}

func (s *Server) confirm(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(_ *session.Session, wz *wizard.Session) error {
		_, err := wz.Confirm()
		return err
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	s.withSession(w, r, func(_ *session.Session, wz *wizard.Session) error {
		wz.Reset()
		return nil
	})
}

func (s *Server) autoSelect(w http.ResponseWriter, r *http.Request) {
	var req autoSelectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if len(req.Packages) == 0 {
		s.writeError(w, r, apierr.New(apierr.ErrCodeInvalidInput, "missing packages"))
		return
	}

	var report wizard.AutoSelectReport
	view, ok := s.runSession(w, r, func(_ *session.Session, wz *wizard.Session) error {
		var err error
		report, err = wz.AutoSelect(req.Packages)
		return err
	})
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": view,
		"report":  report,
	})
}

func (s *Server) extensions(w http.ResponseWriter, r *http.Request) {
	php := r.URL.Query().Get("php")
	if err := requirePackage(php); err != nil {
		s.writeError(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	unlock := s.locks.Lock(id)
	defer unlock()

	sess, err := s.sessions.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	candidates, err := s.newWizard(sess.State.Selected).ExtensionCandidates(php)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if candidates == nil {
		candidates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"php": php, "extensions": candidates})
}

func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if s.profiles == nil {
		s.writeError(w, r, apierr.New(apierr.ErrCodeInvalidInput, "no profile store configured"))
		return
	}

	s.withSession(w, r, func(sess *session.Session, wz *wizard.Session) error {
		if wz.State().Status != wizard.StatusIdle {
			return wizard.ErrPending
		}
		p := profile.FromSelection(req.ID, req.Name, wz.Selected())
		p.Desc = req.Desc
		if err := s.profiles.Put(r.Context(), p); err != nil {
			return err
		}
		sess.Profile = p.ID
		return nil
	})
}
