package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apierr "github.com/frederic-klein/eapkg/internal/errors"
	"github.com/frederic-klein/eapkg/internal/profile"
	"github.com/frederic-klein/eapkg/internal/resolver"
	"github.com/frederic-klein/eapkg/internal/session"
	"github.com/frederic-klein/eapkg/internal/wizard"
)

const maxBodySize = 1 << 20

type errorBody struct {
	Code    apierr.Code `json:"code"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	status := apierr.HTTPStatus(e.Code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Code: e.Code, Message: e.Message})
}

// classify tags err with the code its sentinel maps to. Errors that already
// carry a code keep it.
func classify(err error) *apierr.Error {
	var e *apierr.Error
	if errors.As(err, &e) {
		return e
	}

	code := apierr.ErrCodeInternal
	switch {
	case errors.Is(err, resolver.ErrUnknownPackage):
		code = apierr.ErrCodePackageNotFound
	case errors.Is(err, resolver.ErrNoPendingChoice),
		errors.Is(err, resolver.ErrInvalidChoice),
		errors.Is(err, profile.ErrInvalid):
		code = apierr.ErrCodeInvalidInput
	case errors.Is(err, wizard.ErrPending),
		errors.Is(err, wizard.ErrNothingPending),
		errors.Is(err, wizard.ErrChoicePending):
		code = apierr.ErrCodeConflict
	case errors.Is(err, session.ErrNotFound):
		code = apierr.ErrCodeSessionNotFound
	case errors.Is(err, profile.ErrNotFound):
		code = apierr.ErrCodeProfileNotFound
	}
	msg := err.Error()
	if code == apierr.ErrCodeInternal {
		msg = "internal error"
	}
	return apierr.Wrap(code, err, "%s", msg)
}

// decodeBody reads a JSON request body into v. An empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apierr.Wrap(apierr.ErrCodeInvalidInput, err, "invalid request body: %v", err)
	}
	return nil
}

func requirePackage(name string) error {
	if name == "" {
		return apierr.New(apierr.ErrCodeInvalidInput, "missing package")
	}
	return nil
}

func notFoundf(code apierr.Code, format string, args ...any) error {
	return apierr.New(code, "%s", fmt.Sprintf(format, args...))
}
