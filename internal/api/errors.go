package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/thoulee21/bedit/internal/doctree"
	"github.com/thoulee21/bedit/internal/format"
	"github.com/thoulee21/bedit/internal/session"
	"github.com/thoulee21/bedit/internal/table"
)

// errBadRequest marks malformed request input.
var errBadRequest = errors.New("bad request")

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var (
		parseErr  *format.FormatParseError
		codecErr  *format.ExternalCodecError
		violation *doctree.InvariantViolation
		tooLarge  *http.MaxBytesError
	)
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, format.ErrInputTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, format.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &codecErr):
		return http.StatusBadGateway
	case errors.As(err, &parseErr), errors.As(err, &violation),
		errors.Is(err, table.ErrNonRectangularSelection), errors.Is(err, table.ErrNotMerged):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest),
		errors.Is(err, doctree.ErrPathOutOfRange), errors.Is(err, doctree.ErrInvalidTarget):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError || code == http.StatusBadGateway {
		s.log.Error("request failed", "path", r.URL.Path, "status", code, "error", err)
	}
	jsonError(w, err.Error(), code)
}
