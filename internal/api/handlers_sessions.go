package api

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/thoulee21/bedit/internal/format"
	"github.com/thoulee21/bedit/internal/session"
)

// upload is a file taken from a multipart request.
type upload struct {
	file     multipart.File
	filename string
	format   format.Format
}

// readUpload parses the multipart "file" field. ok is false when the request
// carries no multipart body at all.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (u *upload, ok bool, err error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, false, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, true, fmt.Errorf("parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, true, fmt.Errorf("%w: file is required", errBadRequest)
	}
	filename := sanitizeFilename(header.Filename)

	var f format.Format
	if name := r.FormValue("format"); name != "" {
		f, err = format.ParseFormat(name)
	} else {
		f, err = format.FormatForFile(filename)
	}
	if err != nil {
		file.Close()
		return nil, true, err
	}
	return &upload{file: file, filename: filename, format: f}, true, nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	u, ok, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		sess := s.store.Create()
		writeJSON(w, http.StatusCreated, sess.Snapshot())
		return
	}
	defer r.MultipartForm.RemoveAll()
	defer u.file.Close()

	start := time.Now()
	sess, err := s.store.CreateFrom(r.Context(), u.format, u.file, u.filename)
	s.metrics.conversion("import", u.format, start, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReplaceDocument re-imports the session's document from an upload.
func (s *Server) handleReplaceDocument(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	u, ok, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !ok {
		jsonError(w, "multipart file upload required", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()
	defer u.file.Close()

	start := time.Now()
	err = sess.Import(r.Context(), u.format, u.file, u.filename)
	s.metrics.conversion("import", u.format, start, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(format.JSON)
	}
	f, err := format.ParseFormat(name)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	start := time.Now()
	out, err := sess.Export(r.Context(), f)
	s.metrics.conversion("export", f, start, err)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(out.Metadata.Title, f)))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Data)
}

func exportName(title string, f format.Format) string {
	name := sanitizeFilename(title)
	if title == "" {
		name = "document"
	}
	return name + "." + string(f)
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"outline": sess.Snapshot().Outline})
}

// handleSessionMetrics returns document counts and, when a path is given,
// the line and column of that point.
func (s *Server) handleSessionMetrics(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	resp := map[string]any{"counts": sess.Counts()}
	q := r.URL.Query()
	if q.Has("path") {
		pt, err := parsePoint(q.Get("path"), q.Get("offset"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		resp["cursor"] = sess.Cursor(&pt)
	}
	writeJSON(w, http.StatusOK, resp)
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
