package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/thoulee21/bedit/internal/doctree"
	"github.com/thoulee21/bedit/internal/metrics"
	"github.com/thoulee21/bedit/internal/outline"
	"github.com/thoulee21/bedit/internal/session"
	"github.com/thoulee21/bedit/internal/table"
)

// maxEditBody bounds the JSON body of an edit request.
const maxEditBody = 4 << 20

// pointRequest is a point with its path in dotted form ("0.1.0").
type pointRequest struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
}

type editRequest struct {
	Path   string          `json:"path"`
	Nodes  json.RawMessage `json:"nodes,omitempty"`
	Patch  doctree.Patch   `json:"patch"`
	Anchor *pointRequest   `json:"anchor,omitempty"`
	Focus  *pointRequest   `json:"focus,omitempty"`
	URL    string          `json:"url,omitempty"`
	Rows   int             `json:"rows,omitempty"`
	Cols   int             `json:"cols,omitempty"`
}

type editResponse struct {
	Change   doctree.Change  `json:"change"`
	Revision int             `json:"revision"`
	Counts   metrics.Counts  `json:"counts"`
	Outline  []outline.Entry `json:"outline"`
}

func (req *editRequest) path() (doctree.Path, error) {
	p, err := doctree.ParsePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return p, nil
}

func (req *editRequest) selection() (doctree.Range, error) {
	if req.Anchor == nil {
		return doctree.Range{}, fmt.Errorf("%w: anchor is required", errBadRequest)
	}
	focus := req.Focus
	if focus == nil {
		focus = req.Anchor
	}
	anchor, err := parsePoint(req.Anchor.Path, strconv.Itoa(req.Anchor.Offset))
	if err != nil {
		return doctree.Range{}, err
	}
	end, err := parsePoint(focus.Path, strconv.Itoa(focus.Offset))
	if err != nil {
		return doctree.Range{}, err
	}
	return doctree.Range{Anchor: anchor, Focus: end}, nil
}

func parsePoint(path, offset string) (doctree.Point, error) {
	p, err := doctree.ParsePath(path)
	if err != nil {
		return doctree.Point{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	n := 0
	if offset != "" {
		n, err = strconv.Atoi(offset)
		if err != nil || n < 0 {
			return doctree.Point{}, fmt.Errorf("%w: bad offset %q", errBadRequest, offset)
		}
	}
	return doctree.Point{Path: p, Offset: n}, nil
}

// edit decodes the request body, builds an operation from it and applies it
// to the session.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, name string, build func(*editRequest) (session.Operation, error)) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEditBody)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	op, err := build(&req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	change, err := sess.Apply(op)
	s.metrics.edit(name, err)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%s: %w", name, err))
		return
	}
	snap := sess.Snapshot()
	writeJSON(w, http.StatusOK, editResponse{
		Change:   change,
		Revision: snap.Revision,
		Counts:   snap.Counts,
		Outline:  snap.Outline,
	})
}

func (s *Server) handleInsertNodes(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, "insert", func(req *editRequest) (session.Operation, error) {
		at, err := req.path()
		if err != nil {
			return nil, err
		}
		if len(req.Nodes) == 0 {
			return nil, fmt.Errorf("%w: nodes are required", errBadRequest)
		}
		nodes, err := doctree.UnmarshalNodes(req.Nodes)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return session.Insert(at, nodes...), nil
	})
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, "remove", func(req *editRequest) (session.Operation, error) {
		at, err := req.path()
		if err != nil {
			return nil, err
		}
		return session.Remove(at), nil
	})
}

func (s *Server) handleSetProperties(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, "set_properties", func(req *editRequest) (session.Operation, error) {
		at, err := req.path()
		if err != nil {
			return nil, err
		}
		return session.SetProperties(at, req.Patch), nil
	})
}

func (s *Server) handleWrapLink(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, "wrap_link", func(req *editRequest) (session.Operation, error) {
		if req.URL == "" {
			return nil, fmt.Errorf("%w: url is required", errBadRequest)
		}
		rng, err := req.selection()
		if err != nil {
			return nil, err
		}
		return session.WrapLink(rng, req.URL), nil
	})
}

func (s *Server) handleInsertTable(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, "insert_table", func(req *editRequest) (session.Operation, error) {
		at, err := req.path()
		if err != nil {
			return nil, err
		}
		if req.Rows < 1 || req.Cols < 1 {
			return nil, fmt.Errorf("%w: rows and cols must be positive", errBadRequest)
		}
		return session.InsertTable(at, req.Rows, req.Cols), nil
	})
}

type cellOp func(*doctree.Document, doctree.Path) (*doctree.Document, doctree.Change, error)

var tableOps = map[string]cellOp{
	"insert-row":    table.InsertRow,
	"insert-column": table.InsertColumn,
	"remove-row":    table.RemoveRow,
	"remove-column": table.RemoveColumn,
	"split":         table.SplitCell,
}

// handleTableOp runs a structural table edit. Merge takes a selection; the
// others take the path of a cell or a node inside one.
func (s *Server) handleTableOp(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "op")
	if name == "merge" {
		s.edit(w, r, name, func(req *editRequest) (session.Operation, error) {
			rng, err := req.selection()
			if err != nil {
				return nil, err
			}
			return session.MergeCells(rng), nil
		})
		return
	}
	fn, ok := tableOps[name]
	if !ok {
		jsonError(w, "unknown table operation: "+name, http.StatusNotFound)
		return
	}
	s.edit(w, r, name, func(req *editRequest) (session.Operation, error) {
		at, err := req.path()
		if err != nil {
			return nil, err
		}
		return session.AtPath(fn, at), nil
	})
}
