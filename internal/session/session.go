// Package session owns documents while they are being edited.
//
// A Session is the single writer of its document. Operations are serialised
// by a mutex; an import or export in flight marks the session busy, and
// mutations attempted meanwhile fail with ErrBusy instead of queueing. An
// import replaces the document only once the new one is fully built and
// valid. Outline and counts are recomputed after every change, before any
// subscriber hears about it.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/thoulee21/bedit/internal/doctree"
	"github.com/thoulee21/bedit/internal/format"
	"github.com/thoulee21/bedit/internal/metrics"
	"github.com/thoulee21/bedit/internal/outline"
)

var (
	// ErrBusy is returned for operations attempted while an import or export
	// is running.
	ErrBusy = errors.New("session busy")

	// ErrNotFound is returned for unknown or expired session IDs.
	ErrNotFound = errors.New("session not found")
)

// Event is delivered to subscribers after a successful change.
type Event struct {
	SessionID string
	Revision  int
	Change    doctree.Change
	Doc       *doctree.Document
}

// Operation is a pure document transformation such as doctree.InsertNodes
// bound to its arguments.
type Operation func(*doctree.Document) (*doctree.Document, doctree.Change, error)

// Session holds one document, its metadata and the derived views.
type Session struct {
	mu sync.Mutex

	ID string

	doc      *doctree.Document
	meta     format.FileMetadata
	outline  []outline.Entry
	counts   metrics.Counts
	revision int
	busy     bool

	subs    map[int]func(Event)
	nextSub int

	createdAt time.Time
	touchedAt time.Time

	reg *format.Registry
	log *slog.Logger
	now func() time.Time
}

// New returns a session holding a blank document.
func New(id string, reg *format.Registry, log *slog.Logger) *Session {
	if log == nil {
		log = slog.Default()
	}
	now := time.Now()
	s := &Session{
		ID:        id,
		doc:       doctree.New(),
		subs:      make(map[int]func(Event)),
		createdAt: now,
		touchedAt: now,
		reg:       reg,
		log:       log.With("session", id),
		now:       time.Now,
	}
	s.meta = format.FileMetadata{CreatedAt: now, ModifiedAt: now}
	s.recompute()
	return s
}

// Snapshot is a consistent, JSON-safe view of a session.
type Snapshot struct {
	ID        string              `json:"id"`
	Revision  int                 `json:"revision"`
	Busy      bool                `json:"busy"`
	Metadata  format.FileMetadata `json:"metadata"`
	Document  *doctree.Document   `json:"document"`
	Outline   []outline.Entry     `json:"outline"`
	Counts    metrics.Counts      `json:"counts"`
	CreatedAt time.Time           `json:"created_at"`
}

// Snapshot returns the current state. The document is shared, not copied;
// documents are never modified in place.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.outline
	if entries == nil {
		entries = []outline.Entry{}
	}
	return Snapshot{
		ID:        s.ID,
		Revision:  s.revision,
		Busy:      s.busy,
		Metadata:  s.meta,
		Document:  s.doc,
		Outline:   entries,
		Counts:    s.counts,
		CreatedAt: s.createdAt,
	}
}

// Document returns the current document.
func (s *Session) Document() *doctree.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Outline returns the headings of the current document.
func (s *Session) Outline() []outline.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outline
}

// Counts returns the statistics of the current document.
func (s *Session) Counts() metrics.Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

// Cursor maps a point in the current document to a line and column.
func (s *Session) Cursor(pt *doctree.Point) metrics.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return metrics.Cursor(s.doc, pt)
}

// Subscribe registers fn for change events and returns a function that
// removes it. fn runs on the goroutine that made the change, after the
// session lock is released.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Apply runs op against the current document and installs the result. A
// failed op leaves the session untouched. An op that returns its input
// unchanged is not an event.
func (s *Session) Apply(op Operation) (doctree.Change, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return doctree.Change{}, ErrBusy
	}
	next, change, err := op(s.doc)
	if err != nil {
		s.mu.Unlock()
		return doctree.Change{}, err
	}
	if next == s.doc {
		s.touchedAt = s.now()
		s.mu.Unlock()
		return change, nil
	}
	ev := s.install(next, change)
	subs := s.subscribers()
	s.mu.Unlock()

	s.log.Debug("document changed", "op", change.Op, "path", change.Path, "revision", ev.Revision)
	notify(subs, ev)
	return change, nil
}

// Import replaces the document with the contents of r. The old document
// stays in place until the new one has been parsed and validated.
func (s *Session) Import(ctx context.Context, f format.Format, r io.Reader, filename string) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.release()
	res, err := s.reg.Import(ctx, f, r, filename)

	s.mu.Lock()
	s.busy = false
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("import %s: %w", filename, err)
	}
	s.meta = res.Metadata
	ev := s.install(res.Doc, doctree.Change{Op: doctree.OpReplace, Path: doctree.Path{}})
	subs := s.subscribers()
	s.mu.Unlock()

	s.log.Info("document imported", "format", f, "file", filename, "blocks", len(res.Doc.Children))
	notify(subs, ev)
	return nil
}

// Export serialises the current document.
func (s *Session) Export(ctx context.Context, f format.Format) (*format.Output, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.release()
	s.mu.Lock()
	doc, title := s.doc, s.meta.Title
	s.mu.Unlock()

	out, err := s.reg.Export(ctx, f, doc, title)

	s.mu.Lock()
	s.busy = false
	s.touchedAt = s.now()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

// release clears the busy flag when a converter panics, then lets the panic
// continue. Normal returns clear it together with their result.
func (s *Session) release() {
	if p := recover(); p != nil {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
		panic(p)
	}
}

// install swaps in doc and refreshes derived state. Callers hold s.mu.
func (s *Session) install(doc *doctree.Document, change doctree.Change) Event {
	now := s.now()
	s.doc = doc
	s.revision++
	s.meta.ModifiedAt = now
	s.touchedAt = now
	s.recompute()
	return Event{SessionID: s.ID, Revision: s.revision, Change: change, Doc: doc}
}

func (s *Session) recompute() {
	s.outline = outline.Extract(s.doc)
	s.counts = metrics.Compute(s.doc)
}

func (s *Session) subscribers() []func(Event) {
	out := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}

func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchedAt
}

func (s *Session) touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touchedAt = s.now()
}
