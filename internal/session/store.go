package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/thoulee21/bedit/internal/format"
)

// Store is a thread-safe in-memory session registry with TTL eviction.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	reg      *format.Registry
	log      *slog.Logger
	now      func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStore creates an empty store. Sessions idle for longer than ttl are
// evicted once Start is running; a zero ttl keeps them forever.
func NewStore(reg *format.Registry, ttl time.Duration, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		reg:      reg,
		log:      log,
		now:      time.Now,
	}
}

// Create registers a new session holding a blank document.
func (s *Store) Create() *Session {
	sess := New(uuid.NewString(), s.reg, s.log)
	sess.now = s.now
	sess.touch()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess
}

// CreateFrom registers a new session initialised from an import. Nothing is
// registered when the import fails.
func (s *Store) CreateFrom(ctx context.Context, f format.Format, r io.Reader, filename string) (*Session, error) {
	sess := New(uuid.NewString(), s.reg, s.log)
	sess.now = s.now
	if err := sess.Import(ctx, f, r, filename); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess, nil
}

// Get returns the session and marks it used.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	sess.touch()
	return sess, nil
}

// Delete discards a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	delete(s.sessions, id)
	return nil
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes expired sessions and reports how many went. Busy sessions
// are kept until their import or export finishes.
func (s *Store) Cleanup() int {
	if s.ttl <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, sess := range s.sessions {
		if sess.Snapshot().Busy {
			continue
		}
		if now.Sub(sess.idleSince()) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.log.Info("evicted idle sessions", "count", removed, "remaining", len(s.sessions))
	}
	return removed
}

// Start launches the cleanup ticker. It runs until ctx is cancelled or Stop
// is called.
func (s *Store) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	interval := time.Minute
	if s.ttl > 0 && s.ttl/2 < interval {
		interval = max(s.ttl/2, time.Second)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup()
			}
		}
	}()
}

// Stop ends the cleanup goroutine and waits for it.
func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
