package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"scriptsync/internal/kvstore"
	"scriptsync/pkg/logging"
)

// StorageKey is the kvstore key holding the persisted session map.
const StorageKey = "sessions"

// Store is the in-memory session map, written through to a kvstore.Store on
// every mutation. Callers receive copies; mutation goes through Put, Update and Delete.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	// persistMu orders snapshots so the last mutation is also the last write.
	persistMu sync.Mutex
	kv        kvstore.Store
}

// NewStore creates an empty store backed by kv.
func NewStore(kv kvstore.Store) *Store {
	return &Store{
		sessions: make(map[string]*Session),
		kv:       kv,
	}
}

// Load replaces the in-memory map with the persisted one.
func (s *Store) Load(ctx context.Context) error {
	var persisted map[string]*Session
	ok, err := s.kv.Get(ctx, StorageKey, &persisted)
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string]*Session, len(persisted))
	if !ok {
		return nil
	}
	for origin, sess := range persisted {
		if sess == nil {
			continue
		}
		sess.Origin = origin
		s.sessions[origin] = sess
	}
	logging.Debug("Session", "Loaded %d persisted sessions", len(s.sessions))
	return nil
}

// Get returns a copy of the session for origin.
func (s *Store) Get(origin string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[origin]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// Put stores sess under its origin, replacing any previous entry.
func (s *Store) Put(ctx context.Context, sess Session) error {
	s.mu.Lock()
	s.sessions[sess.Origin] = &sess
	s.mu.Unlock()

	return s.persist(ctx)
}

// PutIfAbsent stores sess unless an entry for its origin already exists.
// It reports whether sess was stored.
func (s *Store) PutIfAbsent(ctx context.Context, sess Session) (bool, error) {
	s.mu.Lock()
	if _, exists := s.sessions[sess.Origin]; exists {
		s.mu.Unlock()
		return false, nil
	}
	s.sessions[sess.Origin] = &sess
	s.mu.Unlock()

	return true, s.persist(ctx)
}

// Update applies fn to the session for origin. It reports false, without
// writing, when no session exists.
func (s *Store) Update(ctx context.Context, origin string, fn func(*Session)) (bool, error) {
	s.mu.Lock()
	sess, ok := s.sessions[origin]
	if ok {
		fn(sess)
	}
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, s.persist(ctx)
}

// Delete removes the session for origin. It reports whether one existed.
func (s *Store) Delete(ctx context.Context, origin string) (bool, error) {
	s.mu.Lock()
	_, ok := s.sessions[origin]
	delete(s.sessions, origin)
	s.mu.Unlock()

	if !ok {
		return false, nil
	}
	return true, s.persist(ctx)
}

// DeleteWhere removes every session matching pred and returns the removed origins.
func (s *Store) DeleteWhere(ctx context.Context, pred func(Session) bool) ([]string, error) {
	var removed []string

	s.mu.Lock()
	for origin, sess := range s.sessions {
		if pred(*sess) {
			delete(s.sessions, origin)
			removed = append(removed, origin)
		}
	}
	s.mu.Unlock()

	if len(removed) == 0 {
		return nil, nil
	}
	sort.Strings(removed)
	return removed, s.persist(ctx)
}

// All returns copies of every session, ordered by origin.
func (s *Store) All() []Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Origin < out[j].Origin })
	return out
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// persist writes a snapshot of the map. Session ids are never logged.
func (s *Store) persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[string]Session, len(s.sessions))
	for origin, sess := range s.sessions {
		snapshot[origin] = *sess
	}
	s.mu.RUnlock()

	if err := s.kv.Set(ctx, StorageKey, snapshot); err != nil {
		logging.Error("Session", err, "Failed to persist %d sessions", len(snapshot))
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	return nil
}
