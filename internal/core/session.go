package core

// session.go keeps per-browser workspaces between requests.
//
// Every browser session owns a Workspace holding its uploaded files keyed by
// file id. Workspaces expire after a period of inactivity; reading one
// extends its lifetime.

import (
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultSessionTTL is how long an idle workspace is kept.
const DefaultSessionTTL = 2 * time.Hour

// Workspace is the ordered set of files uploaded in one session.
type Workspace struct {
	ID string

	mu    sync.RWMutex
	order []string
	files map[string]*FileState
}

func newWorkspace(id string) *Workspace {
	return &Workspace{ID: id, files: make(map[string]*FileState)}
}

// Add stores a file state and returns it.
func (w *Workspace) Add(fs *FileState) *FileState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.files[fs.ID] = fs
	w.order = append(w.order, fs.ID)
	return fs
}

// File looks up a file by id.
func (w *Workspace) File(id string) (*FileState, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	fs, ok := w.files[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	return fs, nil
}

// Files returns file states in upload order.
func (w *Workspace) Files() []*FileState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]*FileState, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.files[id])
	}
	return out
}

// Remove drops a file from the workspace.
func (w *Workspace) Remove(id string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.files[id]; !ok {
		return fmt.Errorf("%w: %s", ErrFileNotFound, id)
	}
	delete(w.files, id)
	for i, oid := range w.order {
		if oid == id {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}
	return nil
}

// SessionStore holds workspaces with an idle timeout.
type SessionStore struct {
	cache *ttlcache.Cache[string, *Workspace]
}

// NewSessionStore creates a store whose entries expire after ttl of
// inactivity.
func NewSessionStore(ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		cache: ttlcache.New[string, *Workspace](
			ttlcache.WithTTL[string, *Workspace](ttl),
		),
	}
}

// Start runs the expiry loop until Stop is called.
func (s *SessionStore) Start() { s.cache.Start() }

// Stop ends the expiry loop.
func (s *SessionStore) Stop() { s.cache.Stop() }

// Create opens a new empty workspace with a random id.
func (s *SessionStore) Create() (*Workspace, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	ws := newWorkspace(id)
	s.cache.Set(id, ws, ttlcache.DefaultTTL)
	return ws, nil
}

// Get returns a live workspace and extends its lifetime.
func (s *SessionStore) Get(id string) (*Workspace, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	item := s.cache.Get(id)
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return item.Value(), nil
}

// GetOrCreate returns the workspace for id, or a new one when id is unknown
// or expired.
func (s *SessionStore) GetOrCreate(id string) (*Workspace, bool, error) {
	if ws, err := s.Get(id); err == nil {
		return ws, false, nil
	}
	ws, err := s.Create()
	return ws, true, err
}

// Delete ends a session.
func (s *SessionStore) Delete(id string) { s.cache.Delete(id) }

// Len returns the number of live sessions.
func (s *SessionStore) Len() int { return s.cache.Len() }
