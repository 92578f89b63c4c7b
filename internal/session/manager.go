// Package session mounts and tracks views. A view pairs one reconciler with
// one change subscription; the manager guarantees the subscription is
// released on every exit path: unmount, sign-out, idle sweep and shutdown.
package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/keeper/internal/auth"
	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
	"github.com/MrSnakeDoc/keeper/internal/reconciler"
)

// reinitTimeout bounds the reload triggered by a token refresh.
const reinitTimeout = 30 * time.Second

// AuthNotifier is the part of the auth provider the manager listens to.
type AuthNotifier interface {
	OnAuthChange(fn auth.Listener) func()
}

// Manager owns every mounted view.
type Manager struct {
	backend reconciler.Backend
	feed    Feed
	logger  logger.Logger
	now     func() time.Time

	mu    sync.RWMutex
	views map[string]*View // view id -> view
}

func NewManager(backend reconciler.Backend, feed Feed, log logger.Logger) *Manager {
	return &Manager{
		backend: backend,
		feed:    feed,
		logger:  log,
		now:     time.Now,
		views:   make(map[string]*View),
	}
}

// Mount builds a view for sess: reconciler, subscription, then baseline.
// Nothing is acquired for an unauthenticated session.
func (m *Manager) Mount(ctx context.Context, sess domain.Session) (*View, error) {
	if !sess.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}

	id := uuid.NewString()
	log := m.logger.With(logger.ViewID(id), logger.UserID(sess.UserID()))

	rec, err := reconciler.New(sess, m.backend, log)
	if err != nil {
		return nil, err
	}

	v := &View{
		id:     id,
		rec:    rec,
		feed:   m.feed,
		logger: log,
		now:    m.now,
		done:   make(chan struct{}),
	}

	v.opMu.Lock()
	err = v.attachLocked(ctx, sess)
	v.opMu.Unlock()
	if err != nil {
		return nil, err
	}
	v.Touch()

	m.mu.Lock()
	m.views[id] = v
	m.mu.Unlock()

	log.Info("view mounted", logger.Int("bookmarks", len(rec.Bookmarks())))
	return v, nil
}

// Get returns a mounted view.
func (m *Manager) Get(id string) (*View, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.views[id]
	return v, ok
}

// GetForUser returns the view only when userID owns it. Views of other
// users are reported as domain.ErrNotFound.
func (m *Manager) GetForUser(id, userID string) (*View, error) {
	v, ok := m.Get(id)
	if !ok || v.UserID() != userID {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

// Reinit reloads v with sess. A view that fails to re-attach is closed by
// View.Reinit and forgotten here, so it cannot be looked up again.
func (m *Manager) Reinit(ctx context.Context, v *View, sess domain.Session) error {
	err := v.Reinit(ctx, sess)
	if errors.Is(err, domain.ErrViewClosed) {
		_ = m.Unmount(v.ID())
	}
	return err
}

// Unmount closes and forgets a view.
func (m *Manager) Unmount(id string) error {
	m.mu.Lock()
	v, ok := m.views[id]
	delete(m.views, id)
	m.mu.Unlock()

	if !ok {
		return domain.ErrNotFound
	}
	v.Close()
	v.logger.Info("view unmounted")
	return nil
}

// Scoped mounts a view for the duration of fn.
func (m *Manager) Scoped(ctx context.Context, sess domain.Session, fn func(*View) error) error {
	v, err := m.Mount(ctx, sess)
	if err != nil {
		return err
	}
	defer func() { _ = m.Unmount(v.ID()) }()

	return fn(v)
}

// ForUser returns the user's views ordered by id.
func (m *Manager) ForUser(userID string) []*View {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*View, 0)
	for _, v := range m.views {
		if v.UserID() == userID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// UnmountUser closes every view of the user and returns how many were open.
func (m *Manager) UnmountUser(userID string) int {
	views := m.ForUser(userID)
	for _, v := range views {
		_ = m.Unmount(v.ID())
	}
	return len(views)
}

// Count returns the number of mounted views.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.views)
}

// Sweep unmounts views not touched within idleTTL.
func (m *Manager) Sweep(idleTTL time.Duration) int {
	cutoff := m.now().Add(-idleTTL)

	m.mu.RLock()
	var stale []string
	for id, v := range m.views {
		if v.LastSeen().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	swept := 0
	for _, id := range stale {
		if err := m.Unmount(id); err == nil {
			swept++
		}
	}
	return swept
}

// Close unmounts everything.
func (m *Manager) Close() {
	m.mu.Lock()
	views := m.views
	m.views = make(map[string]*View)
	m.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
	m.logger.Info("all views unmounted", logger.Int("count", len(views)))
}

// Watch subscribes the manager to auth transitions.
func (m *Manager) Watch(n AuthNotifier) (unsubscribe func()) {
	return n.OnAuthChange(m.HandleAuthEvent)
}

// HandleAuthEvent tears views down on sign-out and re-initializes them
// with the new session after a token refresh.
func (m *Manager) HandleAuthEvent(ev auth.Event) {
	userID := ev.Session.UserID()
	if userID == "" {
		return
	}

	switch ev.Kind {
	case auth.SignedOut:
		if n := m.UnmountUser(userID); n > 0 {
			m.logger.Info("views closed on sign-out",
				logger.UserID(userID), logger.Int("count", n))
		}

	case auth.TokenRefreshed:
		ctx, cancel := context.WithTimeout(context.Background(), reinitTimeout)
		defer cancel()

		for _, v := range m.ForUser(userID) {
			if err := m.Reinit(ctx, v, ev.Session); err != nil {
				v.logger.Warn("view re-init after token refresh failed", logger.Error(err))
			}
		}
	}
}
