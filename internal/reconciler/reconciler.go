// Package reconciler keeps one user's visible bookmark list consistent while
// three sources mutate it: the initial bulk load, local add/delete requests
// and remote change notifications that may arrive in any order.
//
// Adds follow the notification-only strategy: RequestAdd never touches the
// list, the change feed is the single writer for new rows. Deletes are
// optimistic and rolled back when the backend refuses them.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
)

// Backend is the data collaborator. Implementations enforce that a user only
// reads and writes their own rows.
type Backend interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Bookmark, error)
	Insert(ctx context.Context, draft domain.Draft) (domain.Bookmark, error)
	DeleteByID(ctx context.Context, userID, id string) error
}

// pendingDelete is an optimistic removal waiting for the backend verdict.
type pendingDelete struct {
	record        domain.Bookmark
	index         int
	remoteDeleted bool
}

// Reconciler owns the canonical list for one session.
// All mutations are serialized by mu; backend round-trips run outside it.
type Reconciler struct {
	mu      sync.Mutex
	session domain.Session
	backend Backend
	logger  logger.Logger

	list    []domain.Bookmark
	loaded  bool
	backlog []domain.Change
	pending map[string]*pendingDelete
	// reloading keeps the previous list visible while a new baseline is
	// fetched. Remote changes are buffered until it lands.
	reloading bool

	version uint64
	changed chan struct{}
}

// New builds a reconciler for an authenticated session.
func New(sess domain.Session, backend Backend, log logger.Logger) (*Reconciler, error) {
	if !sess.Authenticated() {
		return nil, domain.ErrUnauthenticated
	}
	return &Reconciler{
		session: sess,
		backend: backend,
		logger:  log.With(logger.UserID(sess.UserID())),
		pending: make(map[string]*pendingDelete),
		changed: make(chan struct{}),
	}, nil
}

// Session returns the session the reconciler currently serves.
func (r *Reconciler) Session() domain.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Load fetches the user's rows from the backend and installs them as baseline.
func (r *Reconciler) Load(ctx context.Context) error {
	userID := r.Session().UserID()

	records, err := r.backend.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("%w: list bookmarks: %w", domain.ErrBackend, err)
	}

	r.LoadInitial(records)
	return nil
}

// LoadInitial replaces the whole list and replays any change received before
// the first load, in arrival order.
func (r *Reconciler) LoadInitial(records []domain.Bookmark) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID := r.session.UserID()
	seen := make(map[string]bool, len(records))
	list := make([]domain.Bookmark, 0, len(records))

	for _, rec := range records {
		if rec.ID == "" || seen[rec.ID] {
			continue
		}
		if rec.UserID != userID {
			r.logger.Warn("dropping foreign bookmark from initial load",
				logger.String("bookmark_id", rec.ID))
			continue
		}
		seen[rec.ID] = true
		// Rows with a delete in flight stay hidden; refresh the rollback copy.
		if p := r.pending[rec.ID]; p != nil {
			p.record = rec
			continue
		}
		list = append(list, rec)
	}
	sortNewestFirst(list)

	r.list = list
	r.loaded = true
	r.reloading = false

	backlog := r.backlog
	r.backlog = nil
	for _, c := range backlog {
		r.applyLocked(c)
	}

	r.logger.Debug("bookmark list loaded",
		logger.Int("count", len(r.list)),
		logger.Int("replayed", len(backlog)))
	r.bumpLocked()
}

// ApplyRemoteChange folds one change notification into the list.
// Replays are harmless: a duplicate insert or delete is a no-op.
func (r *Reconciler) ApplyRemoteChange(c domain.Change) {
	if c == nil || c.BookmarkID() == "" {
		r.logger.Warn("ignoring change without bookmark id")
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if reason := r.rejectLocked(c); reason != "" {
		r.logger.Warn("ignoring remote change",
			logger.String("reason", reason),
			logger.String("bookmark_id", c.BookmarkID()),
			logger.String("kind", domain.ChangeKind(c)))
		return
	}

	if !r.loaded || r.reloading {
		r.backlog = append(r.backlog, c)
		return
	}

	if r.applyLocked(c) {
		r.bumpLocked()
	}
}

// rejectLocked returns why c must not touch the list, or "" when it may.
// Inserted and Updated carry a full row, so its owner must be the session
// user and its title and url must be set. A Deleted may carry only the id.
func (r *Reconciler) rejectLocked(c domain.Change) string {
	userID := r.session.UserID()
	switch ev := c.(type) {
	case domain.Inserted:
		return rejectRecord(ev.Record, userID)
	case domain.Updated:
		return rejectRecord(ev.Record, userID)
	case domain.Deleted:
		if ev.UserID != "" && ev.UserID != userID {
			return "foreign owner"
		}
	}
	return ""
}

func rejectRecord(rec domain.Bookmark, userID string) string {
	switch {
	case rec.UserID != userID:
		return "foreign owner"
	case strings.TrimSpace(rec.Title) == "" || strings.TrimSpace(rec.URL) == "":
		return "incomplete record"
	}
	return ""
}

// applyLocked reports whether the visible list changed.
func (r *Reconciler) applyLocked(c domain.Change) bool {
	id := c.BookmarkID()
	p := r.pending[id]

	switch ev := c.(type) {
	case domain.Inserted:
		if p != nil || indexOf(r.list, id) >= 0 {
			return false
		}
		r.list = insertSorted(r.list, ev.Record)
		return true

	case domain.Updated:
		if p != nil {
			p.record.Title = ev.Record.Title
			p.record.URL = ev.Record.URL
			return false
		}
		i := indexOf(r.list, id)
		if i < 0 {
			return false
		}
		rec := ev.Record
		rec.CreatedAt = r.list[i].CreatedAt
		r.list[i] = rec
		return true

	case domain.Deleted:
		if p != nil {
			p.remoteDeleted = true
			return false
		}
		i := indexOf(r.list, id)
		if i < 0 {
			return false
		}
		r.list = removeAt(r.list, i)
		return true

	default:
		r.logger.Warn("ignoring unknown change kind", logger.String("bookmark_id", id))
		return false
	}
}

// RequestAdd validates the input and submits it to the backend.
// The list is left untouched; the new row shows up through the change feed.
func (r *Reconciler) RequestAdd(ctx context.Context, title, url string) (domain.Bookmark, error) {
	draft, err := domain.NewDraft(r.Session().UserID(), title, url)
	if err != nil {
		return domain.Bookmark{}, err
	}

	rec, err := r.backend.Insert(ctx, draft)
	if err != nil {
		r.logger.Warn("bookmark insert failed", logger.Error(err))
		return domain.Bookmark{}, fmt.Errorf("%w: insert bookmark: %w", domain.ErrBackend, err)
	}

	r.logger.Debug("bookmark insert acknowledged", logger.String("bookmark_id", rec.ID))
	return rec, nil
}

// RequestDelete removes the bookmark optimistically and asks the backend to
// delete it. A backend failure restores the record at its prior position.
func (r *Reconciler) RequestDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	if r.pending[id] != nil {
		r.mu.Unlock()
		return domain.ErrDeletePending
	}
	i := indexOf(r.list, id)
	if i < 0 {
		r.mu.Unlock()
		return domain.ErrNotFound
	}
	r.pending[id] = &pendingDelete{record: r.list[i], index: i}
	r.list = removeAt(r.list, i)
	userID := r.session.UserID()
	r.bumpLocked()
	r.mu.Unlock()

	err := r.backend.DeleteByID(ctx, userID, id)

	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.pending[id]
	delete(r.pending, id)

	switch {
	case err == nil:
		return nil
	case p == nil:
		// The reconciler was reset while the request was in flight.
		return fmt.Errorf("%w: delete bookmark: %w", domain.ErrBackend, err)
	case errors.Is(err, domain.ErrNotFound):
		r.logger.Debug("bookmark already gone on backend", logger.String("bookmark_id", id))
		return nil
	case p.remoteDeleted:
		r.logger.Warn("delete reported failure but feed confirmed removal",
			logger.String("bookmark_id", id), logger.Error(err))
		return nil
	}

	if indexOf(r.list, id) < 0 {
		r.list = restoreAt(r.list, p.record, p.index)
		r.bumpLocked()
	}
	r.logger.Warn("bookmark delete failed, restored",
		logger.String("bookmark_id", id), logger.Error(err))
	return fmt.Errorf("%w: delete bookmark: %w", domain.ErrBackend, err)
}

// Reset swaps the session and forgets all state. The next Load or
// LoadInitial installs a new baseline; changes received before it are buffered.
func (r *Reconciler) Reset(sess domain.Session) error {
	if !sess.Authenticated() {
		return domain.ErrUnauthenticated
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.session = sess
	r.list = nil
	r.loaded = false
	r.reloading = false
	r.backlog = nil
	r.pending = make(map[string]*pendingDelete)
	r.bumpLocked()
	return nil
}

// BeginReload swaps the session ahead of a new baseline. For the same user
// the current list stays visible until Load or LoadInitial replaces it in
// one step; for another user the state is cleared as in Reset.
func (r *Reconciler) BeginReload(sess domain.Session) error {
	if !sess.Authenticated() {
		return domain.ErrUnauthenticated
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loaded || sess.UserID() != r.session.UserID() {
		r.session = sess
		r.list = nil
		r.loaded = false
		r.backlog = nil
		r.pending = make(map[string]*pendingDelete)
		r.bumpLocked()
		return nil
	}

	r.session = sess
	r.reloading = true
	return nil
}

// AbortReload ends a reload that could not fetch its baseline. The previous
// list stays and buffered changes are applied to it.
func (r *Reconciler) AbortReload() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.reloading {
		return
	}
	r.reloading = false

	backlog := r.backlog
	r.backlog = nil
	changed := false
	for _, c := range backlog {
		if r.applyLocked(c) {
			changed = true
		}
	}
	if changed {
		r.bumpLocked()
	}
}

// Reinit is BeginReload followed by Load. Until the new baseline lands the
// previous list of the same user stays visible.
func (r *Reconciler) Reinit(ctx context.Context, sess domain.Session) error {
	if err := r.BeginReload(sess); err != nil {
		return err
	}
	if err := r.Load(ctx); err != nil {
		r.AbortReload()
		return err
	}
	return nil
}

// Snapshot is a consistent read of the visible state.
type Snapshot struct {
	Version   uint64
	Loaded    bool
	Bookmarks []domain.Bookmark
}

// Snapshot returns version, load state and list under one lock.
func (r *Reconciler) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Bookmark, len(r.list))
	copy(out, r.list)
	return Snapshot{Version: r.version, Loaded: r.loaded, Bookmarks: out}
}

// Bookmarks returns a copy of the visible list, newest first.
func (r *Reconciler) Bookmarks() []domain.Bookmark {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Bookmark, len(r.list))
	copy(out, r.list)
	return out
}

// Loaded reports whether a baseline has been installed.
func (r *Reconciler) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Pending reports whether a delete of id is in flight.
func (r *Reconciler) Pending(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending[id] != nil
}

// Version increases on every visible mutation.
func (r *Reconciler) Version() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version
}

// Changed returns a channel closed at the next visible mutation.
func (r *Reconciler) Changed() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changed
}

func (r *Reconciler) bumpLocked() {
	r.version++
	close(r.changed)
	r.changed = make(chan struct{})
}
