package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
	"github.com/MrSnakeDoc/keeper/internal/reconciler"
)

// View is one mounted dashboard: a reconciler plus at most one live
// change subscription.
type View struct {
	id     string
	rec    *reconciler.Reconciler
	feed   Feed
	logger logger.Logger
	now    func() time.Time

	// opMu serializes attach, Reinit and Close.
	opMu   sync.Mutex
	sub    Subscription
	closed bool
	done   chan struct{}

	seenMu   sync.Mutex
	lastSeen time.Time
}

func (v *View) ID() string                         { return v.id }
func (v *View) Reconciler() *reconciler.Reconciler { return v.rec }
func (v *View) UserID() string                     { return v.rec.Session().UserID() }

// Done is closed when the view is unmounted.
func (v *View) Done() <-chan struct{} { return v.done }

// Touch marks the view as in use.
func (v *View) Touch() {
	v.seenMu.Lock()
	v.lastSeen = v.now()
	v.seenMu.Unlock()
}

// LastSeen returns when the view was last touched.
func (v *View) LastSeen() time.Time {
	v.seenMu.Lock()
	defer v.seenMu.Unlock()
	return v.lastSeen
}

// Subscribed reports whether the view holds a live subscription.
func (v *View) Subscribed() bool {
	v.opMu.Lock()
	defer v.opMu.Unlock()
	return v.sub != nil
}

// attachLocked subscribes first, then loads, so no change committed after
// the load can be missed. The reconciler buffers changes until the load
// lands. On load failure the subscription is released.
func (v *View) attachLocked(ctx context.Context, sess domain.Session) error {
	sub, err := v.feed.Subscribe(ctx, sess.UserID(), v.rec.ApplyRemoteChange)
	if err != nil {
		return fmt.Errorf("%w: subscribe: %w", domain.ErrBackend, err)
	}

	if err := v.rec.Load(ctx); err != nil {
		if uerr := sub.Unsubscribe(); uerr != nil {
			v.logger.Warn("unsubscribe after failed load", logger.Error(uerr))
		}
		return err
	}

	v.sub = sub
	return nil
}

func (v *View) detachLocked() {
	if v.sub == nil {
		return
	}
	if err := v.sub.Unsubscribe(); err != nil {
		v.logger.Warn("unsubscribe failed", logger.Error(err))
	}
	v.sub = nil
}

// Reinit swaps the session and reloads. The old subscription is released
// before the new one is acquired and the current list stays visible until
// the new baseline replaces it. If the view cannot re-attach it is closed
// and the error wraps domain.ErrViewClosed.
func (v *View) Reinit(ctx context.Context, sess domain.Session) error {
	if !sess.Authenticated() {
		return domain.ErrUnauthenticated
	}

	v.opMu.Lock()
	defer v.opMu.Unlock()

	if v.closed {
		return domain.ErrNotFound
	}

	v.detachLocked()
	if err := v.rec.BeginReload(sess); err != nil {
		return err
	}
	if err := v.attachLocked(ctx, sess); err != nil {
		v.rec.AbortReload()
		v.closeLocked()
		v.logger.Warn("view closed after failed reload", logger.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrViewClosed, err)
	}

	v.Touch()
	v.logger.Debug("view re-initialized")
	return nil
}

// Close releases the subscription. Only the first call has an effect.
func (v *View) Close() {
	v.opMu.Lock()
	defer v.opMu.Unlock()

	v.closeLocked()
}

func (v *View) closeLocked() {
	if v.closed {
		return
	}
	v.closed = true
	v.detachLocked()
	close(v.done)
}
