package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keeper/internal/session"
)

type viewResponse struct {
	ViewID    string            `json:"view_id"`
	Version   uint64            `json:"version"`
	Loaded    bool              `json:"loaded"`
	Bookmarks []domain.Bookmark `json:"bookmarks"`
}

func snapshot(v *session.View) viewResponse {
	snap := v.Reconciler().Snapshot()
	return viewResponse{
		ViewID:    v.ID(),
		Version:   snap.Version,
		Loaded:    snap.Loaded,
		Bookmarks: snap.Bookmarks,
	}
}

// lookupView resolves {viewID} for the caller and marks it as in use.
func lookupView(w http.ResponseWriter, r *http.Request, d deps.Deps) (*session.View, domain.Session, bool) {
	sess, ok := sessionOrFail(w, r)
	if !ok {
		return nil, domain.Session{}, false
	}

	v, err := d.Views.GetForUser(chi.URLParam(r, "viewID"), sess.UserID())
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "view not found")
		return nil, domain.Session{}, false
	}
	v.Touch()
	return v, sess, true
}

// MountView mounts a view for the caller and returns its first list.
func MountView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrFail(w, r)
		if !ok {
			return
		}

		v, err := d.Views.Mount(r.Context(), sess)
		if err != nil {
			respondError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, snapshot(v))
	}
}

func GetView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, _, ok := lookupView(w, r, d)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, snapshot(v))
	}
}

// ReloadView re-initializes the view with the caller's current session.
func ReloadView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, sess, ok := lookupView(w, r, d)
		if !ok {
			return
		}

		if err := d.Views.Reinit(r.Context(), v, sess); err != nil {
			respondError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot(v))
	}
}

func UnmountView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, _, ok := lookupView(w, r, d)
		if !ok {
			return
		}

		if err := d.Views.Unmount(v.ID()); err != nil {
			respondError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
