package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
)

const maxBookmarkBody = 16 << 10

type addBookmarkRequest struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// AddBookmark submits a new bookmark. The view's list picks it up from the
// change feed, so the answer is 202 with the stored record.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, _, ok := lookupView(w, r, d)
		if !ok {
			return
		}

		var req addBookmarkRequest
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBookmarkBody))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
			return
		}

		rec, err := v.Reconciler().RequestAdd(r.Context(), req.Title, req.URL)
		if err != nil {
			respondError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusAccepted, rec)
	}
}

// DeleteBookmark removes the bookmark from the view at once and rolls it
// back if the store refuses.
func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, _, ok := lookupView(w, r, d)
		if !ok {
			return
		}

		if err := v.Reconciler().RequestDelete(r.Context(), chi.URLParam(r, "bookmarkID")); err != nil {
			respondError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
