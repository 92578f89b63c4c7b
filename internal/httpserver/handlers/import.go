package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keeper/internal/sources/homepage"
)

// Import reads a Homepage bookmarks.yaml from the body and adds its entries
// to the caller's vault. Urls already stored are skipped.
func Import(d deps.Deps) http.HandlerFunc {
	mapper := homepage.NewBookmarkMapper()

	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := sessionOrFail(w, r)
		if !ok {
			return
		}

		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, homepage.MaxImportSize))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "too_large", "import file too large")
				return
			}
			writeError(w, http.StatusBadRequest, "bad_request", "could not read body")
			return
		}

		cfg, err := homepage.ParseBookmarks(data)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}

		drafts, err := mapper.MapDrafts(cfg, sess.UserID())
		if err != nil {
			respondError(w, r, d.Logger, err)
			return
		}

		res, err := d.Bookmarks.Import(r.Context(), sess.UserID(), drafts)
		if err != nil {
			respondError(w, r, d.Logger, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}
