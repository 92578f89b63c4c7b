package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
)

const probeTimeout = 2 * time.Second

type readyzResponse struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Readyz reports ready only when both Redis and the bookmark store answer.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		checks := map[string]string{
			"redis": probeResult(pingRedis(ctx, d)),
			"store": probeResult(pingStore(ctx, d)),
		}

		ready := true
		for _, v := range checks {
			if v != "ok" {
				ready = false
			}
		}

		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, readyzResponse{Ready: ready, Checks: checks})
	}
}

func probeResult(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

func pingRedis(ctx context.Context, d deps.Deps) error {
	if d.RedisClient == nil {
		return errNotConfigured
	}
	return d.RedisClient.Ping(ctx).Err()
}

func pingStore(ctx context.Context, d deps.Deps) error {
	if d.Bookmarks == nil {
		return errNotConfigured
	}
	return d.Bookmarks.Ping(ctx)
}
