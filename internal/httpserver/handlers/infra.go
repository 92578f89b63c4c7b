package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
)

var errNotConfigured = errors.New("client not initialized")

type componentStatus struct {
	OK      bool   `json:"ok"`
	Mode    string `json:"mode,omitempty"`
	Impact  string `json:"impact,omitempty"`
	Views   *int   `json:"views,omitempty"`
	Revoked *int   `json:"revoked_tokens,omitempty"`
	Error   string `json:"error,omitempty"`
}

type infraResponse struct {
	SyncMode   string                     `json:"sync_mode"`
	Components map[string]componentStatus `json:"components"`
}

func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		views := 0
		if d.Views != nil {
			views = d.Views.Count()
		}

		components := map[string]componentStatus{
			"store":    checkStore(ctx, d),
			"redis":    checkRedis(ctx, d),
			"views":    {OK: d.Views != nil, Views: &views},
			"sessions": checkSessions(ctx, d),
			"import": {
				OK:   true,
				Mode: importMode(d),
			},
		}

		writeJSON(w, http.StatusOK, infraResponse{
			SyncMode:   determineSyncMode(components),
			Components: components,
		})
	}
}

func determineSyncMode(components map[string]componentStatus) string {
	// Without the store nothing can be listed or written
	if store, exists := components["store"]; exists && !store.OK {
		return "critical"
	}

	// Redis down = lists still load but never update live
	if redis, exists := components["redis"]; exists && !redis.OK {
		return "degraded"
	}

	return "live"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if err := pingStore(ctx, d); err != nil {
		return componentStatus{OK: false, Mode: d.Backend, Impact: "bookmarks-unavailable", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: d.Backend}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if err := pingRedis(ctx, d); err != nil {
		msg := "timeout"
		if errors.Is(err, errNotConfigured) {
			msg = err.Error()
		}
		return componentStatus{
			OK:     false,
			Mode:   "degraded",
			Impact: "live-updates-disabled",
			Error:  msg,
		}
	}

	return componentStatus{
		OK:     true,
		Mode:   "optimal",
		Impact: "live-updates-enabled",
	}
}

func importMode(d deps.Deps) string {
	if d.ImportTrigger == nil {
		return "on-demand"
	}
	return "scheduled"
}

func checkSessions(ctx context.Context, d deps.Deps) componentStatus {
	if d.Revocations == nil {
		return componentStatus{OK: false, Error: errNotConfigured.Error()}
	}
	n, err := d.Revocations.RevokedCount(ctx)
	if err != nil {
		return componentStatus{OK: false, Impact: "sign-out-unverifiable", Error: err.Error()}
	}
	return componentStatus{OK: true, Revoked: &n}
}
