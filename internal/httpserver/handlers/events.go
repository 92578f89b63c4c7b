package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/httpserver/deps"
	"github.com/MrSnakeDoc/keeper/internal/logger"
)

const defaultHeartbeat = 25 * time.Second

// Events streams a list snapshot after every visible change as Server-Sent
// Events. The stream ends when the client leaves or the view is unmounted.
func Events(d deps.Deps) http.HandlerFunc {
	heartbeat := d.Heartbeat
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}

	return func(w http.ResponseWriter, r *http.Request) {
		v, _, ok := lookupView(w, r, d)
		if !ok {
			return
		}

		rc := http.NewResponseController(w)
		// The server write timeout does not apply to a stream.
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		rec := v.Reconciler()
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			// Grab the signal before reading, so a change landing in between
			// still wakes us up.
			changed := rec.Changed()
			if err := writeEvent(w, "snapshot", snapshot(v)); err != nil {
				d.Logger.Debug("sse write failed", logger.ViewID(v.ID()), logger.Error(err))
				return
			}
			if err := rc.Flush(); err != nil {
				d.Logger.Debug("sse flush failed", logger.ViewID(v.ID()), logger.Error(err))
				return
			}

		wait:
			for {
				select {
				case <-changed:
					break wait
				case <-ticker.C:
					v.Touch()
					if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
						return
					}
					if err := rc.Flush(); err != nil {
						return
					}
				case <-v.Done():
					_ = writeEvent(w, "closed", map[string]string{"view_id": v.ID()})
					_ = rc.Flush()
					return
				case <-r.Context().Done():
					return
				}
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
