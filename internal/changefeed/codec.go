package changefeed

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/domain"
)

// Event types on the wire.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// message is the JSON payload published on a user channel.
// The shape follows Supabase realtime postgres_changes so a realtime
// bridge can forward rows without reshaping them.
type message struct {
	EventType       string    `json:"eventType"`
	New             *row      `json:"new,omitempty"`
	Old             *row      `json:"old,omitempty"`
	CommitTimestamp time.Time `json:"commit_timestamp"`
}

type row struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

func rowFrom(b domain.Bookmark) *row {
	return &row{ID: b.ID, UserID: b.UserID, Title: b.Title, URL: b.URL, CreatedAt: b.CreatedAt}
}

func (r *row) bookmark() domain.Bookmark {
	return domain.Bookmark{ID: r.ID, UserID: r.UserID, Title: r.Title, URL: r.URL, CreatedAt: r.CreatedAt}
}

// Encode serializes a change for publishing.
func Encode(c domain.Change, at time.Time) ([]byte, error) {
	msg := message{CommitTimestamp: at.UTC()}

	switch ev := c.(type) {
	case domain.Inserted:
		msg.EventType = EventInsert
		msg.New = rowFrom(ev.Record)
	case domain.Updated:
		msg.EventType = EventUpdate
		msg.New = rowFrom(ev.Record)
		msg.Old = &row{ID: ev.Record.ID, UserID: ev.Record.UserID}
	case domain.Deleted:
		msg.EventType = EventDelete
		msg.Old = &row{ID: ev.ID, UserID: ev.UserID}
	default:
		return nil, fmt.Errorf("%w: unsupported change %T", domain.ErrInvalidChange, c)
	}

	return json.Marshal(msg)
}

// Decode parses and validates a raw payload. Anything that returns nil
// error is safe to hand to the reconciler.
func Decode(payload []byte) (domain.Change, error) {
	var msg message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidChange, err)
	}

	switch msg.EventType {
	case EventInsert, EventUpdate:
		if msg.New == nil {
			return nil, fmt.Errorf("%w: %s without record", domain.ErrInvalidChange, msg.EventType)
		}
		if msg.New.ID == "" {
			return nil, fmt.Errorf("%w: %s without id", domain.ErrInvalidChange, msg.EventType)
		}
		if msg.New.UserID == "" {
			return nil, fmt.Errorf("%w: %s without user_id", domain.ErrInvalidChange, msg.EventType)
		}
		if strings.TrimSpace(msg.New.Title) == "" || strings.TrimSpace(msg.New.URL) == "" {
			return nil, fmt.Errorf("%w: %s without title or url", domain.ErrInvalidChange, msg.EventType)
		}
		if msg.EventType == EventInsert {
			return domain.Inserted{Record: msg.New.bookmark()}, nil
		}
		return domain.Updated{Record: msg.New.bookmark()}, nil

	case EventDelete:
		if msg.Old == nil || msg.Old.ID == "" {
			return nil, fmt.Errorf("%w: DELETE without id", domain.ErrInvalidChange)
		}
		return domain.Deleted{ID: msg.Old.ID, UserID: msg.Old.UserID}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event type %q", domain.ErrInvalidChange, msg.EventType)
	}
}
