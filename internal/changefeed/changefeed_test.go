package changefeed

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
)

func TestChannel(t *testing.T) {
	require.Equal(t, "keeper:bookmarks:abc", Channel("abc"))
}

func TestEncodeDecodeKeepsRecord(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := domain.Bookmark{ID: "b1", UserID: "u1", Title: "Go", URL: "https://go.dev", CreatedAt: created}

	payload, err := Encode(domain.Inserted{Record: rec}, created)
	require.NoError(t, err)

	change, err := Decode(payload)
	require.NoError(t, err)

	ins, ok := change.(domain.Inserted)
	require.True(t, ok, "got %T", change)
	require.Equal(t, rec.ID, ins.Record.ID)
	require.Equal(t, rec.Title, ins.Record.Title)
	require.True(t, ins.Record.CreatedAt.Equal(created))
}

func TestEncodeDelete(t *testing.T) {
	payload, err := Encode(domain.Deleted{ID: "b1", UserID: "u1"}, time.Now())
	require.NoError(t, err)
	require.Contains(t, string(payload), `"eventType":"DELETE"`)
	require.NotContains(t, string(payload), `"new"`)
}

func TestDecodeValidation(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    domain.Change
	}{
		{
			name:    "supabase style update",
			payload: `{"eventType":"UPDATE","new":{"id":"b1","user_id":"u1","title":"T","url":"https://x.io"},"old":{"id":"b1"}}`,
			want:    domain.Updated{Record: domain.Bookmark{ID: "b1", UserID: "u1", Title: "T", URL: "https://x.io"}},
		},
		{
			name:    "delete with only id",
			payload: `{"eventType":"DELETE","old":{"id":"b1"}}`,
			want:    domain.Deleted{ID: "b1"},
		},
		{name: "not json", payload: `{{`},
		{name: "unknown type", payload: `{"eventType":"TRUNCATE"}`},
		{name: "insert without record", payload: `{"eventType":"INSERT"}`},
		{name: "insert without id", payload: `{"eventType":"INSERT","new":{"user_id":"u1","title":"T"}}`},
		{name: "delete without id", payload: `{"eventType":"DELETE","old":{"user_id":"u1"}}`},
		{name: "insert without owner", payload: `{"eventType":"INSERT","new":{"id":"b2","title":"B","url":"http://b"}}`},
		{name: "update without owner", payload: `{"eventType":"UPDATE","new":{"id":"b1"}}`},
		{name: "insert without title", payload: `{"eventType":"INSERT","new":{"id":"b2","user_id":"u1","url":"http://b"}}`},
		{name: "update without url", payload: `{"eventType":"UPDATE","new":{"id":"b1","user_id":"u1","title":"T","url":" "}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.payload))
			if tt.want == nil {
				require.ErrorIs(t, err, domain.ErrInvalidChange)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeRejectsUnknownChange(t *testing.T) {
	_, err := Encode(nil, time.Now())
	require.True(t, errors.Is(err, domain.ErrInvalidChange))
}

type recorder struct {
	mu      sync.Mutex
	changes []domain.Change
}

func (r *recorder) handle(c domain.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.BookmarkID())
	}
	return out
}

// startFake runs a subscription fed by a local channel instead of Redis.
func startFake(userID string, rec *recorder) (*Subscription, chan *redis.Message) {
	ch := make(chan *redis.Message)
	sub := newSubscription(userID, rec.handle, logger.Nop())
	var closeOnce sync.Once
	sub.closer = func() error {
		closeOnce.Do(func() { close(ch) })
		return nil
	}
	go sub.run(ch)
	return sub, ch
}

func TestSubscriptionFiltersPayloads(t *testing.T) {
	rec := &recorder{}
	sub, ch := startFake("u1", rec)

	ch <- &redis.Message{Payload: `{"eventType":"INSERT","new":{"id":"ok","user_id":"u1","title":"T","url":"https://t.example"}}`}
	ch <- &redis.Message{Payload: `{"eventType":"INSERT","new":{"id":"foreign","user_id":"u2","title":"T","url":"https://t.example"}}`}
	ch <- &redis.Message{Payload: `garbage`}
	ch <- &redis.Message{Payload: `{"eventType":"DELETE","old":{"id":"gone"}}`}

	require.NoError(t, sub.Unsubscribe())
	require.Equal(t, []string{"ok", "gone"}, rec.ids())
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	rec := &recorder{}
	sub, _ := startFake("u1", rec)

	require.NoError(t, sub.Unsubscribe())
	require.NoError(t, sub.Unsubscribe())

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done() still open after Unsubscribe")
	}
}
