package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/keeper/internal/domain"
)

const columns = "id,user_id,title,url,created_at"

// Repository implements bookmark persistence on top of Client.
type Repository struct {
	client *Client
}

func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

func eq(v string) string { return "eq." + v }

// ListByUser returns the user's bookmarks, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	q := url.Values{}
	q.Set("select", columns)
	q.Set("user_id", eq(userID))
	q.Set("order", "created_at.desc")

	data, err := r.client.do(ctx, http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}

	var rows []domain.Bookmark
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode bookmarks: %w", err)
	}
	return rows, nil
}

// Insert creates the row and returns the representation PostgREST echoes back.
func (r *Repository) Insert(ctx context.Context, d domain.Draft) (domain.Bookmark, error) {
	q := url.Values{}
	q.Set("select", columns)

	data, err := r.client.do(ctx, http.MethodPost, q, d)
	if err != nil {
		return domain.Bookmark{}, err
	}

	var rows []domain.Bookmark
	if err := json.Unmarshal(data, &rows); err != nil {
		return domain.Bookmark{}, fmt.Errorf("decode inserted bookmark: %w", err)
	}
	if len(rows) == 0 {
		return domain.Bookmark{}, fmt.Errorf("insert returned no representation")
	}
	return rows[0], nil
}

// DeleteByID deletes one of the user's rows. An empty representation means
// nothing matched, reported as domain.ErrNotFound.
func (r *Repository) DeleteByID(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	q := url.Values{}
	q.Set("id", eq(id))
	q.Set("user_id", eq(userID))
	q.Set("select", "id")

	data, err := r.client.do(ctx, http.MethodDelete, q, nil)
	if err != nil {
		return err
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("decode deleted rows: %w", err)
	}
	if len(rows) == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// URLsByUser returns every stored url of the user.
func (r *Repository) URLsByUser(ctx context.Context, userID string) ([]string, error) {
	q := url.Values{}
	q.Set("select", "url")
	q.Set("user_id", eq(userID))

	data, err := r.client.do(ctx, http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode urls: %w", err)
	}
	urls := make([]string, 0, len(rows))
	for _, row := range rows {
		urls = append(urls, row.URL)
	}
	return urls, nil
}

// Ping reads at most one id.
func (r *Repository) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("limit", "1")
	_, err := r.client.do(ctx, http.MethodGet, q, nil)
	return err
}
