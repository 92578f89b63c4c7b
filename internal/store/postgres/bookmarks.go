package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/utils"
)

// Repository implements bookmark persistence over DBTX.
type Repository struct {
	db DBTX
}

func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

// ListByUser returns the user's bookmarks, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	query := `
		SELECT id, user_id, title, url, created_at
		FROM bookmarks
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer utils.Close(rows)

	var out []domain.Bookmark
	for rows.Next() {
		var b domain.Bookmark
		if err := rows.Scan(&b.ID, &b.UserID, &b.Title, &b.URL, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

// Insert stores a validated draft and returns the row with its backend
// assigned id and created_at.
func (r *Repository) Insert(ctx context.Context, d domain.Draft) (domain.Bookmark, error) {
	query := `
		INSERT INTO bookmarks (user_id, title, url)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	b := domain.Bookmark{UserID: d.UserID, Title: d.Title, URL: d.URL}
	if err := r.db.QueryRowContext(ctx, query, d.UserID, d.Title, d.URL).Scan(&b.ID, &b.CreatedAt); err != nil {
		return domain.Bookmark{}, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}

// DeleteByID removes one of the user's rows. It returns domain.ErrNotFound
// when no row of this user has that id.
func (r *Repository) DeleteByID(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}

	query := `
		DELETE FROM bookmarks
		WHERE id = $1 AND user_id = $2
	`
	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// URLsByUser returns every stored url of the user. Used to skip duplicates on import.
func (r *Repository) URLsByUser(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT url
		FROM bookmarks
		WHERE user_id = $1
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer utils.Close(rows)

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// Ping runs a trivial query.
func (r *Repository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}
