// Package bookmarks is the data collaborator behind every reconciler:
// a repository for the rows plus a publisher that announces each committed
// write on the owner's change feed.
package bookmarks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
)

// publishTimeout bounds one change announcement after a committed write.
const publishTimeout = 2 * time.Second

// Repository persists bookmark rows. Implementations scope every call by user id.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Bookmark, error)
	Insert(ctx context.Context, draft domain.Draft) (domain.Bookmark, error)
	DeleteByID(ctx context.Context, userID, id string) error
	URLsByUser(ctx context.Context, userID string) ([]string, error)
	Ping(ctx context.Context) error
}

// Publisher announces committed changes.
type Publisher interface {
	Publish(ctx context.Context, change domain.Change) error
}

// Service implements reconciler.Backend.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    logger.Logger
}

func NewService(repo Repository, publisher Publisher, log logger.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: log}
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Insert validates and stores the draft, then publishes Inserted.
func (s *Service) Insert(ctx context.Context, d domain.Draft) (domain.Bookmark, error) {
	if err := d.Validate(); err != nil {
		return domain.Bookmark{}, err
	}

	rec, err := s.repo.Insert(ctx, d)
	if err != nil {
		return domain.Bookmark{}, err
	}

	s.publish(ctx, domain.Inserted{Record: rec})
	return rec, nil
}

// DeleteByID removes the row and publishes Deleted. domain.ErrNotFound is
// returned untouched so callers can tell "already gone" from a failure.
func (s *Service) DeleteByID(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteByID(ctx, userID, id); err != nil {
		return err
	}

	s.publish(ctx, domain.Deleted{ID: id, UserID: userID})
	return nil
}

// ImportResult counts what Import did.
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
}

// Import inserts drafts whose url the user does not already have.
// It stops at the first backend failure and returns the partial result.
func (s *Service) Import(ctx context.Context, userID string, drafts []domain.Draft) (ImportResult, error) {
	var res ImportResult

	existing, err := s.repo.URLsByUser(ctx, userID)
	if err != nil {
		return res, fmt.Errorf("%w: list urls: %w", domain.ErrBackend, err)
	}
	seen := make(map[string]bool, len(existing)+len(drafts))
	for _, u := range existing {
		seen[normalizeURL(u)] = true
	}

	for _, d := range drafts {
		d.UserID = userID
		if err := d.Validate(); err != nil {
			res.Invalid++
			s.logger.Debug("skipping invalid import entry",
				logger.String("title", d.Title), logger.Error(err))
			continue
		}

		key := normalizeURL(d.URL)
		if seen[key] {
			res.Skipped++
			continue
		}

		if _, err := s.Insert(ctx, d); err != nil {
			return res, fmt.Errorf("%w: import %s: %w", domain.ErrBackend, d.URL, err)
		}
		seen[key] = true
		res.Imported++
	}

	s.logger.Info("bookmarks imported",
		logger.UserID(userID),
		logger.Int("imported", res.Imported),
		logger.Int("skipped", res.Skipped),
		logger.Int("invalid", res.Invalid))
	return res, nil
}

// Ping checks the repository.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// publish is best effort: the row is already committed. It ignores the
// caller's cancellation and runs under its own timeout.
func (s *Service) publish(ctx context.Context, c domain.Change) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(ctx, c); err != nil {
		s.logger.Warn("change publish failed",
			logger.UserID(c.OwnerID()),
			logger.String("bookmark_id", c.BookmarkID()),
			logger.String("kind", domain.ChangeKind(c)),
			logger.Error(err))
	}
}

func normalizeURL(u string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(u)), "/")
}
