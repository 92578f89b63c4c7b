package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/bookmarks"
	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
	"github.com/MrSnakeDoc/keeper/internal/sources/homepage"
)

// Importer is implemented by bookmarks.Service.
type Importer interface {
	Import(ctx context.Context, userID string, drafts []domain.Draft) (bookmarks.ImportResult, error)
}

// BookmarkImporter periodically imports a Homepage bookmarks.yaml into
// one owner's vault. Urls already stored are skipped, so repeated runs
// only add what is new in the file.
type BookmarkImporter struct {
	loader        *homepage.BookmarkLoader
	mapper        *homepage.BookmarkMapper
	importer      Importer
	ownerID       string
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
}

func NewBookmarkImporter(
	bookmarkFile string,
	ownerID string,
	importer Importer,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *BookmarkImporter {
	return &BookmarkImporter{
		loader:        homepage.NewBookmarkLoader(bookmarkFile),
		mapper:        homepage.NewBookmarkMapper(),
		importer:      importer,
		ownerID:       ownerID,
		logger:        log.With(logger.UserID(ownerID), logger.String("file", bookmarkFile)),
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start imports once, then on every tick or manual trigger.
func (bi *BookmarkImporter) Start(ctx context.Context) error {
	if _, err := bi.Run(ctx); err != nil {
		return fmt.Errorf("initial bookmark import failed: %w", err)
	}

	ticker := time.NewTicker(bi.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := bi.Run(ctx); err != nil {
					bi.logger.Error("bookmark import failed", logger.Error(err))
				}
			case <-bi.manualTrigger:
				bi.logger.Info("manual bookmark import triggered")
				if _, err := bi.Run(ctx); err != nil {
					bi.logger.Error("bookmark import failed", logger.Error(err))
				}
			case <-bi.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the loop. Safe to call twice.
func (bi *BookmarkImporter) Stop() {
	bi.stopOnce.Do(func() { close(bi.stopCh) })
}

// Run loads the file and imports it.
func (bi *BookmarkImporter) Run(ctx context.Context) (bookmarks.ImportResult, error) {
	config, err := bi.loader.Load()
	if err != nil {
		return bookmarks.ImportResult{}, fmt.Errorf("failed to load bookmarks: %w", err)
	}

	drafts, err := bi.mapper.MapDrafts(config, bi.ownerID)
	if err != nil {
		return bookmarks.ImportResult{}, fmt.Errorf("failed to map bookmarks: %w", err)
	}

	res, err := bi.importer.Import(ctx, bi.ownerID, drafts)
	if err != nil {
		return res, fmt.Errorf("failed to import bookmarks: %w", err)
	}
	return res, nil
}
