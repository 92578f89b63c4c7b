package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/keeper/internal/bookmarks"
	"github.com/MrSnakeDoc/keeper/internal/domain"
	"github.com/MrSnakeDoc/keeper/internal/logger"
)

type countingSweeper struct {
	mu     sync.Mutex
	views  int
	sweeps int
	ttl    time.Duration
}

func (s *countingSweeper) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweeps++
	s.ttl = ttl
	n := s.views
	s.views = 0
	return n
}

func (s *countingSweeper) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views
}

func TestViewJanitor_Collect(t *testing.T) {
	sweeper := &countingSweeper{views: 3}
	j := NewViewJanitor(sweeper, logger.Nop(), time.Hour, 0)

	if got := j.Collect(); got != 3 {
		t.Errorf("Collect() = %d, want 3", got)
	}
	if sweeper.ttl != DefaultIdleTTL {
		t.Errorf("sweep ttl = %v, want %v", sweeper.ttl, DefaultIdleTTL)
	}
	if got := j.Collect(); got != 0 {
		t.Errorf("second Collect() = %d, want 0", got)
	}
}

func TestViewJanitor_StartStop(t *testing.T) {
	sweeper := &countingSweeper{views: 1}
	j := NewViewJanitor(sweeper, logger.Nop(), 5*time.Millisecond, time.Minute)

	if err := j.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		sweeper.mu.Lock()
		n := sweeper.sweeps
		sweeper.mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("janitor never swept")
		}
		time.Sleep(5 * time.Millisecond)
	}

	j.Stop()
	j.Stop()
}

type recordingImporter struct {
	userID string
	drafts []domain.Draft
}

func (r *recordingImporter) Import(_ context.Context, userID string, drafts []domain.Draft) (bookmarks.ImportResult, error) {
	r.userID = userID
	r.drafts = drafts
	return bookmarks.ImportResult{Imported: len(drafts)}, nil
}

func TestBookmarkImporter_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	content := `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	imp := &recordingImporter{}
	bi := NewBookmarkImporter(path, "owner", imp, logger.Nop(), time.Hour, nil)

	res, err := bi.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Imported != 1 || imp.userID != "owner" || imp.drafts[0].URL != "https://github.com/" {
		t.Errorf("unexpected import: res=%+v user=%s drafts=%+v", res, imp.userID, imp.drafts)
	}
}

func TestBookmarkImporter_MissingFile(t *testing.T) {
	bi := NewBookmarkImporter(filepath.Join(t.TempDir(), "missing.yaml"), "owner", &recordingImporter{}, logger.Nop(), time.Hour, nil)

	if err := bi.Start(context.Background()); err == nil {
		t.Fatal("Start() should fail when the file is missing")
	}
}
