package homepage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleBookmarks = `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go Docs:
        - abbr: GO
          href: https://go.dev/doc
- Social:
    - Reddit:
        - abbr: RE
          href: https://reddit.com/
    - Mirror:
        - abbr: GH2
          href: https://github.com/
    - Private:
        - abbr: PV
          href: {{HOMEPAGE_VAR_PRIVATE_URL}}
`

func TestBookmarkLoaderLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(path, []byte(sampleBookmarks), 0o644); err != nil {
		t.Fatalf("failed to write bookmarks file: %v", err)
	}

	config, err := NewBookmarkLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(config) != 2 {
		t.Errorf("Load() returned %d categories, want 2", len(config))
	}
}

func TestBookmarkLoaderMissingFile(t *testing.T) {
	_, err := NewBookmarkLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	if err == nil {
		t.Fatal("Load() should fail on a missing file")
	}
}

func TestParseBookmarksInvalidYAML(t *testing.T) {
	if _, err := ParseBookmarks([]byte("- [unclosed")); err == nil {
		t.Fatal("ParseBookmarks() should fail on invalid yaml")
	}
}

func TestMapDrafts(t *testing.T) {
	config, err := ParseBookmarks([]byte(sampleBookmarks))
	if err != nil {
		t.Fatalf("ParseBookmarks() error = %v", err)
	}

	drafts, err := NewBookmarkMapper().MapDrafts(config, "u1")
	if err != nil {
		t.Fatalf("MapDrafts() error = %v", err)
	}

	want := []struct{ title, url string }{
		{"Github", "https://github.com/"},
		{"Go Docs", "https://go.dev/doc"},
		{"Reddit", "https://reddit.com/"},
	}
	if len(drafts) != len(want) {
		t.Fatalf("MapDrafts() returned %d drafts, want %d: %+v", len(drafts), len(want), drafts)
	}
	for i, w := range want {
		if drafts[i].Title != w.title || drafts[i].URL != w.url || drafts[i].UserID != "u1" {
			t.Errorf("draft[%d] = %+v, want %s %s", i, drafts[i], w.title, w.url)
		}
	}
}

func TestMapDraftsEmpty(t *testing.T) {
	_, err := NewBookmarkMapper().MapDrafts(BookmarksConfig{}, "u1")
	if !errors.Is(err, ErrEmptyImport) {
		t.Fatalf("MapDrafts() error = %v, want ErrEmptyImport", err)
	}
}
