package homepage

import (
	"sort"

	"github.com/MrSnakeDoc/keeper/internal/domain"
)

// BookmarkMapper flattens Homepage categories into drafts for one user.
type BookmarkMapper struct{}

func NewBookmarkMapper() *BookmarkMapper {
	return &BookmarkMapper{}
}

// MapDrafts returns one draft per distinct href, in document order.
// Entries without href are skipped. The bookmark name is the title, the
// abbreviation is used when the name is blank.
func (m *BookmarkMapper) MapDrafts(config BookmarksConfig, userID string) ([]domain.Draft, error) {
	drafts := make([]domain.Draft, 0)
	seen := make(map[string]bool)

	for _, category := range config {
		for _, categoryName := range sortedKeys(category) {
			for _, bookmarkMap := range category[categoryName] {
				for _, bookmarkName := range sortedKeys(bookmarkMap) {
					entries := bookmarkMap[bookmarkName]
					if len(entries) == 0 {
						continue
					}
					entry := entries[0]

					href := entry.URL()
					if href == "" || seen[href] {
						continue
					}
					seen[href] = true

					drafts = append(drafts, domain.Draft{
						UserID: userID,
						Title:  entry.Title(bookmarkName),
						URL:    href,
					})
				}
			}
		}
	}

	if len(drafts) == 0 {
		return nil, ErrEmptyImport
	}
	return drafts, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
