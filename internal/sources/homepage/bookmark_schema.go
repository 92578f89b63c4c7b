package homepage

import "strings"

// BookmarkEntry is the property list of one bookmark.
type BookmarkEntry struct {
	Icon string `yaml:"icon"`
	Abbr string `yaml:"abbr"`
	Href string `yaml:"href"`
}

// URL is the trimmed href.
func (e BookmarkEntry) URL() string { return strings.TrimSpace(e.Href) }

// Title picks the display name: the bookmark key, or the abbreviation when
// the key is blank.
func (e BookmarkEntry) Title(name string) string {
	if t := strings.TrimSpace(name); t != "" {
		return t
	}
	return strings.TrimSpace(e.Abbr)
}

// BookmarkCategory maps a category name to its bookmarks.
// YAML shape: - Category: [ - Name: [{ icon, abbr, href }] ]
type BookmarkCategory map[string][]map[string][]BookmarkEntry

// BookmarksConfig is the root of bookmarks.yaml.
type BookmarksConfig []BookmarkCategory
