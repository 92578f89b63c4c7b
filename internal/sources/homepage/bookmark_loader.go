package homepage

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// MaxImportSize caps an uploaded bookmarks.yaml.
const MaxImportSize = 1 << 20

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// ErrEmptyImport is returned when the document holds no bookmark.
var ErrEmptyImport = errors.New("no valid bookmarks found in config")

// BookmarkLoader reads a Homepage bookmarks.yaml from disk.
type BookmarkLoader struct {
	filePath string
}

func NewBookmarkLoader(filePath string) *BookmarkLoader {
	return &BookmarkLoader{
		filePath: filePath,
	}
}

// Load reads and parses the file.
func (l *BookmarkLoader) Load() (BookmarksConfig, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bookmarks file: %w", err)
	}
	return ParseBookmarks(data)
}

// ParseBookmarks parses a bookmarks.yaml document, typically an upload.
// Homepage template variables ({{HOMEPAGE_VAR_...}}) become empty strings.
func ParseBookmarks(data []byte) (BookmarksConfig, error) {
	data = stripTemplateVariables(data)

	var config BookmarksConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse bookmarks yaml: %w", err)
	}
	return config, nil
}

// stripTemplateVariables replaces {{...}} with an empty YAML string.
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
