package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/datallboy/gocol/internal/domain"
)

var unsafeID = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// FileCache stores the last manifest seen from each console as JSON,
// one file per console id.
type FileCache struct {
	Dir string
}

func (f *FileCache) path(consoleID string) string {
	return filepath.Join(f.Dir, unsafeID.ReplaceAllString(consoleID, "_")+".json")
}

func (f *FileCache) Get(consoleID string) (*domain.Metadata, error) {
	data, err := os.ReadFile(f.path(consoleID))
	if err != nil {
		return nil, err
	}

	var md domain.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("corrupt manifest cache for %s: %w", consoleID, err)
	}
	return &md, nil
}

func (f *FileCache) Put(consoleID string, md *domain.Metadata) error {
	// Ensure the directory exists
	if err := os.MkdirAll(f.Dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}

	// write then rename so a reader never sees half a manifest
	tmp := f.path(consoleID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path(consoleID))
}

func (f *FileCache) Exists(consoleID string) bool {
	_, err := os.Stat(f.path(consoleID))
	return err == nil
}
