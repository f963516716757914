package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

type fileHandle struct {
	mu     sync.Mutex
	file   *os.File
	offset int64
}

// FileWriter owns the .part files of in-progress transfers.
type FileWriter struct {
	mu      sync.RWMutex
	handles map[string]*fileHandle
}

func NewFileWriter() *FileWriter {
	return &FileWriter{
		handles: make(map[string]*fileHandle),
	}
}

// PreAllocate creates (or truncates) path as a sparse file of size bytes
// and rewinds its write offset.
func (fw *FileWriter) PreAllocate(path string, size int64) error {
	h, err := fw.getOrCreateFile(path)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.offset = 0
	return h.file.Truncate(size)
}

// Sequential returns an io.Writer that appends to path from the current
// offset; chunks arrive in ascending range order.
func (fw *FileWriter) Sequential(path string) *SequentialWriter {
	return &SequentialWriter{fw: fw, path: path}
}

type SequentialWriter struct {
	fw   *FileWriter
	path string
}

func (s *SequentialWriter) Write(p []byte) (int, error) {
	h, err := s.fw.getOrCreateFile(s.path)
	if err != nil {
		return 0, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.file.WriteAt(p, h.offset)
	h.offset += int64(n)
	return n, err
}

func (fw *FileWriter) getOrCreateFile(path string) (*fileHandle, error) {
	// Read-Lock: Check if handle exists
	fw.mu.RLock()
	h, ok := fw.handles[path]
	fw.mu.RUnlock()
	if ok {
		return h, nil
	}

	// Write-Lock: Prepare to create handle
	fw.mu.Lock()
	defer fw.mu.Unlock()

	h, ok = fw.handles[path]
	if ok {
		return h, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("could not open part file: %w", err)
	}

	h = &fileHandle{file: f}
	fw.handles[path] = h

	return h, nil
}

func (fw *FileWriter) CloseAll() {
	fw.mu.RLock()
	// We iterate over keys because CloseFile will be modifying the map
	paths := make([]string, 0, len(fw.handles))
	for path := range fw.handles {
		paths = append(paths, path)
	}
	fw.mu.RUnlock()

	for _, path := range paths {
		_ = fw.CloseFile(path, 0) // Ignore error on global cleanup
	}
}

// CloseFile syncs and closes path. A positive finalSize truncates the file
// to exactly that many bytes first.
func (fw *FileWriter) CloseFile(path string, finalSize int64) error {
	fw.mu.Lock()
	h, ok := fw.handles[path]
	if !ok {
		fw.mu.Unlock()
		return nil
	}
	delete(fw.handles, path)
	fw.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if finalSize > 0 {
		if err := h.file.Truncate(finalSize); err != nil {
			h.file.Close()
			return fmt.Errorf("failed to truncate to final size: %w", err)
		}
	}

	if err := h.file.Sync(); err != nil {
		h.file.Close()
		return fmt.Errorf("sync %s: %w", path, err)
	}
	return h.file.Close()
}

// Finalize closes partPath and renames it to finalPath.
func (fw *FileWriter) Finalize(partPath, finalPath string, size int64) error {
	if err := fw.CloseFile(partPath, size); err != nil {
		return err
	}
	if err := os.Rename(partPath, finalPath); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", filepath.Base(finalPath), err)
	}
	return nil
}

// Discard closes and removes a part file left by a failed transfer.
func (fw *FileWriter) Discard(partPath string) {
	_ = fw.CloseFile(partPath, 0)
	_ = os.Remove(partPath)
}

var badChars = regexp.MustCompile(`[\\/:*?"<>|#]`)

// SanitizeFileName makes an item name safe on Windows, Linux and macOS.
func SanitizeFileName(name string) string {
	res := badChars.ReplaceAllString(name, "_")
	res = strings.TrimSpace(res)
	if res == "" || res == "." || res == ".." {
		return "item"
	}
	return res
}
