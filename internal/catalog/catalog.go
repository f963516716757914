package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/datallboy/gocol/internal/domain"
	"github.com/google/uuid"
)

// Catalog is the read-only set of items a content server offers. It does
// not change after construction and is safe for concurrent use.
type Catalog struct {
	dir      string
	driveID  uuid.UUID
	metadata domain.Metadata
	byName   map[string]int
}

// Options selects where the catalog comes from. Manifest, when set, is a
// JSON file in the /col/metadata shape; otherwise Dir is scanned.
type Options struct {
	Dir      string
	Manifest string
	DriveID  string
}

func New(opts Options) (*Catalog, error) {
	driveID, err := uuid.Parse(opts.DriveID)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", domain.ErrInvalidDriveID, opts.DriveID, err)
	}

	if opts.Manifest != "" {
		return FromManifest(opts.Manifest, opts.Dir, driveID)
	}
	return FromDir(opts.Dir, driveID)
}

// FromDir lists every regular file directly inside dir as an app item.
func FromDir(dir string, driveID uuid.UUID) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content dir: %w", err)
	}

	c := newCatalog(dir, driveID)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}

		key := domain.ContentKey{DriveID: driveID, Filename: e.Name()}
		c.add(domain.MetadataItem{
			Type:              "app",
			PackageFamilyName: e.Name(),
			Version:           "0",
			Size:              info.Size(),
			Path:              key.Path(),
			Availability:      "available",
		}, e.Name())
	}

	return c, nil
}

// FromManifest loads a manifest file. Every item path must decode to a key
// on driveID; sizes are refreshed from dir when the file is present.
func FromManifest(manifestPath, dir string, driveID uuid.UUID) (*Catalog, error) {
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var md domain.Metadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", manifestPath, err)
	}

	c := newCatalog(dir, driveID)
	for i, item := range md.Items {
		key, err := item.Key()
		if err != nil {
			return nil, fmt.Errorf("manifest item %d: %w", i, err)
		}
		if key.DriveID != driveID {
			return nil, fmt.Errorf("manifest item %d: %w: drive %s is not served here", i, domain.ErrInvalidDriveID, key.DriveID)
		}
		if !validName(key.Filename) {
			return nil, fmt.Errorf("manifest item %d: %w: %q", i, domain.ErrInvalidContentKey, key.Filename)
		}

		if info, err := os.Stat(filepath.Join(dir, key.Filename)); err == nil && info.Mode().IsRegular() {
			item.Size = info.Size()
		}
		c.add(item, key.Filename)
	}

	return c, nil
}

func newCatalog(dir string, driveID uuid.UUID) *Catalog {
	return &Catalog{
		dir:      dir,
		driveID:  driveID,
		metadata: domain.Metadata{Items: []domain.MetadataItem{}},
		byName:   make(map[string]int),
	}
}

func (c *Catalog) add(item domain.MetadataItem, name string) {
	c.byName[name] = len(c.metadata.Items)
	c.metadata.Items = append(c.metadata.Items, item.Normalize())
}

// Metadata returns the manifest served at /col/metadata.
func (c *Catalog) Metadata() domain.Metadata {
	items := make([]domain.MetadataItem, len(c.metadata.Items))
	copy(items, c.metadata.Items)
	return domain.Metadata{Items: items}
}

// Names lists the served filenames, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open resolves key to a file inside the content dir. The caller closes it.
func (c *Catalog) Open(key domain.ContentKey) (*os.File, int64, error) {
	if key.DriveID != c.driveID || !validName(key.Filename) {
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrContentNotFound, key)
	}
	if _, ok := c.byName[key.Filename]; !ok {
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrContentNotFound, key)
	}

	f, err := os.Open(filepath.Join(c.dir, key.Filename))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", domain.ErrContentNotFound, key)
		}
		return nil, 0, fmt.Errorf("open %s: %w", key.Filename, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("stat %s: %w", key.Filename, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s", domain.ErrContentNotFound, key)
	}

	return f, info.Size(), nil
}

// validName accepts a single path element only.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}
