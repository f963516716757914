package domain

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// ContentPathPrefix precedes every escaped content key.
const ContentPathPrefix = "/col/content/"

// ContentKey is the decoded form of "{driveId}#{filename}".
type ContentKey struct {
	DriveID  uuid.UUID
	Filename string
}

// ParseContentKey splits an unescaped key on the first '#'.
// The drive id may be braced, as the console sends it.
func ParseContentKey(raw string) (ContentKey, error) {
	drive, name, ok := strings.Cut(raw, "#")
	if !ok {
		return ContentKey{}, fmt.Errorf("%w: no '#' separator in %q", ErrInvalidContentKey, raw)
	}
	if name == "" {
		return ContentKey{}, fmt.Errorf("%w: empty filename in %q", ErrInvalidContentKey, raw)
	}

	id, err := uuid.Parse(drive)
	if err != nil {
		return ContentKey{}, fmt.Errorf("%w: %q: %v", ErrInvalidDriveID, drive, err)
	}

	return ContentKey{DriveID: id, Filename: name}, nil
}

// ParseContentPath decodes a full escaped path as found in MetadataItem.Path.
func ParseContentPath(path string) (ContentKey, error) {
	escaped, ok := strings.CutPrefix(path, ContentPathPrefix)
	if !ok {
		return ContentKey{}, fmt.Errorf("%w: path %q is not under %s", ErrInvalidContentKey, path, ContentPathPrefix)
	}

	raw, err := url.PathUnescape(escaped)
	if err != nil {
		return ContentKey{}, fmt.Errorf("%w: %v", ErrInvalidContentKey, err)
	}

	return ParseContentKey(raw)
}

// String renders the unescaped key with the console's drive id casing.
func (k ContentKey) String() string {
	return "{" + strings.ToUpper(k.DriveID.String()) + "}#" + k.Filename
}

// Path renders the escaped wire path.
func (k ContentKey) Path() string {
	return ContentPathPrefix + url.PathEscape(k.String())
}
