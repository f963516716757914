package discovery

import (
	"fmt"
	"strings"

	"github.com/datallboy/gocol/internal/domain"
)

// TXT keys carried by a console's service record.
const (
	KeyName       = "N"
	KeyIdentifier = "U"
)

// TXTRecord is the typed form of the console's TXT properties.
type TXTRecord struct {
	Name       string
	Identifier string
}

// MissingPropertyError names the absent TXT key.
type MissingPropertyError struct {
	Key string
}

func (e *MissingPropertyError) Error() string {
	return fmt.Sprintf("%s %q", domain.ErrMissingProperty, e.Key)
}

func (e *MissingPropertyError) Is(target error) bool {
	return target == domain.ErrMissingProperty
}

// Encode renders the record as key=value strings, name first.
func (r TXTRecord) Encode() []string {
	return []string{
		KeyName + "=" + r.Name,
		KeyIdentifier + "=" + r.Identifier,
	}
}

// DecodeTXT parses key=value strings. Unknown keys are ignored; keys are
// matched case-insensitively per RFC 6763. The first occurrence wins.
func DecodeTXT(txt []string) (TXTRecord, error) {
	props := make(map[string]string, len(txt))
	for _, kv := range txt {
		key, val, _ := strings.Cut(kv, "=")
		key = strings.ToUpper(key)
		if _, seen := props[key]; !seen && key != "" {
			props[key] = val
		}
	}

	name, ok := props[KeyName]
	if !ok || name == "" {
		return TXTRecord{}, &MissingPropertyError{Key: KeyName}
	}

	id, ok := props[KeyIdentifier]
	if !ok || id == "" {
		return TXTRecord{}, &MissingPropertyError{Key: KeyIdentifier}
	}

	return TXTRecord{Name: name, Identifier: id}, nil
}
