package domain

import (
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
)

// Range is an inclusive byte span [First, Last].
type Range struct {
	First int64
	Last  int64
}

// ProbeRange is the single-byte request used to learn an item's total length.
var ProbeRange = Range{First: 0, Last: 0}

// Count is the number of bytes the range spans.
func (r Range) Count() int64 {
	return r.Last - r.First + 1
}

// Header renders the value for a Range request header.
func (r Range) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.First, r.Last)
}

// ContentRange renders the value for a Content-Range response header.
func (r Range) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.First, r.Last, total)
}

// IterateRange yields ranges covering [0, total) in step-sized pieces, the
// last one truncated to the remainder. Each call to the returned sequence
// starts over from zero.
func IterateRange(total, step int64) iter.Seq[Range] {
	return func(yield func(Range) bool) {
		if total <= 0 || step <= 0 {
			return
		}
		for first := int64(0); first < total; first += step {
			last := min(first+step, total) - 1
			if !yield(Range{First: first, Last: last}) {
				return
			}
		}
	}
}

// RangeCount is how many ranges IterateRange yields for the same inputs.
func RangeCount(total, step int64) int {
	if total <= 0 || step <= 0 {
		return 0
	}
	return int((total + step - 1) / step)
}

// ParseRangeHeader interprets a request Range header against an entity of
// total bytes. ok is false when the header should be ignored and the whole
// entity served: absent, not "bytes=", multiple ranges, suffix ranges or
// garbage. A well-formed range outside the entity yields
// ErrRangeNotSatisfiable. The returned Last is clamped to total-1, including
// a last-byte-pos too large for int64.
func ParseRangeHeader(header string, total int64) (r Range, ok bool, err error) {
	set, found := strings.CutPrefix(strings.TrimSpace(header), "bytes=")
	if !found || strings.Contains(set, ",") {
		return Range{}, false, nil
	}

	firstStr, lastStr, found := strings.Cut(strings.TrimSpace(set), "-")
	if !found || firstStr == "" {
		return Range{}, false, nil
	}

	first, perr := strconv.ParseInt(firstStr, 10, 64)
	if errors.Is(perr, strconv.ErrRange) && first > 0 {
		return Range{}, true, fmt.Errorf("%w: %s of %d bytes", ErrRangeNotSatisfiable, header, total)
	}
	if perr != nil || first < 0 {
		return Range{}, false, nil
	}

	last := total - 1
	if lastStr != "" {
		var n int64
		n, perr = strconv.ParseInt(lastStr, 10, 64)
		switch {
		case errors.Is(perr, strconv.ErrRange) && n > 0:
			// past the end of any entity; keep last at total-1
		case perr != nil || n < 0:
			return Range{}, false, nil
		default:
			last = n
		}
	}

	if first >= total || last < first {
		return Range{}, true, fmt.Errorf("%w: %s of %d bytes", ErrRangeNotSatisfiable, header, total)
	}

	return Range{First: first, Last: min(last, total-1)}, true, nil
}
