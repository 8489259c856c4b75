package runner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxQuerySize is the default limit for a user request, in bytes.
const DefaultMaxQuerySize = 8192

var (
	ErrQueryTooLarge = errors.New("query exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("query contains invalid UTF-8 sequences")
)

// SanitizeQuery cleans a user request before it enters a run: it enforces
// the size limit, validates UTF-8, strips control characters other than
// newline, tab and carriage return, and trims surrounding space.
// A limit of zero or less selects DefaultMaxQuerySize.
func SanitizeQuery(query string, limit int) (string, error) {
	if limit <= 0 {
		limit = DefaultMaxQuerySize
	}
	if len(query) > limit {
		// Reject rather than truncate so the planner sees exactly what was asked.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrQueryTooLarge, len(query), limit)
	}
	if !utf8.ValidString(query) {
		return "", ErrInvalidUTF8
	}

	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !isSafeControl(r) {
			return -1
		}
		return r
	}, query)
	return strings.TrimSpace(clean), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
