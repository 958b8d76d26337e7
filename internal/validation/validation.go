package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Common validation errors
var (
	ErrInvalidUUID = fmt.Errorf("invalid UUID format")
)

// Error collects per-field validation messages.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, field := range keys {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(msgs, "; ")
}

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}

// SanitizeSymbol trims and uppercases symbol. Anything that is not ASCII
// alphanumeric after trimming yields the empty symbol.
func SanitizeSymbol(symbol string) string {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return ""
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return ""
		}
	}
	return strings.ToUpper(s)
}

// DefaultTimestampLag is subtracted from now when a request has no timestamp.
const DefaultTimestampLag uint64 = 30

// NormalizeTimestamp floors ts to its minute. A nil ts means now minus
// DefaultTimestampLag.
func NormalizeTimestamp(ts *uint64, now uint64) uint64 {
	t := now - min(now, DefaultTimestampLag)
	if ts != nil {
		t = *ts
	}
	return t - t%60
}
