package request

import (
	"fmt"
	"strconv"
)

// Pagination defaults for list endpoints.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ParsePagination extracts offset and limit from query parameters.
//
// Validation rules:
//   - offset: must be a non-negative integer (defaults to 0)
//   - limit: must be between 1 and MaxLimit (defaults to DefaultLimit)
func ParsePagination(offsetParam, limitParam string) (offset, limit int, err error) {
	limit = DefaultLimit

	if offsetParam != "" {
		offset, err = strconv.Atoi(offsetParam)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset: must be a non-negative integer")
		}
	}

	if limitParam != "" {
		limit, err = strconv.Atoi(limitParam)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid limit: must be a number")
		}
		if limit < 1 || limit > MaxLimit {
			return 0, 0, fmt.Errorf("invalid limit: must be between 1 and %d", MaxLimit)
		}
	}

	return offset, limit, nil
}

// ParseDay parses a forex day given either as YYYY-MM-DD or as seconds
// since the epoch. The result is not aligned; callers floor it.
func ParseDay(dayParam string) (uint64, error) {
	if secs, err := strconv.ParseUint(dayParam, 10, 64); err == nil {
		return secs, nil
	}
	t, err := parseFilterTime(dayParam)
	if err != nil {
		return 0, fmt.Errorf("invalid day: %w", err)
	}
	if t.Unix() < 0 {
		return 0, fmt.Errorf("invalid day: before 1970")
	}
	return uint64(t.Unix()), nil
}
