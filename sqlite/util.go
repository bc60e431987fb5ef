package sqlite

import (
	"errors"
	"strings"

	"pomosync"
)

var ErrNotFound = errors.New("not found")

// Scannable covers *sql.Row and *sql.Rows.
type Scannable interface {
	Scan(dest ...any) error
}

func generateParameters(n int) string {
	if n == 0 {
		return "()"
	}
	return "(?" + strings.Repeat(", ?", n-1) + ")"
}

func joinTags(tags []pomosync.TagID) string {
	if len(tags) == 0 {
		return ""
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

func splitTags(s string) []pomosync.TagID {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]pomosync.TagID, len(parts))
	for i, p := range parts {
		tags[i] = pomosync.TagID(p)
	}
	return tags
}
