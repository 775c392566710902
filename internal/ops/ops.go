package ops

import (
	"strings"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
	Total   int  `json:"total"`
}

// ValidateID trims id and rejects an empty one.
func ValidateID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("id is required")
	}
	return id, nil
}

// ParseContentType validates an optional content type filter.
func ParseContentType(s string) (capture.ContentType, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	ct := capture.ContentType(s)
	if !ct.Valid() {
		return "", errors.NewInvalidRequest("content_type must be one of text_selection, quick_note, bookmark")
	}
	return ct, nil
}

// clampLimit applies list limit defaults and bounds.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
