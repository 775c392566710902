package ops

import (
	"database/sql"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/db"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	ContentType     string // optional filter
	UnprocessedOnly bool
	Limit           int // default: 20, max: 100
	Offset          int // default: 0
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Items      []capture.Summary `json:"items"`
	Pagination Pagination        `json:"pagination"`
	Sort       string            `json:"sort"`
}

// List retrieves capture summaries, newest first, with pagination.
func List(database *sql.DB, input ListInput) (*ListOutput, error) {
	ct, err := ParseContentType(input.ContentType)
	if err != nil {
		return nil, err
	}

	limit := clampLimit(input.Limit)
	offset := max(input.Offset, 0)

	summaries, total, err := db.List(database, db.ListFilter{
		ContentType:     ct,
		UnprocessedOnly: input.UnprocessedOnly,
	}, limit, offset)
	if err != nil {
		return nil, err
	}

	// Ensure we return an empty array rather than nil
	if summaries == nil {
		summaries = []capture.Summary{}
	}

	return &ListOutput{
		Items: summaries,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(summaries) < total,
			Total:   total,
		},
		Sort: "captured_at_desc",
	}, nil
}
