package ops

import (
	"database/sql"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/db"
)

// FetchInput contains parameters for the Fetch operation.
type FetchInput struct {
	ID             string
	IncludeContext *bool // default: true (nil means default)
}

// FetchOutput contains the result of the Fetch operation.
type FetchOutput struct {
	capture.Stored // embedded (copy, not pointer)
}

// Fetch retrieves a stored capture by ID.
func Fetch(database *sql.DB, input FetchInput) (*FetchOutput, error) {
	id, err := ValidateID(input.ID)
	if err != nil {
		return nil, err
	}

	s, err := db.GetByID(database, id)
	if err != nil {
		return nil, err
	}

	output := &FetchOutput{Stored: *s}
	if input.IncludeContext != nil && !*input.IncludeContext {
		output.Context = capture.Context{}
	}
	return output, nil
}
