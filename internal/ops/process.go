package ops

import (
	"database/sql"

	"github.com/hpungsan/ideashelf/internal/config"
	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/inbox"
	"github.com/hpungsan/ideashelf/internal/logger"
)

// ProcessInput contains parameters for the ProcessInbox operation.
type ProcessInput struct {
	InboxDir  string // default: config inbox_folder
	OutputDir string // default: config output_folder
	Status    string // default: raw
}

// ProcessInbox converts inbox captures into markdown notes.
func ProcessInbox(database *sql.DB, cfg *config.Config, log logger.Logger, input ProcessInput) (*inbox.Result, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	inboxDir := input.InboxDir
	if inboxDir == "" {
		dir, err := cfg.InboxDir()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		inboxDir = dir
	}
	outputDir := input.OutputDir
	if outputDir == "" {
		dir, err := cfg.OutputDir()
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		outputDir = dir
	}

	p := &inbox.Processor{
		InboxDir:  inboxDir,
		OutputDir: outputDir,
		Status:    input.Status,
		DB:        database,
		Log:       log,
	}
	return p.Run()
}
