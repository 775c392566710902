package ops

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/db"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func insertCapture(t *testing.T, database *sql.DB, id string, ct capture.ContentType, content string, at time.Time) *capture.Stored {
	t.Helper()
	s := &capture.Stored{
		Record: capture.Record{
			ID:            id,
			CapturedAt:    at.UTC().Truncate(time.Millisecond),
			SourceURL:     "https://example.com/" + id,
			SourceTitle:   "Example " + id,
			ContentType:   ct,
			CaptureMethod: capture.MethodPopup,
			Content:       content,
			Context:       capture.Context{PrecedingText: "before", FollowingText: "after"},
		},
		Digest:     fmt.Sprintf("digest-%s", id),
		ReceivedAt: at.Unix(),
	}
	if err := db.Insert(database, s); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	return s
}
