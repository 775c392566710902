package db

import (
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/errors"
)

const captureColumns = `
	id, captured_at, source_url, source_title, content_type, capture_method,
	content, preceding_text, following_text, user_note,
	digest, received_at, processed_at`

// Insert stores a received capture. A repeated id is rejected with ALREADY_EXISTS.
func Insert(db *sql.DB, s *capture.Stored) error {
	query := `
		INSERT INTO captures (` + captureColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
	`

	_, err := db.Exec(query,
		s.ID, s.CapturedAt.UnixMilli(), s.SourceURL, s.SourceTitle,
		string(s.ContentType), string(s.CaptureMethod),
		s.Content, s.Context.PrecedingText, s.Context.FollowingText, s.UserNote,
		s.Digest, s.ReceivedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return errors.NewAlreadyExists(s.ID)
		}
		return errors.NewInternal(err)
	}

	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE or PRIMARY KEY violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

// GetByID retrieves a capture by its ULID.
func GetByID(db *sql.DB, id string) (*capture.Stored, error) {
	query := `SELECT ` + captureColumns + ` FROM captures WHERE id = ?`

	s, err := scanCapture(db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return s, nil
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	ContentType     capture.ContentType
	UnprocessedOnly bool
}

// List returns capture summaries newest first, with the total matching count.
func List(db *sql.DB, filter ListFilter, limit, offset int) ([]capture.Summary, int, error) {
	where, args := filter.clause()

	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM captures`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := `SELECT ` + captureColumns + ` FROM captures` + where +
		` ORDER BY captured_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := db.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var summaries []capture.Summary
	for rows.Next() {
		s, err := scanCapture(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		summaries = append(summaries, s.ToSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return summaries, total, nil
}

func (f ListFilter) clause() (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.ContentType != "" {
		conds = append(conds, "content_type = ?")
		args = append(args, string(f.ContentType))
	}
	if f.UnprocessedOnly {
		conds = append(conds, "processed_at IS NULL")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// MarkProcessed stamps processed_at on a capture. Marking twice keeps the
// first timestamp.
func MarkProcessed(db *sql.DB, id string, at time.Time) error {
	result, err := db.Exec(
		`UPDATE captures SET processed_at = COALESCE(processed_at, ?) WHERE id = ?`,
		at.Unix(), id,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanCapture scans a single row into a Stored capture.
func scanCapture(row scanner) (*capture.Stored, error) {
	var (
		s           capture.Stored
		capturedAt  int64
		contentType string
		method      string
		processedAt sql.NullInt64
	)

	err := row.Scan(
		&s.ID, &capturedAt, &s.SourceURL, &s.SourceTitle, &contentType, &method,
		&s.Content, &s.Context.PrecedingText, &s.Context.FollowingText, &s.UserNote,
		&s.Digest, &s.ReceivedAt, &processedAt,
	)
	if err != nil {
		return nil, err
	}

	s.CapturedAt = time.UnixMilli(capturedAt).UTC()
	s.ContentType = capture.ContentType(contentType)
	s.CaptureMethod = capture.Method(method)
	if processedAt.Valid {
		s.ProcessedAt = &processedAt.Int64
	}

	return &s, nil
}
