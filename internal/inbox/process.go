package inbox

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/ideashelf/internal/db"
	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/logger"
)

// Processor converts inbox JSON captures into markdown notes.
type Processor struct {
	InboxDir  string
	OutputDir string

	// Status is written to each note's frontmatter. Empty means DefaultStatus.
	Status string

	// DB, when set, has each converted capture marked processed.
	DB *sql.DB

	Now func() time.Time
	Log logger.Logger
}

// Result summarizes one processing run.
type Result struct {
	Processed int      `json:"processed"`
	Errors    int      `json:"errors"`
	Notes     []string `json:"notes"`
}

// Run processes every *.json file in the inbox in name order. A failing file
// is counted and left in place; it never stops the run.
func (p *Processor) Run() (*Result, error) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	log := p.Log
	if log == nil {
		log = logger.NewNop()
	}

	res := &Result{Notes: []string{}}
	entries, err := os.ReadDir(p.InboxDir)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return nil, errors.NewInternal(err)
	}

	processedDir := filepath.Join(p.InboxDir, ProcessedDir)
	if err := os.MkdirAll(p.OutputDir, 0700); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := os.MkdirAll(processedDir, 0700); err != nil {
		return nil, errors.NewInternal(err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		note, err := p.processFile(name, processedDir, now())
		if err != nil {
			log.Warn("inbox file failed", logger.String("file", name), logger.Error(err))
			res.Errors++
			continue
		}
		res.Processed++
		res.Notes = append(res.Notes, note)
	}

	log.Info("inbox processed",
		logger.Int("processed", res.Processed),
		logger.Int("errors", res.Errors),
	)
	return res, nil
}

func (p *Processor) processFile(name, processedDir string, now time.Time) (string, error) {
	src := filepath.Join(p.InboxDir, name)

	c, err := readCapture(src)
	if err != nil {
		return "", err
	}

	body, err := Markdown(c, p.Status, now)
	if err != nil {
		return "", err
	}

	notePath, err := writeNote(filepath.Join(p.OutputDir, FileName(c, now)), c.ID, body)
	if err != nil {
		return "", err
	}

	if err := os.Rename(src, filepath.Join(processedDir, name)); err != nil {
		// The capture stays in the inbox, so its note is written again next run.
		_ = os.Remove(notePath)
		return "", fmt.Errorf("move to processed: %w", err)
	}

	if p.DB != nil && c.ID != "" {
		err := db.MarkProcessed(p.DB, c.ID, now)
		if err != nil && !errors.Is(err, errors.ErrNotFound) {
			return "", err
		}
	}
	return notePath, nil
}

func readCapture(path string) (*Capture, error) {
	f, err := openFileNoFollowRead(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	var c Capture
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return &c, nil
}

// maxNoteAttempts bounds the numbered names tried after the id-suffixed one.
const maxNoteAttempts = 100

// writeNote creates the note at path, or at the first free name among
// path_<id>.md, path_<id>_2.md and so on. An existing note is never replaced.
func writeNote(path, id string, body []byte) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	suffixed := stem + "_" + SanitizeID(id)

	candidate := path
	for n := 1; n <= maxNoteAttempts; n++ {
		err := createNote(candidate, body)
		if err == nil {
			return candidate, nil
		}
		if !stderrors.Is(err, os.ErrExist) {
			return "", err
		}
		if n == 1 {
			candidate = suffixed + ext
		} else {
			candidate = fmt.Sprintf("%s_%d%s", suffixed, n, ext)
		}
	}
	return "", fmt.Errorf("no free note name for %s", filepath.Base(path))
}

func createNote(path string, body []byte) error {
	f, err := openFileNoFollow(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if _, err := f.Write(body); err != nil {
		f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}
