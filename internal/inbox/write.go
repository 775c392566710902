// Package inbox manages the capture inbox: one JSON file per received
// capture, later turned into markdown notes.
package inbox

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/hpungsan/ideashelf/internal/errors"
)

// ProcessedDir is the inbox subdirectory holding files already converted.
const ProcessedDir = "processed"

var unsafeIDChars = regexp.MustCompile(`[^a-zA-Z0-9\-_]`)

// SanitizeID makes a capture id safe to use as a file name. Path components
// and characters outside [A-Za-z0-9_-] are dropped; an empty result becomes
// "unknown".
func SanitizeID(raw string) string {
	safe := unsafeIDChars.ReplaceAllString(baseName(raw), "")
	if safe == "" {
		return "unknown"
	}
	return safe
}

// baseName strips any directory part, treating both slash kinds as separators.
func baseName(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return p[i+1:]
		}
	}
	return p
}

// EnsureDir creates dir (and parents) if missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create inbox directory: %w", err)
	}
	return nil
}

// Write stores payload as <sanitized id>.json in dir, indented by two
// spaces. It never replaces an existing file.
func Write(dir, id string, payload any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return "", errors.NewInternal(err)
	}

	path := filepath.Join(dir, SanitizeID(id)+".json")
	f, err := openFileNoFollow(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		if stderrors.Is(err, os.ErrExist) {
			return "", errors.NewAlreadyExists(id)
		}
		return "", err
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write capture file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write capture file: %w", err)
	}
	return path, nil
}
