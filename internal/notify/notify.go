// Package notify shows capture results to the user.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/hpungsan/ideashelf/internal/config"
	"github.com/hpungsan/ideashelf/internal/logger"
)

// Notification texts.
const (
	TitleSaved   = "Saved"
	TitleFailed  = "Capture failed"
	TitleError   = "Error"
	MsgSaved     = "Idea captured to IdeaShelf."
	MsgNoCapture = "Cannot capture from this page."
	MsgFallback  = "Failed to save."
)

// Notifier displays a short titled message.
type Notifier interface {
	Notify(title, message string) error
}

// Settings reports whether notifications are currently wanted.
type Settings interface {
	NotificationsEnabled() (bool, error)
}

// WriterNotifier prints notifications as "title: message" lines.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a notifier writing to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (n *WriterNotifier) Notify(title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "%s: %s\n", title, message)
	return err
}

// LogNotifier records notifications in the log.
type LogNotifier struct {
	Log logger.Logger
}

func (n LogNotifier) Notify(title, message string) error {
	n.Log.Info("notification",
		logger.String("title", title),
		logger.String("message", message),
	)
	return nil
}

// Multi fans a notification out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) Notify(title, message string) error {
	var first error
	for _, n := range m {
		if err := n.Notify(title, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// FileSettings reads the notification flag from baseDir/config.json on every call.
type FileSettings struct {
	BaseDir string
}

func (s FileSettings) NotificationsEnabled() (bool, error) {
	cfg, err := config.Load(s.BaseDir)
	if err != nil {
		return true, err
	}
	return cfg.NotificationsEnabled(), nil
}

// Static is a fixed notification preference.
type Static bool

func (s Static) NotificationsEnabled() (bool, error) {
	return bool(s), nil
}
