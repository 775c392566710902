package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Defaults for the capture pipeline.
const (
	DefaultHostName       = "com.ideashelf.host"
	DefaultHostPath       = "ideashelf-host"
	DefaultRelayTimeoutMS = 5000
	DefaultContextWindow  = 50
	DefaultInboxFolder    = "~/IdeaShelf/inbox"
	DefaultOutputFolder   = "~/IdeaShelf/ideas"
)

// Config holds application configuration.
type Config struct {
	// HostName is the fixed identity of the native host the relay talks to.
	HostName string `json:"host_name,omitempty"`

	// HostPath is the executable launched for HostName. Bare names are looked up on PATH.
	HostPath string `json:"host_path,omitempty"`

	// RelayTimeoutMS bounds how long the relay waits for a host response.
	RelayTimeoutMS int `json:"relay_timeout_ms,omitempty"`

	// ContextWindow is the maximum number of characters kept on each side of a selection.
	ContextWindow int `json:"context_window,omitempty"`

	// Notifications gates capture notifications. Nil means the default (true).
	Notifications *bool `json:"notifications,omitempty"`

	// InboxFolder is where the host writes one JSON file per capture. "~/" is expanded.
	InboxFolder string `json:"inbox_folder,omitempty"`

	// OutputFolder is where the inbox processor writes markdown files. "~/" is expanded.
	OutputFolder string `json:"output_folder,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default (unlimited).
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		HostName:       DefaultHostName,
		HostPath:       DefaultHostPath,
		RelayTimeoutMS: DefaultRelayTimeoutMS,
		ContextWindow:  DefaultContextWindow,
		InboxFolder:    DefaultInboxFolder,
		OutputFolder:   DefaultOutputFolder,
		LogLevel:       "info",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.ideashelf.
func Load(baseDir string) (*Config, error) {
	return loadFile(filepath.Join(baseDir, "config.json"))
}

// NotificationsEnabled reports the notification preference, defaulting to true.
func (c *Config) NotificationsEnabled() bool {
	if c == nil || c.Notifications == nil {
		return true
	}
	return *c.Notifications
}

// RelayTimeout returns the relay timeout as a duration.
func (c *Config) RelayTimeout() time.Duration {
	return time.Duration(c.RelayTimeoutMS) * time.Millisecond
}

// InboxDir returns the inbox folder with "~/" expanded.
func (c *Config) InboxDir() (string, error) {
	return ExpandHome(c.InboxFolder)
}

// OutputDir returns the output folder with "~/" expanded.
func (c *Config) OutputDir() (string, error) {
	return ExpandHome(c.OutputFolder)
}

// ExpandHome replaces a leading "~/" (or a bare "~") with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFile loads configuration from a specific file path.
// Returns default config if the file doesn't exist.
func loadFile(configPath string) (*Config, error) {
	cfg, err := loadFileRaw(configPath)
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.HostName = firstString(overlay.HostName, base.HostName)
	result.HostPath = firstString(overlay.HostPath, base.HostPath)
	result.InboxFolder = firstString(overlay.InboxFolder, base.InboxFolder)
	result.OutputFolder = firstString(overlay.OutputFolder, base.OutputFolder)
	result.LogLevel = firstString(overlay.LogLevel, base.LogLevel)

	result.RelayTimeoutMS = firstPositive(overlay.RelayTimeoutMS, base.RelayTimeoutMS)
	result.ContextWindow = firstPositive(overlay.ContextWindow, base.ContextWindow)
	result.DBMaxOpenConns = firstPositive(overlay.DBMaxOpenConns, base.DBMaxOpenConns)
	result.DBMaxIdleConns = firstPositive(overlay.DBMaxIdleConns, base.DBMaxIdleConns)

	// Pointer booleans: an explicit overlay value wins, false included
	result.Notifications = base.Notifications
	if overlay.Notifications != nil {
		v := *overlay.Notifications
		result.Notifications = &v
	}

	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

func firstString(overlay, base string) string {
	if strings.TrimSpace(overlay) != "" {
		return overlay
	}
	return base
}

func firstPositive(overlay, base int) int {
	if overlay > 0 {
		return overlay
	}
	return base
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
