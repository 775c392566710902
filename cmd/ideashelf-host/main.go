// Command ideashelf-host is the native messaging host. It is launched once
// per capture, reads one framed message on stdin, answers on stdout and
// exits.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hpungsan/ideashelf/internal/config"
	"github.com/hpungsan/ideashelf/internal/db"
	"github.com/hpungsan/ideashelf/internal/host"
	"github.com/hpungsan/ideashelf/internal/logger"
	"github.com/hpungsan/ideashelf/internal/nativemsg"
)

func main() {
	if err := run(os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run answers on stdout even when setup fails.
func run(stdin io.Reader, stdout io.Writer) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return reply(stdout, fmt.Errorf("could not determine home directory: %w", err))
	}
	baseDir := filepath.Join(homeDir, ".ideashelf")
	return serve(baseDir, stdin, stdout)
}

func serve(baseDir string, stdin io.Reader, stdout io.Writer) error {
	cfg, err := config.Load(baseDir)
	if err != nil {
		return reply(stdout, fmt.Errorf("failed to load config: %w", err))
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		return reply(stdout, err)
	}
	defer func() { _ = log.Sync() }()

	database, err := db.Init(baseDir)
	if err != nil {
		return reply(stdout, fmt.Errorf("failed to initialize database: %w", err))
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	inboxDir, err := cfg.InboxDir()
	if err != nil {
		return reply(stdout, err)
	}

	h, err := host.New(database, inboxDir, log)
	if err != nil {
		return reply(stdout, err)
	}
	return h.Serve(stdin, stdout)
}

// reply reports a setup failure to the relay and returns it for the exit code.
func reply(w io.Writer, cause error) error {
	if err := nativemsg.WriteJSON(w, host.Response{Success: false, Error: cause.Error()}); err != nil {
		return fmt.Errorf("%v (reply failed: %w)", cause, err)
	}
	return cause
}
