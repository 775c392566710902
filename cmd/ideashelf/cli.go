package main

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/ideashelf/internal/capture"
	"github.com/hpungsan/ideashelf/internal/config"
	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/extract"
	"github.com/hpungsan/ideashelf/internal/logger"
	"github.com/hpungsan/ideashelf/internal/notify"
	"github.com/hpungsan/ideashelf/internal/ops"
	"github.com/hpungsan/ideashelf/internal/orchestrator"
	"github.com/hpungsan/ideashelf/internal/relay"
	"github.com/hpungsan/ideashelf/internal/tabs"
	"github.com/hpungsan/ideashelf/internal/web"
)

// pageTab is the tab id the page command attaches its document under.
const pageTab = 1

// deps holds what the commands need. Capture commands relay through relay;
// read commands use db.
type deps struct {
	db       *sql.DB
	cfg      *config.Config
	log      logger.Logger
	relay    orchestrator.Relayer
	notifier notify.Notifier
	settings notify.Settings
}

// newDeps wires the production collaborators: the native host as a child
// process, notifications on stderr, and the preference read from baseDir.
func newDeps(database *sql.DB, cfg *config.Config, baseDir string, log logger.Logger) *deps {
	dialer := relay.NewProcessDialer(cfg.HostName, cfg.HostPath, log)
	return &deps{
		db:  database,
		cfg: cfg,
		log: log,
		relay: relay.NewClient(dialer, cfg.HostName, cfg.RelayTimeout(),
			relay.WithLogger(log)),
		notifier: notify.Multi{notify.NewWriterNotifier(os.Stderr), notify.LogNotifier{Log: log}},
		settings: notify.FileSettings{BaseDir: baseDir},
	}
}

func (d *deps) orchestrator(q orchestrator.SelectionQuerier) *orchestrator.Orchestrator {
	return orchestrator.New(q, d.relay,
		orchestrator.WithNotifier(d.notifier),
		orchestrator.WithSettings(d.settings),
		orchestrator.WithBuilder(capture.NewBuilder(d.cfg.ContextWindow)),
		orchestrator.WithLogger(d.log),
	)
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(d *deps) *cli.App {
	app := &cli.App{
		Name:    "ideashelf",
		Usage:   "Capture ideas from the page you are reading",
		Version: Version,
		Commands: []*cli.Command{
			noteCmd(d),
			pageCmd(d),
			listCmd(d),
			fetchCmd(d),
			showCmd(d),
			processCmd(d),
			serveCmd(d),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// captureOutput is what capture commands print on success.
type captureOutput struct {
	ID          string              `json:"id"`
	ContentType capture.ContentType `json:"content_type"`
	State       string              `json:"state"`
	Response    map[string]any      `json:"response,omitempty"`
}

func outputCapture(res orchestrator.Result) error {
	if res.Err != nil {
		return outputError(res.Err)
	}
	return outputJSON(captureOutput{
		ID:          res.Record.ID,
		ContentType: res.Record.ContentType,
		State:       res.State.String(),
		Response:    res.Outcome.Response,
	})
}

// noteCmd creates the note command.
func noteCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "note",
		Usage:     "Capture a typed note (content from args or stdin)",
		ArgsUsage: "[content...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "note", Aliases: []string{"n"}, Usage: "User note attached to the capture"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Source page URL"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Source page title"},
			&cli.StringFlag{Name: "method", Aliases: []string{"m"}, Value: string(capture.MethodPopup), Usage: "Capture method: popup|context_menu|shortcut"},
		},
		Action: func(c *cli.Context) error {
			method := capture.Method(c.String("method"))
			if !method.Valid() {
				return outputError(errors.NewInvalidRequest("method must be one of popup, context_menu, shortcut"))
			}

			content := strings.Join(c.Args().Slice(), " ")
			if content == "" && stdinHasData() {
				text, err := readStdin()
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				content = text
			}

			res := d.orchestrator(tabs.NewRegistry(d.log)).CaptureQuickNote(c.Context, orchestrator.QuickNote{
				Content:       content,
				SourceURL:     c.String("url"),
				SourceTitle:   c.String("title"),
				UserNote:      c.String("note"),
				CaptureMethod: method,
			})
			return outputCapture(res)
		},
	}
}

// pageCmd creates the page command.
func pageCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "page",
		Usage:     "Capture the selection of an HTML page, or a bookmark when nothing is selected",
		ArgsUsage: "<file|->",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "select", Aliases: []string{"s"}, Usage: "Text to select (first occurrence)"},
			&cli.StringFlag{Name: "url", Aliases: []string{"u"}, Usage: "Page URL (defaults to a file:// URL)"},
			&cli.BoolFlag{Name: "shortcut", Usage: "Record the capture as triggered by the keyboard shortcut"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("page requires exactly one file argument (use - for stdin)"))
			}

			doc, err := loadPage(c.Args().First(), c.String("url"))
			if err != nil {
				return outputError(err)
			}

			agent := tabs.NewAgent(doc, d.cfg.ContextWindow)
			reg := tabs.NewRegistry(d.log)
			reg.Attach(pageTab, agent)
			defer closeTab(reg, pageTab)

			if text := c.String("select"); text != "" {
				found, err := agent.SelectText(c.Context, text)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				if !found {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("text not found in page: %q", text)))
				}
			}

			o := d.orchestrator(reg)
			var res orchestrator.Result
			if c.Bool("shortcut") {
				res = o.CaptureFromShortcut(c.Context, pageTab, doc.URL, doc.Title)
			} else {
				res = o.CaptureFromContextMenu(c.Context, pageTab, doc.URL, doc.Title)
			}
			return outputCapture(res)
		},
	}
}

// closeTab detaches the agent of tabID and stops it.
func closeTab(reg *tabs.Registry, tabID int) {
	if a := reg.Detach(tabID); a != nil {
		a.Stop()
	}
}

// listCmd creates the list command.
func listCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List stored captures, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Filter by content type: text_selection|quick_note|bookmark"},
			&cli.BoolFlag{Name: "unprocessed", Usage: "Only captures not yet converted to notes"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Usage: "Number of items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(d.db, ops.ListInput{
				ContentType:     c.String("type"),
				UnprocessedOnly: c.Bool("unprocessed"),
				Limit:           c.Int("limit"),
				Offset:          c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// fetchCmd creates the fetch command.
func fetchCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a stored capture by ID",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "no-context", Usage: "Exclude surrounding text from output"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{ID: c.Args().First()}
			if c.Bool("no-context") {
				includeContext := false
				input.IncludeContext = &includeContext
			}

			output, err := ops.Fetch(d.db, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Render a stored capture as a note",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: ops.FormatMarkdown, Usage: "Output format: markdown|html"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Render(d.db, ops.RenderInput{
				ID:     c.Args().First(),
				Format: c.String("format"),
			})
			if err != nil {
				return outputError(err)
			}

			_, err = io.WriteString(os.Stdout, output.Content)
			return err
		},
	}
}

// processCmd creates the process command.
func processCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "process",
		Usage: "Convert inbox captures into markdown notes",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "inbox", Usage: "Inbox directory (default: inbox_folder from config)"},
			&cli.StringFlag{Name: "output", Usage: "Note directory (default: output_folder from config)"},
			&cli.StringFlag{Name: "status", Usage: "Frontmatter status for new notes"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ProcessInbox(d.db, d.cfg, d.log, ops.ProcessInput{
				InboxDir:  c.String("inbox"),
				OutputDir: c.String("output"),
				Status:    c.String("status"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(d *deps) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Browse stored captures in a local web viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8765, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv, err := web.NewServer(d.db, d.cfg, d.log, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			fmt.Fprintf(os.Stderr, "IdeaShelf viewer at http://%s\n", srv.Addr)
			return web.Run(srv, d.log)
		},
	}
}

// Helper functions

// loadPage parses an HTML file, or stdin for "-".
func loadPage(path, pageURL string) (*extract.Document, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot open page: %v", err))
		}
		defer f.Close()
		r = f

		if pageURL == "" {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, errors.NewInternal(err)
			}
			pageURL = "file://" + filepath.ToSlash(abs)
		}
	}

	doc, err := extract.Parse(r, pageURL)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return doc, nil
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var sErr *errors.ShelfError
	if stderrors.As(err, &sErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", sErr.Code, sErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
