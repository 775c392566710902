package web

import (
	"database/sql"
	"html/template"
	"net/http"
	"strconv"

	"github.com/hpungsan/ideashelf/internal/config"
	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/logger"
	"github.com/hpungsan/ideashelf/internal/ops"
)

// Handlers contains HTTP route handlers for the capture viewer.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	log      logger.Logger
	renderer *Renderer
}

// HandleList handles GET /captures: list captures, newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	contentType := r.URL.Query().Get("content_type")
	unprocessed := parseBoolParam(r, "unprocessed_only")

	result, err := ops.List(h.db, ops.ListInput{
		ContentType:     contentType,
		UnprocessedOnly: unprocessed,
		Limit:           parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:          parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	title, nav := "Captures", "captures"
	if unprocessed {
		title, nav = "Unprocessed", "unprocessed"
	}
	h.renderer.renderPage(w, "list", ListPageData{
		PageData: PageData{
			Title:   title,
			Version: h.renderer.version,
			Nav:     nav,
		},
		Items:           result.Items,
		Pagination:      result.Pagination,
		ContentType:     contentType,
		UnprocessedOnly: unprocessed,
	})
}

// HandleDetail handles GET /captures/{id}: view a single capture.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("capture ID is required"))
		return
	}

	fetched, err := ops.Fetch(h.db, ops.FetchInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, fetched)
		return
	}

	note, err := ops.Render(h.db, ops.RenderInput{ID: id, Format: ops.FormatHTML})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	title := fetched.SourceTitle
	if title == "" {
		title = displayID(fetched.ID)
	}
	h.renderer.renderPage(w, "detail", DetailPageData{
		PageData: PageData{
			Title:   title,
			Version: h.renderer.version,
			Nav:     "captures",
		},
		Capture: fetched,
		// goldmark output; raw HTML in captured text is escaped
		RenderedHTML: template.HTML(note.Content),
	})
}

// HandleProcess handles POST /inbox/process: convert inbox files into notes.
func (h *Handlers) HandleProcess(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ProcessInbox(h.db, h.cfg, h.log, ops.ProcessInput{
		Status: r.FormValue("status"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	// Default: back to the list, where processed captures are marked
	http.Redirect(w, r, "/captures", http.StatusFound)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// displayID truncates long ids for page titles.
func displayID(id string) string {
	if len(id) > 10 {
		return id[:10] + "..."
	}
	return id
}
