package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ideashelf/internal/config"
	"github.com/hpungsan/ideashelf/internal/errors"
	"github.com/hpungsan/ideashelf/internal/logger"
	"github.com/hpungsan/ideashelf/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	log logger.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, log logger.Logger) *Handlers {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handlers{db: db, cfg: cfg, log: log}
}

// Request types for each tool

// ListRequest represents the arguments for capture_list.
type ListRequest struct {
	ContentType     string `json:"content_type,omitempty"`
	UnprocessedOnly bool   `json:"unprocessed_only,omitempty"`
	Limit           int    `json:"limit,omitempty"`
	Offset          int    `json:"offset,omitempty"`
}

// FetchRequest represents the arguments for capture_fetch.
type FetchRequest struct {
	ID             string `json:"id"`
	IncludeContext *bool  `json:"include_context,omitempty"`
}

// RenderRequest represents the arguments for capture_render.
type RenderRequest struct {
	ID     string `json:"id"`
	Format string `json:"format,omitempty"`
}

// ProcessRequest represents the arguments for inbox_process.
type ProcessRequest struct {
	InboxDir  string `json:"inbox_dir,omitempty"`
	OutputDir string `json:"output_dir,omitempty"`
	Status    string `json:"status,omitempty"`
}

// HandleList handles the capture_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.db, ops.ListInput{
		ContentType:     input.ContentType,
		UnprocessedOnly: input.UnprocessedOnly,
		Limit:           input.Limit,
		Offset:          input.Offset,
	})
	if err != nil {
		return h.fail("capture_list", err), nil
	}

	return successResult(result)
}

// HandleFetch handles the capture_fetch tool call.
func (h *Handlers) HandleFetch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FetchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Fetch(h.db, ops.FetchInput{
		ID:             input.ID,
		IncludeContext: input.IncludeContext,
	})
	if err != nil {
		return h.fail("capture_fetch", err), nil
	}

	return successResult(result)
}

// HandleRender handles the capture_render tool call.
func (h *Handlers) HandleRender(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RenderRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Render(h.db, ops.RenderInput{
		ID:     input.ID,
		Format: input.Format,
	})
	if err != nil {
		return h.fail("capture_render", err), nil
	}

	return successResult(result)
}

// HandleProcess handles the inbox_process tool call.
func (h *Handlers) HandleProcess(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProcessRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ProcessInbox(h.db, h.cfg, h.log, ops.ProcessInput{
		InboxDir:  input.InboxDir,
		OutputDir: input.OutputDir,
		Status:    input.Status,
	})
	if err != nil {
		return h.fail("inbox_process", err), nil
	}

	return successResult(result)
}

// fail logs the underlying error and converts it to a tool error result.
func (h *Handlers) fail(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, errors.ErrInternal) || !isShelfError(err) {
		h.log.Error("tool failed", logger.String("tool", tool), logger.Error(err))
	}
	return errorResult(err)
}

// Result helpers

func isShelfError(err error) bool {
	var sErr *errors.ShelfError
	return stderrors.As(err, &sErr)
}

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.ShelfError
	if stderrors.As(err, &sErr) {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": err.Error(),
			"status":  sErr.Status,
		}
		if err == error(sErr) || sErr.Code == errors.ErrInternal {
			errorObj["message"] = sErr.Message
		}
		// Only include details for non-internal errors
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
