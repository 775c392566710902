package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ideashelf/internal/ops"
)

var listToolDef = mcp.NewTool("capture_list",
	mcp.WithDescription("List stored captures, newest first. Returns summaries without full content."),
	mcp.WithString("content_type",
		mcp.Description("Filter by content type"),
		mcp.Enum("text_selection", "quick_note", "bookmark"),
	),
	mcp.WithBoolean("unprocessed_only",
		mcp.Description("Only list captures the inbox processor has not converted yet"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum items to return (default 20, max 100)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Number of items to skip"),
	),
)

var fetchToolDef = mcp.NewTool("capture_fetch",
	mcp.WithDescription("Fetch one stored capture by id, including its surrounding-text context."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Capture id"),
	),
	mcp.WithBoolean("include_context",
		mcp.Description("Include preceding and following text (default true)"),
	),
)

var renderToolDef = mcp.NewTool("capture_render",
	mcp.WithDescription("Render a stored capture as the markdown note the inbox processor would write, or as HTML."),
	mcp.WithString("id",
		mcp.Required(),
		mcp.Description("Capture id"),
	),
	mcp.WithString("format",
		mcp.Description("Output format (default markdown)"),
		mcp.Enum(ops.FormatMarkdown, ops.FormatHTML),
	),
)

var processToolDef = mcp.NewTool("inbox_process",
	mcp.WithDescription("Convert every capture file in the inbox into a markdown note and move the originals to processed/."),
	mcp.WithString("inbox_dir",
		mcp.Description("Inbox directory (default: configured inbox_folder)"),
	),
	mcp.WithString("output_dir",
		mcp.Description("Output directory for notes (default: configured output_folder)"),
	),
	mcp.WithString("status",
		mcp.Description("Frontmatter status for new notes (default raw)"),
	),
)
