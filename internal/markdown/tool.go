package markdown

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

var toolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"markdown_content": {
			"type": "string",
			"description": "The markdown text to convert to HTML."
		}
	},
	"required": ["markdown_content"]
}`)

// Tool exposes markdown conversion to the model. Work-item descriptions must
// pass through it before reaching Azure Boards. Conversion failures fall back
// to the original content so the model can still proceed.
func Tool() chat.Tool {
	return chat.NewTool(
		"convert_markdown_to_html",
		"Convert markdown content to HTML. Must be called before writing any generated content to Azure Boards.",
		toolSchema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				MarkdownContent string `json:"markdown_content"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, &chat.ToolError{ToolName: "convert_markdown_to_html", Message: "invalid arguments", Err: err}
			}

			htmlOut, err := ToHTML(in.MarkdownContent)
			if err != nil {
				slog.WarnContext(ctx, "markdown conversion failed, returning original content", "error", err)
				return in.MarkdownContent, nil
			}
			return htmlOut, nil
		},
	)
}
