package boards

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

var createSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"work_item_type": {
			"type": "string",
			"description": "The work item type, such as 'User Story', 'Test Case', or 'Task'."
		},
		"title": {
			"type": "string",
			"description": "Short title for the work item."
		},
		"description_html": {
			"type": "string",
			"description": "Work item description as HTML. Markdown must be converted with convert_markdown_to_html first."
		}
	},
	"required": ["work_item_type", "title"]
}`)

var querySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"wiql": {
			"type": "string",
			"description": "A WIQL query. Defaults to listing the project's most recent work items."
		}
	}
}`)

const defaultWIQL = "SELECT [System.Id] FROM WorkItems ORDER BY [System.ChangedDate] DESC"

// Tools exposes work-item creation and querying to the model. Creation is
// only reached after the orchestration policy's explicit user confirmation.
func Tools(client *Client) []chat.Tool {
	return []chat.Tool{createTool(client), queryTool(client)}
}

func createTool(client *Client) chat.Tool {
	return chat.NewTool(
		"create_work_item",
		"Create a work item in Azure Boards. Only call after the user has explicitly confirmed the save.",
		createSchema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				WorkItemType    string `json:"work_item_type"`
				Title           string `json:"title"`
				DescriptionHTML string `json:"description_html"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, &chat.ToolError{ToolName: "create_work_item", Message: "invalid arguments", Err: err}
			}
			if in.WorkItemType == "" || in.Title == "" {
				return nil, &chat.ToolError{ToolName: "create_work_item", Message: "work_item_type and title are required", Err: chat.ErrTool}
			}

			item, err := client.CreateWorkItem(ctx, in.WorkItemType, in.Title, in.DescriptionHTML)
			if err != nil {
				return nil, fmt.Errorf("create work item: %w", err)
			}
			return fmt.Sprintf("Work item created: %s #%d %q (%s)", item.Type, item.ID, item.Title, item.URL), nil
		},
	)
}

func queryTool(client *Client) chat.Tool {
	return chat.NewTool(
		"query_work_items",
		"Query work items in Azure Boards using WIQL and return their id, type, title, and state.",
		querySchema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				WIQL string `json:"wiql"`
			}
			if len(args) > 0 {
				if err := json.Unmarshal(args, &in); err != nil {
					return nil, &chat.ToolError{ToolName: "query_work_items", Message: "invalid arguments", Err: err}
				}
			}
			if in.WIQL == "" {
				in.WIQL = defaultWIQL
			}

			items, err := client.QueryWorkItems(ctx, in.WIQL)
			if err != nil {
				return nil, fmt.Errorf("query work items: %w", err)
			}
			slog.InfoContext(ctx, "work items queried", "count", len(items))
			if len(items) == 0 {
				return "No work items found.", nil
			}
			return items, nil
		},
	)
}
