package foundry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gurdaan/agentic-workflow-backend/internal/chat"
)

var requestSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"user_request": {
			"type": "string",
			"description": "The full request with all gathered context, verbatim."
		}
	},
	"required": ["user_request"]
}`)

// AgentIDs holds the pre-built Foundry agent ids, one per artifact kind.
type AgentIDs struct {
	UserStory string
	TestCases string
	DevTasks  string
}

// Tools builds the generator tools for the configured agents. Agents with an
// empty id are skipped so a partially configured project still starts.
func Tools(client *Client, ids AgentIDs) []chat.Tool {
	var tools []chat.Tool
	if ids.UserStory != "" {
		tools = append(tools, agentTool(client, "run_ai_foundry_agent",
			"Generate a user story for the given request using the AI Foundry user story agent.",
			ids.UserStory))
	}
	if ids.TestCases != "" {
		tools = append(tools, agentTool(client, "run_ai_foundry_testcases_agent",
			"Generate test cases for the given request using the AI Foundry test case agent.",
			ids.TestCases))
	}
	if ids.DevTasks != "" {
		tools = append(tools, agentTool(client, "run_ai_foundry_dev_tasks_agent",
			"Generate development tasks for the given request using the AI Foundry dev task agent.",
			ids.DevTasks))
	}
	return tools
}

func agentTool(client *Client, name, description, agentID string) chat.Tool {
	return chat.NewTool(name, description, requestSchema,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			var in struct {
				UserRequest string `json:"user_request"`
			}
			if err := json.Unmarshal(args, &in); err != nil {
				return nil, &chat.ToolError{ToolName: name, Message: "invalid arguments", Err: err}
			}
			if in.UserRequest == "" {
				return nil, &chat.ToolError{ToolName: name, Message: "user_request is required", Err: chat.ErrTool}
			}

			slog.InfoContext(ctx, "invoking foundry agent", "tool", name, "agent_id", agentID)
			reply, err := client.RunAgent(ctx, agentID, in.UserRequest)
			if err != nil {
				return nil, fmt.Errorf("run agent %s: %w", agentID, err)
			}
			return reply, nil
		},
	)
}
