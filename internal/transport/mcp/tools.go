package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
	runsvc "github.com/alanyang/promptledger/internal/service/run"
)

// RegisterTools registers all MCP tools on the server.
func RegisterTools(
	s *mcpserver.MCPServer,
	reg *WatchRegistry,
	promptSvc *promptsvc.Service,
	runSvc *runsvc.Service,
) {
	s.AddTool(mcpmcp.NewTool("list_prompts",
		mcpmcp.WithDescription("List registered prompts, newest first. Each entry carries the active and latest version numbers."),
		mcpmcp.WithString("query", mcpmcp.Description("Case-insensitive substring of name or description")),
		mcpmcp.WithNumber("limit", mcpmcp.Description("Page size, 1 to 100. Defaults to 50.")),
		mcpmcp.WithNumber("offset", mcpmcp.Description("Entries to skip")),
	), listPromptsHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("get_prompt",
		mcpmcp.WithDescription("Resolve a prompt by name. Returns the prompt and its active version content."),
		mcpmcp.WithString("name", mcpmcp.Required(), mcpmcp.Description("Prompt name")),
	), getPromptHandler(promptSvc))

	s.AddTool(mcpmcp.NewTool("create_run",
		mcpmcp.WithDescription("Queue a run against the prompt's current active version. The version is fixed at creation."),
		mcpmcp.WithString("prompt_name", mcpmcp.Required(), mcpmcp.Description("Prompt name")),
		mcpmcp.WithObject("input", mcpmcp.Description("Free-form input recorded on the run")),
	), createRunHandler(runSvc))

	s.AddTool(mcpmcp.NewTool("get_run",
		mcpmcp.WithDescription("Fetch a run with its status, output or error."),
		mcpmcp.WithString("run_id", mcpmcp.Required(), mcpmcp.Description("Run UUID")),
	), getRunHandler(runSvc))

	s.AddTool(mcpmcp.NewTool("watch_run",
		mcpmcp.WithDescription("Ask to be notified on this session when the run succeeds or fails. Returns the current run; if it has already finished no notification follows."),
		mcpmcp.WithString("run_id", mcpmcp.Required(), mcpmcp.Description("Run UUID")),
	), watchRunHandler(reg, runSvc))
}

func listPromptsHandler(promptSvc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		filters := domainprompt.ListFilters{
			Query:  mcpmcp.ParseString(req, "query", ""),
			Limit:  mcpmcp.ParseInt(req, "limit", 0),
			Offset: mcpmcp.ParseInt(req, "offset", 0),
		}
		prompts, err := promptSvc.ListPrompts(ctx, filters)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		return jsonResult(prompts)
	}
}

func getPromptHandler(promptSvc *promptsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		name := mcpmcp.ParseString(req, "name", "")
		resolved, err := promptSvc.ResolvePrompt(ctx, name)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		return jsonResult(resolved)
	}
}

func createRunHandler(runSvc *runsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		name := mcpmcp.ParseString(req, "prompt_name", "")
		input := mcpmcp.ParseStringMap(req, "input", nil)

		r, err := runSvc.CreateRun(ctx, name, input)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		return jsonResult(r)
	}
}

func getRunHandler(runSvc *runsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		runID, err := uuid.Parse(mcpmcp.ParseString(req, "run_id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid run_id"), nil
		}
		r, err := runSvc.GetRun(ctx, runID)
		if err != nil {
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		return jsonResult(r)
	}
}

func watchRunHandler(reg *WatchRegistry, runSvc *runsvc.Service) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, req mcpmcp.CallToolRequest) (*mcpmcp.CallToolResult, error) {
		runID, err := uuid.Parse(mcpmcp.ParseString(req, "run_id", ""))
		if err != nil {
			return mcpmcp.NewToolResultText("error: invalid run_id"), nil
		}

		session := mcpserver.ClientSessionFromContext(ctx)
		if session == nil {
			return mcpmcp.NewToolResultText("error: watch_run needs a session"), nil
		}

		// Register before reading so a completion racing with this call is not
		// missed; a terminal run is then unwatched straight away.
		reg.Watch(session.SessionID(), runID)
		r, err := runSvc.GetRun(ctx, runID)
		if err != nil {
			reg.Unwatch(session.SessionID(), runID)
			return mcpmcp.NewToolResultText(fmt.Sprintf("error: %s", err)), nil
		}
		if r.Status.IsTerminal() {
			reg.Unwatch(session.SessionID(), runID)
		}
		return jsonResult(r)
	}
}

func jsonResult(v any) (*mcpmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcpmcp.NewToolResultText(string(data)), nil
}
