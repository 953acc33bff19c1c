package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcpmcp "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	domainprompt "github.com/alanyang/promptledger/internal/domain/prompt"
	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
)

// RegisterPrompts exposes the registry as a single MCP prompt that resolves a
// name to its active content.
func RegisterPrompts(s *mcpserver.MCPServer, promptSvc *promptsvc.Service) {
	s.AddPrompt(
		mcpmcp.NewPrompt("prompt",
			mcpmcp.WithPromptDescription("Active version of a registered prompt, optionally rendered with input."),
			mcpmcp.WithArgument("name",
				mcpmcp.ArgumentDescription("Registered prompt name"),
				mcpmcp.RequiredArgument(),
			),
			mcpmcp.WithArgument("input",
				mcpmcp.ArgumentDescription("JSON object substituted into {{placeholders}}. Omit to get the raw content."),
			),
		),
		promptHandler(promptSvc),
	)
}

func promptHandler(promptSvc *promptsvc.Service) mcpserver.PromptHandlerFunc {
	return func(ctx context.Context, req mcpmcp.GetPromptRequest) (*mcpmcp.GetPromptResult, error) {
		name := req.Params.Arguments["name"]

		resolved, err := promptSvc.ResolvePrompt(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("resolve prompt %q: %w", name, err)
		}

		text := resolved.Active.Content
		if raw := req.Params.Arguments["input"]; raw != "" {
			var input map[string]any
			if err := json.Unmarshal([]byte(raw), &input); err != nil {
				return nil, fmt.Errorf("invalid input: %w", err)
			}
			if text, err = domainprompt.Render(text, input); err != nil {
				return nil, fmt.Errorf("render prompt %q: %w", name, err)
			}
		}

		return mcpmcp.NewGetPromptResult(
			fmt.Sprintf("%s v%d", resolved.Name, resolved.Active.Version),
			[]mcpmcp.PromptMessage{
				mcpmcp.NewPromptMessage(
					mcpmcp.RoleUser,
					mcpmcp.TextContent{
						Type: "text",
						Text: text,
					},
				),
			},
		), nil
	}
}
