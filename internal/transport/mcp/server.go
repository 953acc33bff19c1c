package mcp

import (
	"context"
	"log/slog"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	promptsvc "github.com/alanyang/promptledger/internal/service/prompt"
	runsvc "github.com/alanyang/promptledger/internal/service/run"
)

// Server wraps the mark3labs/mcp-go MCPServer and its StreamableHTTPServer.
// Tools are registered in tools.go, prompts in prompts.go, run watches in
// registry.go.
type Server struct {
	httpSrv *mcpserver.StreamableHTTPServer
	reg     *WatchRegistry
}

func New(promptSvc *promptsvc.Service, runSvc *runsvc.Service) *Server {
	s := &Server{reg: NewWatchRegistry()}

	hooks := &mcpserver.Hooks{}
	hooks.OnUnregisterSession = append(hooks.OnUnregisterSession, s.onSessionClose)

	mcpSrv := mcpserver.NewMCPServer(
		"promptledger",
		"1.0.0",
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithHooks(hooks),
	)
	s.reg.SetMCPServer(mcpSrv)

	RegisterTools(mcpSrv, s.reg, promptSvc, runSvc)
	RegisterPrompts(mcpSrv, promptSvc)

	s.httpSrv = mcpserver.NewStreamableHTTPServer(mcpSrv)
	return s
}

// Handler returns the http.Handler serving the MCP endpoint.
func (s *Server) Handler() http.Handler {
	return s.httpSrv
}

// Registry returns the run watch registry. The router feeds it run events.
func (s *Server) Registry() *WatchRegistry {
	return s.reg
}

func (s *Server) onSessionClose(ctx context.Context, session mcpserver.ClientSession) {
	if n := s.reg.Unregister(session.SessionID()); n > 0 {
		slog.InfoContext(ctx, "mcp: session closed, dropped run watches", "session_id", session.SessionID(), "watches", n)
	}
}
