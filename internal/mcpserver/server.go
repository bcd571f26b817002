package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"tri-league/internal/history"
	"tri-league/internal/matchclock"
	"tri-league/internal/matchflow"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Clocks is the clock registry surface operator tools drive.
type Clocks interface {
	Join(sessionID string) matchclock.State
	Snapshot(sessionID string) (matchclock.State, bool)
	Stop(sessionID string)
	Reset(sessionID string)
	ClearAlarm(sessionID string)
}

type Server struct {
	clocks  Clocks
	matches *matchflow.Manager
	history history.Reader

	mcpServer  *server.MCPServer
	httpServer *server.StreamableHTTPServer
}

func New(clocks Clocks, matches *matchflow.Manager, hist history.Reader) *Server {
	mcpSrv := server.NewMCPServer(
		"tri-league",
		"0.1.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithRecovery(),
		server.WithResourceRecovery(),
	)
	s := &Server{
		clocks:     clocks,
		matches:    matches,
		history:    hist,
		mcpServer:  mcpSrv,
		httpServer: server.NewStreamableHTTPServer(mcpSrv, server.WithStateLess(true), server.WithDisableStreaming(true)),
	}
	s.registerClockTools()
	s.registerMatchTools()
	s.registerHistoryTools()
	s.registerResources()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"session://{session_id}/clock",
			"session_clock",
			mcp.WithTemplateDescription("Drift-corrected clock state of a session"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			raw := string(request.Params.URI)
			if !strings.HasPrefix(raw, "session://") || !strings.HasSuffix(raw, "/clock") {
				return nil, nil
			}
			sessionID := strings.TrimSuffix(strings.TrimPrefix(raw, "session://"), "/clock")
			if !matchclock.ValidSessionID(sessionID) {
				return nil, nil
			}
			payload, err := json.Marshal(s.clocks.Join(sessionID))
			if err != nil {
				return nil, err
			}
			return []mcp.ResourceContents{
				mcp.TextResourceContents{
					URI:      raw,
					MIMEType: "application/json",
					Text:     string(payload),
				},
			}, nil
		},
	)
}

// sessionArg reads and validates the session_id argument.
func sessionArg(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	sessionID := strings.TrimSpace(request.GetString("session_id", ""))
	if sessionID == "" {
		return "", toolError("invalid_request", "session_id is required")
	}
	if !matchclock.ValidSessionID(sessionID) {
		return "", toolError("invalid_session_id", "session_id must be 1-64 letters, digits, '-' or '_'")
	}
	return sessionID, nil
}

func (s *Server) coordinator(ctx context.Context, sessionID string) (*matchflow.Coordinator, *mcp.CallToolResult) {
	c, err := s.matches.Coordinator(ctx, sessionID)
	if err != nil {
		return nil, mapDomainError(err)
	}
	return c, nil
}
