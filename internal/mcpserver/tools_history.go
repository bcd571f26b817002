package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("list_matches",
			mcp.WithDescription("List concluded matches of a session, newest first"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithNumber("limit", mcp.Description("Page size, default 50, max 500")),
			mcp.WithNumber("offset", mcp.Description("Page offset, default 0")),
		),
		s.handleListMatches,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("get_standings",
			mcp.WithDescription("League table of a session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleGetStandings,
	)
}

func (s *Server) handleListMatches(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResp := sessionArg(request)
	if errResp != nil {
		return errResp, nil
	}
	limit, offset := clampPagination(request.GetInt("limit", defaultPageLimit), request.GetInt("offset", 0), maxPageLimit)
	items, err := s.history.ListMatches(ctx, sessionID, limit, offset)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"items": items, "limit": limit, "offset": offset}), nil
}

func (s *Server) handleGetStandings(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResp := sessionArg(request)
	if errResp != nil {
		return errResp, nil
	}
	rows, err := s.history.Standings(ctx, sessionID)
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(map[string]any{"session_id": sessionID, "standings": rows}), nil
}
