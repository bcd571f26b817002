package mcpserver

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerClockTools() {
	sessionParam := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id"))

	s.mcpServer.AddTool(
		mcp.NewTool("clock_start",
			mcp.WithDescription("Start the match clock, opening a new match when none is in progress"),
			sessionParam,
		),
		s.handleClockStart,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("clock_stop",
			mcp.WithDescription("Pause the match clock"),
			sessionParam,
		),
		s.handleClockMutation(s.clocks.Stop),
	)
	s.mcpServer.AddTool(
		mcp.NewTool("clock_reset",
			mcp.WithDescription("Stop the clock and restore the full match duration"),
			sessionParam,
		),
		s.handleClockMutation(s.clocks.Reset),
	)
	s.mcpServer.AddTool(
		mcp.NewTool("clock_clear_alarm",
			mcp.WithDescription("Acknowledge the one-minute alarm"),
			sessionParam,
		),
		s.handleClockMutation(s.clocks.ClearAlarm),
	)
	s.mcpServer.AddTool(
		mcp.NewTool("clock_state",
			mcp.WithDescription("Join the session and return its drift-corrected clock state"),
			sessionParam,
		),
		s.handleClockState,
	)
}

func (s *Server) handleClockStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResp := sessionArg(request)
	if errResp != nil {
		return errResp, nil
	}
	c, errResp := s.coordinator(ctx, sessionID)
	if errResp != nil {
		return errResp, nil
	}
	s.clocks.Join(sessionID)
	if err := c.StartMatch(); err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(s.clocks.Join(sessionID)), nil
}

func (s *Server) handleClockState(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResp := sessionArg(request)
	if errResp != nil {
		return errResp, nil
	}
	return toolResult(s.clocks.Join(sessionID)), nil
}

// handleClockMutation applies cmd and returns the resulting state. Commands
// on a session nobody has joined are no-ops and report known=false.
func (s *Server) handleClockMutation(cmd func(sessionID string)) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, errResp := sessionArg(request)
		if errResp != nil {
			return errResp, nil
		}
		cmd(sessionID)
		st, ok := s.clocks.Snapshot(sessionID)
		if !ok {
			return toolResult(map[string]any{"session_id": sessionID, "known": false}), nil
		}
		return toolResult(st), nil
	}
}
