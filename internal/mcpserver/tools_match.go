package mcpserver

import (
	"context"
	"errors"

	"tri-league/internal/matchflow"
	"tri-league/internal/rotation"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerMatchTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("record_goal",
			mcp.WithDescription("Record a goal for slot A or B; the second goal of a side ends the match"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("side", mcp.Required(), mcp.Description("A|B")),
			mcp.WithString("scorer", mcp.Description("Optional scorer name")),
		),
		s.handleRecordGoal,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("preview_result",
			mcp.WithDescription("Show the classified result, points and next rotation before confirming"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("outcome", mcp.Description("Required while the match is running: slot_a_wins|slot_b_wins|draw")),
		),
		s.handlePreviewResult,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("confirm_result",
			mcp.WithDescription("Commit the concluded match: rotate teams, record history, reset the clock"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
			mcp.WithString("outcome", mcp.Description("Optional outcome; must match the classification when one exists")),
			mcp.WithString("draw_choice_id", mcp.Description("Draw choice id from preview_result for a first-match draw")),
		),
		s.handleConfirmResult,
	)
	s.mcpServer.AddTool(
		mcp.NewTool("match_status",
			mcp.WithDescription("Current phase, score, assignment and pending result of a session"),
			mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id")),
		),
		s.handleMatchStatus,
	)
}

func (s *Server) handleRecordGoal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResp := sessionArg(request)
	if errResp != nil {
		return errResp, nil
	}
	side, err := rotation.ParseSlot(request.GetString("side", ""))
	if err != nil || side == rotation.SlotNone {
		return toolError("invalid_side", "side must be A or B"), nil
	}
	st, err := s.matches.RecordGoal(ctx, sessionID, side, request.GetString("scorer", ""))
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(st), nil
}

func (s *Server) handlePreviewResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResp := sessionArg(request)
	if errResp != nil {
		return errResp, nil
	}
	outcome, err := parseOutcome(request.GetString("outcome", ""))
	if err != nil {
		return toolError("invalid_outcome", err.Error()), nil
	}
	c, errResp := s.coordinator(ctx, sessionID)
	if errResp != nil {
		return errResp, nil
	}
	preview, err := c.OpenConfirmation(matchflow.PreviewRequest{Outcome: outcome})
	if err != nil {
		return mapDomainError(err), nil
	}
	return toolResult(preview), nil
}

func (s *Server) handleConfirmResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResp := sessionArg(request)
	if errResp != nil {
		return errResp, nil
	}
	outcome, err := parseOutcome(request.GetString("outcome", ""))
	if err != nil {
		return toolError("invalid_outcome", err.Error()), nil
	}
	c, errResp := s.coordinator(ctx, sessionID)
	if errResp != nil {
		return errResp, nil
	}
	next, err := c.ConfirmResult(ctx, matchflow.ConfirmRequest{
		Outcome:      outcome,
		DrawChoiceID: request.GetString("draw_choice_id", ""),
	})
	if err != nil && !errors.Is(err, matchflow.ErrSinkFailed) {
		return mapDomainError(err), nil
	}
	payload := map[string]any{
		"session_id": sessionID,
		"next":       next,
		"recorded":   err == nil,
	}
	if err != nil {
		payload["warning"] = err.Error()
	}
	return toolResult(payload), nil
}

func (s *Server) handleMatchStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, errResp := sessionArg(request)
	if errResp != nil {
		return errResp, nil
	}
	c, errResp := s.coordinator(ctx, sessionID)
	if errResp != nil {
		return errResp, nil
	}
	return toolResult(c.Status()), nil
}
