package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/vkotenko/questd/internal/session"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Game     Game
	Sessions SessionReader
}

// NewMCPServer creates an MCP server exposing the game as tools, so
// any MCP host can act as the player's front end.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"questd",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("questd is a turn-based AI game master. Start a game, then continue it with the player's chosen action each turn."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("start_game",
			mcp.WithDescription("Start a new game session for a player and return the opening narrative with choices."),
			mcp.WithString("player_id", mcp.Description("Stable player identifier (e.g. wallet address)"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Session identifier; generated when omitted")),
			mcp.WithString("genre", mcp.Description("Story genre (default fantasy)")),
			mcp.WithString("language", mcp.Description("Narrative language (default English)")),
			mcp.WithNumber("turns", mcp.Description("Turn budget for the quest")),
		),
		mcpStartGame(deps),
	)

	s.AddTool(
		mcp.NewTool("continue_game",
			mcp.WithDescription("Play one turn of an active game session with the player's action."),
			mcp.WithString("player_id", mcp.Description("Player identifier used at start"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Session identifier used at start"), mcp.Required()),
			mcp.WithString("input", mcp.Description("The player's chosen action"), mcp.Required()),
		),
		mcpContinueGame(deps),
	)

	s.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"game://{player}/{session}",
			"Game Session",
			mcp.WithTemplateDescription("State of one game session, addressed by player and session identifiers"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		mcpResourceSession(deps),
	)

	return s
}

func mcpStartGame(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		playerID, err := req.RequireString("player_id")
		if err != nil {
			return mcpError("player_id is required"), nil
		}

		sessionID := req.GetString("session_id", "")
		if sessionID == "" {
			sessionID = uuid.New().String()
		}

		settings := session.Settings{
			Genre:    req.GetString("genre", ""),
			Language: req.GetString("language", ""),
			MaxTurns: req.GetInt("turns", 0),
		}

		res, err := deps.Game.Start(ctx, playerID, sessionID, settings)
		if err != nil {
			return mcpError(fmt.Sprintf("starting game: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{
			"session_id": sessionID,
			"message":    res.Message,
			"choices":    res.Choices,
		})
		if err != nil {
			return mcpError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpContinueGame(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		playerID, err := req.RequireString("player_id")
		if err != nil {
			return mcpError("player_id is required"), nil
		}
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}
		input, err := req.RequireString("input")
		if err != nil {
			return mcpError("input is required"), nil
		}

		res, err := deps.Game.Continue(ctx, playerID, sessionID, input)
		if err != nil {
			return mcpError(fmt.Sprintf("continuing game: %v", err)), nil
		}

		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("encoding result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceSession(deps MCPDeps) server.ResourceTemplateHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		playerID := templateArg(req.Params.Arguments, "player")
		sessionID := templateArg(req.Params.Arguments, "session")
		if playerID == "" || sessionID == "" {
			return nil, fmt.Errorf("player and session are required in the resource URI")
		}

		g, ok := deps.Sessions.SessionState(playerID, sessionID)
		if !ok {
			return nil, fmt.Errorf("no session %s/%s", playerID, sessionID)
		}

		b, err := json.Marshal(SessionResponse{
			PlayerID:  playerID,
			SessionID: sessionID,
			Status:    g.Status.String(),
			Round:     g.Round,
			MaxTurns:  g.MaxTurns,
			Genre:     g.Genre,
			Language:  g.Language,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding session: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// templateArg reads one URI template variable. Matched variables
// arrive as string slices; single values may also appear as plain
// strings.
func templateArg(args map[string]any, name string) string {
	switch v := args[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
