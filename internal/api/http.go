// Package api exposes the turn orchestration core over HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vkotenko/questd/internal/game"
	"github.com/vkotenko/questd/internal/session"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Game is the turn API consumed by both surfaces. Implemented by
// game.Orchestrator.
type Game interface {
	Start(ctx context.Context, playerID, sessionID string, settings session.Settings) (*game.TurnResult, error)
	Continue(ctx context.Context, playerID, sessionID, input string) (*game.TurnResult, error)
}

// SessionReader provides read access to session state for status
// endpoints. Implemented by session.Registry.
type SessionReader interface {
	SessionState(playerID, sessionID string) (session.Game, bool)
}

// StartRequest is the POST /start payload.
type StartRequest struct {
	PlayerID  string `json:"player_id"`
	SessionID string `json:"session_id"`
	Genre     string `json:"genre"`
	Language  string `json:"language"`
	Turns     int    `json:"turns"`
}

// ContinueRequest is the POST /continue payload.
type ContinueRequest struct {
	PlayerID  string `json:"player_id"`
	SessionID string `json:"session_id"`
	Input     string `json:"input"`
}

// SessionResponse is the GET /sessions/{player}/{session} payload.
type SessionResponse struct {
	PlayerID  string `json:"player_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Round     int    `json:"round"`
	MaxTurns  int    `json:"max_turns"`
	Genre     string `json:"genre"`
	Language  string `json:"language"`
}

// NewHandler builds the HTTP turn API router.
func NewHandler(g Game, sessions SessionReader) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Post("/start", handleStart(g))
	r.Post("/continue", handleContinue(g))
	r.Get("/sessions/{player}/{session}", handleSession(sessions))

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleStart(g Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.PlayerID == "" || req.SessionID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "player_id and session_id are required")
			return
		}

		res, err := g.Start(r.Context(), req.PlayerID, req.SessionID, session.Settings{
			Genre:    req.Genre,
			Language: req.Language,
			MaxTurns: req.Turns,
		})
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "starting game: %v", err)
			return
		}

		writeJSON(w, res)
	}
}

func handleContinue(g Game) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req ContinueRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.PlayerID == "" || req.SessionID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "player_id and session_id are required")
			return
		}

		res, err := g.Continue(r.Context(), req.PlayerID, req.SessionID, req.Input)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "continuing game: %v", err)
			return
		}

		writeJSON(w, res)
	}
}

func handleSession(sessions SessionReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := chi.URLParam(r, "player")
		sessionID := chi.URLParam(r, "session")

		g, ok := sessions.SessionState(playerID, sessionID)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found_error", "no session %s/%s", playerID, sessionID)
			return
		}

		writeJSON(w, SessionResponse{
			PlayerID:  playerID,
			SessionID: sessionID,
			Status:    g.Status.String(),
			Round:     g.Round,
			MaxTurns:  g.MaxTurns,
			Genre:     g.Genre,
			Language:  g.Language,
		})
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
