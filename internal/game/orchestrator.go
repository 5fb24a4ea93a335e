// Package game drives the turn state machine: it composes the session
// registry, the completion poller, the choice parser, and the artifact
// pipeline into the Start/Continue operations the outer surfaces call.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vkotenko/questd/internal/narrative"
	"github.com/vkotenko/questd/internal/session"
)

// Player-facing messages for turns that never reach the completion
// service.
const (
	MsgNoSession = "No active game session. Start a new game!"
	MsgFinished  = "Game finished. Start a new game?"
)

// Completion is the thread-manipulation slice of the completion
// capability the orchestrator needs. Implemented by assistant.Client.
type Completion interface {
	AppendUserMessage(ctx context.Context, threadID, content string) error
	SubmitJob(ctx context.Context, threadID, personaID string) (string, error)
}

// Awaiter resolves a submitted job to its narrative text.
// Implemented by poll.Poller.
type Awaiter interface {
	Await(ctx context.Context, threadID, jobID string) (string, error)
}

// ImageProducer best-effort renders a narrative into an image URL.
// Implemented by artifact.Pipeline.
type ImageProducer interface {
	Produce(ctx context.Context, narrative string) (url string, ok bool)
}

// TurnResult is one round of narrative exchange returned to the caller.
type TurnResult struct {
	Message  string   `json:"message"`
	Choices  []string `json:"choices"`
	ImageURL string   `json:"image_url,omitempty"`
}

// Orchestrator runs game turns. Safe for concurrent use; all state
// lives in the registry, keyed per (player, session).
type Orchestrator struct {
	registry *session.Registry
	svc      Completion
	awaiter  Awaiter
	images   ImageProducer // optional; nil disables turn images
	logger   *slog.Logger
}

// New creates an Orchestrator. images may be nil.
func New(registry *session.Registry, svc Completion, awaiter Awaiter, images ImageProducer) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		svc:      svc,
		awaiter:  awaiter,
		images:   images,
		logger:   slog.Default(),
	}
}

// Start opens a session for the (player, session) pair at round 1:
// resolve or create the player's persona, open a fresh thread, submit
// the initial completion job with no user message, and return the
// opening narrative with its extracted choices.
func (o *Orchestrator) Start(ctx context.Context, playerID, sessionID string, settings session.Settings) (*TurnResult, error) {
	personaID, err := o.registry.GetOrCreatePersona(ctx, playerID, settings)
	if err != nil {
		return nil, err
	}

	threadID, err := o.registry.CreateThread(ctx, playerID, sessionID)
	if err != nil {
		return nil, err
	}

	g := o.registry.BeginSession(playerID, sessionID, settings)
	o.logger.Info("game started",
		"player_id", playerID, "session_id", sessionID,
		"genre", g.Genre, "language", g.Language, "max_turns", g.MaxTurns)

	text, err := o.runTurn(ctx, threadID, personaID)
	if err != nil {
		return nil, err
	}

	return &TurnResult{
		Message: text,
		Choices: narrative.Texts(narrative.ExtractChoices(text)),
	}, nil
}

// Continue plays one round with the player's input. Sessions that were
// never started or already finished short-circuit with the matching
// message and no remote call; likewise the overflow turn that pushes
// the round past the budget only flips the session to Finished.
func (o *Orchestrator) Continue(ctx context.Context, playerID, sessionID, input string) (*TurnResult, error) {
	g, ok := o.registry.SessionState(playerID, sessionID)
	if !ok {
		return &TurnResult{Message: MsgNoSession, Choices: []string{}}, nil
	}
	if g.Status != session.StatusInProgress {
		return &TurnResult{Message: MsgFinished, Choices: []string{}}, nil
	}

	round, finished, err := o.registry.AdvanceRound(playerID, sessionID)
	if err != nil {
		return nil, err
	}
	if finished {
		o.logger.Info("game finished", "player_id", playerID, "session_id", sessionID, "round", round)
		return &TurnResult{Message: MsgFinished, Choices: []string{}}, nil
	}

	threadID, err := o.registry.ResolveThread(playerID, sessionID)
	if err != nil {
		return nil, err
	}
	personaID, ok := o.registry.PersonaID(playerID)
	if !ok {
		return nil, fmt.Errorf("no persona for player %s", playerID)
	}

	content := turnMessage(round, g.MaxTurns, input)
	if err := o.svc.AppendUserMessage(ctx, threadID, content); err != nil {
		return nil, err
	}

	text, err := o.runTurn(ctx, threadID, personaID)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{
		Message: text,
		Choices: narrative.Texts(narrative.ExtractChoices(text)),
	}

	if o.images != nil {
		if url, ok := o.images.Produce(ctx, text); ok {
			result.ImageURL = url
		}
	}

	return result, nil
}

// runTurn submits a completion job and awaits its narrative.
func (o *Orchestrator) runTurn(ctx context.Context, threadID, personaID string) (string, error) {
	jobID, err := o.svc.SubmitJob(ctx, threadID, personaID)
	if err != nil {
		return "", err
	}
	return o.awaiter.Await(ctx, threadID, jobID)
}

// turnMessage wraps player input in the structure the persona
// instructions promise, prefixed with the round the persona was told
// it would be notified of.
func turnMessage(round, maxTurns int, input string) string {
	return fmt.Sprintf("Round %d of %d. {\"user\": %s}", round, maxTurns, strconv.Quote(input))
}
