// Package session owns per-player personas, per-session conversation
// threads, and the state of every active game, all keyed explicitly by
// player and session identifiers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// ErrThreadNotFound is returned by ResolveThread when no thread has
// been recorded for the (player, session) pair.
var ErrThreadNotFound = errors.New("no thread for session")

// PersonaPolicy names the rule applied when a player who already has a
// persona starts a game with different settings.
type PersonaPolicy string

// PersonaPolicyFirstSettingsWin reuses the persona created from the
// player's first settings forever; later settings never regenerate it.
// It is the only supported policy.
const PersonaPolicyFirstSettingsWin PersonaPolicy = "first-settings-win"

// Status is the lifecycle state of a game session.
type Status int

const (
	StatusNotStarted Status = iota
	StatusInProgress
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusFinished:
		return "finished"
	}
	return "not_started"
}

// Game is a snapshot of one session's progress.
type Game struct {
	Round    int
	MaxTurns int
	Genre    string
	Language string
	Status   Status
}

// PersonaService is the remote capability the registry needs:
// persona and thread creation. Implemented by assistant.Client.
type PersonaService interface {
	CreatePersona(ctx context.Context, name, instructions string) (string, error)
	CreateThread(ctx context.Context) (string, error)
}

type pairKey struct {
	playerID  string
	sessionID string
}

// Registry tracks personas per player and threads and game state per
// (player, session) pair. Safe for concurrent use.
type Registry struct {
	svc    PersonaService
	policy PersonaPolicy
	logger *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	personas map[string]string
	threads  map[pairKey]string
	games    map[pairKey]*Game
}

// NewRegistry creates an empty Registry backed by svc.
func NewRegistry(svc PersonaService) *Registry {
	return &Registry{
		svc:      svc,
		policy:   PersonaPolicyFirstSettingsWin,
		logger:   slog.Default(),
		personas: make(map[string]string),
		threads:  make(map[pairKey]string),
		games:    make(map[pairKey]*Game),
	}
}

// GetOrCreatePersona returns the player's persona id, creating it
// remotely from settings on the first call. Later calls return the
// stored id unchanged regardless of settings (PersonaPolicyFirstSettingsWin).
// Concurrent first calls for the same player collapse into a single
// remote creation.
func (r *Registry) GetOrCreatePersona(ctx context.Context, playerID string, settings Settings) (string, error) {
	r.mu.RLock()
	id, ok := r.personas[playerID]
	r.mu.RUnlock()
	if ok {
		return id, nil
	}

	v, err, _ := r.group.Do(playerID, func() (any, error) {
		// Re-check under the group: a concurrent caller may have won.
		r.mu.RLock()
		id, ok := r.personas[playerID]
		r.mu.RUnlock()
		if ok {
			return id, nil
		}

		created, err := r.svc.CreatePersona(ctx, PersonaName, Instructions(settings))
		if err != nil {
			return "", fmt.Errorf("creating persona for player %s: %w", playerID, err)
		}

		r.mu.Lock()
		r.personas[playerID] = created
		r.mu.Unlock()

		r.logger.Info("persona created", "player_id", playerID, "persona_id", created, "policy", string(r.policy))
		return created, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// PersonaID returns the stored persona for the player, if any.
func (r *Registry) PersonaID(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.personas[playerID]
	return id, ok
}

// CreateThread creates a fresh remote conversation thread and records
// it for the (player, session) pair, replacing any prior thread for
// that exact pair.
func (r *Registry) CreateThread(ctx context.Context, playerID, sessionID string) (string, error) {
	threadID, err := r.svc.CreateThread(ctx)
	if err != nil {
		return "", fmt.Errorf("creating thread for session %s/%s: %w", playerID, sessionID, err)
	}

	r.mu.Lock()
	r.threads[pairKey{playerID, sessionID}] = threadID
	r.mu.Unlock()

	return threadID, nil
}

// ResolveThread looks up the thread recorded for the pair. It has no
// side effects and returns ErrThreadNotFound when absent.
func (r *Registry) ResolveThread(playerID, sessionID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	threadID, ok := r.threads[pairKey{playerID, sessionID}]
	if !ok {
		return "", fmt.Errorf("%w: %s/%s", ErrThreadNotFound, playerID, sessionID)
	}
	return threadID, nil
}

// BeginSession records a new in-progress game at round 1 for the pair,
// replacing any previous game under the same key.
func (r *Registry) BeginSession(playerID, sessionID string, settings Settings) Game {
	settings = settings.withDefaults()
	g := &Game{
		Round:    1,
		MaxTurns: settings.MaxTurns,
		Genre:    settings.Genre,
		Language: settings.Language,
		Status:   StatusInProgress,
	}

	r.mu.Lock()
	r.games[pairKey{playerID, sessionID}] = g
	r.mu.Unlock()

	return *g
}

// SessionState returns a snapshot of the game recorded for the pair.
func (r *Registry) SessionState(playerID, sessionID string) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[pairKey{playerID, sessionID}]
	if !ok {
		return Game{}, false
	}
	return *g, true
}

// AdvanceRound increments the session's round. When the new round
// exceeds the turn budget the session flips to Finished and the second
// return is true. Rounds are monotonic; a finished session is never
// advanced again.
func (r *Registry) AdvanceRound(playerID, sessionID string) (round int, finished bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.games[pairKey{playerID, sessionID}]
	if !ok {
		return 0, false, fmt.Errorf("no game for session %s/%s", playerID, sessionID)
	}
	if g.Status != StatusInProgress {
		return g.Round, true, nil
	}

	g.Round++
	if g.Round > g.MaxTurns {
		g.Status = StatusFinished
		return g.Round, true, nil
	}
	return g.Round, false, nil
}
