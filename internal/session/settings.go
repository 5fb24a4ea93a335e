package session

import (
	"fmt"
	"strings"
)

// Settings parameterize one game session and, on a player's first
// session, the persona instructions.
type Settings struct {
	Genre             string `json:"genre"`
	Language          string `json:"language"`
	MaxTurns          int    `json:"turns"`
	MaxNarrativeChars int    `json:"max_chars"`
}

const (
	DefaultGenre             = "fantasy"
	DefaultLanguage          = "English"
	DefaultMaxTurns          = 10
	DefaultMaxNarrativeChars = 1000
)

// withDefaults fills unset fields with the standard game defaults.
func (s Settings) withDefaults() Settings {
	if s.Genre == "" {
		s.Genre = DefaultGenre
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	if s.MaxTurns <= 0 {
		s.MaxTurns = DefaultMaxTurns
	}
	if s.MaxNarrativeChars <= 0 {
		s.MaxNarrativeChars = DefaultMaxNarrativeChars
	}
	return s
}

// PersonaName is the display name registered for every game persona.
const PersonaName = "Roleplaying game master"

// Instructions renders the system instruction text for a game persona:
// an interactive quest in the configured genre, short narrative parts
// with at least three options per turn, a fixed turn budget, a single
// player, possible player death on bad choices, responses in the
// configured language, and an invitation to restart once the game ends.
func Instructions(s Settings) string {
	s = s.withDefaults()

	var b strings.Builder
	fmt.Fprintf(&b, "You are the author of an interactive quest in a %s setting. ", s.Genre)
	b.WriteString("Come up with an interesting story. Your message is a part of the story that forces the player(s) to make a choice.\n")
	fmt.Fprintf(&b, "The game should consist of a short part (up to %d characters) of your story and the options for player actions you propose.\n", s.MaxNarrativeChars)
	b.WriteString("At the end of each of your messages, ask a question about how the player should act in the current situation.\n")
	b.WriteString("Offer at minimum three options to choose from, but leave the opportunity to offer actions by player.\n")
	fmt.Fprintf(&b, "The quest must be completed within %d player(s) turns.\n", s.MaxTurns)
	b.WriteString("The game can be played by only one player.\n")
	b.WriteString("Create a story. Players will respond with the structure {\"user\": \"Response\"}.\n")
	b.WriteString("With each turn the situation should become more intense and logically related to the previous turn.\n")
	b.WriteString("The player may encounter various dangers on their journey.\n")
	b.WriteString("If the player chooses a bad answer, the player may die and then the game will end.\n")
	b.WriteString("Use a speaking style that suits the chosen setting.\n")
	b.WriteString("Each time you will be notified with the current turn/round number.\n")
	fmt.Fprintf(&b, "Make sure to finish the story within %d rounds.\n", s.MaxTurns)
	b.WriteString("Don't ask the user anything after the game finishes. Just congratulate.\n")
	fmt.Fprintf(&b, "Communicate with players in %s. Each response should be in the same language - %s.\n", s.Language, s.Language)
	b.WriteString("After the end of the game (due to the death of all players or due to the fact that all turns have ended), invite the player(s) to start again (to do this, they need to enter and send \"/create\").")

	return b.String()
}
