// Package narrative extracts structured player choices from free-form
// story text returned by the game master model.
package narrative

import (
	"regexp"
	"strings"
)

// Choice is a single candidate player action offered by the narrative.
type Choice struct {
	Text string `json:"text"`
}

// Option markers are matched structurally (numbering and bullet
// delimiters), never by keywords, so extraction works regardless of
// the narrative language.
var (
	numberedLine = regexp.MustCompile(`^\s*(\d{1,2})[.)：:]\s*(\S.*)$`)
	bulletedLine = regexp.MustCompile(`^\s*[-*•–]\s+(\S.*)$`)
)

// ExtractChoices scans narrative text for player-option markers and
// returns each option as a Choice, in order of appearance. Text with
// no recognizable options yields an empty slice; extraction never
// fails.
func ExtractChoices(text string) []Choice {
	choices := []Choice{}
	if text == "" {
		return choices
	}

	for _, line := range strings.Split(text, "\n") {
		var body string
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			body = m[2]
		} else if m := bulletedLine.FindStringSubmatch(line); m != nil {
			body = m[1]
		} else {
			continue
		}

		body = cleanOption(body)
		if body == "" {
			continue
		}
		choices = append(choices, Choice{Text: body})
	}

	return choices
}

// cleanOption strips markdown emphasis markers and surrounding
// whitespace from an extracted option body.
func cleanOption(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	return strings.TrimSpace(s)
}

// Texts flattens choices into their plain text form for API responses.
func Texts(choices []Choice) []string {
	out := make([]string, len(choices))
	for i, c := range choices {
		out[i] = c.Text
	}
	return out
}
