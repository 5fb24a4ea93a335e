package assistant

import (
	"strings"
	"testing"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusQueued, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusFailed, true},
		{StatusExpired, true},
		{StatusCancelled, true},
	}
	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("short", 10); got != "short" {
		t.Errorf("short input changed: %q", got)
	}

	if got := truncateRunes("héllo", 2); got != "hé" {
		t.Errorf("truncateRunes(héllo, 2) = %q, want hé", got)
	}

	// Cyrillic runes are two bytes each; a byte-index cut would split one.
	long := strings.Repeat("ы", maxImagePromptChars+10)
	got := truncateRunes(long, maxImagePromptChars)
	if !utf8.ValidString(got) {
		t.Error("truncated prompt is not valid UTF-8")
	}
	if n := utf8.RuneCountInString(got); n != maxImagePromptChars {
		t.Errorf("rune count = %d, want %d", n, maxImagePromptChars)
	}
}

func TestMapRunStatus(t *testing.T) {
	tests := []struct {
		remote openai.RunStatus
		want   Status
	}{
		{openai.RunStatusQueued, StatusQueued},
		{openai.RunStatusInProgress, StatusRunning},
		{openai.RunStatusRequiresAction, StatusRunning},
		{openai.RunStatusCancelling, StatusRunning},
		{openai.RunStatusCompleted, StatusCompleted},
		{openai.RunStatusFailed, StatusFailed},
		{openai.RunStatusIncomplete, StatusFailed},
		{openai.RunStatusExpired, StatusExpired},
		{openai.RunStatusCancelled, StatusCancelled},
	}
	for _, tt := range tests {
		if got := mapRunStatus(tt.remote); got != tt.want {
			t.Errorf("mapRunStatus(%s) = %s, want %s", tt.remote, got, tt.want)
		}
	}
}
