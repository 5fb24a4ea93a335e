// Package assistant wraps the OpenAI Assistants and Images APIs behind
// the narrow capabilities the rest of questd consumes: persona and
// thread creation, message append, job submission and status queries,
// and text-to-image generation.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"
)

// DALL·E 3 rejects prompts longer than 4000 characters.
const maxImagePromptChars = 4000

// ErrNoMessages is returned when a thread has no messages to read.
var ErrNoMessages = errors.New("thread has no messages")

// Config holds the remote service settings for a Client.
type Config struct {
	APIKey     string
	BaseURL    string // optional; empty uses the default OpenAI endpoint
	Model      string // completion model used for personas
	ImageModel string // image generation model
}

// Client talks to the completion service. It is safe for concurrent use.
type Client struct {
	api        *openai.Client
	model      string
	imageModel string
}

// New creates a Client from cfg. The API key is required.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("missing OpenAI API key")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = openai.CreateImageModelDallE3
	}

	conf := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		conf.BaseURL = cfg.BaseURL
	}

	return &Client{
		api:        openai.NewClientWithConfig(conf),
		model:      cfg.Model,
		imageModel: cfg.ImageModel,
	}, nil
}

// CreatePersona registers a named assistant with the given system
// instructions and returns its remote identifier.
func (c *Client) CreatePersona(ctx context.Context, name, instructions string) (string, error) {
	a, err := c.api.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        c.model,
		Name:         &name,
		Instructions: &instructions,
	})
	if err != nil {
		return "", fmt.Errorf("creating assistant: %w", err)
	}
	return a.ID, nil
}

// CreateThread opens a fresh conversation thread and returns its id.
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	t, err := c.api.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("creating thread: %w", err)
	}
	return t.ID, nil
}

// AppendUserMessage adds a user-role message to the thread.
func (c *Client) AppendUserMessage(ctx context.Context, threadID, content string) error {
	_, err := c.api.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: content,
	})
	if err != nil {
		return fmt.Errorf("appending message to thread %s: %w", threadID, err)
	}
	return nil
}

// SubmitJob starts a completion run for personaID on the thread and
// returns the job id to poll.
func (c *Client) SubmitJob(ctx context.Context, threadID, personaID string) (string, error) {
	run, err := c.api.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: personaID})
	if err != nil {
		return "", fmt.Errorf("submitting run on thread %s: %w", threadID, err)
	}
	return run.ID, nil
}

// JobStatus queries the current state of a completion job.
func (c *Client) JobStatus(ctx context.Context, threadID, jobID string) (Status, error) {
	run, err := c.api.RetrieveRun(ctx, threadID, jobID)
	if err != nil {
		return "", fmt.Errorf("retrieving run %s: %w", jobID, err)
	}
	return mapRunStatus(run.Status), nil
}

// LatestMessage returns the text of the most recent message on the
// thread. The service lists messages newest first.
func (c *Client) LatestMessage(ctx context.Context, threadID string) (string, error) {
	limit := 1
	list, err := c.api.ListMessage(ctx, threadID, &limit, nil, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("listing messages on thread %s: %w", threadID, err)
	}
	if len(list.Messages) == 0 {
		return "", ErrNoMessages
	}
	for _, part := range list.Messages[0].Content {
		if part.Text != nil {
			return part.Text.Value, nil
		}
	}
	return "", ErrNoMessages
}

// GenerateImage requests a single image for the prompt and returns its
// transient URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	prompt = truncateRunes(prompt, maxImagePromptChars)
	resp, err := c.api.CreateImage(ctx, openai.ImageRequest{
		Prompt: prompt,
		Model:  c.imageModel,
		N:      1,
		Size:   openai.CreateImageSize1024x1024,
	})
	if err != nil {
		return "", fmt.Errorf("generating image: %w", err)
	}
	if len(resp.Data) == 0 {
		return "", errors.New("image response contained no data")
	}
	return resp.Data[0].URL, nil
}

// truncateRunes shortens s to at most n runes. The image model limit
// is in characters, and narratives can be in any language, so cutting
// at a byte index could split a multi-byte rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// mapRunStatus folds the service's run states into questd's job
// lifecycle. States tied to tool use (requires_action, cancelling) are
// still in flight from the caller's point of view; incomplete runs
// never produced a usable message and count as failed.
func mapRunStatus(s openai.RunStatus) Status {
	switch s {
	case openai.RunStatusQueued:
		return StatusQueued
	case openai.RunStatusInProgress, openai.RunStatusRequiresAction, openai.RunStatusCancelling:
		return StatusRunning
	case openai.RunStatusCompleted:
		return StatusCompleted
	case openai.RunStatusFailed, openai.RunStatusIncomplete:
		return StatusFailed
	case openai.RunStatusExpired:
		return StatusExpired
	case openai.RunStatusCancelled:
		return StatusCancelled
	}
	return StatusRunning
}
