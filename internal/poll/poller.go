// Package poll implements the wait-for-terminal-state primitive used to
// resolve asynchronous completion jobs.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vkotenko/questd/internal/assistant"
)

// FallbackNarrative is returned to the player when a completion job
// ends in a failure state. The failure is absorbed here; callers never
// see it as an error.
const FallbackNarrative = "Sorry, I am having trouble understanding you. Could you please rephrase your question?"

// ErrAwaitTimeout is returned when a job does not reach a terminal
// state before the poller's deadline.
var ErrAwaitTimeout = errors.New("completion job did not finish before deadline")

const (
	defaultInterval = 2 * time.Second
	defaultDeadline = 2 * time.Minute
)

// StatusSource is the job-status capability the poller depends on.
// Implemented by assistant.Client.
type StatusSource interface {
	JobStatus(ctx context.Context, threadID, jobID string) (assistant.Status, error)
	LatestMessage(ctx context.Context, threadID string) (string, error)
}

// Poller repeatedly queries a job's status at a fixed cadence until it
// observes a terminal state or its deadline passes.
type Poller struct {
	source   StatusSource
	interval time.Duration
	deadline time.Duration
	logger   *slog.Logger
}

// New creates a Poller. Non-positive interval or deadline fall back to
// 2s and 2m respectively.
func New(source StatusSource, interval, deadline time.Duration) *Poller {
	if interval <= 0 {
		interval = defaultInterval
	}
	if deadline <= 0 {
		deadline = defaultDeadline
	}
	return &Poller{
		source:   source,
		interval: interval,
		deadline: deadline,
		logger:   slog.Default(),
	}
}

// Await blocks until the job reaches a terminal state, then resolves it:
// a completed job yields the newest message on its thread, while
// failed, expired, and cancelled jobs yield FallbackNarrative with a
// nil error. A job still pending at the deadline yields ErrAwaitTimeout.
// Exactly one status check is made per cadence tick, and polling stops
// on the first terminal status observed.
func (p *Poller) Await(ctx context.Context, threadID, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.deadline)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.logger.Warn("completion job timed out", "thread_id", threadID, "job_id", jobID, "deadline", p.deadline)
				return "", fmt.Errorf("%w: job %s", ErrAwaitTimeout, jobID)
			}
			return "", ctx.Err()
		case <-time.After(p.interval):
		}

		status, err := p.source.JobStatus(ctx, threadID, jobID)
		if err != nil {
			return "", fmt.Errorf("polling job %s: %w", jobID, err)
		}
		if !status.Terminal() {
			continue
		}

		if status == assistant.StatusCompleted {
			text, err := p.source.LatestMessage(ctx, threadID)
			if err != nil {
				return "", fmt.Errorf("reading completed job %s: %w", jobID, err)
			}
			return text, nil
		}

		p.logger.Warn("completion job ended in failure state", "thread_id", threadID, "job_id", jobID, "status", string(status))
		return FallbackNarrative, nil
	}
}
