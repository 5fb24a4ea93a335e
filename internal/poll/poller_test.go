package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vkotenko/questd/internal/assistant"
)

// mockSource implements StatusSource, serving a scripted sequence of
// statuses followed by the last one forever.
type mockSource struct {
	statuses    []assistant.Status
	statusErr   error
	message     string
	messageErr  error
	statusCalls int
	msgCalls    int
}

func (m *mockSource) JobStatus(ctx context.Context, threadID, jobID string) (assistant.Status, error) {
	m.statusCalls++
	if m.statusErr != nil {
		return "", m.statusErr
	}
	i := m.statusCalls - 1
	if i >= len(m.statuses) {
		i = len(m.statuses) - 1
	}
	return m.statuses[i], nil
}

func (m *mockSource) LatestMessage(ctx context.Context, threadID string) (string, error) {
	m.msgCalls++
	return m.message, m.messageErr
}

func TestAwait_Completed(t *testing.T) {
	src := &mockSource{
		statuses: []assistant.Status{assistant.StatusQueued, assistant.StatusRunning, assistant.StatusCompleted},
		message:  "You enter the ruined keep.",
	}
	p := New(src, time.Millisecond, time.Second)

	got, err := p.Await(context.Background(), "th_1", "job_1")
	if err != nil {
		t.Fatalf("Await() error = %v", err)
	}
	if got != "You enter the ruined keep." {
		t.Errorf("Await() = %q, want narrative text", got)
	}
	if src.statusCalls != 3 {
		t.Errorf("status checks = %d, want 3 (one per tick, stop on terminal)", src.statusCalls)
	}
}

func TestAwait_FailureStatesYieldFallback(t *testing.T) {
	for _, status := range []assistant.Status{assistant.StatusFailed, assistant.StatusExpired, assistant.StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			src := &mockSource{statuses: []assistant.Status{status}}
			p := New(src, time.Millisecond, time.Second)

			got, err := p.Await(context.Background(), "th_1", "job_1")
			if err != nil {
				t.Fatalf("Await() error = %v, want absorbed failure", err)
			}
			if got != FallbackNarrative {
				t.Errorf("Await() = %q, want fallback narrative", got)
			}
			if src.statusCalls != 1 {
				t.Errorf("status checks = %d, want 1 (stop on first terminal)", src.statusCalls)
			}
			if src.msgCalls != 0 {
				t.Errorf("message fetches = %d, want 0 on failure", src.msgCalls)
			}
		})
	}
}

func TestAwait_Timeout(t *testing.T) {
	src := &mockSource{statuses: []assistant.Status{assistant.StatusRunning}}
	p := New(src, time.Millisecond, 20*time.Millisecond)

	_, err := p.Await(context.Background(), "th_1", "job_1")
	if !errors.Is(err, ErrAwaitTimeout) {
		t.Fatalf("Await() error = %v, want ErrAwaitTimeout", err)
	}
}

func TestAwait_StatusErrorPropagates(t *testing.T) {
	src := &mockSource{statusErr: errors.New("service unavailable")}
	p := New(src, time.Millisecond, time.Second)

	_, err := p.Await(context.Background(), "th_1", "job_1")
	if err == nil {
		t.Fatal("Await() error = nil, want status query error")
	}
}

func TestAwait_ContextCancelled(t *testing.T) {
	src := &mockSource{statuses: []assistant.Status{assistant.StatusRunning}}
	p := New(src, 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Await(ctx, "th_1", "job_1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Await() error = %v, want context.Canceled", err)
	}
}
