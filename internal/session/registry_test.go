package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// mockService implements PersonaService with counters.
type mockService struct {
	personaCalls atomic.Int64
	threadCalls  atomic.Int64
	personaErr   error
	threadErr    error

	mu               sync.Mutex
	lastInstructions string
}

func (m *mockService) CreatePersona(ctx context.Context, name, instructions string) (string, error) {
	n := m.personaCalls.Add(1)
	if m.personaErr != nil {
		return "", m.personaErr
	}
	m.mu.Lock()
	m.lastInstructions = instructions
	m.mu.Unlock()
	return fmt.Sprintf("asst_%d", n), nil
}

func (m *mockService) CreateThread(ctx context.Context) (string, error) {
	n := m.threadCalls.Add(1)
	if m.threadErr != nil {
		return "", m.threadErr
	}
	return fmt.Sprintf("thread_%d", n), nil
}

func TestGetOrCreatePersona_IdempotentAcrossSettings(t *testing.T) {
	svc := &mockService{}
	r := NewRegistry(svc)
	ctx := context.Background()

	first, err := r.GetOrCreatePersona(ctx, "p1", Settings{Genre: "fantasy", MaxTurns: 3})
	if err != nil {
		t.Fatalf("GetOrCreatePersona() error = %v", err)
	}

	second, err := r.GetOrCreatePersona(ctx, "p1", Settings{Genre: "horror", MaxTurns: 12, Language: "German"})
	if err != nil {
		t.Fatalf("GetOrCreatePersona() error = %v", err)
	}

	if first != second {
		t.Errorf("persona ids differ across settings: %q vs %q", first, second)
	}
	if got := svc.personaCalls.Load(); got != 1 {
		t.Errorf("remote persona creations = %d, want 1", got)
	}
}

func TestGetOrCreatePersona_DistinctPlayers(t *testing.T) {
	svc := &mockService{}
	r := NewRegistry(svc)
	ctx := context.Background()

	a, _ := r.GetOrCreatePersona(ctx, "p1", Settings{})
	b, _ := r.GetOrCreatePersona(ctx, "p2", Settings{})

	if a == b {
		t.Errorf("players share a persona id %q", a)
	}
	if got := svc.personaCalls.Load(); got != 2 {
		t.Errorf("remote persona creations = %d, want 2", got)
	}
}

func TestGetOrCreatePersona_ConcurrentSingleCreate(t *testing.T) {
	svc := &mockService{}
	r := NewRegistry(svc)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 16)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, err := r.GetOrCreatePersona(ctx, "p1", Settings{})
			if err != nil {
				t.Errorf("GetOrCreatePersona() error = %v", err)
				return
			}
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		if id != ids[0] {
			t.Fatalf("concurrent callers got different personas: %v", ids)
		}
	}
	if got := svc.personaCalls.Load(); got != 1 {
		t.Errorf("remote persona creations = %d, want 1", got)
	}
}

func TestGetOrCreatePersona_ErrorPropagates(t *testing.T) {
	svc := &mockService{personaErr: errors.New("quota exceeded")}
	r := NewRegistry(svc)

	if _, err := r.GetOrCreatePersona(context.Background(), "p1", Settings{}); err == nil {
		t.Fatal("GetOrCreatePersona() error = nil, want remote failure")
	}
}

func TestCreateThread_OverwritesPair(t *testing.T) {
	svc := &mockService{}
	r := NewRegistry(svc)
	ctx := context.Background()

	first, err := r.CreateThread(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("CreateThread() error = %v", err)
	}
	second, err := r.CreateThread(ctx, "p1", "s1")
	if err != nil {
		t.Fatalf("CreateThread() error = %v", err)
	}
	if first == second {
		t.Errorf("CreateThread() returned the same thread twice: %q", first)
	}

	resolved, err := r.ResolveThread("p1", "s1")
	if err != nil {
		t.Fatalf("ResolveThread() error = %v", err)
	}
	if resolved != second {
		t.Errorf("ResolveThread() = %q, want latest thread %q", resolved, second)
	}
}

func TestResolveThread_NotFound(t *testing.T) {
	r := NewRegistry(&mockService{})

	_, err := r.ResolveThread("p1", "nope")
	if !errors.Is(err, ErrThreadNotFound) {
		t.Fatalf("ResolveThread() error = %v, want ErrThreadNotFound", err)
	}
}

func TestAdvanceRound_FinishesPastBudget(t *testing.T) {
	r := NewRegistry(&mockService{})
	r.BeginSession("p1", "s1", Settings{MaxTurns: 3})

	for want := 2; want <= 3; want++ {
		round, finished, err := r.AdvanceRound("p1", "s1")
		if err != nil {
			t.Fatalf("AdvanceRound() error = %v", err)
		}
		if finished {
			t.Fatalf("AdvanceRound() finished at round %d, budget 3", round)
		}
		if round != want {
			t.Errorf("round = %d, want %d", round, want)
		}
	}

	round, finished, err := r.AdvanceRound("p1", "s1")
	if err != nil {
		t.Fatalf("AdvanceRound() error = %v", err)
	}
	if !finished || round != 4 {
		t.Errorf("AdvanceRound() = (%d, %v), want (4, finished)", round, finished)
	}

	g, ok := r.SessionState("p1", "s1")
	if !ok || g.Status != StatusFinished {
		t.Errorf("session status = %v, want StatusFinished", g.Status)
	}

	// A finished session stays finished and its round stays put.
	round, finished, _ = r.AdvanceRound("p1", "s1")
	if !finished || round != 4 {
		t.Errorf("AdvanceRound() after finish = (%d, %v), want (4, finished)", round, finished)
	}
}

func TestBeginSession_IndependentSessions(t *testing.T) {
	r := NewRegistry(&mockService{})
	r.BeginSession("p1", "s1", Settings{MaxTurns: 5})
	r.BeginSession("p2", "s1", Settings{MaxTurns: 2})

	if _, _, err := r.AdvanceRound("p1", "s1"); err != nil {
		t.Fatalf("AdvanceRound() error = %v", err)
	}

	g1, _ := r.SessionState("p1", "s1")
	g2, _ := r.SessionState("p2", "s1")
	if g1.Round != 2 {
		t.Errorf("p1 round = %d, want 2", g1.Round)
	}
	if g2.Round != 1 {
		t.Errorf("p2 round moved to %d; sessions must be independent", g2.Round)
	}
}

func TestInstructions_ReflectSettings(t *testing.T) {
	svc := &mockService{}
	r := NewRegistry(svc)

	_, err := r.GetOrCreatePersona(context.Background(), "p1", Settings{Genre: "cyberpunk", Language: "Spanish", MaxTurns: 7})
	if err != nil {
		t.Fatalf("GetOrCreatePersona() error = %v", err)
	}

	svc.mu.Lock()
	instr := svc.lastInstructions
	svc.mu.Unlock()

	for _, want := range []string{"cyberpunk", "Spanish", "within 7", "only one player", "/create"} {
		if !strings.Contains(instr, want) {
			t.Errorf("instructions missing %q", want)
		}
	}
}
