package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrWong99/typeassist/pkg/backend"
	"github.com/MrWong99/typeassist/pkg/backend/mock"
	"github.com/MrWong99/typeassist/pkg/types"
)

func newGroup(cb CircuitBreakerConfig) *FallbackGroup[string] {
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{CircuitBreaker: cb})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_Execute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		failing  map[string]bool
		wantCall string
		wantErr  bool
	}{
		{"primary succeeds", nil, "primary", false},
		{"primary fails", map[string]bool{"primary": true}, "secondary", false},
		{"all fail", map[string]bool{"primary": true, "secondary": true}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fg := newGroup(CircuitBreakerConfig{MaxFailures: 3})

			var called string
			err := fg.Execute(context.Background(), func(v string) error {
				if tt.failing[v] {
					return errTest
				}
				called = v
				return nil
			})
			if tt.wantErr {
				if !errors.Is(err, ErrAllFailed) || !errors.Is(err, errTest) {
					t.Fatalf("err = %v, want ErrAllFailed wrapping the last error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if called != tt.wantCall {
				t.Errorf("called = %q, want %q", called, tt.wantCall)
			}
		})
	}
}

func TestFallbackGroup_SkipsOpenProvider(t *testing.T) {
	t.Parallel()
	fg := newGroup(CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})

	primaryCalls := 0
	for range 4 {
		_ = fg.Execute(context.Background(), func(v string) error {
			if v == "primary" {
				primaryCalls++
				return errTest
			}
			return nil
		})
	}
	if primaryCalls != 2 {
		t.Errorf("primary called %d times, want 2 before its breaker opened", primaryCalls)
	}

	st := fg.Status()
	if len(st) != 2 || st[0].State != "open" || st[1].State != "closed" {
		t.Errorf("Status = %+v", st)
	}
	if !fg.Available() {
		t.Error("Available = false with a closed fallback")
	}
}

func TestExecuteWithResult_StopsOnCancel(t *testing.T) {
	t.Parallel()
	fg := newGroup(CircuitBreakerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := ExecuteWithResult(ctx, fg, func(v string) (int, error) {
		calls++
		cancel()
		return 0, context.Canceled
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("failover continued after cancellation: %d calls", calls)
	}
}

func TestBackendFallback(t *testing.T) {
	t.Parallel()

	fatal := backend.NewFatal(errors.New("401"))
	primary := &mock.Backend{Default: &mock.Step{Err: fatal}}
	secondary := &mock.Backend{Default: &mock.Step{Text: "the cat"}}

	fb := NewBackendFallback(primary, "openai", FallbackConfig{})
	fb.AddFallback("ollama", secondary)

	got, err := fb.Correct(context.Background(), types.BackendRequest{Text: "teh cat"})
	if err != nil {
		t.Fatalf("Correct: %v", err)
	}
	if got != "the cat" {
		t.Errorf("Correct = %q", got)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
}

func TestBackendFallback_KeepsLastKind(t *testing.T) {
	t.Parallel()

	fatal := backend.NewFatal(errors.New("400"))
	fb := NewBackendFallback(&mock.Backend{Default: &mock.Step{Err: fatal}}, "only", FallbackConfig{})

	_, err := fb.Correct(context.Background(), types.BackendRequest{Text: "x"})
	if k, ok := backend.KindOf(err); !ok || k != backend.Fatal {
		t.Errorf("KindOf = %v, %v; want fatal", k, ok)
	}
}
