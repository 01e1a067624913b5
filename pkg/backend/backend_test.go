package backend_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/MrWong99/typeassist/pkg/backend"
	"github.com/MrWong99/typeassist/pkg/provider/llm"
	"github.com/MrWong99/typeassist/pkg/types"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	t.Parallel()

	status := func(code int) error {
		return fmt.Errorf("openai: chat completion: %w", &llm.StatusError{Provider: "openai", StatusCode: code, Err: errors.New("api")})
	}

	tests := []struct {
		name      string
		err       error
		wantKind  backend.Kind
		wantKnown bool
	}{
		{"rate limit", status(429), backend.Transient, true},
		{"request timeout", status(408), backend.Transient, true},
		{"conflict", status(409), backend.Transient, true},
		{"server error", status(503), backend.Transient, true},
		{"unauthorized", status(401), backend.Fatal, true},
		{"bad request", status(400), backend.Fatal, true},
		{"deadline", context.DeadlineExceeded, backend.Transient, true},
		{"net timeout", fmt.Errorf("dial: %w", timeoutErr{}), backend.Transient, true},
		{"unknown", errors.New("boom"), backend.Transient, true},
		{"explicit fatal", backend.NewFatal(errors.New("bad key")), backend.Fatal, true},
		{"cancelled", context.Canceled, 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			kind, ok := backend.KindOf(tt.err)
			if ok != tt.wantKnown {
				t.Fatalf("KindOf ok = %v, want %v", ok, tt.wantKnown)
			}
			if ok && kind != tt.wantKind {
				t.Errorf("KindOf = %s, want %s", kind, tt.wantKind)
			}
		})
	}
}

func TestClassify_PreservesChain(t *testing.T) {
	t.Parallel()

	root := errors.New("root cause")
	err := backend.Classify(root)
	if !errors.Is(err, root) {
		t.Error("classified error lost its cause")
	}
	if !errors.Is(backend.Classify(context.Canceled), context.Canceled) {
		t.Error("cancellation not passed through")
	}
	if backend.IsTransient(context.Canceled) {
		t.Error("cancellation reported as transient")
	}
}

func TestFunc(t *testing.T) {
	t.Parallel()

	var b backend.Backend = backend.Func(func(_ context.Context, req types.BackendRequest) (string, error) {
		return req.Text + "!", nil
	})
	got, err := b.Correct(context.Background(), types.BackendRequest{Text: "hi"})
	if err != nil || got != "hi!" {
		t.Errorf("Correct = %q, %v", got, err)
	}
}
