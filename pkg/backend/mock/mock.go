// Package mock provides a scripted test double for backend.Backend.
//
// Each call consumes the next [Step] of the script. Once the script is
// exhausted the backend falls back to Default, or echoes the input text when
// Default is nil.
//
//	b := &mock.Backend{Script: []mock.Step{
//	    {Err: backend.NewTransient(errors.New("429"))},
//	    {Text: "the cat"},
//	}}
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/MrWong99/typeassist/pkg/backend"
	"github.com/MrWong99/typeassist/pkg/types"
)

// Step is one scripted response.
type Step struct {
	// Text is returned on success.
	Text string

	// Err, if non-nil, is returned instead of Text.
	Err error

	// Delay blocks the call before it answers. The call returns ctx.Err()
	// if the context ends first.
	Delay time.Duration
}

// Call records a single invocation of Correct.
type Call struct {
	Req types.BackendRequest
	At  time.Time
}

// Backend is a mock implementation of backend.Backend.
type Backend struct {
	mu sync.Mutex

	// Script is consumed one step per call.
	Script []Step

	// Default answers calls after Script runs out.
	Default *Step

	// Calls records every invocation in order.
	Calls []Call
}

// Correct records the call and plays the next scripted step.
func (b *Backend) Correct(ctx context.Context, req types.BackendRequest) (string, error) {
	b.mu.Lock()
	b.Calls = append(b.Calls, Call{Req: req, At: time.Now()})
	var step Step
	switch {
	case len(b.Script) > 0:
		step = b.Script[0]
		b.Script = b.Script[1:]
	case b.Default != nil:
		step = *b.Default
	default:
		step = Step{Text: req.Text}
	}
	b.mu.Unlock()

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	if step.Err != nil {
		return "", step.Err
	}
	return step.Text, nil
}

// CallCount returns the number of calls so far.
func (b *Backend) CallCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Calls)
}

// Requests returns a copy of the requests received so far.
func (b *Backend) Requests() []types.BackendRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.BackendRequest, len(b.Calls))
	for i, c := range b.Calls {
		out[i] = c.Req
	}
	return out
}

var _ backend.Backend = (*Backend)(nil)
