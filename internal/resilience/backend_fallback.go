package resilience

import (
	"context"

	"github.com/MrWong99/typeassist/pkg/backend"
	"github.com/MrWong99/typeassist/pkg/types"
)

// BackendFallback implements [backend.Backend] with failover across several
// correction backends, each behind its own circuit breaker.
type BackendFallback struct {
	group *FallbackGroup[backend.Backend]
}

var _ backend.Backend = (*BackendFallback)(nil)

// NewBackendFallback creates a [BackendFallback] with primary as the
// preferred backend.
func NewBackendFallback(primary backend.Backend, primaryName string, cfg FallbackConfig) *BackendFallback {
	return &BackendFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
}

// AddFallback registers another backend, tried after those already added.
func (f *BackendFallback) AddFallback(name string, b backend.Backend) {
	f.group.AddFallback(name, b)
}

// Correct sends req to the first healthy backend. The error of the last
// backend tried is kept in the chain so that [backend.Classify] still sees
// its kind.
func (f *BackendFallback) Correct(ctx context.Context, req types.BackendRequest) (string, error) {
	return ExecuteWithResult(ctx, f.group, func(b backend.Backend) (string, error) {
		return b.Correct(ctx, req)
	})
}

// Available reports whether any backend's breaker is not open.
func (f *BackendFallback) Available() bool { return f.group.Available() }

// Status reports each backend's breaker state.
func (f *BackendFallback) Status() []EntryStatus { return f.group.Status() }
