package correction

import (
	"fmt"

	"github.com/MrWong99/typeassist/internal/cache"
	"github.com/MrWong99/typeassist/pkg/types"
)

// State is the position of a request in the correction pipeline. Done,
// Cancelled and Failed are terminal.
type State int

const (
	StateReceived State = iota
	StateChunked
	StateCacheCheck
	StateLocalCorrect
	StateRemoteCorrect
	StateMerged
	StateDone
	StateCancelled
	StateFailed
)

// String returns the snake_case name of the state.
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateChunked:
		return "chunked"
	case StateCacheCheck:
		return "cache_check"
	case StateLocalCorrect:
		return "local_correct"
	case StateRemoteCorrect:
		return "remote_correct"
	case StateMerged:
		return "merged"
	case StateDone:
		return "done"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled || s == StateFailed
}

// Result is the outcome of [Orchestrator.CorrectText].
type Result struct {
	CorrectedText string             `json:"corrected_text"`
	Corrections   []types.Correction `json:"corrections"`

	// Confidence is the mean confidence of Corrections, or 1 when nothing
	// was changed.
	Confidence float64 `json:"confidence"`

	// CacheHit is true when every chunk was served from the cache.
	CacheHit bool `json:"cache_hit"`

	Chunks int   `json:"chunks"`
	State  State `json:"state"`

	// Notes describe degradations: skipped words, failed remote calls,
	// chunks left uncorrected by the request deadline.
	Notes []string `json:"notes,omitempty"`
}

// ChunkEntry is what the chunk cache stores. Correction offsets are relative
// to the chunk.
type ChunkEntry struct {
	Text        string
	Corrections []types.Correction
}

// Stats are cumulative orchestrator counters.
type Stats struct {
	Requests       int64 `json:"total_requests"`
	Corrections    int64 `json:"total_corrections"`
	CacheHits      int64 `json:"cache_hits"`
	RemoteCalls    int64 `json:"remote_calls"`
	RemoteFailures int64 `json:"remote_failures"`
}

// CacheStats reports on both caches used during correction.
type CacheStats struct {
	Chunks      cache.Stats `json:"chunks"`
	Suggestions cache.Stats `json:"suggestions"`
}
