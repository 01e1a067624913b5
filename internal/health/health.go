// Package health serves the liveness and readiness checks of the typeassist
// server.
//
//   - /healthz always returns 200 while the process can serve HTTP.
//   - /readyz returns 200 only when every registered [Checker] passes: the
//     dictionary has vocabulary, a correction backend is reachable and the
//     user dictionary store answers.
//
// Responses are JSON objects with a top-level "status" field ("ok" or "fail")
// and a "checks" map containing the result of each named checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Checker is a named readiness check. Check returns nil when the dependency
// is usable.
type Checker struct {
	// Name labels the check in the JSON response ("dictionary", "backend").
	Name string

	// Check tests the dependency. It must respect context cancellation.
	Check func(ctx context.Context) error
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. The checker list is fixed at
// construction time.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] evaluating checkers on each /readyz request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz is the liveness endpoint.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

// Readyz runs every checker concurrently, each under a [checkTimeout]
// deadline derived from the request context, and reports 503 if any fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		checks = make(map[string]string, len(h.checkers))
		allOK  = true
	)
	for _, c := range h.checkers {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			defer cancel()
			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				checks[c.Name] = "fail: " + err.Error()
				allOK = false
				return
			}
			checks[c.Name] = "ok"
		})
	}
	wg.Wait()

	res := result{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !allOK {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}

// Loader is satisfied by the dictionary engine.
type Loader interface {
	Loaded() bool
}

// Availability is satisfied by a backend fallback group.
type Availability interface {
	Available() bool
}

// Pinger is anything that can be checked with a round trip, such as a user
// dictionary store.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	errNotLoaded    = errors.New("dictionary has no vocabulary")
	errBackendsOpen = errors.New("every backend circuit breaker is open")
)

// Dictionary reports ready once l has vocabulary.
func Dictionary(l Loader) Checker {
	return Checker{Name: "dictionary", Check: func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !l.Loaded() {
			return errNotLoaded
		}
		return nil
	}}
}

// Backend reports ready while at least one backend accepts calls.
func Backend(a Availability) Checker {
	return Checker{Name: "backend", Check: func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !a.Available() {
			return errBackendsOpen
		}
		return nil
	}}
}

// Store reports ready while p answers a ping.
func Store(name string, p Pinger) Checker {
	return Checker{Name: name, Check: p.Ping}
}
