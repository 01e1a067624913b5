package correction

import "errors"

var (
	// ErrEmptyInput is returned by [Orchestrator.CorrectText] for blank text.
	ErrEmptyInput = errors.New("correction: empty input")

	// ErrInputTooLarge is returned when the text exceeds max_input_runes.
	ErrInputTooLarge = errors.New("correction: input too large")

	// ErrInvalidRequest is returned for an unknown mode or severity.
	ErrInvalidRequest = errors.New("correction: invalid request")

	// errRequestTimeout is the cancellation cause of the per-request deadline.
	errRequestTimeout = errors.New("correction: request deadline exceeded")
)
