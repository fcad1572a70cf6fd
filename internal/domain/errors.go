package domain

import "errors"

// These errors are returned by the server and config packages and can be
// checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running server.
	ErrAlreadyRunning = errors.New("escapetime: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped server.
	ErrNotRunning = errors.New("escapetime: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("escapetime: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("escapetime: invalid configuration")

	// ErrComputeTimeout is returned when a grid is not finished within the
	// request timeout.
	ErrComputeTimeout = errors.New("escapetime: computation timed out")
)
