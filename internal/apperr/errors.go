// Package apperr defines the sentinel errors shared across the ingestion
// pipeline. Callers classify failures with errors.Is.
package apperr

import "errors"

var (
	// ErrAuth indicates the remote service rejected the supplied credentials.
	ErrAuth = errors.New("authentication failed")

	// ErrTransport indicates a network-level failure (connect, timeout, TLS).
	ErrTransport = errors.New("transport failure")

	// ErrProtocol indicates a response that could not be decoded as the
	// expected wire format.
	ErrProtocol = errors.New("malformed response")

	// ErrRemote indicates the remote service reported an application error
	// via its errorOccurred flag.
	ErrRemote = errors.New("remote service error")

	// ErrNotFound indicates the requested item no longer exists.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a destination that already exists and must not
	// be clobbered.
	ErrConflict = errors.New("conflict")

	// ErrMalformed indicates a staged document that cannot be parsed.
	ErrMalformed = errors.New("malformed document")

	// ErrWrite indicates a local disk failure while persisting a download.
	ErrWrite = errors.New("write failure")

	// ErrCycleActive indicates an import cycle is already running; the new
	// trigger is dropped, not queued.
	ErrCycleActive = errors.New("import cycle already active")
)
