package session

import (
	"errors"
	"fmt"
)

// ── Error taxonomy ─────────────────────────────────────────
// Failures are reclassified at the boundary nearest their origin into one
// of the kinds below; callers resolve them with errors.Is / errors.As
// instead of inspecting message text.

// ErrStopped reports an operation against a session that has already been
// closed. The remediation is part of the message.
var ErrStopped = errors.New("session has been stopped, restart the session")

// PathNotFoundError reports a read against a path that does not exist.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path does not exist: %s", e.Path)
}

// QueryError reports a failed query execution, carrying the query text and
// the underlying engine error.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
