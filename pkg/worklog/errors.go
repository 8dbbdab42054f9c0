package worklog

import "fmt"

// ValidationError reports input that failed whitelist or enum validation.
// The operation was not attempted.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	return e.Reason
}

// ConflictError reports a write rejected by a uniqueness rule, with a
// message naming the remedy. The underlying constraint violation is detected
// after the write attempt, which stays correct under concurrent writers.
type ConflictError struct {
	Message string
}

func (e ConflictError) Error() string {
	return e.Message
}

// ReferenceError reports an operation that referenced a row that does not
// exist, such as a relationship endpoint or a topic membership target.
type ReferenceError struct {
	Table string
	ID    int64
}

func (e ReferenceError) Error() string {
	return fmt.Sprintf("No entry with id %d in %s", e.ID, e.Table)
}

// NotFoundError reports an absent row on a keyed lookup. The message is the
// caller-facing text returned as tool data.
type NotFoundError struct {
	Message string
}

func (e NotFoundError) Error() string {
	return e.Message
}
