package remote

import "errors"

// Common errors returned by remote store operations.
//
// These errors can be checked using errors.Is() for proper error
// handling:
//
//	if errors.Is(err, remote.ErrConflict) {
//	    // refresh local state and retry the mutation from scratch
//	}
var (
	// ErrAuth is returned when the bearer credential is missing,
	// invalid or lacks the required scope. The operation is aborted
	// and must not be retried with the same credential.
	ErrAuth = errors.New("invalid or missing credential")

	// ErrNotFound is returned when the requested path or object does
	// not exist at the given ref. During first-time creation of a
	// collection file this is an expected precondition, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a conditional write is rejected
	// because the target moved since it was last observed: a ref
	// update with force=false on a branch that advanced, or a content
	// PUT with a stale sha. This is the optimistic-concurrency guard.
	ErrConflict = errors.New("remote state has moved")

	// ErrTransient is returned on network failures and server-side
	// (5xx) errors. The client itself never retries; callers decide.
	ErrTransient = errors.New("transient remote error")
)

// IsRetryable returns true if the operation may succeed if simply
// reissued, without the caller changing anything first.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsUserActionRequired returns true if the error needs the caller to
// act before retrying: refresh local state on a conflict, fix the
// credential on an auth failure.
func IsUserActionRequired(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrAuth)
}
