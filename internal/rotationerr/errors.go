// Package rotationerr defines the engine's error taxonomy (spec.md §7).
// Callers distinguish error categories with errors.Is against the
// sentinels below; call sites wrap a sentinel with context via
// fmt.Errorf("...: %w", ...), matching the teacher's own error style
// (see storage/sqlite's fmt.Errorf wrapping).
package rotationerr

import "errors"

var (
	// ErrValidation covers malformed inputs: empty property types,
	// negative unit counts, unknown rep ids.
	ErrValidation = errors.New("validation error")

	// ErrInvalidOrder is returned when a reorder request is not a
	// permutation of the lane's currently eligible reps.
	ErrInvalidOrder = errors.New("invalid order: not a permutation of eligible reps")

	// ErrLaneMismatch covers cross-lane replacements and edits that would
	// cross the 1000-unit boundary.
	ErrLaneMismatch = errors.New("lane mismatch")

	// ErrAssignmentMismatch is returned when a replacement lead's rep
	// differs from the original mark's rep.
	ErrAssignmentMismatch = errors.New("assignment mismatch: replacement rep differs from mark rep")

	// ErrMarkAlreadyClosed is returned by unmark or re-mark on a closed
	// replacement record.
	ErrMarkAlreadyClosed = errors.New("mark already closed")

	// ErrMarkAlreadyOpen is returned when fulfill is attempted on a mark a
	// second writer already closed (losing a race).
	ErrMarkAlreadyOpen = errors.New("mark already open: lost race with a concurrent fulfill")

	// ErrDeleteBlocked is returned when deleting an original lead whose
	// mark is closed; the caller must delete the replacement lead first.
	ErrDeleteBlocked = errors.New("delete blocked: original lead's mark is closed, delete the replacement first")

	// ErrNoEligibleRep is returned by the resolver when the eligibility
	// filter (after walking the overlaid sequence) finds no rep at all.
	ErrNoEligibleRep = errors.New("no eligible rep")

	// ErrInvariantViolation marks a programming-level bug: a derived net
	// hit count went negative, or a mark's lane disagrees with its lead's
	// derived lane. This is fatal and must never be handled as a normal
	// control-flow error — see Invariant, below.
	ErrInvariantViolation = errors.New("invariant violation")
)

// Invariant panics with ErrInvariantViolation wrapped by msg. The engine
// never recovers from this internally; only the process boundary
// (cmd/rotctl) may recover it, log it, and exit non-zero.
func Invariant(msg string) {
	panic(errorWithMessage{err: ErrInvariantViolation, msg: msg})
}

type errorWithMessage struct {
	err error
	msg string
}

func (e errorWithMessage) Error() string { return e.msg + ": " + e.err.Error() }
func (e errorWithMessage) Unwrap() error { return e.err }

// AsInvariant reports whether a recovered panic value r was raised by
// Invariant, returning it as an error if so. recover() must be called
// directly by the caller's own deferred function for this to see
// anything; AsInvariant only classifies what was already recovered, e.g.:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        if e, ok := rotationerr.AsInvariant(r); ok {
//	            err = e
//	            return
//	        }
//	        panic(r)
//	    }
//	}()
func AsInvariant(r any) (error, bool) {
	e, ok := r.(errorWithMessage)
	if !ok {
		return nil, false
	}
	return e, true
}
