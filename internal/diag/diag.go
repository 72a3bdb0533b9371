// Package diag defines the error kinds the dataflow engine must distinguish
// and the wrapping conventions used to carry a tick or value id alongside
// the underlying cause.
//
// The engine has no single "diagnostics bag" comparable to a compiler
// front-end; errors here are terminal outcomes of a traversal or of a
// worker call. We lean on github.com/hashicorp/errwrap for the
// wrap/unwrap convention and github.com/hashicorp/go-multierror where more
// than one independent failure must be reported together (e.g. pool
// teardown).
package diag

import (
	"fmt"

	"github.com/hashicorp/errwrap"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/pydron/pydron/internal/tick"
)

// Kind classifies a terminal failure of the engine.
type Kind int

const (
	// KindNotSerializable marks a value that could not be converted to its
	// serialized ("cucumber") form.
	KindNotSerializable Kind = iota
	// KindRefinement marks a failure raised by a task's refine callback.
	KindRefinement
	// KindEvaluation marks a failure raised by or returned from a task's
	// evaluate callback.
	KindEvaluation
	// KindTransport marks a failure of a call to a peer worker.
	KindTransport
	// KindCancelled marks a traversal or value wait that was cancelled.
	KindCancelled
	// KindInvariant marks an attempt to violate a structural invariant of
	// the graph or value model (duplicate value id, use of a freed holder,
	// malformed connection).
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindNotSerializable:
		return "not-serializable"
	case KindRefinement:
		return "refinement-error"
	case KindEvaluation:
		return "evaluation-error"
	case KindTransport:
		return "transport-error"
	case KindCancelled:
		return "cancelled"
	case KindInvariant:
		return "invariant-violation"
	default:
		return "unknown"
	}
}

// Error is a terminal engine failure. It carries the offending tick when
// one is applicable (refinement and evaluation errors always have one;
// transport and invariant errors may not).
type Error struct {
	Kind  Kind
	Tick  tick.Tick
	Cause error
}

// New constructs an Error of the given kind, wrapping cause, with no
// associated tick.
func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Cause: cause}
}

// AtTick constructs an Error of the given kind at the given tick, wrapping
// cause.
func AtTick(kind Kind, t tick.Tick, cause error) *Error {
	return &Error{Kind: kind, Tick: t, Cause: cause}
}

func (e *Error) Error() string {
	if e.Tick.IsZero() {
		return fmt.Sprintf("%s: %s", e.Kind, e.Cause)
	}
	return fmt.Sprintf("%s at tick %s: %s", e.Kind, e.Tick, e.Cause)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// GetWrappedErr implements errwrap.Wrapper so callers that walk error
// chains with errwrap.Walk (rather than the stdlib errors package) also
// see the cause.
func (e *Error) GetWrappedErr() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same Kind, so that
// errors.Is(err, diag.Cancelled()) style checks work without comparing
// ticks or causes.
func (e *Error) Is(target error) bool {
	o, ok := target.(*Error)
	if !ok {
		return false
	}
	if o.Cause != nil {
		return false
	}
	return e.Kind == o.Kind
}

// Cancelled returns a sentinel used with errors.Is to detect cancellation
// without caring about the wrapped cause.
func Cancelled() *Error {
	return &Error{Kind: KindCancelled}
}

// Refinement wraps cause as a refinement failure at t, matching the
// contract in section 4.6 of the engine design: refinement failures carry
// the offending tick and trigger a graph-wide abort.
func Refinement(t tick.Tick, cause error) *Error {
	return AtTick(KindRefinement, t, cause)
}

// Evaluation wraps cause as an evaluation failure at t.
func Evaluation(t tick.Tick, cause error) *Error {
	return AtTick(KindEvaluation, t, cause)
}

// Transport wraps cause as a peer-worker call failure.
func Transport(cause error) *Error {
	return New(KindTransport, cause)
}

// Invariant wraps cause as a structural invariant violation.
func Invariant(cause error) *Error {
	return New(KindInvariant, cause)
}

// Invariantf is a convenience constructor for a formatted invariant
// violation message with no further wrapped cause.
func Invariantf(format string, args ...interface{}) *Error {
	return New(KindInvariant, fmt.Errorf(format, args...))
}

// Wrapf applies errwrap's templated wrap convention, used where a single
// extra line of context needs to be attached without introducing a new
// Kind (e.g. annotating a low-level I/O error with the value id it was
// reading).
func Wrapf(format string, err error) error {
	return errwrap.Wrapf(format, err)
}

// Aggregate collects zero or more independent failures (e.g. one per
// worker during a parallel pool Stop) into a single error, or nil if errs
// is empty after filtering nils.
func Aggregate(errs ...error) error {
	var merr *multierror.Error
	for _, err := range errs {
		if err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
