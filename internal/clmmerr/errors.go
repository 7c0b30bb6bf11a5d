// Package clmmerr defines the error taxonomy shared by every component of
// the control plane. Consumers should classify with errors.As against the
// typed variants below rather than matching on error strings.
package clmmerr

import "fmt"

// Kind tags an error with one of the recoverable/non-recoverable categories
// from the propagation policy: Transient is recovered by C2/C9 retry and
// failover; the rest bubble to the caller unchanged.
type Kind int

const (
	KindBadRequest Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindInvalidAccountData
	KindTransient
	KindSimulationFailed
	KindConfirmationTimeout
	KindSlippageExceeded
	KindCircuitOpen
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "BadRequest"
	case KindValidation:
		return "Validation"
	case KindNotFound:
		return "NotFound"
	case KindConflict:
		return "Conflict"
	case KindInvalidAccountData:
		return "InvalidAccountData"
	case KindTransient:
		return "Transient"
	case KindSimulationFailed:
		return "SimulationFailed"
	case KindConfirmationTimeout:
		return "ConfirmationTimeout"
	case KindSlippageExceeded:
		return "SlippageExceeded"
	case KindCircuitOpen:
		return "CircuitOpen"
	default:
		return "Internal"
	}
}

// Error is the concrete typed error every component returns. Message carries
// the human-readable detail; Cause, if non-nil, is the wrapped underlying
// error and participates in errors.Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, clmmerr.New(KindNotFound, "", nil)) match on Kind
// alone, so callers can check "is this a NotFound" without caring about the
// message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// SimulationFailed carries the simulation log lines for the SimulationFailed
// terminal state in C9 (§4.9).
type SimulationFailed struct {
	Logs []string
}

func (s *SimulationFailed) Error() string {
	return fmt.Sprintf("simulation failed (%d log lines)", len(s.Logs))
}

// NewSimulationFailed builds the typed Error wrapping SimulationFailed.
func NewSimulationFailed(logs []string) *Error {
	return New(KindSimulationFailed, "transaction simulation rejected", &SimulationFailed{Logs: logs})
}

// KindOf extracts the Kind from err, defaulting to KindInternal for errors
// that were never classified (anything not produced by this package).
func KindOf(err error) Kind {
	var e *Error
	if as(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// as is a tiny local shim so this file doesn't need to import errors twice
// for a one-liner; kept here because every call site already imports
// clmmerr and would otherwise need both packages for a single check.
func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
