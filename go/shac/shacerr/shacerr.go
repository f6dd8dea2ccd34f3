// Package shacerr defines the typed error kinds the SHAC engine raises and
// the policy each kind carries (fatal vs. recoverable).
package shacerr

import "fmt"

// Kind classifies an error raised anywhere in the engine. Callers branch
// on Kind (see Is), not on error strings.
type Kind int

const (
	// SchemaMismatch: a restored dataset row conflicts with the parameter schema. Fatal.
	SchemaMismatch Kind = iota
	// BudgetMisconfigured: num_batches does not divide total_budget. Warn, round down.
	BudgetMisconfigured
	// ClassifierUntrainable: CV folds lack both classes. Skip this epoch's classifier.
	ClassifierUntrainable
	// CascadeStalled: candidate classifier fails the cascade-acceptance gate.
	CascadeStalled
	// GeneratorExhausted: per-slot attempts exceeded the hard cap.
	GeneratorExhausted
	// EvaluationFailed: the user evaluation function raised.
	EvaluationFailed
	// EvaluationTimeout: an evaluation exceeded its configured deadline.
	EvaluationTimeout
	// Cancelled: the caller's context was cancelled.
	Cancelled
	// PersistenceFailed: an I/O error occurred writing a checkpoint.
	PersistenceFailed
)

func (k Kind) String() string {
	switch k {
	case SchemaMismatch:
		return "SchemaMismatch"
	case BudgetMisconfigured:
		return "BudgetMisconfigured"
	case ClassifierUntrainable:
		return "ClassifierUntrainable"
	case CascadeStalled:
		return "CascadeStalled"
	case GeneratorExhausted:
		return "GeneratorExhausted"
	case EvaluationFailed:
		return "EvaluationFailed"
	case EvaluationTimeout:
		return "EvaluationTimeout"
	case Cancelled:
		return "Cancelled"
	case PersistenceFailed:
		return "PersistenceFailed"
	default:
		return "Unknown"
	}
}

// Error is the engine's error type. It carries a Kind so callers can branch
// with errors.As instead of matching strings, and optionally wraps an
// underlying cause.
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

// New builds an Error with no underlying cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an Error around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Is reports whether any *Error in err's chain has the given kind. Walks
// past a matched *Error that doesn't match into its own Cause, so a kind
// wrapped by an outer Error of a different kind (e.g. EvaluationFailed
// wrapping EvaluationTimeout) is still observable.
func Is(err error, kind Kind) bool {
	for err != nil {
		if se, ok := err.(*Error); ok {
			if se.Kind == kind {
				return true
			}
			err = se.Cause
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// Fatal reports whether errors of this kind must abort Fit outright
// rather than being absorbed by the epoch state machine.
func (k Kind) Fatal() bool {
	switch k {
	case SchemaMismatch, EvaluationFailed, EvaluationTimeout, PersistenceFailed, Cancelled:
		return true
	default:
		return false
	}
}
