package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrSubmissionNotFound is returned for an unknown attempt id.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrMaxAttemptsExceeded rejects a start once the quiz's attempt budget is spent.
	ErrMaxAttemptsExceeded = errors.New("max attempts exceeded")
	// ErrSubmissionClosed rejects writes to a submission in a terminal status.
	ErrSubmissionClosed = errors.New("submission is closed")
	// ErrAnswerMismatch indicates an answer shape that does not fit the question kind.
	ErrAnswerMismatch = errors.New("answer does not fit question type")
	// ErrBoardNotFound indicates no attempt of the quiz is being tracked.
	ErrBoardNotFound = errors.New("board not found")
	// ErrMissingLearner rejects requests without a learner identity.
	ErrMissingLearner = errors.New("learner id required")

	// ErrNetwork marks a gateway call that failed in transport or with a server error.
	ErrNetwork = errors.New("network error")
	// ErrValidation marks a gateway call rejected by a business rule.
	ErrValidation = errors.New("validation error")

	// ErrSubmissionInFlight short-circuits a start/finalize while another one is pending.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrSessionClosed is returned when a response arrives for a session that was abandoned.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoHints is returned when a question has no hints to reveal.
	ErrNoHints = errors.New("question has no hints")

	ErrStartFailure        = errors.New("start failure")
	ErrAnswerFlushFailure  = errors.New("answer flush failure")
	ErrFinalizeFailure     = errors.New("finalize failure")
	ErrMissingQuestionData = errors.New("quiz data corrupt")
	ErrInvalidTransition   = errors.New("invalid transition")
)

// FailureKind classifies the errors surfaced by the quiz player.
type FailureKind uint8

const (
	StartFailure FailureKind = iota + 1
	AnswerFlushFailure
	FinalizeFailure
	MissingQuestionData
	InvalidTransition
)

func (k FailureKind) sentinel() error {
	switch k {
	case StartFailure:
		return ErrStartFailure
	case AnswerFlushFailure:
		return ErrAnswerFlushFailure
	case FinalizeFailure:
		return ErrFinalizeFailure
	case MissingQuestionData:
		return ErrMissingQuestionData
	case InvalidTransition:
		return ErrInvalidTransition
	}
	return nil
}

func (k FailureKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("failure(%d)", uint8(k))
}

// Retryable reports whether the UI should offer a retry action.
func (k FailureKind) Retryable() bool {
	return k == StartFailure || k == FinalizeFailure
}

// Failure wraps a cause with its kind. errors.Is matches both the kind's
// sentinel (e.g. ErrFinalizeFailure) and anything in the cause chain.
type Failure struct {
	Kind FailureKind
	Err  error
}

// NewFailure wraps err with kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return f.Kind.String()
	}
	return f.Kind.String() + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) Is(target error) bool {
	return target != nil && target == f.Kind.sentinel()
}

// KindOf extracts the failure kind, zero when err is not a Failure.
func KindOf(err error) FailureKind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return 0
}
