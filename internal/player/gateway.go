package player

import (
	"context"

	"quiz-player/internal/domain"
)

// Gateway is the remote grading service the controller drives. It owns
// attempt records and scoring; the controller treats it as an opaque
// request/response boundary. Implementations classify failures with
// domain.ErrNetwork or domain.ErrValidation.
type Gateway interface {
	StartAttempt(ctx context.Context, quizID string, device domain.DeviceMetadata) (domain.Submission, error)
	// SubmitAnswer records one question. Feedback is nil unless the quiz
	// shows results immediately.
	SubmitAnswer(ctx context.Context, submissionID string, answer domain.AnswerSubmission) (*domain.AnswerFeedback, error)
	CompleteAttempt(ctx context.Context, submissionID string, totalTimeSpent int) (domain.CompletionResult, error)
}

// AbandonReporter is optionally implemented by gateways that accept
// best-effort abandon telemetry.
type AbandonReporter interface {
	ReportAbandon(ctx context.Context, submissionID string, totalTimeSpent int) error
}
