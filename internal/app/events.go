package app

import (
	"context"
	"log"
	"time"

	"quiz-player/internal/domain"
)

// Attempt lifecycle event types, used as routing keys.
const (
	EventAttemptStarted   = "attempt.started"
	EventAttemptAnswered  = "attempt.answered"
	EventAttemptCompleted = "attempt.completed"
	EventAttemptAbandoned = "attempt.abandoned"
)

// Event describes a change to one submission.
type Event struct {
	Type          string                  `json:"type"`
	SubmissionID  string                  `json:"submissionId"`
	QuizID        string                  `json:"quizId"`
	LearnerID     string                  `json:"learnerId"`
	AttemptNumber int                     `json:"attemptNumber"`
	QuestionID    string                  `json:"questionId,omitempty"`
	Status        domain.SubmissionStatus `json:"status"`
	Score         int                     `json:"score"`
	Percentage    float64                 `json:"percentage,omitempty"`
	Passed        bool                    `json:"passed,omitempty"`
	TimeSpent     int                     `json:"timeSpent,omitempty"`
	At            time.Time               `json:"at"`
}

func newEvent(kind string, sub domain.Submission, at time.Time) Event {
	return Event{
		Type:          kind,
		SubmissionID:  sub.ID,
		QuizID:        sub.QuizID,
		LearnerID:     sub.LearnerID,
		AttemptNumber: sub.AttemptNumber,
		Status:        sub.Status,
		Score:         sub.Score,
		Percentage:    sub.Percentage,
		Passed:        sub.Passed,
		TimeSpent:     sub.TimeSpentSeconds,
		At:            at,
	}
}

// EventPublisher delivers attempt events to interested parties.
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the standard logger. Used when no broker is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event Event) error {
	log.Printf("[event] %s submission=%s quiz=%s learner=%s status=%s score=%d",
		event.Type, event.SubmissionID, event.QuizID, event.LearnerID, event.Status, event.Score)
	return nil
}
