// Package api holds the JSON bodies exchanged between the player and the
// grading gateway.
package api

import "quiz-player/internal/domain"

const (
	// LearnerHeader carries the learner identity on every request.
	LearnerHeader = "X-Learner-ID"

	QuizPath     = "/api/quizzes/{quizId}"
	StartPath    = "/api/quizzes/{quizId}/start"
	AnswerPath   = "/api/quizzes/submissions/{submissionId}/answer"
	CompletePath = "/api/quizzes/submissions/{submissionId}/complete"
	AbandonPath  = "/api/quizzes/submissions/{submissionId}/abandon"
)

// StartRequest is the device metadata recorded for audit.
type StartRequest = domain.DeviceMetadata

// AnswerRequest records one question. Exactly one of UserAnswer or
// SelectedOptions is set, depending on the question type.
type AnswerRequest struct {
	QuestionID      string   `json:"questionId"`
	UserAnswer      *string  `json:"userAnswer,omitempty"`
	SelectedOptions []string `json:"selectedOptions,omitempty"`
	TimeSpent       int      `json:"timeSpent"`
	HintsUsed       int      `json:"hintsUsed"`
}

// NewAnswerRequest flattens a tagged answer into the wire shape.
func NewAnswerRequest(sub domain.AnswerSubmission) AnswerRequest {
	out := AnswerRequest{
		QuestionID: sub.QuestionID,
		TimeSpent:  sub.TimeSpentSeconds,
		HintsUsed:  sub.HintsUsed,
	}
	if text, ok := sub.Answer.Text(); ok {
		out.UserAnswer = &text
	} else {
		out.SelectedOptions = sub.Answer.Options()
	}
	return out
}

// Answer rebuilds the tagged answer. Text wins when both fields are present;
// a body with neither is an empty selection.
func (r AnswerRequest) Answer() domain.Answer {
	if r.UserAnswer != nil {
		return domain.TextAnswer(*r.UserAnswer)
	}
	return domain.ChoiceAnswer(r.SelectedOptions...)
}

// AnswerResponse is empty unless the quiz shows results immediately.
type AnswerResponse struct {
	IsCorrect   *bool  `json:"isCorrect,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// Feedback returns nil for an empty response.
func (r AnswerResponse) Feedback() *domain.AnswerFeedback {
	if r.IsCorrect == nil {
		return nil
	}
	return &domain.AnswerFeedback{IsCorrect: *r.IsCorrect, Explanation: r.Explanation}
}

type CompleteRequest struct {
	TotalTimeSpent int `json:"totalTimeSpent"`
}

type CompleteResponse struct {
	Submission domain.Submission `json:"submission"`
	Passed     bool              `json:"passed"`
	Percentage float64           `json:"percentage"`
}

// Result extracts the graded outcome.
func (r CompleteResponse) Result() domain.CompletionResult {
	return domain.CompletionResult{
		Score:       r.Submission.Score,
		Percentage:  r.Percentage,
		TotalPoints: r.Submission.TotalPoints,
		Passed:      r.Passed,
	}
}

type AbandonRequest struct {
	TotalTimeSpent int `json:"totalTimeSpent"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
