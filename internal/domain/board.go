package domain

import "time"

// AttemptProgress is one row of a quiz's live board.
type AttemptProgress struct {
	SubmissionID  string           `json:"submissionId"`
	LearnerID     string           `json:"learnerId"`
	AttemptNumber int              `json:"attemptNumber"`
	Answered      int              `json:"answered"`
	Score         int              `json:"score"`
	Status        SubmissionStatus `json:"status"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// Board is an ordered snapshot of the attempts of a quiz.
type Board struct {
	QuizID    string            `json:"quizId"`
	Entries   []AttemptProgress `json:"entries"`
	UpdatedAt time.Time         `json:"updatedAt"`
}
