package domain

import "time"

// QuestionKind enumerates the supported question formats.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple_choice"
	KindTrueFalse      QuestionKind = "true_false"
	KindFillBlank      QuestionKind = "fill_blank"
	KindShortAnswer    QuestionKind = "short_answer"
)

// IsChoice reports whether answers to this kind are option identifiers.
func (k QuestionKind) IsChoice() bool {
	return k == KindMultipleChoice || k == KindTrueFalse
}

// Valid reports whether k is one of the known kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindTrueFalse, KindFillBlank, KindShortAnswer:
		return true
	}
	return false
}

// Option represents a possible answer for a choice question.
// Correct never leaves the server; see Quiz.Public.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct,omitempty"`
}

// Question is a single item of a quiz.
type Question struct {
	ID               string       `json:"id"`
	Kind             QuestionKind `json:"type"`
	Prompt           string       `json:"question"`
	Options          []Option     `json:"options,omitempty"`
	AllowMultiple    bool         `json:"allowMultiple,omitempty"`
	Points           int          `json:"points"` // defaults to 1 if zero
	Difficulty       string       `json:"difficulty,omitempty"`
	Hints            []string     `json:"hints,omitempty"`
	TimeLimitSeconds int          `json:"timeLimit,omitempty"`
	// AcceptedAnswers holds the keys for text questions. Server side only.
	AcceptedAnswers []string `json:"acceptedAnswers,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
}

// PointValue returns the points awarded for a correct answer.
func (q Question) PointValue() int {
	if q.Points <= 0 {
		return 1
	}
	return q.Points
}

// HasOption reports whether optionID belongs to the question.
func (q Question) HasOption(optionID string) bool {
	for _, opt := range q.Options {
		if opt.ID == optionID {
			return true
		}
	}
	return false
}

// Settings controls how a quiz is taken and graded.
type Settings struct {
	TimeLimitMinutes       int     `json:"timeLimit,omitempty"`
	ShuffleQuestions       bool    `json:"shuffleQuestions,omitempty"`
	ShuffleOptions         bool    `json:"shuffleOptions,omitempty"`
	ShowResultsImmediately bool    `json:"showResultsImmediately,omitempty"`
	AllowRetake            bool    `json:"allowRetake,omitempty"`
	MaxAttempts            int     `json:"maxAttempts,omitempty"`
	PassingScore           float64 `json:"passingScore,omitempty"`
	ShowCorrectAnswers     bool    `json:"showCorrectAnswers,omitempty"`
	ShowExplanations       bool    `json:"showExplanations,omitempty"`
}

// TimeLimit returns the quiz-wide limit, zero when unlimited.
func (s Settings) TimeLimit() time.Duration {
	if s.TimeLimitMinutes <= 0 {
		return 0
	}
	return time.Duration(s.TimeLimitMinutes) * time.Minute
}

// Quiz is an ordered collection of questions. It is read-only for the
// duration of an attempt.
type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Questions    []Question `json:"questions"`
	Settings     Settings   `json:"settings"`
	TotalPoints  int        `json:"totalPoints"`
	Difficulty   string     `json:"difficulty,omitempty"`
}

// Question looks up a question by id.
func (q Quiz) Question(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// MaxPoints sums the point values of all questions.
func (q Quiz) MaxPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.PointValue()
	}
	return total
}

// Public returns a copy safe to hand to learners: correctness flags,
// text answer keys and explanations are removed.
func (q Quiz) Public() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.AcceptedAnswers = nil
		question.Explanation = ""
		opts := make([]Option, len(question.Options))
		for j, opt := range question.Options {
			opts[j] = Option{ID: opt.ID, Text: opt.Text}
		}
		question.Options = opts
		out.Questions[i] = question
	}
	if out.TotalPoints == 0 {
		out.TotalPoints = q.MaxPoints()
	}
	return out
}

// SubmissionStatus is the server-side status of an attempt.
type SubmissionStatus string

const (
	StatusInProgress SubmissionStatus = "in_progress"
	StatusCompleted  SubmissionStatus = "completed"
	StatusTimedOut   SubmissionStatus = "timed_out"
	StatusAbandoned  SubmissionStatus = "abandoned"
)

// Terminal reports whether no further answers are accepted.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusTimedOut || s == StatusAbandoned
}

// RecordedAnswer is the server's copy of one flushed answer.
type RecordedAnswer struct {
	QuestionID      string   `json:"questionId"`
	SelectedOptions []string `json:"selectedOptions,omitempty"`
	UserAnswer      *string  `json:"userAnswer,omitempty"`
	TimeSpent       int      `json:"timeSpent"`
	HintsUsed       int      `json:"hintsUsed"`
	IsCorrect       bool     `json:"isCorrect"`
	PointsEarned    int      `json:"pointsEarned"`
}

// Submission is the server-tracked record of one quiz attempt.
type Submission struct {
	ID               string           `json:"id"`
	QuizID           string           `json:"quizId"`
	LearnerID        string           `json:"learnerId,omitempty"`
	AttemptNumber    int              `json:"attemptNumber"`
	Status           SubmissionStatus `json:"status"`
	Answers          []RecordedAnswer `json:"answers,omitempty"`
	Score            int              `json:"score"`
	Percentage       float64          `json:"percentage"`
	TotalPoints      int              `json:"totalPoints"`
	Passed           bool             `json:"passed"`
	TimeSpentSeconds int              `json:"timeSpent"`
	StartedAt        time.Time        `json:"startedAt"`
	CompletedAt      *time.Time       `json:"completedAt,omitempty"`
	Device           *DeviceMetadata  `json:"device,omitempty"`
}

// Record inserts or overwrites the answer for a question.
func (s *Submission) Record(answer RecordedAnswer) {
	for i := range s.Answers {
		if s.Answers[i].QuestionID == answer.QuestionID {
			s.Answers[i] = answer
			return
		}
	}
	s.Answers = append(s.Answers, answer)
}

// DeviceMetadata accompanies a start request for audit purposes.
type DeviceMetadata struct {
	UserAgent        string `json:"userAgent,omitempty"`
	Platform         string `json:"platform,omitempty"`
	ScreenResolution string `json:"screenResolution,omitempty"`
	Timezone         string `json:"timezone,omitempty"`
}

// AnswerSubmission is the payload of a per-question flush.
type AnswerSubmission struct {
	QuestionID       string
	Answer           Answer
	TimeSpentSeconds int
	HintsUsed        int
}

// AnswerFeedback is returned for a flush when the quiz shows results immediately.
type AnswerFeedback struct {
	IsCorrect   bool   `json:"isCorrect"`
	Explanation string `json:"explanation,omitempty"`
}

// CompletionResult is the graded outcome of an attempt.
type CompletionResult struct {
	Score       int     `json:"score"`
	Percentage  float64 `json:"percentage"`
	TotalPoints int     `json:"totalPoints"`
	Passed      bool    `json:"passed"`
}
