package app

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"quiz-player/internal/domain"
)

// BoardRepository abstracts where live boards are kept (in-memory, Redis, etc).
type BoardRepository interface {
	GetOrCreate(quizID string) *Board
	Get(quizID string) (*Board, bool)
	DeleteIfEmpty(quizID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// SubmissionRepository persists attempts.
type SubmissionRepository interface {
	Create(ctx context.Context, sub domain.Submission) error
	Get(ctx context.Context, id string) (domain.Submission, error)
	Update(ctx context.Context, sub domain.Submission) error
	CountAttempts(ctx context.Context, quizID, learnerID string) (int, error)
}

// AttemptService implements the grading side of a quiz attempt.
type AttemptService struct {
	quizzes     QuizRepository
	submissions SubmissionRepository
	boards      BoardRepository
	events      EventPublisher
	now         func() time.Time
	newID       func() string

	locksMu sync.Mutex
	locks   map[string]*keyedLock
}

type ServiceOption func(*AttemptService)

// WithEvents sets the publisher for lifecycle events. Defaults to LogPublisher.
func WithEvents(p EventPublisher) ServiceOption {
	return func(s *AttemptService) { s.events = p }
}

// WithServiceClock is test-only for deterministic timestamps.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *AttemptService) { s.now = now }
}

// WithIDs replaces the submission id generator.
func WithIDs(next func() string) ServiceOption {
	return func(s *AttemptService) { s.newID = next }
}

func NewAttemptService(quizzes QuizRepository, submissions SubmissionRepository, boards BoardRepository, opts ...ServiceOption) *AttemptService {
	s := &AttemptService{
		quizzes:     quizzes,
		submissions: submissions,
		boards:      boards,
		events:      LogPublisher{},
		now:         time.Now,
		newID:       uuid.NewString,
		locks:       make(map[string]*keyedLock),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetQuiz returns the learner-facing copy of a quiz.
func (s *AttemptService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	return quiz.Public(), nil
}

// StartAttempt opens a new submission for the learner, enforcing the retake policy.
func (s *AttemptService) StartAttempt(ctx context.Context, quizID, learnerID string, device domain.DeviceMetadata) (domain.Submission, error) {
	if learnerID == "" {
		return domain.Submission{}, domain.ErrMissingLearner
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Submission{}, err
	}

	unlock := s.lock("start:" + quizID + ":" + learnerID)
	defer unlock()

	previous, err := s.submissions.CountAttempts(ctx, quizID, learnerID)
	if err != nil {
		return domain.Submission{}, errors.Wrap(err, "count attempts")
	}
	if previous > 0 && !quiz.Settings.AllowRetake {
		return domain.Submission{}, errors.Wrap(domain.ErrMaxAttemptsExceeded, "retakes are not allowed")
	}
	if limit := quiz.Settings.MaxAttempts; limit > 0 && previous >= limit {
		return domain.Submission{}, errors.Wrapf(domain.ErrMaxAttemptsExceeded, "limit is %d", limit)
	}

	sub := domain.Submission{
		ID:            s.newID(),
		QuizID:        quiz.ID,
		LearnerID:     learnerID,
		AttemptNumber: previous + 1,
		Status:        domain.StatusInProgress,
		TotalPoints:   quiz.MaxPoints(),
		StartedAt:     s.now(),
	}
	if device != (domain.DeviceMetadata{}) {
		sub.Device = &device
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		return domain.Submission{}, errors.Wrap(err, "create submission")
	}

	s.boards.GetOrCreate(quiz.ID).track(sub)
	s.publish(ctx, newEvent(EventAttemptStarted, sub, s.now()))
	return sub, nil
}

// RecordAnswer scores and stores one answer, overwriting any earlier answer
// to the same question. Feedback is returned only when the quiz shows
// results immediately.
func (s *AttemptService) RecordAnswer(ctx context.Context, learnerID, submissionID string, answer domain.AnswerSubmission) (*domain.AnswerFeedback, error) {
	unlock := s.lock(submissionID)
	defer unlock()

	sub, err := s.owned(ctx, learnerID, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status.Terminal() {
		return nil, domain.ErrSubmissionClosed
	}
	quiz, err := s.quizzes.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return nil, err
	}

	correct, points, err := scoreAnswer(quiz, answer.QuestionID, answer.Answer)
	if err != nil {
		return nil, err
	}
	recorded := domain.RecordedAnswer{
		QuestionID:   answer.QuestionID,
		TimeSpent:    answer.TimeSpentSeconds,
		HintsUsed:    answer.HintsUsed,
		IsCorrect:    correct,
		PointsEarned: points,
	}
	if text, ok := answer.Answer.Text(); ok {
		recorded.UserAnswer = &text
	} else {
		recorded.SelectedOptions = answer.Answer.Options()
	}
	sub.Record(recorded)
	sub.Score = 0
	for _, a := range sub.Answers {
		sub.Score += a.PointsEarned
	}
	if err := s.submissions.Update(ctx, sub); err != nil {
		return nil, errors.Wrap(err, "update submission")
	}

	s.boards.GetOrCreate(sub.QuizID).track(sub)
	event := newEvent(EventAttemptAnswered, sub, s.now())
	event.QuestionID = answer.QuestionID
	s.publish(ctx, event)

	if !quiz.Settings.ShowResultsImmediately {
		return nil, nil
	}
	feedback := &domain.AnswerFeedback{IsCorrect: correct}
	if quiz.Settings.ShowExplanations {
		question, _ := quiz.Question(answer.QuestionID)
		feedback.Explanation = question.Explanation
	}
	return feedback, nil
}

// CompleteAttempt grades the submission. Completing an already graded
// submission returns the stored outcome.
func (s *AttemptService) CompleteAttempt(ctx context.Context, learnerID, submissionID string, totalTimeSpent int) (domain.Submission, error) {
	unlock := s.lock(submissionID)
	defer unlock()

	sub, err := s.owned(ctx, learnerID, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	switch sub.Status {
	case domain.StatusCompleted, domain.StatusTimedOut:
		return sub, nil
	case domain.StatusAbandoned:
		return domain.Submission{}, domain.ErrSubmissionClosed
	}
	quiz, err := s.quizzes.GetQuiz(ctx, sub.QuizID)
	if err != nil {
		return domain.Submission{}, err
	}

	result := grade(quiz, sub)
	completedAt := s.now()
	sub.Status = domain.StatusCompleted
	if limit := quiz.Settings.TimeLimit(); limit > 0 && totalTimeSpent >= int(limit/time.Second) {
		sub.Status = domain.StatusTimedOut
	}
	sub.Score = result.Score
	sub.Percentage = result.Percentage
	sub.TotalPoints = result.TotalPoints
	sub.Passed = result.Passed
	sub.TimeSpentSeconds = totalTimeSpent
	sub.CompletedAt = &completedAt
	if err := s.submissions.Update(ctx, sub); err != nil {
		return domain.Submission{}, errors.Wrap(err, "update submission")
	}

	s.boards.GetOrCreate(sub.QuizID).track(sub)
	s.publish(ctx, newEvent(EventAttemptCompleted, sub, completedAt))
	return sub, nil
}

// Abandon closes an in-progress submission without grading it.
// Abandoning a closed submission is a no-op.
func (s *AttemptService) Abandon(ctx context.Context, learnerID, submissionID string, totalTimeSpent int) error {
	unlock := s.lock(submissionID)
	defer unlock()

	sub, err := s.owned(ctx, learnerID, submissionID)
	if err != nil {
		return err
	}
	if sub.Status.Terminal() {
		return nil
	}
	sub.Status = domain.StatusAbandoned
	sub.TimeSpentSeconds = totalTimeSpent
	if err := s.submissions.Update(ctx, sub); err != nil {
		return errors.Wrap(err, "update submission")
	}

	if board, ok := s.boards.Get(sub.QuizID); ok {
		board.remove(sub.ID)
		s.boards.DeleteIfEmpty(sub.QuizID)
	}
	s.publish(ctx, newEvent(EventAttemptAbandoned, sub, s.now()))
	return nil
}

// Watch returns a channel that receives board updates for a quiz.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *AttemptService) Watch(ctx context.Context, quizID string) (<-chan domain.Board, func(), error) {
	// Users cannot watch unknown quizzes.
	if _, err := s.quizzes.GetQuiz(ctx, quizID); err != nil {
		return nil, nil, err
	}
	board := s.boards.GetOrCreate(quizID)
	ch, cancel := board.subscribe()
	return ch, func() {
		cancel()
		s.boards.DeleteIfEmpty(quizID)
	}, nil
}

// Board returns the current snapshot for a quiz.
func (s *AttemptService) Board(_ context.Context, quizID string) (domain.Board, error) {
	board, ok := s.boards.Get(quizID)
	if !ok {
		return domain.Board{}, domain.ErrBoardNotFound
	}
	board.mu.RLock()
	defer board.mu.RUnlock()
	return board.snapshotLocked(), nil
}

// owned hides submissions of other learners behind ErrSubmissionNotFound.
func (s *AttemptService) owned(ctx context.Context, learnerID, submissionID string) (domain.Submission, error) {
	if learnerID == "" {
		return domain.Submission{}, domain.ErrMissingLearner
	}
	sub, err := s.submissions.Get(ctx, submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	if sub.LearnerID != learnerID {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return sub, nil
}

func (s *AttemptService) publish(ctx context.Context, event Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("publish %s for %s: %v", event.Type, event.SubmissionID, err)
	}
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// lock serializes writers of one key. An entry lives only while some
// caller holds or waits for it.
func (s *AttemptService) lock(key string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &keyedLock{}
		s.locks[key] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, key)
		}
		s.locksMu.Unlock()
	}
}
