package memory

import (
	"context"
	"sync"

	"quiz-player/internal/domain"
)

// SubmissionStore keeps submissions in a map. Values are copied in and out
// so callers never share the Answers slice.
type SubmissionStore struct {
	mu          sync.RWMutex
	submissions map[string]domain.Submission
}

func NewSubmissionStore() *SubmissionStore {
	return &SubmissionStore{submissions: make(map[string]domain.Submission)}
}

func (s *SubmissionStore) Create(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submissions[sub.ID] = clone(sub)
	return nil
}

func (s *SubmissionStore) Get(_ context.Context, id string) (domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.submissions[id]
	if !ok {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	return clone(sub), nil
}

func (s *SubmissionStore) Update(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.submissions[sub.ID]; !ok {
		return domain.ErrSubmissionNotFound
	}
	s.submissions[sub.ID] = clone(sub)
	return nil
}

func (s *SubmissionStore) CountAttempts(_ context.Context, quizID, learnerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sub := range s.submissions {
		if sub.QuizID == quizID && sub.LearnerID == learnerID {
			n++
		}
	}
	return n, nil
}

func clone(sub domain.Submission) domain.Submission {
	sub.Answers = append([]domain.RecordedAnswer(nil), sub.Answers...)
	return sub
}
