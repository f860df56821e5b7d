package redis

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"quiz-player/internal/domain"
)

// SubmissionStore keeps each submission as JSON under submission:{id}
// with a TTL and indexes attempt ids per learner in a set without one.
type SubmissionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSubmissionStore(client *redis.Client, ttl time.Duration) *SubmissionStore {
	return &SubmissionStore{client: client, ttl: ttl}
}

func (s *SubmissionStore) Create(ctx context.Context, sub domain.Submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return errors.Wrap(err, "encode submission")
	}
	created, err := s.client.SetNX(ctx, s.key(sub.ID), raw, s.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "store submission")
	}
	if !created {
		return errors.Errorf("submission %s already exists", sub.ID)
	}
	// The attempt index never expires: attempt limits must outlive the
	// submissions they count.
	err = s.client.SAdd(ctx, s.attemptsKey(sub.QuizID, sub.LearnerID), sub.ID).Err()
	return errors.Wrap(err, "index submission")
}

func (s *SubmissionStore) Get(ctx context.Context, id string) (domain.Submission, error) {
	raw, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Submission{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.Submission{}, errors.Wrap(err, "load submission")
	}
	var sub domain.Submission
	if err := json.Unmarshal(raw, &sub); err != nil {
		return domain.Submission{}, errors.Wrap(err, "decode submission")
	}
	return sub, nil
}

func (s *SubmissionStore) Update(ctx context.Context, sub domain.Submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return errors.Wrap(err, "encode submission")
	}
	ok, err := s.client.SetXX(ctx, s.key(sub.ID), raw, s.ttl).Result()
	if err != nil {
		return errors.Wrap(err, "store submission")
	}
	if !ok {
		return domain.ErrSubmissionNotFound
	}
	return nil
}

func (s *SubmissionStore) CountAttempts(ctx context.Context, quizID, learnerID string) (int, error) {
	n, err := s.client.SCard(ctx, s.attemptsKey(quizID, learnerID)).Result()
	if err != nil {
		return 0, errors.Wrap(err, "count attempts")
	}
	return int(n), nil
}

func (s *SubmissionStore) key(id string) string {
	return "submission:" + id
}

func (s *SubmissionStore) attemptsKey(quizID, learnerID string) string {
	return "quiz:" + quizID + ":learner:" + learnerID + ":attempts"
}
