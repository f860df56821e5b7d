package player

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"quiz-player/internal/domain"
)

// flusher runs fire-and-forget gateway calls strictly in enqueue order.
// Each job waits for its predecessor, so the queue is unbounded without a
// dedicated worker goroutine living past the last job.
type flusher struct {
	mu   sync.Mutex
	tail chan struct{}
}

func (f *flusher) enqueue(job func()) {
	f.mu.Lock()
	prev := f.tail
	done := make(chan struct{})
	f.tail = done
	f.mu.Unlock()

	go func() {
		defer close(done)
		if prev != nil {
			<-prev
		}
		job()
	}()
}

// wait blocks until every job queued before the call has run or ctx
// ends. The tail closes only after all of its predecessors.
func (f *flusher) wait(ctx context.Context) error {
	f.mu.Lock()
	tail := f.tail
	f.mu.Unlock()
	if tail == nil {
		return nil
	}
	select {
	case <-tail:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "waiting for pending answer flushes")
	}
}

// submitWithRetry sends one answer, retrying transport failures only.
// Validation rejections are permanent.
func submitWithRetry(ctx context.Context, gw Gateway, submissionID string, sub domain.AnswerSubmission, retries uint64) (*domain.AnswerFeedback, error) {
	var feedback *domain.AnswerFeedback
	op := func() error {
		fb, err := gw.SubmitAnswer(ctx, submissionID, sub)
		if err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return backoff.Permanent(err)
			}
			return err
		}
		feedback = fb
		return nil
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 100 * time.Millisecond
	policy.MaxInterval = time.Second
	policy.MaxElapsedTime = 5 * time.Second
	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, retries), ctx))
	return feedback, err
}
