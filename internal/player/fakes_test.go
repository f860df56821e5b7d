package player_test

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"quiz-player/internal/domain"
	"quiz-player/internal/player"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeGateway struct {
	mu          sync.Mutex
	startErrs   []error
	submitErr   error
	completeErr []error
	feedback    *domain.AnswerFeedback

	starts    int
	submits   []domain.AnswerSubmission
	totals    []int
	abandons  []string
	attempts  int
	completed chan struct{}

	// completeGate, when set, holds CompleteAttempt until closed.
	completeGate    chan struct{}
	completeEntered chan struct{}
	// startGate, when set, holds StartAttempt until closed.
	startGate    chan struct{}
	startEntered chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		completed:       make(chan struct{}, 16),
		completeEntered: make(chan struct{}, 16),
		startEntered:    make(chan struct{}, 16),
	}
}

func (g *fakeGateway) StartAttempt(_ context.Context, quizID string, _ domain.DeviceMetadata) (domain.Submission, error) {
	g.mu.Lock()
	gate := g.startGate
	g.mu.Unlock()
	g.startEntered <- struct{}{}
	if gate != nil {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.starts++
	if len(g.startErrs) > 0 {
		err := g.startErrs[0]
		g.startErrs = g.startErrs[1:]
		if err != nil {
			return domain.Submission{}, err
		}
	}
	g.attempts++
	return domain.Submission{
		ID:            "sub-1",
		QuizID:        quizID,
		AttemptNumber: g.attempts,
		Status:        domain.StatusInProgress,
	}, nil
}

func (g *fakeGateway) SubmitAnswer(_ context.Context, _ string, answer domain.AnswerSubmission) (*domain.AnswerFeedback, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submits = append(g.submits, answer)
	if g.submitErr != nil {
		return nil, g.submitErr
	}
	return g.feedback, nil
}

func (g *fakeGateway) CompleteAttempt(_ context.Context, _ string, total int) (domain.CompletionResult, error) {
	g.mu.Lock()
	g.totals = append(g.totals, total)
	gate := g.completeGate
	var err error
	if len(g.completeErr) > 0 {
		err = g.completeErr[0]
		g.completeErr = g.completeErr[1:]
	}
	g.mu.Unlock()

	g.completeEntered <- struct{}{}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return domain.CompletionResult{}, err
	}
	g.completed <- struct{}{}
	return domain.CompletionResult{Score: 2, Percentage: 66.7, TotalPoints: 3, Passed: true}, nil
}

func (g *fakeGateway) ReportAbandon(_ context.Context, submissionID string, _ int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.abandons = append(g.abandons, submissionID)
	return nil
}

func (g *fakeGateway) completeCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.totals)
}

func (g *fakeGateway) abandoned() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.abandons...)
}

func (g *fakeGateway) submitted() []domain.AnswerSubmission {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]domain.AnswerSubmission(nil), g.submits...)
}

func networkErr(msg string) error {
	return errors.Wrap(domain.ErrNetwork, msg)
}

func sampleQuiz(n int, limitMinutes int) domain.Quiz {
	quiz := domain.Quiz{
		ID:       "quiz-1",
		Title:    "Arithmetic",
		Settings: domain.Settings{TimeLimitMinutes: limitMinutes, PassingScore: 50},
	}
	for i := 0; i < n; i++ {
		id := "q" + string(rune('1'+i))
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:     id,
			Kind:   domain.KindMultipleChoice,
			Prompt: "Question " + id,
			Options: []domain.Option{
				{ID: id + "-a", Text: "A"},
				{ID: id + "-b", Text: "B"},
			},
			Points: 1,
		})
	}
	return quiz
}

func newController(quiz domain.Quiz, gw player.Gateway, clock *manualClock, opts ...player.Option) (*player.Controller, error) {
	base := []player.Option{
		player.WithClock(clock.Now),
		player.WithLogger(log.New(io.Discard, "", 0)),
		player.WithFlushRetries(0),
	}
	return player.NewController(quiz, gw, append(base, opts...)...)
}
