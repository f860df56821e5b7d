package player_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-player/internal/domain"
	"quiz-player/internal/player"
)

func TestStartFailureLeavesNotStartedThenRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.startErrs = []error{networkErr("connection refused")}
	ctrl, err := newController(sampleQuiz(2, 0), gw, newManualClock())
	require.NoError(t, err)

	err = ctrl.Start(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrStartFailure))
	assert.True(t, errors.Is(err, domain.ErrNetwork))
	assert.Equal(t, player.PhaseNotStarted, ctrl.Phase())
	assert.Equal(t, 0, ctrl.Current())
	assert.Equal(t, err, ctrl.Snapshot().Err)

	require.NoError(t, ctrl.Start(ctx))
	assert.Equal(t, player.PhaseInProgress, ctrl.Phase())
	assert.Nil(t, ctrl.Snapshot().Err)
	assert.Equal(t, 2, gw.starts)
}

func TestStartTwiceIsInvalid(t *testing.T) {
	ctx := context.Background()
	ctrl, err := newController(sampleQuiz(1, 0), newFakeGateway(), newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	err = ctrl.Start(ctx)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestOperationsBeforeStartAreInvalid(t *testing.T) {
	ctrl, err := newController(sampleQuiz(2, 0), newFakeGateway(), newManualClock())
	require.NoError(t, err)

	assert.True(t, errors.Is(ctrl.GoNext(), domain.ErrInvalidTransition))
	assert.True(t, errors.Is(ctrl.Answer("q1", domain.ChoiceAnswer("q1-a")), domain.ErrInvalidTransition))
	assert.True(t, errors.Is(ctrl.Finalize(context.Background(), player.ReasonManual), domain.ErrInvalidTransition))
	_, err = ctrl.RequestHint("q1")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
}

func TestNewControllerRejectsCorruptQuiz(t *testing.T) {
	quiz := sampleQuiz(2, 0)
	quiz.Questions[1].Prompt = ""

	_, err := newController(quiz, newFakeGateway(), newManualClock())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMissingQuestionData))
	assert.False(t, errors.Is(err, domain.ErrNetwork))
}

func TestPointerFollowsGoNext(t *testing.T) {
	ctx := context.Background()
	for n := 1; n <= 4; n++ {
		for k := 0; k <= n+1; k++ {
			ctrl, err := newController(sampleQuiz(n, 0), newFakeGateway(), newManualClock())
			require.NoError(t, err)
			require.NoError(t, ctrl.Start(ctx))

			for i := 0; i < k; i++ {
				err := ctrl.GoNext()
				if i < n {
					require.NoError(t, err)
				} else {
					require.True(t, errors.Is(err, domain.ErrInvalidTransition))
				}
			}
			assert.Equal(t, min(k, n-1), ctrl.Current(), "n=%d k=%d", n, k)
			assert.Equal(t, k >= n, ctrl.Phase() == player.PhaseAwaitingConfirmation, "n=%d k=%d", n, k)
			require.NoError(t, ctrl.Drain(ctx))
		}
	}
}

func TestGoPreviousUndoesGoNextAndKeepsAnswers(t *testing.T) {
	ctx := context.Background()
	ctrl, err := newController(sampleQuiz(4, 0), newFakeGateway(), newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.Answer("q2", domain.ChoiceAnswer("q2-b")))
	p := ctrl.Current()
	require.Equal(t, 1, p)

	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.GoPrevious())
	assert.Equal(t, p, ctrl.Current())

	a, ok := ctrl.BufferedAnswer("q2")
	require.True(t, ok)
	assert.Equal(t, []string{"q2-b"}, a.Options())

	require.NoError(t, ctrl.GoPrevious())
	assert.True(t, errors.Is(ctrl.GoPrevious(), domain.ErrInvalidTransition))
	require.NoError(t, ctrl.Drain(ctx))
}

func TestGoPreviousDoesNotFlush(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	ctrl, err := newController(sampleQuiz(3, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.Answer("q2", domain.ChoiceAnswer("q2-a")))
	require.NoError(t, ctrl.GoPrevious())
	require.NoError(t, ctrl.Drain(ctx))

	assert.Empty(t, gw.submitted())
}

func TestAnswerOverwritesAndChecksShape(t *testing.T) {
	ctx := context.Background()
	quiz := sampleQuiz(1, 0)
	quiz.Questions = append(quiz.Questions, domain.Question{ID: "t1", Kind: domain.KindShortAnswer, Prompt: "Capital of France"})
	ctrl, err := newController(quiz, newFakeGateway(), newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	require.NoError(t, ctrl.Answer("q1", domain.ChoiceAnswer("q1-a")))
	require.NoError(t, ctrl.Answer("q1", domain.ChoiceAnswer("q1-b")))
	a, _ := ctrl.BufferedAnswer("q1")
	assert.Equal(t, []string{"q1-b"}, a.Options())

	require.NoError(t, ctrl.Answer("t1", domain.TextAnswer("")))
	a, ok := ctrl.BufferedAnswer("t1")
	require.True(t, ok, "empty text is still an answer")
	text, _ := a.Text()
	assert.Equal(t, "", text)

	err = ctrl.Answer("t1", domain.ChoiceAnswer("q1-a"))
	assert.True(t, errors.Is(err, domain.ErrAnswerMismatch))

	err = ctrl.Answer("missing", domain.TextAnswer("x"))
	assert.True(t, errors.Is(err, domain.ErrQuestionNotFound))

	require.NoError(t, ctrl.Answer("q1", domain.Answer{}))
	_, ok = ctrl.BufferedAnswer("q1")
	assert.False(t, ok)
}

func TestHintRevealIsClamped(t *testing.T) {
	ctx := context.Background()
	quiz := sampleQuiz(2, 0)
	quiz.Questions[0].Hints = []string{"think small", "it is even"}
	ctrl, err := newController(quiz, newFakeGateway(), newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	var indices []int
	for i := 0; i < 3; i++ {
		hint, err := ctrl.RequestHint("q1")
		require.NoError(t, err)
		indices = append(indices, hint.Index)
	}
	assert.Equal(t, []int{0, 1, 1}, indices)
	assert.Equal(t, 3, ctrl.HintsUsed("q1"))
	assert.Equal(t, "it is even", ctrl.Snapshot().Hint.Text)

	require.NoError(t, ctrl.GoNext())
	assert.Nil(t, ctrl.Snapshot().Hint, "navigation clears the shown hint")
	_, err = ctrl.RequestHint("q2")
	assert.True(t, errors.Is(err, domain.ErrNoHints))
	_, err = ctrl.RequestHint("q1")
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition), "only the current question")

	require.NoError(t, ctrl.GoPrevious())
	hint, err := ctrl.RequestHint("q1")
	require.NoError(t, err)
	assert.Equal(t, 1, hint.Index)
	assert.Equal(t, 4, ctrl.HintsUsed("q1"))
	require.NoError(t, ctrl.Drain(ctx))
}

func TestCompleteFlowSumsQuestionDurations(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock()
	gw := newFakeGateway()
	ctrl, err := newController(sampleQuiz(3, 0), gw, clock)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	for i, d := range []time.Duration{10 * time.Second, 20 * time.Second, 30 * time.Second} {
		clock.Advance(d)
		q := ctrl.Snapshot().Question
		require.NoError(t, ctrl.Answer(q.ID, domain.ChoiceAnswer(q.Options[0].ID)))
		require.NoError(t, ctrl.GoNext())
		if i < 2 {
			assert.Equal(t, player.PhaseInProgress, ctrl.Phase())
		}
	}
	require.Equal(t, player.PhaseAwaitingConfirmation, ctrl.Phase())

	require.NoError(t, ctrl.ConfirmSubmit(ctx))

	require.Equal(t, 1, gw.completeCalls())
	assert.InDelta(t, 60, gw.totals[0], 1)
	assert.Equal(t, player.PhaseCompleted, ctrl.Phase())

	sub, ok := ctrl.Submission()
	require.True(t, ok)
	assert.Equal(t, domain.StatusCompleted, sub.Status)
	assert.True(t, sub.Passed)
	assert.Equal(t, 60, sub.TimeSpentSeconds)

	submits := gw.submitted()
	require.Len(t, submits, 6, "three flushes and three replays")
	for i, want := range []struct {
		id   string
		secs int
	}{{"q1", 10}, {"q2", 20}, {"q3", 30}} {
		assert.Equal(t, want.id, submits[i].QuestionID)
		assert.Equal(t, want.secs, submits[i].TimeSpentSeconds)
		assert.Equal(t, want.id, submits[i+3].QuestionID)
	}

	_, ok = ctrl.BufferedAnswer("q1")
	assert.False(t, ok, "buffer is discarded once terminal")
}

func TestCancelSubmitReturnsToLastQuestion(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	ctrl, err := newController(sampleQuiz(2, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.CancelSubmit())
	assert.Equal(t, player.PhaseInProgress, ctrl.Phase())
	assert.Equal(t, 1, ctrl.Current())
	assert.True(t, errors.Is(ctrl.CancelSubmit(), domain.ErrInvalidTransition))
	assert.True(t, errors.Is(ctrl.ConfirmSubmit(ctx), domain.ErrInvalidTransition))
	assert.Zero(t, gw.completeCalls())
}

func TestTimerExpiryFinalizesOnce(t *testing.T) {
	ctx := context.Background()
	clock := newManualClock()
	gw := newFakeGateway()
	ctrl, err := newController(sampleQuiz(2, 1), gw, clock)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))
	assert.Equal(t, 60, ctrl.Snapshot().RemainingSeconds)

	for i := 0; i < 59; i++ {
		clock.Advance(time.Second)
		require.NoError(t, ctrl.Tick(ctx))
	}
	assert.Zero(t, gw.completeCalls())
	assert.Equal(t, 1, ctrl.Snapshot().RemainingSeconds)

	clock.Advance(time.Second)
	require.NoError(t, ctrl.Tick(ctx))
	require.Equal(t, 1, gw.completeCalls())
	assert.Equal(t, player.PhaseTimedOut, ctrl.Phase())
	sub, _ := ctrl.Submission()
	assert.Equal(t, domain.StatusTimedOut, sub.Status)
	assert.Equal(t, 60, gw.totals[0])

	for i := 0; i < 10; i++ {
		require.NoError(t, ctrl.Tick(ctx))
	}
	assert.Equal(t, 1, gw.completeCalls())
	assert.Empty(t, gw.submitted(), "nothing answered, nothing flushed")
}

func TestTickWithoutTimeLimitDoesNothing(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	ctrl, err := newController(sampleQuiz(1, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	for i := 0; i < 120; i++ {
		require.NoError(t, ctrl.Tick(ctx))
	}
	assert.Zero(t, gw.completeCalls())
	assert.False(t, ctrl.Snapshot().HasTimeLimit)
}

func TestTimeoutDuringManualSubmitCompletesOnce(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.completeGate = make(chan struct{})
	ctrl, err := newController(sampleQuiz(1, 1), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))
	for i := 0; i < 59; i++ {
		require.NoError(t, ctrl.Tick(ctx))
	}
	require.NoError(t, ctrl.GoNext())

	done := make(chan error, 1)
	go func() { done <- ctrl.ConfirmSubmit(ctx) }()
	<-gw.completeEntered

	require.NoError(t, ctrl.Tick(ctx))
	require.NoError(t, ctrl.Tick(ctx))
	assert.True(t, errors.Is(ctrl.Finalize(ctx, player.ReasonManual), domain.ErrSubmissionInFlight))

	close(gw.completeGate)
	require.NoError(t, <-done)

	assert.Equal(t, 1, gw.completeCalls())
	assert.Equal(t, player.PhaseCompleted, ctrl.Phase())
	require.NoError(t, ctrl.Tick(ctx))
	assert.Equal(t, 1, gw.completeCalls())
}

func TestNavigationIsFrozenWhileFinalizing(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.completeGate = make(chan struct{})
	quiz := sampleQuiz(2, 0)
	quiz.Questions[1].Hints = []string{"look again"}
	ctrl, err := newController(quiz, gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.Answer("q1", domain.ChoiceAnswer("q1-a")))
	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.Drain(ctx))

	done := make(chan error, 1)
	go func() { done <- ctrl.Finalize(ctx, player.ReasonManual) }()
	<-gw.completeEntered
	assert.True(t, ctrl.Snapshot().InFlight)

	assert.True(t, errors.Is(ctrl.GoPrevious(), domain.ErrSubmissionInFlight))
	assert.True(t, errors.Is(ctrl.Answer("q1", domain.ChoiceAnswer("q1-b")), domain.ErrSubmissionInFlight))
	assert.True(t, errors.Is(ctrl.Answer("q2", domain.ChoiceAnswer("q2-b")), domain.ErrSubmissionInFlight))
	assert.True(t, errors.Is(ctrl.GoNext(), domain.ErrSubmissionInFlight))
	_, err = ctrl.RequestHint("q2")
	assert.True(t, errors.Is(err, domain.ErrSubmissionInFlight))
	assert.Equal(t, 1, ctrl.Current())
	assert.Zero(t, ctrl.HintsUsed("q2"))

	close(gw.completeGate)
	require.NoError(t, <-done)
	require.NoError(t, ctrl.Drain(ctx))
	assert.Equal(t, player.PhaseCompleted, ctrl.Phase())

	for _, sub := range gw.submitted() {
		assert.Equal(t, "q1", sub.QuestionID, "only the answer given before finalizing is sent")
		assert.Equal(t, []string{"q1-a"}, sub.Answer.Options())
	}
}

func TestCancelSubmitIsRejectedWhileFinalizing(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.completeGate = make(chan struct{})
	ctrl, err := newController(sampleQuiz(1, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.GoNext())

	done := make(chan error, 1)
	go func() { done <- ctrl.ConfirmSubmit(ctx) }()
	<-gw.completeEntered

	assert.True(t, errors.Is(ctrl.CancelSubmit(), domain.ErrSubmissionInFlight))
	assert.Equal(t, player.PhaseAwaitingConfirmation, ctrl.Phase())

	close(gw.completeGate)
	require.NoError(t, <-done)
	assert.Equal(t, player.PhaseCompleted, ctrl.Phase())
}

func TestFinalizeFailureIsRetryable(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.completeErr = []error{networkErr("gateway timeout")}
	ctrl, err := newController(sampleQuiz(2, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.GoNext())

	err = ctrl.ConfirmSubmit(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrFinalizeFailure))
	assert.True(t, domain.KindOf(err).Retryable())
	assert.Equal(t, player.PhaseAwaitingConfirmation, ctrl.Phase())
	sub, _ := ctrl.Submission()
	assert.Equal(t, domain.StatusInProgress, sub.Status)
	assert.Equal(t, 1, gw.completeCalls())

	require.NoError(t, ctrl.RetryFinalize(ctx))
	assert.Equal(t, 2, gw.completeCalls())
	assert.Equal(t, player.PhaseCompleted, ctrl.Phase())
}

func TestTimedOutFinalizeRetryKeepsReason(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.completeErr = []error{networkErr("reset by peer")}
	ctrl, err := newController(sampleQuiz(1, 1), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	var tickErr error
	for i := 0; i < 60; i++ {
		tickErr = ctrl.Tick(ctx)
	}
	require.True(t, errors.Is(tickErr, domain.ErrFinalizeFailure))
	require.NoError(t, ctrl.Tick(ctx), "expiry fires only once")
	assert.Equal(t, 1, gw.completeCalls())

	require.NoError(t, ctrl.RetryFinalize(ctx))
	assert.Equal(t, player.PhaseTimedOut, ctrl.Phase())
}

func TestFlushFailureDoesNotBlockAndIsReplayed(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.submitErr = networkErr("offline")
	ctrl, err := newController(sampleQuiz(2, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	require.NoError(t, ctrl.Answer("q1", domain.ChoiceAnswer("q1-b")))
	require.NoError(t, ctrl.GoNext())
	assert.Equal(t, 1, ctrl.Current())
	require.NoError(t, ctrl.Drain(ctx))
	assert.Equal(t, 1, ctrl.Snapshot().FlushFailures)

	gw.mu.Lock()
	gw.submitErr = nil
	gw.mu.Unlock()

	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.ConfirmSubmit(ctx))

	submits := gw.submitted()
	require.Len(t, submits, 2)
	last := submits[len(submits)-1]
	assert.Equal(t, "q1", last.QuestionID)
	assert.Equal(t, []string{"q1-b"}, last.Answer.Options())
}

func TestReplayFailureFailsFinalize(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	ctrl, err := newController(sampleQuiz(1, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.Answer("q1", domain.ChoiceAnswer("q1-a")))
	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.Drain(ctx))

	gw.mu.Lock()
	gw.submitErr = networkErr("offline")
	gw.mu.Unlock()

	err = ctrl.ConfirmSubmit(ctx)
	assert.True(t, errors.Is(err, domain.ErrFinalizeFailure))
	assert.Zero(t, gw.completeCalls())
	assert.Equal(t, player.PhaseAwaitingConfirmation, ctrl.Phase())
}

func TestFeedbackIsKeptPerQuestion(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.feedback = &domain.AnswerFeedback{IsCorrect: true, Explanation: "2+2=4"}
	ctrl, err := newController(sampleQuiz(2, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	require.NoError(t, ctrl.Answer("q1", domain.ChoiceAnswer("q1-a")))
	require.NoError(t, ctrl.GoNext())
	require.NoError(t, ctrl.Drain(ctx))
	require.NoError(t, ctrl.GoPrevious())

	fb := ctrl.Snapshot().Feedback
	require.NotNil(t, fb)
	assert.True(t, fb.IsCorrect)
}

func TestAbandonIgnoresLateResponse(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.completeGate = make(chan struct{})
	ctrl, err := newController(sampleQuiz(1, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))
	require.NoError(t, ctrl.GoNext())

	done := make(chan error, 1)
	go func() { done <- ctrl.ConfirmSubmit(ctx) }()
	<-gw.completeEntered

	require.NoError(t, ctrl.Abandon())
	close(gw.completeGate)

	assert.True(t, errors.Is(<-done, domain.ErrSessionClosed))
	assert.Equal(t, player.PhaseAbandoned, ctrl.Phase())
	assert.Nil(t, ctrl.Snapshot().Result)
	require.NoError(t, ctrl.Drain(ctx))
	assert.Equal(t, []string{"sub-1"}, gw.abandons)

	assert.True(t, errors.Is(ctrl.Abandon(), domain.ErrInvalidTransition))
}

func TestAbandonDuringStartDiscardsLateSubmission(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	gw.startGate = make(chan struct{})
	ctrl, err := newController(sampleQuiz(1, 0), gw, newManualClock())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- ctrl.Start(ctx) }()
	<-gw.startEntered

	require.NoError(t, ctrl.Abandon())
	close(gw.startGate)

	assert.True(t, errors.Is(<-done, domain.ErrSessionClosed))
	assert.Equal(t, player.PhaseAbandoned, ctrl.Phase())
	_, started := ctrl.Submission()
	assert.False(t, started)
	assert.False(t, ctrl.Snapshot().InFlight)

	require.NoError(t, ctrl.Drain(ctx))
	assert.Equal(t, []string{"sub-1"}, gw.abandoned())
}

func TestAbandonBeforeStartSendsNothing(t *testing.T) {
	gw := newFakeGateway()
	ctrl, err := newController(sampleQuiz(1, 0), gw, newManualClock())
	require.NoError(t, err)

	require.NoError(t, ctrl.Abandon())
	require.NoError(t, ctrl.Drain(context.Background()))
	assert.Empty(t, gw.abandons)
	assert.True(t, errors.Is(ctrl.Start(context.Background()), domain.ErrInvalidTransition))
}

func TestFlushesFollowQuestionOrder(t *testing.T) {
	ctx := context.Background()
	gw := newFakeGateway()
	ctrl, err := newController(sampleQuiz(5, 0), gw, newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	for _, q := range ctrl.Questions() {
		require.NoError(t, ctrl.Answer(q.ID, domain.ChoiceAnswer(q.Options[1].ID)))
		require.NoError(t, ctrl.GoNext())
	}
	require.NoError(t, ctrl.Drain(ctx))

	var got []string
	for _, s := range gw.submitted() {
		got = append(got, s.QuestionID)
	}
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5"}, got)
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	ctx := context.Background()
	ctrl, err := newController(sampleQuiz(2, 0), newFakeGateway(), newManualClock())
	require.NoError(t, err)

	ch, cancel := ctrl.Subscribe()
	defer cancel()
	initial := <-ch
	assert.Equal(t, player.PhaseNotStarted, initial.Phase)

	require.NoError(t, ctrl.Start(ctx))
	var last player.Snapshot
	for last.Phase != player.PhaseInProgress {
		last = <-ch
	}
	assert.Equal(t, "sub-1", last.SubmissionID)
	assert.Equal(t, 2, last.Total)
}

func TestSubscriptionEndsOnCurrentSnapshot(t *testing.T) {
	ctx := context.Background()
	ctrl, err := newController(sampleQuiz(1, 0), newFakeGateway(), newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	for round := 0; round < 50; round++ {
		stop := make(chan struct{})
		stopped := make(chan struct{})
		go func() {
			defer close(stopped)
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				opt := "q1-a"
				if i%2 == 1 {
					opt = "q1-b"
				}
				_ = ctrl.Answer("q1", domain.ChoiceAnswer(opt))
			}
		}()

		ch, cancel := ctrl.Subscribe()
		close(stop)
		<-stopped
		want := ctrl.Snapshot().Answer.Options()
		cancel()

		var last player.Snapshot
		for snap := range ch {
			last = snap
		}
		require.Equal(t, want, last.Answer.Options(), "round %d", round)
	}
}

func TestRunReturnsOnceTerminal(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ctrl, err := newController(sampleQuiz(1, 0), newFakeGateway(), newManualClock())
	require.NoError(t, err)
	require.NoError(t, ctrl.Start(ctx))

	done := make(chan error, 1)
	go func() { done <- ctrl.Run(ctx, 10*time.Millisecond) }()

	require.NoError(t, ctrl.Abandon())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("run did not stop after abandon")
	}
}

func TestShuffleIsSeeded(t *testing.T) {
	quiz := sampleQuiz(5, 0)
	quiz.Settings.ShuffleQuestions = true
	quiz.Settings.ShuffleOptions = true

	a, err := newController(quiz, newFakeGateway(), newManualClock(), player.WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)
	b, err := newController(quiz, newFakeGateway(), newManualClock(), player.WithRand(rand.New(rand.NewSource(7))))
	require.NoError(t, err)

	assert.Equal(t, a.Questions(), b.Questions())
	ids := map[string]bool{}
	for _, q := range a.Questions() {
		ids[q.ID] = true
		assert.Len(t, q.Options, 2)
	}
	assert.Len(t, ids, 5)
	assert.Equal(t, "q1-a", quiz.Questions[0].Options[0].ID, "caller's quiz untouched")
}
