package player

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"quiz-player/internal/domain"
)

const (
	defaultFlushRetries = 2
	defaultFlushTimeout = 15 * time.Second
)

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithDevice sets the metadata sent with the start request.
func WithDevice(device domain.DeviceMetadata) Option {
	return func(c *Controller) { c.device = device }
}

// WithRand sets the source used when the quiz asks for shuffling.
func WithRand(rnd *rand.Rand) Option {
	return func(c *Controller) { c.rnd = rnd }
}

// WithFlushRetries bounds transport retries of a single answer flush.
func WithFlushRetries(n uint64) Option {
	return func(c *Controller) { c.flushRetries = n }
}

func WithFlushTimeout(d time.Duration) Option {
	return func(c *Controller) { c.flushTimeout = d }
}

// Controller owns one learner's attempt at one quiz: lifecycle, question
// pointer, answer buffer, per-question timing, hints and the countdown.
// It is the only component allowed to change the attempt's state.
//
// The mutex is never held across a gateway call; a single in-flight flag
// keeps start/finalize (manual or timer driven) from overlapping.
type Controller struct {
	quiz         domain.Quiz
	questions    []domain.Question
	gateway      Gateway
	device       domain.DeviceMetadata
	logger       *log.Logger
	now          func() time.Time
	rnd          *rand.Rand
	flushRetries uint64
	flushTimeout time.Duration
	timeLimit    time.Duration

	mu            sync.Mutex
	phase         Phase
	submission    *domain.Submission
	epoch         uint64
	inFlight      bool
	timeoutFired  bool
	lastReason    Reason
	current       int
	buffer        *AnswerBuffer
	timer         *questionTimer
	spent         map[string]time.Duration
	hintsUsed     map[string]int
	hint          *HintReveal
	remaining     int
	feedback      map[string]domain.AnswerFeedback
	result        *domain.CompletionResult
	lastErr       error
	flushFailures int
	subscribers   map[chan Snapshot]struct{}

	flush    flusher
	stop     chan struct{}
	stopOnce sync.Once
}

// NewController validates quiz and prepares a not-started attempt.
func NewController(quiz domain.Quiz, gateway Gateway, opts ...Option) (*Controller, error) {
	if err := quiz.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		quiz:         quiz,
		gateway:      gateway,
		logger:       log.Default(),
		now:          time.Now,
		flushRetries: defaultFlushRetries,
		flushTimeout: defaultFlushTimeout,
		timeLimit:    quiz.Settings.TimeLimit(),
		buffer:       NewAnswerBuffer(),
		spent:        make(map[string]time.Duration),
		hintsUsed:    make(map[string]int),
		feedback:     make(map[string]domain.AnswerFeedback),
		subscribers:  make(map[chan Snapshot]struct{}),
		stop:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.questions = c.arrange(quiz)
	c.timer = newQuestionTimer(c.now)
	c.remaining = seconds(c.timeLimit)
	return c, nil
}

// arrange copies the questions, shuffling them and their options when the
// quiz settings ask for it.
func (c *Controller) arrange(quiz domain.Quiz) []domain.Question {
	questions := make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		q.Options = append([]domain.Option(nil), q.Options...)
		questions[i] = q
	}
	s := quiz.Settings
	if !s.ShuffleQuestions && !s.ShuffleOptions {
		return questions
	}
	if c.rnd == nil {
		c.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.ShuffleQuestions {
		c.rnd.Shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	}
	if s.ShuffleOptions {
		for _, q := range questions {
			// true/false keeps its canonical order
			if q.Kind != domain.KindMultipleChoice {
				continue
			}
			c.rnd.Shuffle(len(q.Options), func(i, j int) { q.Options[i], q.Options[j] = q.Options[j], q.Options[i] })
		}
	}
	return questions
}

// Start asks the gateway to open an attempt. The phase changes only once
// the gateway has answered; a failure leaves the controller not started
// and may be retried by calling Start again.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseNotStarted {
		defer c.mu.Unlock()
		return invalidTransition("start", c.phase)
	}
	if c.inFlight {
		c.mu.Unlock()
		return domain.ErrSubmissionInFlight
	}
	c.inFlight = true
	epoch := c.epoch
	c.broadcastLocked()
	c.mu.Unlock()

	sub, err := c.gateway.StartAttempt(ctx, c.quiz.ID, c.device)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.epoch != epoch {
		if err == nil && sub.ID != "" {
			c.reportAbandon(sub.ID, 0)
		}
		return domain.ErrSessionClosed
	}
	if err != nil {
		failure := domain.NewFailure(domain.StartFailure, errors.Wrapf(err, "starting quiz %s", c.quiz.ID))
		c.lastErr = failure
		c.broadcastLocked()
		return failure
	}
	if sub.Status == "" {
		sub.Status = domain.StatusInProgress
	}
	c.submission = &sub
	c.phase = PhaseInProgress
	c.current = 0
	c.hint = nil
	c.lastErr = nil
	c.timer.reset()
	c.remaining = seconds(c.timeLimit)
	c.logger.Printf("quiz %s: attempt %d started (submission %s)", c.quiz.ID, sub.AttemptNumber, sub.ID)
	c.broadcastLocked()
	return nil
}

// Answer records value for questionID in the answer buffer. It is purely
// local; passing the zero Answer clears the entry. While a finalize is in
// flight the buffer is frozen and Answer, RequestHint and navigation
// return ErrSubmissionInFlight.
func (c *Controller) Answer(questionID string, value domain.Answer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseInProgress {
		return invalidTransition("answer", c.phase)
	}
	if c.inFlight {
		return domain.ErrSubmissionInFlight
	}
	q, ok := c.questionLocked(questionID)
	if !ok {
		return domain.NewFailure(domain.InvalidTransition, errors.Wrap(domain.ErrQuestionNotFound, questionID))
	}
	if !value.IsZero() && !value.Fits(q.Kind) {
		return errors.Wrapf(domain.ErrAnswerMismatch, "question %s (%s) given %s", q.ID, q.Kind, value)
	}
	c.buffer.Set(questionID, value)
	c.broadcastLocked()
	return nil
}

// RequestHint reveals the next hint of the current question. Once the
// list is exhausted the last hint keeps being shown; the usage counter
// still grows.
func (c *Controller) RequestHint(questionID string) (HintReveal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseInProgress {
		return HintReveal{}, invalidTransition("hint", c.phase)
	}
	if c.inFlight {
		return HintReveal{}, domain.ErrSubmissionInFlight
	}
	q := c.questions[c.current]
	if q.ID != questionID {
		return HintReveal{}, domain.NewFailure(domain.InvalidTransition, errors.Errorf("hint requested for %s but %s is current", questionID, q.ID))
	}
	if len(q.Hints) == 0 {
		return HintReveal{}, errors.Wrap(domain.ErrNoHints, q.ID)
	}
	c.hintsUsed[q.ID]++
	idx := min(c.hintsUsed[q.ID], len(q.Hints)) - 1
	c.hint = &HintReveal{QuestionID: q.ID, Index: idx, Text: q.Hints[idx]}
	c.broadcastLocked()
	return *c.hint, nil
}

// GoNext flushes the current answer in the background and moves forward.
// Past the last question it opens the confirmation step instead.
// Flush failures are logged and never block navigation.
func (c *Controller) GoNext() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseInProgress {
		return invalidTransition("next", c.phase)
	}
	if c.inFlight {
		return domain.ErrSubmissionInFlight
	}
	id := c.questions[c.current].ID
	c.spent[id] += c.timer.lap()
	c.enqueueFlushLocked(id)
	if c.current == len(c.questions)-1 {
		c.phase = PhaseAwaitingConfirmation
	} else {
		c.current++
		c.hint = nil
	}
	c.broadcastLocked()
	return nil
}

// GoPrevious moves back one question. Time keeps accruing to the question
// being left but its answer is not flushed.
func (c *Controller) GoPrevious() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseInProgress || c.current == 0 {
		return invalidTransition("previous", c.phase)
	}
	if c.inFlight {
		return domain.ErrSubmissionInFlight
	}
	c.spent[c.questions[c.current].ID] += c.timer.lap()
	c.current--
	c.hint = nil
	c.broadcastLocked()
	return nil
}

// CancelSubmit leaves the confirmation step and returns to the last question.
func (c *Controller) CancelSubmit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseAwaitingConfirmation {
		return invalidTransition("cancel submit", c.phase)
	}
	if c.inFlight {
		return domain.ErrSubmissionInFlight
	}
	c.phase = PhaseInProgress
	c.broadcastLocked()
	return nil
}

// ConfirmSubmit finalizes the attempt from the confirmation step.
func (c *Controller) ConfirmSubmit(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseAwaitingConfirmation {
		defer c.mu.Unlock()
		return invalidTransition("confirm submit", c.phase)
	}
	c.mu.Unlock()
	return c.Finalize(ctx, ReasonManual)
}

// RetryFinalize repeats the last failed finalize with the same reason.
func (c *Controller) RetryFinalize(ctx context.Context) error {
	c.mu.Lock()
	reason := c.lastReason
	c.mu.Unlock()
	return c.Finalize(ctx, reason)
}

// Finalize closes the attempt: every buffered answer is replayed to the
// gateway, then the attempt is completed with the total time spent. On
// failure the controller stays where it was and Finalize may be called again.
func (c *Controller) Finalize(ctx context.Context, reason Reason) error {
	c.mu.Lock()
	if !c.phase.active() {
		defer c.mu.Unlock()
		return invalidTransition("finalize", c.phase)
	}
	if c.inFlight {
		c.mu.Unlock()
		return domain.ErrSubmissionInFlight
	}
	c.inFlight = true
	c.lastReason = reason
	epoch := c.epoch
	submissionID := c.submission.ID
	c.spent[c.questions[c.current].ID] += c.timer.lap()
	replay := c.pendingLocked()
	total := seconds(c.spentLocked())
	c.broadcastLocked()
	c.mu.Unlock()

	err := c.flush.wait(ctx)
	var feedback map[string]domain.AnswerFeedback
	if err == nil {
		feedback, err = c.replay(ctx, submissionID, replay)
	}
	var result domain.CompletionResult
	if err == nil {
		result, err = c.gateway.CompleteAttempt(ctx, submissionID, total)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.epoch != epoch || c.phase.Terminal() {
		return domain.ErrSessionClosed
	}
	if err != nil {
		failure := domain.NewFailure(domain.FinalizeFailure, errors.Wrapf(err, "finalizing submission %s", submissionID))
		c.lastErr = failure
		c.broadcastLocked()
		return failure
	}
	for id, fb := range feedback {
		c.feedback[id] = fb
	}
	status := domain.StatusCompleted
	c.phase = PhaseCompleted
	if reason == ReasonTimeout {
		status = domain.StatusTimedOut
		c.phase = PhaseTimedOut
	}
	now := c.now()
	c.submission.Status = status
	c.submission.Score = result.Score
	c.submission.Percentage = result.Percentage
	c.submission.TotalPoints = result.TotalPoints
	c.submission.Passed = result.Passed
	c.submission.TimeSpentSeconds = total
	c.submission.CompletedAt = &now
	c.result = &result
	c.lastErr = nil
	c.hint = nil
	c.buffer.Reset()
	c.stopTicking()
	c.logger.Printf("quiz %s: submission %s %s with %.1f%% in %ds", c.quiz.ID, submissionID, c.phase, result.Percentage, total)
	c.broadcastLocked()
	return nil
}

// Tick advances the countdown by one second. Reaching zero finalizes the
// attempt with ReasonTimeout exactly once; a tick that lands while a
// finalize is already running does nothing.
func (c *Controller) Tick(ctx context.Context) error {
	c.mu.Lock()
	if !c.phase.active() || c.timeLimit <= 0 {
		c.mu.Unlock()
		return nil
	}
	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining > 0 || c.inFlight || c.timeoutFired {
		c.broadcastLocked()
		c.mu.Unlock()
		return nil
	}
	c.timeoutFired = true
	c.mu.Unlock()

	err := c.Finalize(ctx, ReasonTimeout)
	if errors.Is(err, domain.ErrSubmissionInFlight) {
		c.mu.Lock()
		c.timeoutFired = false
		c.mu.Unlock()
		return nil
	}
	return err
}

// Run ticks every interval until ctx ends or the attempt reaches a
// terminal phase.
func (c *Controller) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		case <-ticker.C:
			if err := c.Tick(ctx); err != nil {
				c.logger.Printf("quiz %s: timer: %v", c.quiz.ID, err)
			}
		}
	}
}

// Abandon ends the attempt without grading. Responses of calls still in
// flight are ignored afterwards. The only gateway traffic is optional
// best-effort telemetry.
func (c *Controller) Abandon() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase.Terminal() {
		return invalidTransition("abandon", c.phase)
	}
	if c.phase.active() {
		c.spent[c.questions[c.current].ID] += c.timer.lap()
	}
	c.phase = PhaseAbandoned
	c.epoch++
	c.inFlight = false
	c.hint = nil
	c.buffer.Reset()
	c.stopTicking()
	if c.submission != nil {
		c.submission.Status = domain.StatusAbandoned
		c.reportAbandon(c.submission.ID, seconds(c.spentLocked()))
	}
	c.broadcastLocked()
	return nil
}

// Drain waits for queued background flushes.
func (c *Controller) Drain(ctx context.Context) error {
	return c.flush.wait(ctx)
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Current returns the index of the displayed question.
func (c *Controller) Current() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Questions returns the questions in display order.
func (c *Controller) Questions() []domain.Question {
	return c.questions
}

// BufferedAnswer returns the locally buffered answer for questionID.
func (c *Controller) BufferedAnswer(questionID string) (domain.Answer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.Get(questionID)
}

func (c *Controller) HintsUsed(questionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hintsUsed[questionID]
}

// TimeSpent returns the accumulated time including the open window.
func (c *Controller) TimeSpent() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spentLocked() + c.openWindowLocked()
}

// Submission returns a copy of the attempt record once started.
func (c *Controller) Submission() (domain.Submission, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.submission == nil {
		return domain.Submission{}, false
	}
	return *c.submission, true
}

func (c *Controller) questionLocked(id string) (domain.Question, bool) {
	for _, q := range c.questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

func (c *Controller) spentLocked() time.Duration {
	var total time.Duration
	for _, d := range c.spent {
		total += d
	}
	return total
}

func (c *Controller) openWindowLocked() time.Duration {
	if !c.phase.active() {
		return 0
	}
	return c.timer.elapsed()
}

func (c *Controller) submissionFor(id string, answer domain.Answer) domain.AnswerSubmission {
	return domain.AnswerSubmission{
		QuestionID:       id,
		Answer:           answer,
		TimeSpentSeconds: seconds(c.spent[id]),
		HintsUsed:        c.hintsUsed[id],
	}
}

// pendingLocked lists every buffered answer in display order for replay.
func (c *Controller) pendingLocked() []domain.AnswerSubmission {
	order := make([]string, len(c.questions))
	for i, q := range c.questions {
		order[i] = q.ID
	}
	entries := c.buffer.entries(order)
	out := make([]domain.AnswerSubmission, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.submissionFor(e.questionID, e.answer))
	}
	return out
}

func (c *Controller) enqueueFlushLocked(questionID string) {
	answer, ok := c.buffer.Get(questionID)
	if !ok {
		return
	}
	sub := c.submissionFor(questionID, answer)
	submissionID := c.submission.ID
	epoch := c.epoch
	c.flush.enqueue(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.flushTimeout)
		defer cancel()
		fb, err := submitWithRetry(ctx, c.gateway, submissionID, sub, c.flushRetries)

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.flushFailures++
			c.logger.Printf("quiz %s: %v", c.quiz.ID,
				domain.NewFailure(domain.AnswerFlushFailure, errors.Wrapf(err, "question %s", sub.QuestionID)))
			c.broadcastLocked()
			return
		}
		if fb != nil && c.epoch == epoch {
			c.feedback[sub.QuestionID] = *fb
			c.broadcastLocked()
		}
	})
}

// replay resends every buffered answer so nothing depends on an earlier
// background flush having succeeded.
func (c *Controller) replay(ctx context.Context, submissionID string, pending []domain.AnswerSubmission) (map[string]domain.AnswerFeedback, error) {
	feedback := make(map[string]domain.AnswerFeedback, len(pending))
	var errs *multierror.Error
	for _, sub := range pending {
		fb, err := submitWithRetry(ctx, c.gateway, submissionID, sub, c.flushRetries)
		if err != nil {
			errs = multierror.Append(errs, errors.Wrapf(err, "question %s", sub.QuestionID))
			continue
		}
		if fb != nil {
			feedback[sub.QuestionID] = *fb
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, errors.Wrap(err, "replaying buffered answers")
	}
	return feedback, nil
}

func (c *Controller) reportAbandon(submissionID string, total int) {
	reporter, ok := c.gateway.(AbandonReporter)
	if !ok {
		return
	}
	c.flush.enqueue(func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.flushTimeout)
		defer cancel()
		if err := reporter.ReportAbandon(ctx, submissionID, total); err != nil {
			c.logger.Printf("quiz %s: abandon telemetry for %s: %v", c.quiz.ID, submissionID, err)
		}
	})
}

func (c *Controller) stopTicking() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func invalidTransition(op string, phase Phase) error {
	return domain.NewFailure(domain.InvalidTransition, errors.Errorf("%s not allowed while %s", op, phase))
}
