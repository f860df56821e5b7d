package player

import "quiz-player/internal/domain"

// Phase is the controller's position in the attempt lifecycle.
type Phase uint8

const (
	PhaseNotStarted Phase = iota
	PhaseInProgress
	// PhaseAwaitingConfirmation is entered by moving past the last question.
	PhaseAwaitingConfirmation
	PhaseCompleted
	PhaseTimedOut
	PhaseAbandoned
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not-started"
	case PhaseInProgress:
		return "in-progress"
	case PhaseAwaitingConfirmation:
		return "awaiting-confirmation"
	case PhaseCompleted:
		return "completed"
	case PhaseTimedOut:
		return "timed-out"
	case PhaseAbandoned:
		return "abandoned"
	}
	return "unknown"
}

// Terminal reports whether the phase can no longer change.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseTimedOut || p == PhaseAbandoned
}

// active reports whether the attempt is open on the server.
func (p Phase) active() bool {
	return p == PhaseInProgress || p == PhaseAwaitingConfirmation
}

// Reason says why an attempt is being finalized.
type Reason uint8

const (
	ReasonManual Reason = iota
	ReasonTimeout
)

func (r Reason) String() string {
	if r == ReasonTimeout {
		return "timeout"
	}
	return "manual"
}

// HintReveal is the hint currently shown for a question.
type HintReveal struct {
	QuestionID string
	Index      int
	Text       string
}

// Snapshot is a read-only view of the controller, published on every change.
type Snapshot struct {
	Phase            Phase
	QuizID           string
	QuizTitle        string
	SubmissionID     string
	AttemptNumber    int
	Index            int
	Total            int
	Question         domain.Question
	Answer           domain.Answer
	Answered         int
	Hint             *HintReveal
	HintsUsed        int
	HasTimeLimit     bool
	RemainingSeconds int
	ElapsedSeconds   int
	Feedback         *domain.AnswerFeedback
	Result           *domain.CompletionResult
	Err              error
	FlushFailures    int
	InFlight         bool
}

func (c *Controller) snapshotLocked() Snapshot {
	q := c.questions[c.current]
	snap := Snapshot{
		Phase:            c.phase,
		QuizID:           c.quiz.ID,
		QuizTitle:        c.quiz.Title,
		Index:            c.current,
		Total:            len(c.questions),
		Question:         q,
		Answered:         c.buffer.Len(),
		HintsUsed:        c.hintsUsed[q.ID],
		HasTimeLimit:     c.timeLimit > 0,
		RemainingSeconds: c.remaining,
		ElapsedSeconds:   seconds(c.spentLocked() + c.openWindowLocked()),
		Err:              c.lastErr,
		FlushFailures:    c.flushFailures,
		InFlight:         c.inFlight,
	}
	if c.submission != nil {
		snap.SubmissionID = c.submission.ID
		snap.AttemptNumber = c.submission.AttemptNumber
	}
	if a, ok := c.buffer.Get(q.ID); ok {
		snap.Answer = a
	}
	if c.hint != nil {
		h := *c.hint
		snap.Hint = &h
	}
	if fb, ok := c.feedback[q.ID]; ok {
		snap.Feedback = &fb
	}
	if c.result != nil {
		r := *c.result
		snap.Result = &r
	}
	return snap
}

// Snapshot returns the current view.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving a snapshot after every change,
// starting with the current one. Slow readers only lose stale snapshots.
// The caller must invoke the returned cancel function to avoid leaks.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.subscribers[ch]; ok {
			delete(c.subscribers, ch)
			close(ch)
		}
		c.mu.Unlock()
	}
	return ch, cancel
}

func (c *Controller) broadcastLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
