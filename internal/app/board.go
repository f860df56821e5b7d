package app

import (
	"sort"
	"sync"
	"time"

	"quiz-player/internal/domain"
)

// Board tracks the live attempts of one quiz and fans snapshots out to watchers.
type Board struct {
	quizID      string
	now         func() time.Time
	mu          sync.RWMutex
	attempts    map[string]*domain.AttemptProgress
	subscribers map[chan domain.Board]struct{}
}

// NewBoard is exported for infrastructure layers that need to seed boards.
func NewBoard(quizID string) *Board {
	return NewBoardWithClock(quizID, time.Now)
}

// NewBoardWithClock allows deterministic timestamps in tests.
func NewBoardWithClock(quizID string, now func() time.Time) *Board {
	return &Board{
		quizID:      quizID,
		now:         now,
		attempts:    make(map[string]*domain.AttemptProgress),
		subscribers: make(map[chan domain.Board]struct{}),
	}
}

// track inserts or refreshes the row of a submission.
func (b *Board) track(sub domain.Submission) domain.Board {
	b.mu.Lock()
	defer b.mu.Unlock()

	row, ok := b.attempts[sub.ID]
	if !ok {
		row = &domain.AttemptProgress{SubmissionID: sub.ID}
		b.attempts[sub.ID] = row
	}
	score := 0
	for _, answer := range sub.Answers {
		score += answer.PointsEarned
	}
	row.LearnerID = sub.LearnerID
	row.AttemptNumber = sub.AttemptNumber
	row.Answered = len(sub.Answers)
	row.Score = score
	row.Status = sub.Status
	row.UpdatedAt = b.now()
	return b.broadcastLocked()
}

func (b *Board) remove(submissionID string) domain.Board {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.attempts, submissionID)
	return b.broadcastLocked()
}

// IsEmpty reports whether the board has neither attempts nor watchers.
func (b *Board) IsEmpty() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.attempts) == 0 && len(b.subscribers) == 0
}

func (b *Board) subscribe() (<-chan domain.Board, func()) {
	ch := make(chan domain.Board, 8)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	initial := b.snapshotLocked()
	b.mu.Unlock()

	ch <- initial

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Board) broadcastLocked() domain.Board {
	snap := b.snapshotLocked()
	for ch := range b.subscribers {
		select {
		case ch <- snap:
		default:
			// slow watcher: replace its oldest pending snapshot
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}

// snapshotLocked orders rows by score, then progress, then who got there first.
func (b *Board) snapshotLocked() domain.Board {
	entries := make([]domain.AttemptProgress, 0, len(b.attempts))
	for _, row := range b.attempts {
		entries = append(entries, *row)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].Answered != entries[j].Answered {
			return entries[i].Answered > entries[j].Answered
		}
		if !entries[i].UpdatedAt.Equal(entries[j].UpdatedAt) {
			return entries[i].UpdatedAt.Before(entries[j].UpdatedAt)
		}
		return entries[i].SubmissionID < entries[j].SubmissionID
	})
	return domain.Board{
		QuizID:    b.quizID,
		Entries:   entries,
		UpdatedAt: b.now(),
	}
}
