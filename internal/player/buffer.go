package player

import "quiz-player/internal/domain"

// AnswerBuffer is the optimistic, client-local store of in-progress answers.
// It never talks to the gateway; the controller flushes it one way.
type AnswerBuffer struct {
	answers map[string]domain.Answer
}

func NewAnswerBuffer() *AnswerBuffer {
	return &AnswerBuffer{answers: make(map[string]domain.Answer)}
}

// Set stores value for questionID, overwriting any previous value.
// Setting the zero Answer removes the entry.
func (b *AnswerBuffer) Set(questionID string, value domain.Answer) {
	if value.IsZero() {
		delete(b.answers, questionID)
		return
	}
	b.answers[questionID] = value
}

func (b *AnswerBuffer) Get(questionID string) (domain.Answer, bool) {
	a, ok := b.answers[questionID]
	return a, ok
}

func (b *AnswerBuffer) Has(questionID string) bool {
	_, ok := b.answers[questionID]
	return ok
}

func (b *AnswerBuffer) Len() int { return len(b.answers) }

// Reset discards every buffered answer.
func (b *AnswerBuffer) Reset() {
	b.answers = make(map[string]domain.Answer)
}

type bufferedAnswer struct {
	questionID string
	answer     domain.Answer
}

// entries lists the buffered answers following order, skipping unanswered ids.
func (b *AnswerBuffer) entries(order []string) []bufferedAnswer {
	out := make([]bufferedAnswer, 0, len(b.answers))
	for _, id := range order {
		if a, ok := b.answers[id]; ok {
			out = append(out, bufferedAnswer{questionID: id, answer: a})
		}
	}
	return out
}
