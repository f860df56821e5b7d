package app

import (
	"math"
	"strings"

	"quiz-player/internal/domain"
)

// scoreAnswer validates the answer against quiz content and returns (correct, points).
func scoreAnswer(quiz domain.Quiz, questionID string, answer domain.Answer) (bool, int, error) {
	question, ok := quiz.Question(questionID)
	if !ok {
		return false, 0, domain.ErrQuestionNotFound
	}
	if !answer.Fits(question.Kind) {
		return false, 0, domain.ErrAnswerMismatch
	}

	var correct bool
	if question.Kind.IsChoice() {
		selected := answer.Options()
		for _, id := range selected {
			if !question.HasOption(id) {
				return false, 0, domain.ErrOptionNotFound
			}
		}
		correct = sameOptions(selected, correctOptions(question))
	} else {
		text, _ := answer.Text()
		correct = acceptsText(question, text)
	}

	if correct {
		return true, question.PointValue(), nil
	}
	return false, 0, nil
}

func correctOptions(q domain.Question) []string {
	var out []string
	for _, opt := range q.Options {
		if opt.Correct {
			out = append(out, opt.ID)
		}
	}
	return out
}

// sameOptions compares as sets. An empty key never matches.
func sameOptions(selected, key []string) bool {
	if len(key) == 0 || len(selected) != len(key) {
		return false
	}
	want := make(map[string]struct{}, len(key))
	for _, id := range key {
		want[id] = struct{}{}
	}
	for _, id := range selected {
		if _, ok := want[id]; !ok {
			return false
		}
	}
	return true
}

func acceptsText(q domain.Question, text string) bool {
	got := normalize(text)
	if got == "" {
		return false
	}
	for _, accepted := range q.AcceptedAnswers {
		if normalize(accepted) == got {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// grade totals a submission against the quiz's point scale.
func grade(quiz domain.Quiz, sub domain.Submission) domain.CompletionResult {
	total := quiz.MaxPoints()
	score := 0
	for _, answer := range sub.Answers {
		score += answer.PointsEarned
	}
	percentage := 0.0
	if total > 0 {
		percentage = math.Round(float64(score)*1000/float64(total)) / 10
	}
	return domain.CompletionResult{
		Score:       score,
		Percentage:  percentage,
		TotalPoints: total,
		Passed:      percentage >= quiz.Settings.PassingScore,
	}
}
