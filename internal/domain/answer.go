package domain

import "strings"

// AnswerShape discriminates the Answer union.
type AnswerShape uint8

const (
	// ShapeNone is the zero Answer: nothing given yet.
	ShapeNone AnswerShape = iota
	ShapeChoice
	ShapeText
)

// Answer is a learner's raw answer. It holds either a set of option
// identifiers or free text, never both. The zero value means "no answer",
// which is distinct from TextAnswer("").
type Answer struct {
	shape   AnswerShape
	options []string
	text    string
}

// ChoiceAnswer builds an answer selecting the given options. Duplicates are dropped.
func ChoiceAnswer(optionIDs ...string) Answer {
	seen := make(map[string]struct{}, len(optionIDs))
	opts := make([]string, 0, len(optionIDs))
	for _, id := range optionIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		opts = append(opts, id)
	}
	return Answer{shape: ShapeChoice, options: opts}
}

// TextAnswer builds a free-text answer.
func TextAnswer(text string) Answer {
	return Answer{shape: ShapeText, text: text}
}

func (a Answer) Shape() AnswerShape { return a.shape }

// IsZero reports whether no answer is present.
func (a Answer) IsZero() bool { return a.shape == ShapeNone }

// Options returns a copy of the selected option ids.
func (a Answer) Options() []string {
	if a.shape != ShapeChoice {
		return nil
	}
	out := make([]string, len(a.options))
	copy(out, a.options)
	return out
}

// Text returns the free-text value and whether the answer is textual.
func (a Answer) Text() (string, bool) {
	return a.text, a.shape == ShapeText
}

// Fits reports whether the answer variant matches the question kind.
func (a Answer) Fits(kind QuestionKind) bool {
	switch a.shape {
	case ShapeChoice:
		return kind.IsChoice()
	case ShapeText:
		return kind == KindFillBlank || kind == KindShortAnswer
	}
	return false
}

// Toggle returns a copy with optionID added or removed. Used for
// multi-select questions.
func (a Answer) Toggle(optionID string) Answer {
	opts := a.Options()
	for i, id := range opts {
		if id == optionID {
			return ChoiceAnswer(append(opts[:i], opts[i+1:]...)...)
		}
	}
	return ChoiceAnswer(append(opts, optionID)...)
}

// Selected reports whether optionID is part of a choice answer.
func (a Answer) Selected(optionID string) bool {
	for _, id := range a.options {
		if id == optionID {
			return true
		}
	}
	return false
}

func (a Answer) String() string {
	switch a.shape {
	case ShapeChoice:
		return "[" + strings.Join(a.options, ",") + "]"
	case ShapeText:
		return "\"" + a.text + "\""
	}
	return "<none>"
}
