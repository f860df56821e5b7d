package domain

import "github.com/pkg/errors"

// Validate checks that the quiz carries what a player needs to render and
// answer every question. Any defect is reported as MissingQuestionData.
func (q Quiz) Validate() error {
	if len(q.Questions) == 0 {
		return NewFailure(MissingQuestionData, errors.Errorf("quiz %q has no questions", q.ID))
	}
	seen := make(map[string]struct{}, len(q.Questions))
	for i, question := range q.Questions {
		switch {
		case question.ID == "":
			return NewFailure(MissingQuestionData, errors.Errorf("question #%d has no id", i+1))
		case question.Prompt == "":
			return NewFailure(MissingQuestionData, errors.Errorf("question %q has no prompt", question.ID))
		case !question.Kind.Valid():
			return NewFailure(MissingQuestionData, errors.Errorf("question %q has unknown type %q", question.ID, question.Kind))
		case question.Kind.IsChoice() && len(question.Options) == 0:
			return NewFailure(MissingQuestionData, errors.Errorf("question %q has no options", question.ID))
		}
		if _, dup := seen[question.ID]; dup {
			return NewFailure(MissingQuestionData, errors.Errorf("duplicate question id %q", question.ID))
		}
		seen[question.ID] = struct{}{}
	}
	return nil
}
