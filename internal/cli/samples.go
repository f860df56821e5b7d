package cli

import "quiz-player/internal/domain"

// sampleQuizzes backs the service when no database is configured and is
// what `migrate --seed` stores.
func sampleQuizzes() []domain.Quiz {
	return []domain.Quiz{
		{
			ID:           "geo-basics",
			Title:        "Geography basics",
			Description:  "Capitals, continents and rivers.",
			Instructions: "Answer every question before the timer runs out.",
			Difficulty:   "easy",
			Settings: domain.Settings{
				TimeLimitMinutes:       5,
				ShowResultsImmediately: true,
				ShowExplanations:       true,
				AllowRetake:            true,
				MaxAttempts:            3,
				PassingScore:           60,
			},
			Questions: []domain.Question{
				{
					ID:     "geo-1",
					Kind:   domain.KindMultipleChoice,
					Prompt: "What is the capital of Australia?",
					Options: []domain.Option{
						{ID: "geo-1-a", Text: "Sydney"},
						{ID: "geo-1-b", Text: "Canberra", Correct: true},
						{ID: "geo-1-c", Text: "Melbourne"},
					},
					Points:      1,
					Hints:       []string{"It was purpose-built as a capital.", "It is not on the coast."},
					Explanation: "Canberra was chosen as a compromise between Sydney and Melbourne.",
				},
				{
					ID:     "geo-2",
					Kind:   domain.KindMultipleChoice,
					Prompt: "Which of these countries are in South America?",
					Options: []domain.Option{
						{ID: "geo-2-a", Text: "Peru", Correct: true},
						{ID: "geo-2-b", Text: "Portugal"},
						{ID: "geo-2-c", Text: "Chile", Correct: true},
						{ID: "geo-2-d", Text: "Kenya"},
					},
					AllowMultiple: true,
					Points:        2,
					Hints:         []string{"Two of them border the Pacific."},
				},
				{
					ID:     "geo-3",
					Kind:   domain.KindTrueFalse,
					Prompt: "The Nile flows north.",
					Options: []domain.Option{
						{ID: "geo-3-t", Text: "True", Correct: true},
						{ID: "geo-3-f", Text: "False"},
					},
					Points:      1,
					Explanation: "It flows from East Africa north into the Mediterranean.",
				},
				{
					ID:              "geo-4",
					Kind:            domain.KindFillBlank,
					Prompt:          "Mount Everest lies on the border of China and ____.",
					AcceptedAnswers: []string{"Nepal"},
					Points:          1,
					Hints:           []string{"Its capital is Kathmandu."},
				},
			},
		},
		{
			ID:          "go-concurrency",
			Title:       "Go concurrency",
			Description: "Goroutines, channels and the sync package.",
			Difficulty:  "medium",
			Settings: domain.Settings{
				ShuffleOptions: true,
				PassingScore:   70,
			},
			Questions: []domain.Question{
				{
					ID:     "go-1",
					Kind:   domain.KindMultipleChoice,
					Prompt: "What happens when you send on a closed channel?",
					Options: []domain.Option{
						{ID: "go-1-a", Text: "The send blocks forever"},
						{ID: "go-1-b", Text: "The program panics", Correct: true},
						{ID: "go-1-c", Text: "The value is dropped"},
					},
					Points: 2,
				},
				{
					ID:     "go-2",
					Kind:   domain.KindTrueFalse,
					Prompt: "A sync.Mutex may be copied after first use.",
					Options: []domain.Option{
						{ID: "go-2-t", Text: "True"},
						{ID: "go-2-f", Text: "False", Correct: true},
					},
					Points: 1,
				},
				{
					ID:              "go-3",
					Kind:            domain.KindShortAnswer,
					Prompt:          "Which package provides errgroup?",
					AcceptedAnswers: []string{"golang.org/x/sync/errgroup", "x/sync/errgroup", "errgroup"},
					Points:          2,
					Hints:           []string{"It lives outside the standard library.", "golang.org/x/..."},
				},
			},
		},
	}
}

func quizIndex(quizzes []domain.Quiz) map[string]domain.Quiz {
	out := make(map[string]domain.Quiz, len(quizzes))
	for _, quiz := range quizzes {
		out[quiz.ID] = quiz
	}
	return out
}
