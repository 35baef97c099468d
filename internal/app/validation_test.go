package app_test

import (
	"errors"
	"testing"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

func intPtr(v int) *int { return &v }

func validInput() domain.QuizInput {
	return domain.QuizInput{
		Title: "  Capitals ",
		Questions: []domain.QuestionInput{
			{Text: "Capital of Italy?", Type: domain.QuestionMultiple, Options: []string{" Rome", "Milan "}, CorrectAnswer: intPtr(0)},
			{Text: "Paris is in France.", Type: domain.QuestionTrueFalse, CorrectAnswer: intPtr(0)},
		},
	}
}

func TestValidateQuizNormalizes(t *testing.T) {
	quiz, err := app.ValidateQuiz(validInput())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if quiz.Title != "Capitals" || quiz.TimeLimit != 10 {
		t.Fatalf("expected trimmed title and default time limit, got %q %d", quiz.Title, quiz.TimeLimit)
	}
	if quiz.Questions[0].Options[0] != "Rome" || quiz.Questions[0].Options[1] != "Milan" {
		t.Fatalf("expected trimmed options, got %v", quiz.Questions[0].Options)
	}
	if got := quiz.Questions[1].Options; len(got) != 2 || got[0] != "True" || got[1] != "False" {
		t.Fatalf("expected true/false options, got %v", got)
	}
}

func TestValidateQuizRejects(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*domain.QuizInput)
		question int
		field    string
	}{
		{"empty title", func(in *domain.QuizInput) { in.Title = " " }, -1, "title"},
		{"negative time limit", func(in *domain.QuizInput) { in.TimeLimit = -5 }, -1, "timeLimit"},
		{"no questions", func(in *domain.QuizInput) { in.Questions = nil }, -1, "questions"},
		{"empty question text", func(in *domain.QuizInput) { in.Questions[1].Text = "" }, 1, "text"},
		{"unknown type", func(in *domain.QuizInput) { in.Questions[0].Type = "essay" }, 0, "type"},
		{"single option", func(in *domain.QuizInput) { in.Questions[0].Options = []string{"Rome"} }, 0, "options"},
		{"blank option", func(in *domain.QuizInput) { in.Questions[0].Options = []string{"Rome", "  "} }, 0, "options"},
		{"missing correct answer", func(in *domain.QuizInput) { in.Questions[0].CorrectAnswer = nil }, 0, "correctAnswer"},
		{"correct answer out of range", func(in *domain.QuizInput) { in.Questions[1].CorrectAnswer = intPtr(2) }, 1, "correctAnswer"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			_, err := app.ValidateQuiz(in)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			var verr *domain.ValidationError
			if !errors.As(err, &verr) || verr.Question != tc.question || verr.Field != tc.field {
				t.Fatalf("expected question %d field %s, got %+v", tc.question, tc.field, verr)
			}
		})
	}
}
