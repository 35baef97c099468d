package app

import (
	"strings"

	"quizdesk/internal/domain"
)

const defaultTimeLimit = 10

// ValidateQuiz checks an authoring draft and converts it into quiz fields.
// Nothing reaches the store unless this passes.
func ValidateQuiz(in domain.QuizInput) (domain.Quiz, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Quiz{}, &domain.ValidationError{Question: -1, Field: "title", Reason: "cannot be empty"}
	}
	timeLimit := in.TimeLimit
	if timeLimit == 0 {
		timeLimit = defaultTimeLimit
	}
	if timeLimit < 0 {
		return domain.Quiz{}, &domain.ValidationError{Question: -1, Field: "timeLimit", Reason: "must be positive"}
	}
	if len(in.Questions) == 0 {
		return domain.Quiz{}, &domain.ValidationError{Question: -1, Field: "questions", Reason: "add at least one question"}
	}

	questions := make([]domain.Question, 0, len(in.Questions))
	for i, q := range in.Questions {
		question, err := validateQuestion(i, q)
		if err != nil {
			return domain.Quiz{}, err
		}
		questions = append(questions, question)
	}

	return domain.Quiz{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		TimeLimit:   timeLimit,
		Questions:   questions,
	}, nil
}

func validateQuestion(i int, q domain.QuestionInput) (domain.Question, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return domain.Question{}, &domain.ValidationError{Question: i, Field: "text", Reason: "cannot be empty"}
	}

	kind := q.Type
	if kind == "" {
		kind = domain.QuestionMultiple
	}
	options := q.Options
	switch kind {
	case domain.QuestionMultiple:
	case domain.QuestionTrueFalse:
		options = []string{"True", "False"}
	default:
		return domain.Question{}, &domain.ValidationError{Question: i, Field: "type", Reason: "unsupported question type " + kind}
	}

	if len(options) < 2 {
		return domain.Question{}, &domain.ValidationError{Question: i, Field: "options", Reason: "needs at least two options"}
	}
	trimmed := make([]string, len(options))
	for j, opt := range options {
		trimmed[j] = strings.TrimSpace(opt)
		if trimmed[j] == "" {
			return domain.Question{}, &domain.ValidationError{Question: i, Field: "options", Reason: "has empty options"}
		}
	}

	if q.CorrectAnswer == nil {
		return domain.Question{}, &domain.ValidationError{Question: i, Field: "correctAnswer", Reason: "select the correct answer"}
	}
	if *q.CorrectAnswer < 0 || *q.CorrectAnswer >= len(trimmed) {
		return domain.Question{}, &domain.ValidationError{Question: i, Field: "correctAnswer", Reason: "does not match an option"}
	}

	return domain.Question{
		Text:          text,
		Type:          kind,
		Options:       trimmed,
		CorrectAnswer: *q.CorrectAnswer,
		ImageURL:      strings.TrimSpace(q.ImageURL),
	}, nil
}
