package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrResultNotFound is returned when the user has no result for a quiz.
	ErrResultNotFound = errors.New("result not found")
	// ErrFetchFailed wraps transient backend errors while loading a quiz.
	ErrFetchFailed = errors.New("failed to load quiz")
	// ErrPersistFailed wraps result write failures.
	ErrPersistFailed = errors.New("failed to save result")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidQuiz means a stored quiz breaks the question/answer invariants.
	ErrInvalidQuiz = errors.New("quiz definition is invalid")
	// ErrUnauthenticated is returned when an operation needs a signed-in user.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrForbidden is returned when the caller does not own the resource.
	ErrForbidden = errors.New("forbidden")

	// ErrAttemptNotFound is returned for unknown attempt ids.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrNoAttempt means the controller holds no running attempt.
	ErrNoAttempt = errors.New("no attempt in progress")
	// ErrAttemptFinished rejects input after the attempt is over.
	ErrAttemptFinished = errors.New("attempt already finished")
	// ErrNotInProgress rejects input while feedback is displayed.
	ErrNotInProgress = errors.New("attempt is not accepting answers")
	// ErrNoSelection rejects confirming without a selected option.
	ErrNoSelection = errors.New("no option selected")
	// ErrOptionOutOfRange indicates a selected option index is invalid.
	ErrOptionOutOfRange = errors.New("option out of range")
)

// ValidationError reports an authoring problem. Question is -1 for quiz-level fields.
type ValidationError struct {
	Question int
	Field    string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.Question < 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("question %d %s: %s", e.Question+1, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
