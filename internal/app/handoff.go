package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"quizdesk/internal/domain"
)

const defaultPersistTimeout = 5 * time.Second

// ResultStore durably appends and lists results.
type ResultStore interface {
	AppendResult(ctx context.Context, result domain.Result) (string, error)
	ListResultsByUser(ctx context.Context, userID string) ([]domain.Result, error)
	ListResultsByQuiz(ctx context.Context, quizID, userID string) ([]domain.Result, error)
}

// Outcome is what the results screen receives when an attempt finishes.
// Questions are passed along so the review needs no re-fetch.
type Outcome struct {
	Result       domain.Result     `json:"result"`
	Questions    []domain.Question `json:"questions"`
	Persisted    bool              `json:"persisted"`
	PersistError string            `json:"persistError,omitempty"`
}

// Handoff turns a finished attempt into a Result and hands it to the store.
type Handoff struct {
	results ResultStore
	clock   Clock
	timeout time.Duration
}

func NewHandoff(results ResultStore, clock Clock, timeout time.Duration) *Handoff {
	if clock == nil {
		clock = SystemClock{}
	}
	if timeout <= 0 {
		timeout = defaultPersistTimeout
	}
	return &Handoff{results: results, clock: clock, timeout: timeout}
}

// Build scores the answers and stamps the result with the finish time.
func (h *Handoff) Build(quiz domain.Quiz, source domain.QuizSource, who domain.Identity, answers map[int]int) domain.Result {
	score, total := Score(quiz.Questions, answers)
	return domain.Result{
		QuizID:         quiz.ID,
		QuizTitle:      quiz.Title,
		UserID:         who.ID,
		UserName:       who.Label(),
		Answers:        AnswerSlice(answers, total),
		Score:          score,
		TotalQuestions: total,
		CompletedAt:    h.clock.Now().UTC(),
		IsDefaultQuiz:  source == domain.SourceCatalog,
	}
}

// Deliver appends the result. A failed write is logged and reported on the
// Outcome; the caller still gets the locally computed result.
func (h *Handoff) Deliver(ctx context.Context, result domain.Result, questions []domain.Question) Outcome {
	out := Outcome{Result: result, Questions: questions}
	if h.results == nil {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	id, err := h.results.AppendResult(ctx, result)
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrPersistFailed, err)
		log.Printf("result for quiz %s (user %q): %v", result.QuizID, result.UserID, err)
		out.PersistError = err.Error()
		return out
	}
	out.Result.ID = id
	out.Persisted = true
	return out
}
