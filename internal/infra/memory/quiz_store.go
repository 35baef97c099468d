package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"quizdesk/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizStore, used for demos and tests.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
	results []domain.Result
}

func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[string]domain.Quiz)}
}

// NewQuizStoreWith seeds the store with quizzes keyed by their ID.
func NewQuizStoreWith(quizzes ...domain.Quiz) *QuizStore {
	s := NewQuizStore()
	for _, q := range quizzes {
		s.quizzes[q.ID] = cloneQuiz(q)
	}
	return s
}

func (s *QuizStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) ListQuizzes(_ context.Context) ([]domain.Quiz, error) {
	return s.filter(func(domain.Quiz) bool { return true }), nil
}

func (s *QuizStore) ListQuizzesByOwner(_ context.Context, userID string) ([]domain.Quiz, error) {
	return s.filter(func(q domain.Quiz) bool { return q.CreatedBy == userID }), nil
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz domain.Quiz) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return quiz.ID, nil
}

func (s *QuizStore) UpdateQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quiz.ID]; !ok {
		return domain.ErrQuizNotFound
	}
	s.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (s *QuizStore) DeleteQuiz(_ context.Context, quizID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.quizzes[quizID]; !ok {
		return domain.ErrQuizNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

func (s *QuizStore) AppendResult(_ context.Context, result domain.Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = uuid.NewString()
	result.Answers = append([]*int(nil), result.Answers...)
	s.results = append(s.results, result)
	return result.ID, nil
}

func (s *QuizStore) ListResultsByUser(_ context.Context, userID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Result
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *QuizStore) ListResultsByQuiz(_ context.Context, quizID, userID string) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Result
	for _, r := range s.results {
		if r.QuizID == quizID && r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *QuizStore) filter(keep func(domain.Quiz) bool) []domain.Quiz {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Quiz, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		if keep(q) {
			out = append(out, cloneQuiz(q))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		questions[i] = question
	}
	q.Questions = questions
	return q
}
