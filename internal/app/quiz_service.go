package app

import (
	"context"
	"crypto/subtle"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"quizdesk/internal/domain"
)

// QuizStore persists authored quizzes and their results (Postgres, SQLite, in-memory).
type QuizStore interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	ListQuizzesByOwner(ctx context.Context, userID string) ([]domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (string, error)
	UpdateQuiz(ctx context.Context, quiz domain.Quiz) error
	DeleteQuiz(ctx context.Context, quizID string) error
	ResultStore
}

// QuizRepository loads quiz content when an attempt begins (usually a cache over QuizStore).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	Invalidate(ctx context.Context, quizID string)
}

// Catalog resolves bundled quizzes without I/O.
type Catalog interface {
	Resolve(typeID string) domain.Quiz
	Types() []domain.QuizType
}

// AttemptRegistry abstracts where live attempts are tracked (in-memory, Redis, etc).
type AttemptRegistry interface {
	Put(c *Controller)
	Get(attemptID string) (*Controller, bool)
	Delete(attemptID string)
	// CloseAll tears down and forgets every tracked attempt.
	CloseAll()
}

// DefaultAttemptRetention is how long a finished attempt stays reachable for its review.
const DefaultAttemptRetention = 10 * time.Minute

// QuizService contains the quiz use cases.
type QuizService struct {
	store    QuizStore
	quizzes  QuizRepository
	catalog  Catalog
	attempts AttemptRegistry
	handoff  *Handoff
	clock     Clock
	retention time.Duration
	newID     func() string
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithClock swaps the clock driving attempt timers and timestamps.
func WithClock(clock Clock) Option {
	return func(s *QuizService) { s.clock = clock }
}

// WithAttemptRetention sets how long finished attempts stay registered.
func WithAttemptRetention(d time.Duration) Option {
	return func(s *QuizService) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithHandoff replaces the default result handoff.
func WithHandoff(h *Handoff) Option {
	return func(s *QuizService) { s.handoff = h }
}

func NewQuizService(store QuizStore, quizzes QuizRepository, catalog Catalog, attempts AttemptRegistry, opts ...Option) *QuizService {
	s := &QuizService{
		store:    store,
		quizzes:  quizzes,
		catalog:  catalog,
		attempts: attempts,
		clock:     SystemClock{},
		retention: DefaultAttemptRetention,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.handoff == nil {
		s.handoff = NewHandoff(store, s.clock, 0)
	}
	return s
}

// CreateQuiz validates and stores a new quiz owned by the caller.
func (s *QuizService) CreateQuiz(ctx context.Context, who domain.Identity, in domain.QuizInput) (string, error) {
	if who.IsZero() {
		return "", domain.ErrUnauthenticated
	}
	quiz, err := ValidateQuiz(in)
	if err != nil {
		return "", err
	}
	now := s.clock.Now().UTC()
	quiz.CreatedBy = who.ID
	quiz.CreatedAt = now
	quiz.UpdatedAt = now
	return s.store.CreateQuiz(ctx, quiz)
}

// UpdateQuiz replaces the editable fields of a quiz the caller owns.
func (s *QuizService) UpdateQuiz(ctx context.Context, who domain.Identity, quizID string, in domain.QuizInput) error {
	existing, err := s.ownedQuiz(ctx, who, quizID)
	if err != nil {
		return err
	}
	quiz, err := ValidateQuiz(in)
	if err != nil {
		return err
	}
	quiz.ID = existing.ID
	quiz.CreatedBy = existing.CreatedBy
	quiz.CreatedAt = existing.CreatedAt
	quiz.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.UpdateQuiz(ctx, quiz); err != nil {
		return err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return nil
}

// DeleteQuiz removes a quiz the caller owns.
func (s *QuizService) DeleteQuiz(ctx context.Context, who domain.Identity, quizID string) error {
	if _, err := s.ownedQuiz(ctx, who, quizID); err != nil {
		return err
	}
	if err := s.store.DeleteQuiz(ctx, quizID); err != nil {
		return err
	}
	s.quizzes.Invalidate(ctx, quizID)
	return nil
}

func (s *QuizService) ownedQuiz(ctx context.Context, who domain.Identity, quizID string) (domain.Quiz, error) {
	if who.IsZero() {
		return domain.Quiz{}, domain.ErrUnauthenticated
	}
	quiz, err := s.store.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.CreatedBy != who.ID {
		return domain.Quiz{}, domain.ErrForbidden
	}
	return quiz, nil
}

// GetQuiz returns a stored quiz through the cache.
func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// ListQuizzes returns every stored quiz.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

// SearchQuizzes returns stored quizzes whose title or description contains term,
// ignoring case. An empty term matches every quiz.
func (s *QuizService) SearchQuizzes(ctx context.Context, term string) ([]domain.Quiz, error) {
	quizzes, err := s.store.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return quizzes, nil
	}
	matched := make([]domain.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if strings.Contains(strings.ToLower(q.Title), term) || strings.Contains(strings.ToLower(q.Description), term) {
			matched = append(matched, q)
		}
	}
	return matched, nil
}

// ListOwnQuizzes returns the quizzes the caller authored.
func (s *QuizService) ListOwnQuizzes(ctx context.Context, who domain.Identity) ([]domain.Quiz, error) {
	if who.IsZero() {
		return nil, domain.ErrUnauthenticated
	}
	return s.store.ListQuizzesByOwner(ctx, who.ID)
}

// QuizTypes lists the bundled quizzes.
func (s *QuizService) QuizTypes() []domain.QuizType {
	return s.catalog.Types()
}

// StartAttempt loads the quiz and, on success, registers a running attempt.
// A failed load returns the controller in StatusFailed (so the caller can Retry) and the error;
// it is not registered and no result is ever produced for it.
// Anonymous attempts get a Key that later lookups must present.
// Once finished, an attempt stays registered for the retention window and is then evicted.
func (s *QuizService) StartAttempt(ctx context.Context, who domain.Identity, source domain.QuizSource, quizID string) (*Controller, error) {
	c := NewController(s.newID(), who, ControllerDeps{
		Quizzes:    s.quizzes,
		Catalog:    s.catalog,
		Handoff:    s.handoff,
		Clock:      s.clock,
		OnFinished: s.evictLater,
	})
	if who.IsZero() {
		c.key = s.newID()
	}
	if err := c.Load(ctx, source, quizID); err != nil {
		return c, err
	}
	s.attempts.Put(c)
	return c, nil
}

// RetryAttempt reloads a controller whose start failed and registers it once it runs.
func (s *QuizService) RetryAttempt(ctx context.Context, c *Controller) error {
	if err := c.Retry(ctx); err != nil {
		return err
	}
	if c.Status() == StatusInProgress {
		s.attempts.Put(c)
	}
	return nil
}

// Attempt looks up a live attempt owned by the caller. Anonymous callers
// must also present the attempt key handed out when it started.
func (s *QuizService) Attempt(who domain.Identity, attemptID, key string) (*Controller, error) {
	c, ok := s.attempts.Get(attemptID)
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	if c.Identity().ID != who.ID {
		return nil, domain.ErrForbidden
	}
	if c.key != "" && subtle.ConstantTimeCompare([]byte(c.key), []byte(key)) != 1 {
		return nil, domain.ErrForbidden
	}
	return c, nil
}

// EndAttempt tears an attempt down and forgets it.
func (s *QuizService) EndAttempt(who domain.Identity, attemptID, key string) error {
	c, err := s.Attempt(who, attemptID, key)
	if err != nil {
		return err
	}
	c.Close()
	s.attempts.Delete(attemptID)
	return nil
}

// CloseAttempts stops every live attempt. Timers stop firing, so nothing
// is persisted after the stores are closed.
func (s *QuizService) CloseAttempts() {
	s.attempts.CloseAll()
}

func (s *QuizService) evictLater(c *Controller) {
	s.clock.AfterFunc(s.retention, func() {
		if current, ok := s.attempts.Get(c.ID()); !ok || current != c {
			return
		}
		if c.Status() != StatusFinished {
			return
		}
		c.Close()
		s.attempts.Delete(c.ID())
	})
}

// Results lists the caller's results, newest first.
func (s *QuizService) Results(ctx context.Context, who domain.Identity) ([]domain.Result, error) {
	if who.IsZero() {
		return nil, domain.ErrUnauthenticated
	}
	results, err := s.store.ListResultsByUser(ctx, who.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CompletedAt.After(results[j].CompletedAt)
	})
	return results, nil
}

// LatestReview rebuilds the results screen from storage when the handed-off outcome is gone.
func (s *QuizService) LatestReview(ctx context.Context, who domain.Identity, source domain.QuizSource, quizID string) (domain.Review, error) {
	if who.IsZero() {
		return domain.Review{}, domain.ErrUnauthenticated
	}

	var questions []domain.Question
	if source == domain.SourceCatalog {
		questions = s.catalog.Resolve(quizID).Questions
	} else {
		quiz, err := s.quizzes.GetQuiz(ctx, quizID)
		if err != nil {
			return domain.Review{}, err
		}
		questions = quiz.Questions
	}

	results, err := s.store.ListResultsByQuiz(ctx, quizID, who.ID)
	if err != nil {
		return domain.Review{}, err
	}
	if len(results) == 0 {
		return domain.Review{}, domain.ErrResultNotFound
	}
	latest := results[0]
	for _, r := range results[1:] {
		if r.CompletedAt.After(latest.CompletedAt) {
			latest = r
		}
	}
	return BuildReview(latest, questions), nil
}

// Dashboard gathers the caller's quizzes, results and the bundled quiz list.
func (s *QuizService) Dashboard(ctx context.Context, who domain.Identity) (domain.Dashboard, error) {
	if who.IsZero() {
		return domain.Dashboard{}, domain.ErrUnauthenticated
	}
	quizzes, err := s.store.ListQuizzesByOwner(ctx, who.ID)
	if err != nil {
		return domain.Dashboard{}, err
	}
	results, err := s.store.ListResultsByUser(ctx, who.ID)
	if err != nil {
		return domain.Dashboard{}, err
	}
	return Summarize(quizzes, results, s.catalog.Types()), nil
}
