package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"quizdesk/internal/domain"
	"quizdesk/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{QuizLoader: memory.NewQuizStoreWith(sampleQuiz())}
	repo := NewQuizRepository(client, loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected quiz cached under quiz:quiz-1")
	}

	// Second call should hit cache, loader not incremented.
	cached, _ := repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Title != quiz.Title || cached.Questions[0].CorrectAnswer != 1 {
		t.Fatalf("expected cached quiz to round-trip, got %+v", cached)
	}
}

func TestQuizRepositoryInvalidateDropsKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{QuizLoader: memory.NewQuizStoreWith(sampleQuiz())}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	repo.Invalidate(context.Background(), "quiz-1")
	if mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected key removed")
	}
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after invalidate, got %d", loader.calls)
	}
}

func TestQuizRepositoryPassesNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuizRepository(newClient(mr), memory.NewQuizStore(), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "nope"); err != domain.ErrQuizNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.GetQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:        "quiz-1",
		Title:     "Arithmetic",
		TimeLimit: 5,
		Questions: []domain.Question{
			{Text: "What is 2 + 2?", Options: []string{"3", "4"}, CorrectAnswer: 1},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func TestQuizRepositoryInvalidateDuringLoad(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := memory.NewQuizStoreWith(sampleQuiz())
	loader := &gatedLoader{QuizLoader: store, entered: make(chan struct{}), release: make(chan struct{})}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	loaded := make(chan domain.Quiz)
	go func() {
		quiz, _ := repo.GetQuiz(ctx, "quiz-1")
		loaded <- quiz
	}()
	<-loader.entered

	edited := sampleQuiz()
	edited.Title = "Edited"
	if err := store.UpdateQuiz(ctx, edited); err != nil {
		t.Fatalf("update: %v", err)
	}
	repo.Invalidate(ctx, "quiz-1")
	close(loader.release)

	if stale := <-loaded; stale.Title != "Arithmetic" {
		t.Fatalf("expected the in-flight load to return what it read, got %q", stale.Title)
	}
	if mr.Exists("quiz:quiz-1") {
		t.Fatalf("expected the superseded load not to be cached")
	}
	quiz, err := repo.GetQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Title != "Edited" {
		t.Fatalf("expected edited quiz after invalidate, got %q", quiz.Title)
	}
}

// gatedLoader blocks its first load after reading, until release is closed.
type gatedLoader struct {
	QuizLoader
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (l *gatedLoader) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := l.QuizLoader.GetQuiz(ctx, quizID)
	first := false
	l.once.Do(func() { first = true })
	if first {
		close(l.entered)
		<-l.release
	}
	return quiz, err
}
