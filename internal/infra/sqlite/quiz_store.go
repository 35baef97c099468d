package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"quizdesk/internal/domain"
)

// QuizStore is a single-file store for local runs without Postgres.
type QuizStore struct {
	db *sql.DB
}

func NewQuizStore(path string) (*QuizStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "quizdesk.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &QuizStore{db: db}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *QuizStore) Close() error {
	return s.db.Close()
}

func (s *QuizStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS quizzes (
			id TEXT PRIMARY KEY,
			created_by TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at_unix INTEGER NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS results (
			id TEXT PRIMARY KEY,
			quiz_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			data TEXT NOT NULL,
			completed_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_quizzes_created_by ON quizzes(created_by);`,
		`CREATE INDEX IF NOT EXISTS idx_results_user ON results(user_id, completed_at_unix);`,
		`CREATE INDEX IF NOT EXISTS idx_results_quiz_user ON results(quiz_id, user_id);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *QuizStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM quizzes WHERE id = ?`, quizID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return decodeQuiz(quizID, raw)
}

func (s *QuizStore) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.queryQuizzes(ctx, `SELECT id, data FROM quizzes ORDER BY created_at_unix DESC`)
}

func (s *QuizStore) ListQuizzesByOwner(ctx context.Context, userID string) ([]domain.Quiz, error) {
	return s.queryQuizzes(ctx,
		`SELECT id, data FROM quizzes WHERE created_by = ? ORDER BY created_at_unix DESC`, userID)
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) (string, error) {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return "", fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO quizzes (id, created_by, data, created_at_unix, updated_at_unix) VALUES (?, ?, ?, ?, ?)`,
		quiz.ID, quiz.CreatedBy, string(data), quiz.CreatedAt.UnixNano(), quiz.UpdatedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert quiz: %w", err)
	}
	return quiz.ID, nil
}

func (s *QuizStore) UpdateQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE quizzes SET data = ?, updated_at_unix = ? WHERE id = ?`,
		string(data), quiz.UpdatedAt.UnixNano(), quiz.ID)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	return requireRow(res)
}

func (s *QuizStore) DeleteQuiz(ctx context.Context, quizID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = ?`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return requireRow(res)
}

func (s *QuizStore) AppendResult(ctx context.Context, result domain.Result) (string, error) {
	result.ID = uuid.NewString()
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO results (id, quiz_id, user_id, data, completed_at_unix) VALUES (?, ?, ?, ?, ?)`,
		result.ID, result.QuizID, result.UserID, string(data), result.CompletedAt.UnixNano())
	if err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}
	return result.ID, nil
}

func (s *QuizStore) ListResultsByUser(ctx context.Context, userID string) ([]domain.Result, error) {
	return s.queryResults(ctx,
		`SELECT id, data FROM results WHERE user_id = ? ORDER BY completed_at_unix DESC`, userID)
}

func (s *QuizStore) ListResultsByQuiz(ctx context.Context, quizID, userID string) ([]domain.Result, error) {
	return s.queryResults(ctx,
		`SELECT id, data FROM results WHERE quiz_id = ? AND user_id = ? ORDER BY completed_at_unix DESC`,
		quizID, userID)
}

func (s *QuizStore) queryQuizzes(ctx context.Context, query string, args ...any) ([]domain.Quiz, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quiz, err := decodeQuiz(id, raw)
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}

func (s *QuizStore) queryResults(ctx context.Context, query string, args ...any) ([]domain.Result, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.Result
		if err := json.Unmarshal([]byte(raw), &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		result.ID = id
		results = append(results, result)
	}
	return results, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func decodeQuiz(id, raw string) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal([]byte(raw), &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.ID = id
	return quiz, nil
}
