package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quizdesk/internal/domain"
)

// QuizStore keeps quizzes and results as JSONB documents in Postgres.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return decodeQuiz(quizID, raw)
}

func (s *QuizStore) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	return s.queryQuizzes(ctx, `SELECT id, data FROM quizzes ORDER BY created_at DESC`)
}

func (s *QuizStore) ListQuizzesByOwner(ctx context.Context, userID string) ([]domain.Quiz, error) {
	return s.queryQuizzes(ctx, `SELECT id, data FROM quizzes WHERE created_by=$1 ORDER BY created_at DESC`, userID)
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz domain.Quiz) (string, error) {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	data, err := json.Marshal(quiz)
	if err != nil {
		return "", fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, created_by, data, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		quiz.ID, quiz.CreatedBy, string(data), quiz.CreatedAt, quiz.UpdatedAt)
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
	tag, err := s.pool.Exec(ctx,
		`UPDATE quizzes SET data=$2, updated_at=$3 WHERE id=$1`,
		quiz.ID, string(data), quiz.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) DeleteQuiz(ctx context.Context, quizID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quizzes WHERE id=$1`, quizID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

func (s *QuizStore) AppendResult(ctx context.Context, result domain.Result) (string, error) {
	result.ID = uuid.NewString()
	data, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO results (id, quiz_id, user_id, data, completed_at) VALUES ($1, $2, $3, $4, $5)`,
		result.ID, result.QuizID, result.UserID, string(data), result.CompletedAt)
	if err != nil {
		return "", fmt.Errorf("insert result: %w", err)
	}
	return result.ID, nil
}

func (s *QuizStore) ListResultsByUser(ctx context.Context, userID string) ([]domain.Result, error) {
	return s.queryResults(ctx, `SELECT id, data FROM results WHERE user_id=$1 ORDER BY completed_at DESC`, userID)
}

func (s *QuizStore) ListResultsByQuiz(ctx context.Context, quizID, userID string) ([]domain.Result, error) {
	return s.queryResults(ctx,
		`SELECT id, data FROM results WHERE quiz_id=$1 AND user_id=$2 ORDER BY completed_at DESC`,
		quizID, userID)
}

func (s *QuizStore) queryQuizzes(ctx context.Context, sql string, args ...interface{}) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []domain.Quiz
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
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

func (s *QuizStore) queryResults(ctx context.Context, sql string, args ...interface{}) ([]domain.Result, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var result domain.Result
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal result: %w", err)
		}
		result.ID = id
		results = append(results, result)
	}
	return results, rows.Err()
}

func decodeQuiz(id string, raw []byte) (domain.Quiz, error) {
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.ID = id
	return quiz, nil
}
