package domain

import (
	"math"
	"time"
)

// QuizSource tells where a quiz definition comes from.
type QuizSource string

const (
	// SourceStore quizzes are user-authored and live in the quiz store.
	SourceStore QuizSource = "store"
	// SourceCatalog quizzes are bundled with the service and need no fetch.
	SourceCatalog QuizSource = "catalog"
)

// Question types accepted by the authoring surface.
const (
	QuestionMultiple  = "multiple"
	QuestionTrueFalse = "truefalse"
)

// AnonymousName labels results produced without a known display name.
const AnonymousName = "Anonymous"

// Identity is the caller as reported by the identity provider.
// The zero value means unauthenticated.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// IsZero reports whether no user is attached.
func (i Identity) IsZero() bool {
	return i.ID == ""
}

// Label is the name written on results.
func (i Identity) Label() string {
	if i.DisplayName == "" {
		return AnonymousName
	}
	return i.DisplayName
}

// Question models an MCQ question; CorrectAnswer indexes Options.
type Question struct {
	Text          string   `json:"text"`
	Type          string   `json:"type,omitempty"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	ImageURL      string   `json:"imageUrl,omitempty"`
}

// Quiz is an ordered collection of questions taken under a time limit.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	TimeLimit   int        `json:"timeLimit"` // minutes
	Questions   []Question `json:"questions"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	Category    string     `json:"category,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// PublicQuestion is a question as shown to someone who may take the quiz.
type PublicQuestion struct {
	Text     string   `json:"text"`
	Type     string   `json:"type,omitempty"`
	Options  []string `json:"options"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// PublicQuiz is a Quiz without its answer keys.
type PublicQuiz struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	TimeLimit   int              `json:"timeLimit"`
	Questions   []PublicQuestion `json:"questions"`
	CreatedBy   string           `json:"createdBy,omitempty"`
	Category    string           `json:"category,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Public strips the answer keys from q.
func (q Quiz) Public() PublicQuiz {
	questions := make([]PublicQuestion, len(q.Questions))
	for i, question := range q.Questions {
		questions[i] = PublicQuestion{
			Text:     question.Text,
			Type:     question.Type,
			Options:  question.Options,
			ImageURL: question.ImageURL,
		}
	}
	return PublicQuiz{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		TimeLimit:   q.TimeLimit,
		Questions:   questions,
		CreatedBy:   q.CreatedBy,
		Category:    q.Category,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

// QuestionInput is an authoring draft; CorrectAnswer may still be unset.
type QuestionInput struct {
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
	ImageURL      string   `json:"imageUrl"`
}

// QuizInput is the payload of the create/edit screens.
type QuizInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	TimeLimit   int             `json:"timeLimit"`
	Questions   []QuestionInput `json:"questions"`
}

// Result is the persisted outcome of a finished attempt.
// Answers is index-aligned with the quiz questions; nil marks an unanswered question.
type Result struct {
	ID             string    `json:"id,omitempty"`
	QuizID         string    `json:"quizId"`
	QuizTitle      string    `json:"quizTitle"`
	UserID         string    `json:"userId"`
	UserName       string    `json:"userName"`
	Answers        []*int    `json:"answers"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	CompletedAt    time.Time `json:"completedAt"`
	IsDefaultQuiz  bool      `json:"isDefaultQuiz,omitempty"`
}

// Percentage is the rounded share of correct answers.
func (r Result) Percentage() int {
	if r.TotalQuestions == 0 {
		return 0
	}
	return int(math.Round(float64(r.Score) / float64(r.TotalQuestions) * 100))
}

// QuizType is catalog metadata for a bundled quiz.
type QuizType struct {
	ID      string `json:"id" yaml:"id"`
	Title   string `json:"title" yaml:"title"`
	Display string `json:"display" yaml:"display"`
	Icon    string `json:"icon" yaml:"icon"`
}

// ReviewItem shows one question of a finished attempt.
type ReviewItem struct {
	Index         int      `json:"index"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	Selected      *int     `json:"selected"`
	CorrectAnswer int      `json:"correctAnswer"`
	Correct       bool     `json:"correct"`
}

// Review is the results screen for one attempt.
type Review struct {
	Result     Result       `json:"result"`
	Items      []ReviewItem `json:"items"`
	Percentage int          `json:"percentage"`
	Message    string       `json:"message"`
}

// Dashboard aggregates a user's authored quizzes and results.
type Dashboard struct {
	QuizzesCreated int        `json:"quizzesCreated"`
	QuizzesTaken   int        `json:"quizzesTaken"`
	AverageScore   int        `json:"averageScore"`
	Trend          string     `json:"trend"`
	HighAchiever   bool       `json:"highAchiever"`
	Quizzes        []Quiz     `json:"quizzes"`
	RecentResults  []Result   `json:"recentResults"`
	DefaultQuizzes []QuizType `json:"defaultQuizzes"`
}
