package app

import (
	"math"
	"sort"

	"quizdesk/internal/domain"
)

const recentResultsLimit = 5

// BuildReview lines a result up against the questions it was scored on.
func BuildReview(result domain.Result, questions []domain.Question) domain.Review {
	items := make([]domain.ReviewItem, len(questions))
	for i, q := range questions {
		var selected *int
		if i < len(result.Answers) {
			selected = result.Answers[i]
		}
		items[i] = domain.ReviewItem{
			Index:         i,
			Text:          q.Text,
			Options:       q.Options,
			Selected:      selected,
			CorrectAnswer: q.CorrectAnswer,
			Correct:       selected != nil && *selected == q.CorrectAnswer,
		}
	}
	pct := result.Percentage()
	return domain.Review{
		Result:     result,
		Items:      items,
		Percentage: pct,
		Message:    performanceMessage(pct),
	}
}

func performanceMessage(pct int) string {
	switch {
	case pct >= 80:
		return "Excellent!"
	case pct >= 60:
		return "Good job!"
	case pct >= 40:
		return "Not bad!"
	default:
		return "Keep practicing!"
	}
}

// Summarize aggregates a user's quizzes and results into dashboard figures.
func Summarize(quizzes []domain.Quiz, results []domain.Result, types []domain.QuizType) domain.Dashboard {
	d := domain.Dashboard{
		QuizzesCreated: len(quizzes),
		QuizzesTaken:   len(results),
		Quizzes:        quizzes,
		DefaultQuizzes: types,
	}

	var sum float64
	for _, r := range results {
		if r.TotalQuestions == 0 {
			continue
		}
		ratio := float64(r.Score) / float64(r.TotalQuestions)
		sum += ratio
		if ratio >= 0.9 {
			d.HighAchiever = true
		}
	}
	if len(results) > 0 {
		d.AverageScore = int(math.Round(sum / float64(len(results)) * 100))
	}
	switch {
	case d.AverageScore > 70:
		d.Trend = "up"
	case d.AverageScore > 40:
		d.Trend = "steady"
	default:
		d.Trend = "down"
	}

	recent := append([]domain.Result(nil), results...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CompletedAt.After(recent[j].CompletedAt)
	})
	if len(recent) > recentResultsLimit {
		recent = recent[:recentResultsLimit]
	}
	d.RecentResults = recent
	return d
}
