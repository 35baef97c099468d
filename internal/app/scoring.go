package app

import "quizdesk/internal/domain"

// Score counts answers matching the answer key. Unanswered indices never match.
func Score(questions []domain.Question, answers map[int]int) (score, total int) {
	for i, q := range questions {
		if selected, ok := answers[i]; ok && selected == q.CorrectAnswer {
			score++
		}
	}
	return score, len(questions)
}

// AnswerSlice renders the sparse answer map as an index-aligned list of length n.
func AnswerSlice(answers map[int]int, n int) []*int {
	out := make([]*int, n)
	for i := 0; i < n; i++ {
		if selected, ok := answers[i]; ok {
			v := selected
			out[i] = &v
		}
	}
	return out
}
