package catalog

import (
	"embed"
	"encoding/json"
	"fmt"

	"quizdesk/internal/domain"
)

// TimeLimit is the time limit of every bundled quiz, in minutes.
const TimeLimit = 10

// DefaultID is the entry unknown ids resolve to.
const DefaultID = "default"

//go:embed data/*.json
var files embed.FS

var types = []domain.QuizType{
	{ID: "default", Title: "Default", Display: "Default", Icon: "https://cdn.jsdelivr.net/gh/offensive-vk/reactjs-quiz-app@master/public/internet.svg"},
	{ID: "webdev", Title: "Web Development", Display: "Web Development", Icon: "https://cdn.jsdelivr.net/gh/offensive-vk/Icons@master/html5/html5-original.svg"},
	{ID: "javascript", Title: "JavaScript", Display: "JavaScript", Icon: "https://cdn.jsdelivr.net/gh/offensive-vk/Icons@master/javascript/javascript-original.svg"},
	{ID: "tailwindcss", Title: "Tailwind CSS", Display: "Tailwind CSS", Icon: "https://cdn.jsdelivr.net/gh/offensive-vk/Icons@master/tailwindcss/tailwindcss-original.svg"},
	{ID: "python", Title: "Python", Display: "Python", Icon: "https://cdn.jsdelivr.net/gh/offensive-vk/Icons@master/python/python-original.svg"},
	{ID: "react", Title: "React", Display: "React", Icon: "https://cdn.jsdelivr.net/gh/offensive-vk/Icons@master/react/react-original.svg"},
}

// fallbackType is reported for ids the catalog does not know.
var fallbackType = domain.QuizType{
	ID:      DefaultID,
	Title:   "Default Quiz",
	Display: "Default",
	Icon:    types[0].Icon,
}

type questionSet struct {
	QuizTitle string `json:"quizTitle"`
	Questions []struct {
		Question      string   `json:"question"`
		Choices       []string `json:"choices"`
		CorrectAnswer int      `json:"correctAnswer"`
	} `json:"questions"`
}

// Catalog is the set of quizzes bundled with the service.
type Catalog struct {
	sets map[string]questionSet
}

// New parses the embedded question sets.
func New() (*Catalog, error) {
	c := &Catalog{sets: make(map[string]questionSet, len(types))}
	for _, t := range types {
		raw, err := files.ReadFile("data/" + t.ID + ".json")
		if err != nil {
			return nil, fmt.Errorf("read %s questions: %w", t.ID, err)
		}
		var set questionSet
		if err := json.Unmarshal(raw, &set); err != nil {
			return nil, fmt.Errorf("parse %s questions: %w", t.ID, err)
		}
		c.sets[t.ID] = set
	}
	return c, nil
}

// MustNew is New for program start-up.
func MustNew() *Catalog {
	c, err := New()
	if err != nil {
		panic(err)
	}
	return c
}

// Types lists the bundled quizzes in display order.
func (c *Catalog) Types() []domain.QuizType {
	out := make([]domain.QuizType, len(types))
	copy(out, types)
	return out
}

// Type returns the metadata for id, falling back to the default entry.
func (c *Catalog) Type(id string) domain.QuizType {
	for _, t := range types {
		if t.ID == id {
			return t
		}
	}
	return fallbackType
}

// Resolve returns the bundled quiz for id. Unknown ids get the default question set
// but keep their id so results stay tagged with what the user opened.
func (c *Catalog) Resolve(id string) domain.Quiz {
	set, ok := c.sets[id]
	if !ok {
		set = c.sets[DefaultID]
	}
	if id == "" {
		id = DefaultID
	}

	questions := make([]domain.Question, len(set.Questions))
	for i, q := range set.Questions {
		questions[i] = domain.Question{
			Text:          q.Question,
			Type:          domain.QuestionMultiple,
			Options:       append([]string(nil), q.Choices...),
			CorrectAnswer: q.CorrectAnswer,
		}
	}
	return domain.Quiz{
		ID:        id,
		Title:     set.QuizTitle,
		TimeLimit: TimeLimit,
		Questions: questions,
		Category:  c.Type(id).Title,
	}
}
