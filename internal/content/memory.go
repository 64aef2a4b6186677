package content

import (
	"context"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/models"
)

// Memory is an in-process Store used for development and tests.
type Memory struct {
	collections map[string][]models.Question
}

// NewMemory returns a store seeded with built-in collections.
func NewMemory() *Memory {
	return &Memory{
		collections: map[string][]models.Question{
			"general": {
				{
					Text:    "What is the capital of France?",
					Options: []string{"London", "Berlin", "Paris", "Madrid"},
					Correct: 2,
				},
				{
					Text:    "Which planet is known as the Red Planet?",
					Options: []string{"Venus", "Mars", "Jupiter", "Saturn"},
					Correct: 1,
				},
				{
					Text:    "Who painted the Mona Lisa?",
					Options: []string{"Van Gogh", "Picasso", "Da Vinci", "Monet"},
					Correct: 2,
				},
				{
					Text:    "What is the largest ocean on Earth?",
					Options: []string{"Atlantic", "Indian", "Pacific", "Arctic"},
					Correct: 2,
				},
				{
					Text:    "In which year did World War II end?",
					Options: []string{"1944", "1945", "1946", "1947"},
					Correct: 1,
				},
			},
			"science": {
				{
					Text:    "What is the chemical symbol for gold?",
					Options: []string{"Go", "Gd", "Au", "Ag"},
					Correct: 2,
				},
				{
					Text:    "Which programming language was created by Google?",
					Options: []string{"Java", "Python", "Go", "C++"},
					Correct: 2,
				},
				{
					Text:    "What is the fastest land animal?",
					Options: []string{"Lion", "Cheetah", "Leopard", "Tiger"},
					Correct: 1,
				},
			},
		},
	}
}

// Add registers or replaces a collection. Used by tests.
func (m *Memory) Add(collectionID string, questions []models.Question) {
	m.collections[collectionID] = questions
}

func (m *Memory) LoadQuestions(_ context.Context, collectionID string) ([]models.Question, error) {
	qs, ok := m.collections[collectionID]
	if !ok {
		return nil, ErrNotFound
	}
	if len(qs) == 0 {
		return nil, ErrEmpty
	}
	out := make([]models.Question, len(qs))
	copy(out, qs)
	return out, nil
}
