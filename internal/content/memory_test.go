package content

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/models"
)

func TestMemoryLoadQuestions(t *testing.T) {
	store := NewMemory()

	qs, err := store.LoadQuestions(context.Background(), "general")
	require.NoError(t, err)
	require.NotEmpty(t, qs)
	for _, q := range qs {
		assert.Len(t, q.Options, 4)
		assert.GreaterOrEqual(t, q.Correct, 0)
		assert.Less(t, q.Correct, len(q.Options))
	}
}

func TestMemoryReturnsFreshCopies(t *testing.T) {
	store := NewMemory()

	first, err := store.LoadQuestions(context.Background(), "general")
	require.NoError(t, err)
	first[0].Text = "mutated"

	second, err := store.LoadQuestions(context.Background(), "general")
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", second[0].Text)
}

func TestMemoryUnknownCollection(t *testing.T) {
	store := NewMemory()

	_, err := store.LoadQuestions(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryEmptyCollection(t *testing.T) {
	store := NewMemory()
	store.Add("empty", []models.Question{})

	_, err := store.LoadQuestions(context.Background(), "empty")
	assert.ErrorIs(t, err, ErrEmpty)
}
