// Package content supplies ordered question lists for quiz collections.
// The game core only reads; it snapshots the returned slice at game start.
package content

import (
	"context"
	"errors"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/models"
)

var (
	ErrNotFound = errors.New("collection not found")
	ErrEmpty    = errors.New("collection has no questions")
)

// Store loads the ordered questions of a collection. Implementations must
// return a fresh slice on every call; callers own the result.
type Store interface {
	LoadQuestions(ctx context.Context, collectionID string) ([]models.Question, error)
}
