package game

import (
	"math"
	"time"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/models"
)

const (
	basePoints   = 100
	maxTimeBonus = 100
)

// scoreAnswer computes the points earned for one question. A correct answer
// earns basePoints plus a bonus that decays linearly from maxTimeBonus at
// the moment the question is revealed to zero at the deadline. Incorrect or
// missing answers earn zero, so scores are monotone non-decreasing.
func scoreAnswer(q models.Question, ans models.Answer, answered bool, window time.Duration) int {
	if !answered || ans.Choice != q.Correct {
		return 0
	}

	remaining := window - ans.Latency
	if remaining < 0 {
		remaining = 0
	}
	bonus := 0
	if window > 0 {
		bonus = int(math.Round(maxTimeBonus * float64(remaining) / float64(window)))
	}
	return basePoints + bonus
}
