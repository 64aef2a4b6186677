package models

import (
	"time"
)

// Phase is the room state machine's current state.
type Phase string

const (
	PhaseLobby          Phase = "LOBBY"
	PhaseQuestionActive Phase = "QUESTION_ACTIVE"
	PhaseReveal         Phase = "REVEAL"
	PhaseScoreboard     Phase = "SCOREBOARD"
	PhaseGameOver       Phase = "GAME_OVER"
)

// Question is an immutable snapshot of one quiz question. Rooms copy the
// question list at game start, so content edits never affect a running game.
type Question struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Correct int      `json:"correct"`
}

// Answer records a player's submission for one question index.
// At most one Answer exists per (player, question index); the first write wins.
type Answer struct {
	Choice  int
	Latency time.Duration // elapsed since the question was revealed
}

// Player is a room member keyed by its durable token. The token outlives any
// single connection: a player who reconnects with the same token within the
// grace period keeps its score and answers.
type Player struct {
	Token        string
	Name         string
	AvatarURL    string
	ConnectionID string // empty while disconnected
	Score        int
	JoinedAt     time.Time
	Answers      map[int]Answer // question index -> submission
}

// Connected reports whether the player currently has a live connection.
func (p *Player) Connected() bool {
	return p.ConnectionID != ""
}

// Answered reports whether the player already submitted for the given index.
func (p *Player) Answered(index int) bool {
	_, ok := p.Answers[index]
	return ok
}
