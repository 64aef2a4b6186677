// Package protocol defines the typed event contract between clients and the
// game core. Inbound messages are commands, outbound messages are events;
// both travel as JSON envelopes over the per-connection channel.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/models"
)

// Inbound command types.
const (
	CmdCreateRoom   = "create_room"
	CmdJoinRoom     = "join_room"
	CmdStartGame    = "start_game"
	CmdSubmitAnswer = "submit_answer"
	CmdSkipQuestion = "skip_question"
	CmdEndGame      = "end_game"
	CmdLeaveRoom    = "leave_room"
	CmdChat         = "chat"
)

// Outbound event types.
const (
	EventRoomCreated     = "room_created"
	EventRoomState       = "room_state"
	EventQuestionStarted = "question_started"
	EventAnswerResult    = "answer_result"
	EventLeaderboard     = "leaderboard"
	EventGameOver        = "game_over"
	EventChat            = "chat"
	EventError           = "error"
)

// Error kinds carried by EventError payloads.
const (
	KindCapacityExceeded  = "capacity_exceeded"
	KindRoomNotFound      = "room_not_found"
	KindInvalidTransition = "invalid_transition"
	KindInvalidAnswer     = "invalid_answer"
	KindContentNotFound   = "content_not_found"
	KindContentEmpty      = "content_empty"
	KindBadRequest        = "bad_request"
	KindInternal          = "internal"
)

// Inbound is the envelope for client commands.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope for server events.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type CreateRoomData struct {
	PlayerToken  string `json:"player_token"`
	PlayerName   string `json:"player_name"`
	PlayerAvatar string `json:"player_avatar,omitempty"`
}

type JoinRoomData struct {
	Code         string `json:"code"`
	PlayerToken  string `json:"player_token"`
	PlayerName   string `json:"player_name"`
	PlayerAvatar string `json:"player_avatar,omitempty"`
}

type StartGameData struct {
	CollectionID string       `json:"collection_id"`
	Options      StartOptions `json:"options,omitempty"`
}

// StartOptions are per-game overrides; zero values fall back to server config.
type StartOptions struct {
	AnswerWindowSeconds int `json:"answer_window_seconds,omitempty"`
	QuestionLimit       int `json:"question_limit,omitempty"`
}

type SubmitAnswerData struct {
	QuestionIndex int `json:"question_index"`
	ChoiceIndex   int `json:"choice_index"`
}

type ChatData struct {
	Message string `json:"message"`
}

type RoomCreatedData struct {
	Code string `json:"code"`
}

// PlayerView is the presentation form of a player. Tokens are never included;
// identity stays between a client and the server.
type PlayerView struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	IsHost    bool   `json:"is_host"`
}

// RoomStateData is the full resync snapshot. A reconnecting client receives
// this instead of a replay of missed events.
type RoomStateData struct {
	Code         string           `json:"code"`
	Phase        models.Phase     `json:"phase"`
	CurrentIndex int              `json:"current_index"`
	Deadline     int64            `json:"deadline,omitempty"` // unix ms, 0 when none
	Players      []PlayerView     `json:"players"`
}

type QuestionStartedData struct {
	QuestionIndex int      `json:"question_index"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	Deadline      int64    `json:"deadline"`    // unix ms
	ServerTime    int64    `json:"server_time"` // unix ms, for client clock sync
}

type ScoreDelta struct {
	Name  string `json:"name"`
	Delta int    `json:"delta"`
	Score int    `json:"score"`
}

type AnswerResultData struct {
	QuestionIndex int          `json:"question_index"`
	CorrectIndex  int          `json:"correct_index"`
	Deltas        []ScoreDelta `json:"deltas"`
}

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Score     int    `json:"score"`
}

type LeaderboardData struct {
	Ranked []LeaderboardEntry `json:"ranked"`
}

type GameOverData struct {
	Ranked []LeaderboardEntry `json:"ranked"`
}

type ChatEventData struct {
	PlayerName string `json:"player_name"`
	Message    string `json:"message"`
}

type ErrorData struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Encode marshals an outbound event envelope. Payloads are plain structs, so
// marshaling only fails on programmer error; in that case an internal error
// event is emitted instead so the connection still receives valid JSON.
func Encode(eventType string, data any) []byte {
	b, err := json.Marshal(Outbound{Type: eventType, Data: data})
	if err != nil {
		b, _ = json.Marshal(Outbound{Type: EventError, Data: ErrorData{
			Kind:    KindInternal,
			Message: "failed to encode event",
		}})
	}
	return b
}

// EncodeError builds an error event for a single connection.
func EncodeError(kind, message string) []byte {
	return Encode(EventError, ErrorData{Kind: kind, Message: message})
}

// Millis converts a deadline to the wire representation.
func Millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
