package game

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/config"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/hub"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/models"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/protocol"
)

// Room is one quiz session. Every mutation happens under mu, so each room is
// a single-writer unit: connection events and timer callbacks serialize on
// the lock and rooms never block each other.
//
//	LOBBY -> QUESTION_ACTIVE -> REVEAL -> SCOREBOARD -+-> QUESTION_ACTIVE (next)
//	                                                  `-> GAME_OVER
type Room struct {
	code      string
	hostToken string

	mu        sync.Mutex
	phase     models.Phase
	questions []models.Question
	current   int
	players   map[string]*models.Player
	order     []string // tokens in join order; leaderboard tie-break
	deadline  time.Time
	window    time.Duration // effective answer window for this game

	// Phase timers are tagged with an epoch. Transitions bump the epoch and
	// stop the old timer; a timer that fires anyway sees a stale epoch and
	// does nothing, so a QUESTION_ACTIVE deadline can never advance a room
	// that already moved on.
	epoch    int
	timer    *time.Timer
	removals map[string]*time.Timer // token -> reconnect grace timer

	createdAt    time.Time
	lastActivity time.Time
	counted      bool // still contributes to the activeRooms counter

	hub *hub.RoomHub
	reg *Registry
	cfg *config.Config
	log *slog.Logger
}

func newRoom(code, hostToken string, reg *Registry, h *hub.RoomHub) *Room {
	now := time.Now()
	return &Room{
		code:         code,
		hostToken:    hostToken,
		phase:        models.PhaseLobby,
		players:      make(map[string]*models.Player),
		removals:     make(map[string]*time.Timer),
		window:       reg.cfg.AnswerWindow,
		createdAt:    now,
		lastActivity: now,
		counted:      true,
		hub:          h,
		reg:          reg,
		cfg:          reg.cfg,
		log:          reg.log.With("room", code),
	}
}

// Code returns the room's shareable code.
func (r *Room) Code() string {
	return r.code
}

// Phase returns the current phase.
func (r *Room) Phase() models.Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// State returns the resync snapshot broadcast as room_state.
func (r *Room) State() protocol.RoomStateData {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// canStart checks host authority and phase without mutating anything. The
// content fetch happens between this check and Start, outside the lock.
func (r *Room) canStart(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token != r.hostToken {
		return fmt.Errorf("%w: only the host may start the game", ErrInvalidTransition)
	}
	if r.phase != models.PhaseLobby {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, r.phase)
	}
	return nil
}

// Start snapshots the question list and enters the first question. The slice
// is owned by the room from here on; mid-game content edits are invisible.
func (r *Room) Start(token string, questions []models.Question, opts protocol.StartOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token != r.hostToken {
		return fmt.Errorf("%w: only the host may start the game", ErrInvalidTransition)
	}
	if r.phase != models.PhaseLobby {
		return fmt.Errorf("%w: cannot start from %s", ErrInvalidTransition, r.phase)
	}
	if len(questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidTransition)
	}

	if opts.QuestionLimit > 0 && opts.QuestionLimit < len(questions) {
		questions = questions[:opts.QuestionLimit]
	}
	if opts.AnswerWindowSeconds > 0 {
		r.window = time.Duration(opts.AnswerWindowSeconds) * time.Second
	}

	r.questions = questions
	r.current = 0
	r.log.Info("game started", "questions", len(questions), "window", r.window)
	r.startQuestionLocked()
	return nil
}

// SubmitAnswer records a player's choice for the active question.
// First write wins: duplicates are rejected, never overwritten, and no score
// is applied here. Scoring happens once, at REVEAL entry.
func (r *Room) SubmitAnswer(connID string, questionIndex, choice int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByConnLocked(connID)
	if p == nil {
		return fmt.Errorf("%w: connection not in room", ErrInvalidTransition)
	}
	if r.phase != models.PhaseQuestionActive {
		return fmt.Errorf("%w: no active question", ErrInvalidTransition)
	}
	if questionIndex != r.current {
		return fmt.Errorf("%w: question %d is not active", ErrInvalidAnswer, questionIndex)
	}
	q := r.questions[r.current]
	if choice < 0 || choice >= len(q.Options) {
		return fmt.Errorf("%w: choice %d out of range", ErrInvalidAnswer, choice)
	}
	if p.Answered(r.current) {
		return fmt.Errorf("%w: already answered", ErrInvalidAnswer)
	}

	latency := time.Since(r.deadline.Add(-r.window))
	if latency < 0 {
		latency = 0
	}
	if latency > r.window {
		latency = r.window
	}
	p.Answers[r.current] = models.Answer{Choice: choice, Latency: latency}
	r.lastActivity = time.Now()

	if r.allConnectedAnsweredLocked() {
		r.enterRevealLocked()
	}
	return nil
}

// Skip ends the answer window immediately. Host only.
func (r *Room) Skip(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token != r.hostToken {
		return fmt.Errorf("%w: only the host may skip", ErrInvalidTransition)
	}
	if r.phase != models.PhaseQuestionActive {
		return fmt.Errorf("%w: no active question", ErrInvalidTransition)
	}
	r.enterRevealLocked()
	return nil
}

// End terminates the game. Host only, valid from any phase but GAME_OVER.
func (r *Room) End(token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token != r.hostToken {
		return fmt.Errorf("%w: only the host may end the game", ErrInvalidTransition)
	}
	if r.phase == models.PhaseGameOver {
		return fmt.Errorf("%w: game already over", ErrInvalidTransition)
	}
	r.enterGameOverLocked()
	return nil
}

// Chat relays a message from a room member to everyone, any phase.
func (r *Room) Chat(connID, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByConnLocked(connID)
	if p == nil {
		return fmt.Errorf("%w: connection not in room", ErrInvalidTransition)
	}
	r.lastActivity = time.Now()
	r.broadcastLocked(protocol.EventChat, protocol.ChatEventData{
		PlayerName: p.Name,
		Message:    message,
	})
	return nil
}

// advance is the timer callback. The epoch is revalidated under the lock
// before acting; a stale timer is a no-op.
func (r *Room) advance(epoch int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if epoch != r.epoch {
		return
	}

	switch r.phase {
	case models.PhaseQuestionActive:
		r.enterRevealLocked()
	case models.PhaseReveal:
		r.enterScoreboardLocked()
	case models.PhaseScoreboard:
		if r.current+1 >= len(r.questions) {
			r.enterGameOverLocked()
		} else {
			r.current++
			r.startQuestionLocked()
		}
	}
}

func (r *Room) startQuestionLocked() {
	now := time.Now()
	r.phase = models.PhaseQuestionActive
	r.deadline = now.Add(r.window)
	r.lastActivity = now

	q := r.questions[r.current]
	r.broadcastLocked(protocol.EventQuestionStarted, protocol.QuestionStartedData{
		QuestionIndex: r.current,
		Text:          q.Text,
		Options:       q.Options,
		Deadline:      protocol.Millis(r.deadline),
		ServerTime:    now.UnixMilli(),
	})
	r.scheduleLocked(r.window)
}

// enterRevealLocked applies scores exactly once per question per player from
// the collected answers, then broadcasts the correct index and the deltas.
func (r *Room) enterRevealLocked() {
	r.phase = models.PhaseReveal

	q := r.questions[r.current]
	deltas := make([]protocol.ScoreDelta, 0, len(r.order))
	for _, token := range r.order {
		p := r.players[token]
		ans, answered := p.Answers[r.current]
		delta := scoreAnswer(q, ans, answered, r.window)
		p.Score += delta
		deltas = append(deltas, protocol.ScoreDelta{Name: p.Name, Delta: delta, Score: p.Score})
	}

	r.deadline = time.Now().Add(r.cfg.RevealDuration)
	r.broadcastLocked(protocol.EventAnswerResult, protocol.AnswerResultData{
		QuestionIndex: r.current,
		CorrectIndex:  q.Correct,
		Deltas:        deltas,
	})
	r.scheduleLocked(r.cfg.RevealDuration)
}

func (r *Room) enterScoreboardLocked() {
	r.phase = models.PhaseScoreboard
	r.deadline = time.Now().Add(r.cfg.ScoreboardDuration)
	r.broadcastLocked(protocol.EventLeaderboard, protocol.LeaderboardData{
		Ranked: r.rankedLocked(),
	})
	r.scheduleLocked(r.cfg.ScoreboardDuration)
}

func (r *Room) enterGameOverLocked() {
	r.phase = models.PhaseGameOver
	r.deadline = time.Time{}
	r.cancelTimerLocked()
	r.lastActivity = time.Now()

	if r.counted {
		r.counted = false
		r.reg.active.Add(-1)
	}

	r.broadcastLocked(protocol.EventGameOver, protocol.GameOverData{
		Ranked: r.rankedLocked(),
	})
	r.log.Info("game over", "players", len(r.players))
}

func (r *Room) scheduleLocked(d time.Duration) {
	r.epoch++
	epoch := r.epoch
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(d, func() { r.advance(epoch) })
}

func (r *Room) cancelTimerLocked() {
	r.epoch++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// allConnectedAnsweredLocked drives the early advance out of QUESTION_ACTIVE.
// Disconnected players are excluded so a dropped connection can neither stall
// nor shortcut the room; with nobody connected only the deadline advances.
func (r *Room) allConnectedAnsweredLocked() bool {
	connected := 0
	for _, p := range r.players {
		if !p.Connected() {
			continue
		}
		connected++
		if !p.Answered(r.current) {
			return false
		}
	}
	return connected > 0
}

func (r *Room) playerByConnLocked(connID string) *models.Player {
	for _, p := range r.players {
		if p.ConnectionID == connID {
			return p
		}
	}
	return nil
}

// rankedLocked sorts by score descending; ties keep join order, which the
// order slice preserves.
func (r *Room) rankedLocked() []protocol.LeaderboardEntry {
	tokens := make([]string, len(r.order))
	copy(tokens, r.order)
	sort.SliceStable(tokens, func(i, j int) bool {
		return r.players[tokens[i]].Score > r.players[tokens[j]].Score
	})

	ranked := make([]protocol.LeaderboardEntry, 0, len(tokens))
	for i, token := range tokens {
		p := r.players[token]
		ranked = append(ranked, protocol.LeaderboardEntry{
			Rank:      i + 1,
			Name:      p.Name,
			AvatarURL: p.AvatarURL,
			Score:     p.Score,
		})
	}
	return ranked
}

func (r *Room) stateLocked() protocol.RoomStateData {
	players := make([]protocol.PlayerView, 0, len(r.order))
	for _, token := range r.order {
		p := r.players[token]
		players = append(players, protocol.PlayerView{
			Name:      p.Name,
			AvatarURL: p.AvatarURL,
			Score:     p.Score,
			Connected: p.Connected(),
			IsHost:    token == r.hostToken,
		})
	}
	return protocol.RoomStateData{
		Code:         r.code,
		Phase:        r.phase,
		CurrentIndex: r.current,
		Deadline:     protocol.Millis(r.deadline),
		Players:      players,
	}
}

func (r *Room) broadcastLocked(eventType string, data any) {
	r.hub.Broadcast(protocol.Encode(eventType, data))
}

func (r *Room) broadcastStateLocked() {
	r.broadcastLocked(protocol.EventRoomState, r.stateLocked())
}

// expired reports whether the cleanup loop may evict the room.
func (r *Room) expired(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == models.PhaseGameOver {
		return now.Sub(r.lastActivity) > r.cfg.ReconnectGrace
	}

	for _, p := range r.players {
		if p.Connected() {
			return false
		}
	}
	return now.Sub(r.lastActivity) > r.cfg.RoomIdleTimeout
}

// shutdown releases timers, counters and connections. Called once, after the
// room has been removed from the registry table.
func (r *Room) shutdown() {
	r.mu.Lock()
	r.cancelTimerLocked()
	for token, t := range r.removals {
		t.Stop()
		delete(r.removals, token)
	}
	for _, p := range r.players {
		if p.Connected() {
			p.ConnectionID = ""
			r.reg.online.Add(-1)
		}
	}
	if r.counted {
		r.counted = false
		r.reg.active.Add(-1)
	}
	r.mu.Unlock()

	r.hub.Close()
}
