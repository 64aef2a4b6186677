package game

import (
	"fmt"
	"time"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/hub"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/models"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/protocol"
)

// Attach binds a live connection to a durable player token.
//
// Three cases:
//   - token unknown: a new player joins (rejected once the game is over).
//   - token known and disconnected: reconnection; the pending removal is
//     cancelled and score/answers survive untouched.
//   - token known and connected elsewhere: the new connection wins and the
//     stale one is force-closed, so one (room, token) pair never has two
//     live connections.
//
// The attaching connection always ends up with a room_state snapshot; that is
// the whole resync mechanism, there is no replay of missed events.
func (r *Room) Attach(c *hub.Client, name, avatar string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, known := r.players[c.Token]
	if known {
		if old := p.ConnectionID; old != "" && old != c.ID {
			r.log.Info("replacing stale connection", "token_known", true, "old_conn", old)
			r.hub.Unregister(old)
			r.reg.online.Add(-1)
		}
		if t, ok := r.removals[c.Token]; ok {
			t.Stop()
			delete(r.removals, c.Token)
		}
		p.ConnectionID = c.ID
		r.reg.online.Add(1)
	} else {
		if r.phase == models.PhaseGameOver {
			return fmt.Errorf("%w: game is over", ErrInvalidTransition)
		}
		if len(r.players) >= r.cfg.MaxPlayersPerRoom {
			return fmt.Errorf("%w: room is full", ErrCapacityExceeded)
		}
		p = &models.Player{
			Token:        c.Token,
			Name:         name,
			AvatarURL:    avatar,
			ConnectionID: c.ID,
			JoinedAt:     time.Now(),
			Answers:      make(map[int]models.Answer),
		}
		r.players[c.Token] = p
		r.order = append(r.order, c.Token)
		r.reg.online.Add(1)
	}

	r.hub.Register(c)
	r.lastActivity = time.Now()
	r.broadcastStateLocked()

	// A client arriving mid-question also needs the question itself.
	if r.phase == models.PhaseQuestionActive {
		q := r.questions[r.current]
		r.hub.SendTo(c.ID, protocol.Encode(protocol.EventQuestionStarted, protocol.QuestionStartedData{
			QuestionIndex: r.current,
			Text:          q.Text,
			Options:       q.Options,
			Deadline:      protocol.Millis(r.deadline),
			ServerTime:    time.Now().UnixMilli(),
		}))
	}
	return nil
}

// Detach handles a transport-level disconnect. The player stays in the room,
// marked disconnected, until the reconnect grace period runs out.
func (r *Room) Detach(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByConnLocked(connID)
	r.hub.Unregister(connID)
	if p == nil {
		return // stale connection already replaced
	}

	p.ConnectionID = ""
	r.reg.online.Add(-1)
	r.lastActivity = time.Now()

	token := p.Token
	r.removals[token] = time.AfterFunc(r.cfg.ReconnectGrace, func() {
		r.expireSession(token)
	})

	r.broadcastStateLocked()

	// The departed player may have been the last one holding up the round.
	if r.phase == models.PhaseQuestionActive && r.allConnectedAnsweredLocked() {
		r.enterRevealLocked()
	}
}

// Leave removes a player immediately, skipping the grace period. The
// connection itself stays open; the client may create or join another room.
func (r *Room) Leave(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByConnLocked(connID)
	if p == nil {
		r.hub.Detach(connID)
		return
	}
	if t, ok := r.removals[p.Token]; ok {
		t.Stop()
		delete(r.removals, p.Token)
	}
	r.removePlayerLocked(p)
}

// expireSession fires when the grace period elapses without a reattach.
func (r *Room) expireSession(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.removals, token)
	p, ok := r.players[token]
	if !ok || p.Connected() {
		return // reattached in time, or already gone
	}
	r.log.Info("reconnect grace expired", "player", p.Name)
	r.removePlayerLocked(p)
}

func (r *Room) removePlayerLocked(p *models.Player) {
	if p.Connected() {
		// Only voluntary leave removes a still-connected player, so the
		// connection is detached from the room but left open.
		r.hub.Detach(p.ConnectionID)
		r.reg.online.Add(-1)
		p.ConnectionID = ""
	}

	delete(r.players, p.Token)
	for i, token := range r.order {
		if token == p.Token {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if p.Token == r.hostToken {
		r.transferHostLocked()
	}

	r.lastActivity = time.Now()
	r.broadcastStateLocked()

	if r.phase == models.PhaseQuestionActive && r.allConnectedAnsweredLocked() {
		r.enterRevealLocked()
	}
}

// transferHostLocked hands host privileges to the earliest-joined connected
// player, so a room never ends up without a possible controller.
func (r *Room) transferHostLocked() {
	for _, token := range r.order {
		if r.players[token].Connected() {
			r.hostToken = token
			r.log.Info("host transferred", "player", r.players[token].Name)
			return
		}
	}
}
