package game

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/config"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/content"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/hub"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		MaxRooms:           16,
		MaxPlayersPerRoom:  8,
		AnswerWindow:       5 * time.Second,
		RevealDuration:     40 * time.Millisecond,
		ScoreboardDuration: 40 * time.Millisecond,
		ReconnectGrace:     500 * time.Millisecond,
		RoomIdleTimeout:    time.Minute,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testStore() *content.Memory {
	store := content.NewMemory()
	store.Add("twoq", []models.Question{
		{Text: "one plus one?", Options: []string{"1", "2", "3", "4"}, Correct: 1},
		{Text: "two plus two?", Options: []string{"4", "5", "6", "7"}, Correct: 0},
	})
	return store
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	svc := NewService(cfg, testStore(), testLogger())
	t.Cleanup(svc.Close)
	return svc
}

func newClient(token string) *hub.Client {
	c := hub.NewClient(uuid.NewString())
	c.Token = token
	return c
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// nextEvent reads from a client's send channel until an event of the given
// type arrives, discarding everything else.
func nextEvent(t *testing.T, c *hub.Client, eventType string) json.RawMessage {
	t.Helper()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-c.Send:
			require.True(t, ok, "send channel closed while waiting for %s", eventType)
			var env envelope
			require.NoError(t, json.Unmarshal(msg, &env))
			if env.Type == eventType {
				return env.Data
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", eventType)
			return nil
		}
	}
}

func decodeEvent[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// drain empties a client's pending events.
func drain(c *hub.Client) {
	for {
		select {
		case <-c.Send:
		default:
			return
		}
	}
}

// expectSilence asserts that no event arrives within the window.
func expectSilence(t *testing.T, c *hub.Client, window time.Duration) {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		if ok {
			t.Fatalf("expected no event, got %s", msg)
		}
	case <-time.After(window):
	}
}
