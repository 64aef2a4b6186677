package game

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomGeneratesUniqueCodes(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRooms = 100
	reg := NewRegistry(cfg, testLogger())
	t.Cleanup(reg.Close)

	codeFormat := regexp.MustCompile(`^[0-9A-Za-z]{10}$`)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		room, err := reg.CreateRoom("host")
		require.NoError(t, err)

		code := room.Code()
		assert.Regexp(t, codeFormat, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true

		found, err := reg.FindRoom(code)
		require.NoError(t, err)
		assert.Same(t, room, found)
	}
}

func TestRandomCodeCoversAlphabet(t *testing.T) {
	seen := make(map[byte]bool)
	for i := 0; i < 2000; i++ {
		code := randomCode()
		require.Len(t, code, codeLength)
		for j := 0; j < len(code); j++ {
			require.Contains(t, codeAlphabet, string(code[j]))
			seen[code[j]] = true
		}
	}
	// 20k draws makes a missing symbol astronomically unlikely unless the
	// sampling skews toward the low end of the alphabet.
	assert.Len(t, seen, len(codeAlphabet))
}

func TestCreateRoomCapacity(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRooms = 2
	reg := NewRegistry(cfg, testLogger())
	t.Cleanup(reg.Close)

	_, err := reg.CreateRoom("h1")
	require.NoError(t, err)
	_, err = reg.CreateRoom("h2")
	require.NoError(t, err)

	_, err = reg.CreateRoom("h3")
	assert.ErrorIs(t, err, ErrCapacityExceeded)
}

func TestFindUnknownRoom(t *testing.T) {
	reg := NewRegistry(testConfig(), testLogger())
	t.Cleanup(reg.Close)

	_, err := reg.FindRoom("nope123456")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestGlobalStats(t *testing.T) {
	svc := newTestService(t, testConfig())

	// Room one: host plus two players.
	h1 := newClient("h1")
	roomA, err := svc.CreateRoom(h1, "Alice", "")
	require.NoError(t, err)
	for _, token := range []string{"a1", "a2"} {
		_, err := svc.JoinRoom(newClient(token), roomA.Code(), token, "")
		require.NoError(t, err)
	}

	// Room two: host plus one player.
	h2 := newClient("h2")
	roomB, err := svc.CreateRoom(h2, "Bob", "")
	require.NoError(t, err)
	b1 := newClient("b1")
	_, err = svc.JoinRoom(b1, roomB.Code(), "b1", "")
	require.NoError(t, err)

	stats := svc.Registry().Stats()
	assert.Equal(t, 5, stats.OnlineUsers)
	assert.Equal(t, 2, stats.ActiveRooms)

	// A finished game leaves the active count.
	require.NoError(t, roomB.End("h2"))
	stats = svc.Registry().Stats()
	assert.Equal(t, 1, stats.ActiveRooms)
	assert.Equal(t, 5, stats.OnlineUsers)

	// A disconnect leaves the online count immediately.
	roomB.Detach(b1.ID)
	stats = svc.Registry().Stats()
	assert.Equal(t, 4, stats.OnlineUsers)
}

func TestSweepEvictsFinishedRooms(t *testing.T) {
	cfg := testConfig()
	cfg.ReconnectGrace = 30 * time.Millisecond
	svc := newTestService(t, cfg)

	h1 := newClient("h1")
	room, err := svc.CreateRoom(h1, "Alice", "")
	require.NoError(t, err)
	code := room.Code()

	require.NoError(t, room.End("h1"))
	time.Sleep(60 * time.Millisecond)
	svc.Registry().sweep(time.Now())

	_, err = svc.Registry().FindRoom(code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestSweepKeepsRoomsWithConnectedPlayers(t *testing.T) {
	cfg := testConfig()
	cfg.RoomIdleTimeout = time.Nanosecond
	svc := newTestService(t, cfg)

	h1 := newClient("h1")
	room, err := svc.CreateRoom(h1, "Alice", "")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	svc.Registry().sweep(time.Now())

	_, err = svc.Registry().FindRoom(room.Code())
	assert.NoError(t, err)
}
