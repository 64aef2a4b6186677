package game

import (
	"context"
	"log/slog"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/config"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/content"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/hub"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/protocol"
)

// Service is the entry point the transport layer talks to: it resolves rooms
// through the registry and fetches content before handing control to the
// room's own serialized state machine.
type Service struct {
	registry *Registry
	content  content.Store
	cfg      *config.Config
	log      *slog.Logger
}

func NewService(cfg *config.Config, store content.Store, log *slog.Logger) *Service {
	return &Service{
		registry: NewRegistry(cfg, log),
		content:  store,
		cfg:      cfg,
		log:      log,
	}
}

// Registry exposes the room table for stats and lookups.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Close tears down the registry and every room.
func (s *Service) Close() {
	s.registry.Close()
}

// CreateRoom registers a room with the client's token as host and attaches
// the client as its first player.
func (s *Service) CreateRoom(c *hub.Client, name, avatar string) (*Room, error) {
	room, err := s.registry.CreateRoom(c.Token)
	if err != nil {
		return nil, err
	}
	if err := room.Attach(c, name, avatar); err != nil {
		s.registry.RemoveRoom(room.Code())
		return nil, err
	}
	return room, nil
}

// JoinRoom attaches the client to the room addressed by code.
func (s *Service) JoinRoom(c *hub.Client, code, name, avatar string) (*Room, error) {
	room, err := s.registry.FindRoom(code)
	if err != nil {
		return nil, err
	}
	if err := room.Attach(c, name, avatar); err != nil {
		return nil, err
	}
	return room, nil
}

// StartGame loads the collection and starts the room. The fetch happens
// before the room's serialized section, so queued room events only ever run
// against already-fetched data; an adapter failure leaves the room in LOBBY
// and surfaces only to the caller.
func (s *Service) StartGame(ctx context.Context, room *Room, token, collectionID string, opts protocol.StartOptions) error {
	if err := room.canStart(token); err != nil {
		return err
	}

	questions, err := s.content.LoadQuestions(ctx, collectionID)
	if err != nil {
		return err
	}

	return room.Start(token, questions, opts)
}
