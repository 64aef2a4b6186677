package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/config"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/content"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/game"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/hub"
	"github.com/SomeCodecat/bubble-quiz-sub001/internal/protocol"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 54 * time.Second
)

type Server struct {
	config   *config.Config
	svc      *game.Service
	router   *gin.Engine
	upgrader websocket.Upgrader
	log      *slog.Logger
}

func NewServer(cfg *config.Config, log *slog.Logger) (*Server, error) {
	var store content.Store
	if cfg.DatabaseURL != "" {
		log.Info("using postgres content store")
		pg, err := content.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store = pg
	} else {
		log.Info("using in-memory content store")
		store = content.NewMemory()
	}

	server := &Server{
		config: cfg,
		svc:    game.NewService(cfg, store, log),
		router: gin.Default(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // origin policy is handled by the deployment proxy
			},
		},
		log: log,
	}

	server.setupRoutes()
	return server, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := s.router.Group("/api/v1")
	{
		api.GET("/stats", s.getStats)
	}

	s.router.GET("/ws", s.handleWebSocket)
}

func (s *Server) getStats(c *gin.Context) {
	c.JSON(200, s.svc.Registry().Stats())
}

// session is the per-connection state of the read pump.
type session struct {
	client *hub.Client
	room   *game.Room
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	client := hub.NewClient(uuid.NewString())
	go s.writePump(conn, client)
	s.readPump(conn, &session{client: client})
}

// readPump decodes inbound commands until the transport drops. A disconnect
// is not an error: it starts the owning room's reconnect grace path.
func (s *Server) readPump(conn *websocket.Conn, sess *session) {
	defer func() {
		if sess.room != nil {
			sess.room.Detach(sess.client.ID)
		}
		// CloseSend is idempotent; the room may already have closed the
		// channel when it force-replaced this connection.
		sess.client.CloseSend()
		conn.Close()
	}()

	for {
		var msg protocol.Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			s.log.Debug("connection closed", "connection_id", sess.client.ID, "error", err)
			return
		}
		s.dispatch(sess, &msg)
	}
}

// writePump drains the client's send channel to the wire and keeps the
// connection alive with pings. A closed send channel shuts the socket down;
// that is how the core force-disconnects a stale connection.
func (s *Server) writePump(conn *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) dispatch(sess *session, msg *protocol.Inbound) {
	switch msg.Type {
	case protocol.CmdCreateRoom:
		s.handleCreateRoom(sess, msg.Data)
	case protocol.CmdJoinRoom:
		s.handleJoinRoom(sess, msg.Data)
	case protocol.CmdStartGame:
		s.handleStartGame(sess, msg.Data)
	case protocol.CmdSubmitAnswer:
		s.handleSubmitAnswer(sess, msg.Data)
	case protocol.CmdSkipQuestion:
		s.withRoom(sess, func(room *game.Room) error {
			return room.Skip(sess.client.Token)
		})
	case protocol.CmdEndGame:
		s.withRoom(sess, func(room *game.Room) error {
			return room.End(sess.client.Token)
		})
	case protocol.CmdLeaveRoom:
		s.handleLeaveRoom(sess)
	case protocol.CmdChat:
		s.handleChat(sess, msg.Data)
	default:
		s.sendError(sess.client, protocol.KindBadRequest, "unknown command: "+msg.Type)
	}
}

func (s *Server) handleCreateRoom(sess *session, raw json.RawMessage) {
	if sess.room != nil {
		s.sendError(sess.client, protocol.KindInvalidTransition, "already in a room")
		return
	}

	var data protocol.CreateRoomData
	if err := json.Unmarshal(raw, &data); err != nil || data.PlayerToken == "" {
		s.sendError(sess.client, protocol.KindBadRequest, "player_token is required")
		return
	}
	if data.PlayerName == "" {
		data.PlayerName = "Player"
	}

	sess.client.Token = data.PlayerToken
	room, err := s.svc.CreateRoom(sess.client, data.PlayerName, data.PlayerAvatar)
	if err != nil {
		s.sendError(sess.client, kindOf(err), err.Error())
		return
	}

	sess.room = room
	s.send(sess.client, protocol.Encode(protocol.EventRoomCreated, protocol.RoomCreatedData{
		Code: room.Code(),
	}))
}

func (s *Server) handleJoinRoom(sess *session, raw json.RawMessage) {
	if sess.room != nil {
		s.sendError(sess.client, protocol.KindInvalidTransition, "already in a room")
		return
	}

	var data protocol.JoinRoomData
	if err := json.Unmarshal(raw, &data); err != nil || data.PlayerToken == "" || data.Code == "" {
		s.sendError(sess.client, protocol.KindBadRequest, "code and player_token are required")
		return
	}
	if data.PlayerName == "" {
		data.PlayerName = "Player"
	}

	sess.client.Token = data.PlayerToken
	room, err := s.svc.JoinRoom(sess.client, data.Code, data.PlayerName, data.PlayerAvatar)
	if err != nil {
		s.sendError(sess.client, kindOf(err), err.Error())
		return
	}
	sess.room = room
}

func (s *Server) handleStartGame(sess *session, raw json.RawMessage) {
	var data protocol.StartGameData
	if err := json.Unmarshal(raw, &data); err != nil || data.CollectionID == "" {
		s.sendError(sess.client, protocol.KindBadRequest, "collection_id is required")
		return
	}

	s.withRoom(sess, func(room *game.Room) error {
		return s.svc.StartGame(context.Background(), room, sess.client.Token, data.CollectionID, data.Options)
	})
}

func (s *Server) handleSubmitAnswer(sess *session, raw json.RawMessage) {
	var data protocol.SubmitAnswerData
	if err := json.Unmarshal(raw, &data); err != nil {
		s.sendError(sess.client, protocol.KindBadRequest, "malformed answer")
		return
	}

	s.withRoom(sess, func(room *game.Room) error {
		return room.SubmitAnswer(sess.client.ID, data.QuestionIndex, data.ChoiceIndex)
	})
}

func (s *Server) handleLeaveRoom(sess *session) {
	if sess.room == nil {
		s.sendError(sess.client, protocol.KindRoomNotFound, "not in a room")
		return
	}
	room := sess.room
	sess.room = nil
	room.Leave(sess.client.ID)
}

func (s *Server) handleChat(sess *session, raw json.RawMessage) {
	var data protocol.ChatData
	if err := json.Unmarshal(raw, &data); err != nil || data.Message == "" {
		s.sendError(sess.client, protocol.KindBadRequest, "message is required")
		return
	}

	s.withRoom(sess, func(room *game.Room) error {
		return room.Chat(sess.client.ID, data.Message)
	})
}

// withRoom runs a room command and reports any failure to the caller only.
func (s *Server) withRoom(sess *session, fn func(room *game.Room) error) {
	if sess.room == nil {
		s.sendError(sess.client, protocol.KindRoomNotFound, "not in a room")
		return
	}
	if err := fn(sess.room); err != nil {
		s.sendError(sess.client, kindOf(err), err.Error())
	}
}

func (s *Server) send(c *hub.Client, data []byte) {
	// The room may force-close this connection's channel while a reply is in
	// flight; dropping the reply is fine, the socket is going away anyway.
	defer func() { recover() }()
	select {
	case c.Send <- data:
	default:
	}
}

func (s *Server) sendError(c *hub.Client, kind, message string) {
	s.send(c, protocol.EncodeError(kind, message))
}

// kindOf maps core errors to protocol error kinds.
func kindOf(err error) string {
	switch {
	case errors.Is(err, game.ErrCapacityExceeded):
		return protocol.KindCapacityExceeded
	case errors.Is(err, game.ErrRoomNotFound):
		return protocol.KindRoomNotFound
	case errors.Is(err, game.ErrInvalidTransition):
		return protocol.KindInvalidTransition
	case errors.Is(err, game.ErrInvalidAnswer):
		return protocol.KindInvalidAnswer
	case errors.Is(err, content.ErrNotFound):
		return protocol.KindContentNotFound
	case errors.Is(err, content.ErrEmpty):
		return protocol.KindContentEmpty
	default:
		return protocol.KindInternal
	}
}

func (s *Server) Start() error {
	return s.router.Run(":" + s.config.Port)
}

// Close releases the game core's resources.
func (s *Server) Close() {
	s.svc.Close()
}
