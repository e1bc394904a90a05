package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatroomsgo/internal/services/coordinator"
	"chatroomsgo/internal/services/room"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // must be < pongWait
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true }, // dev-only
}

// ConnContext identifies the connection a handler runs on behalf of.
type ConnContext struct {
	ConnID string
	Server *WsServer
}

type WsServer struct {
	hub    *Hub
	router *Router
	coord  coordinator.IRoomCoordinator
}

func NewWsServer(h *Hub, coord coordinator.IRoomCoordinator) *WsServer {
	srv := &WsServer{
		hub:    h,
		router: NewRouter(),
		coord:  coord,
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.accept", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	wsConn := &clientConn{rawConn: rawConn}
	s.hub.Register(connID, wsConn)

	go s.reader(connID, wsConn)
	go s.pinger(wsConn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// 🔹 rooms/create ---------------------------------------------------------
	Register(
		s.router,
		"rooms/create",
		func(ctx context.Context, cc *ConnContext, req CreateRoomRequest) (StatusBody, error) {
			err := s.coord.CreateRoom(ctx, req.Room, req.Type, req.Credential)
			return statusFromErr(err), nil
		},
	)

	// 🔹 rooms/join -----------------------------------------------------------
	Register(
		s.router,
		"rooms/join",
		func(ctx context.Context, cc *ConnContext, req JoinRoomRequest) (StatusBody, error) {
			err := s.coord.JoinRoom(ctx, cc.ConnID, req.Room, req.Name, req.Credential)
			return statusFromErr(err), nil
		},
	)

	// 🔹 rooms/message --------------------------------------------------------
	Register(
		s.router,
		"rooms/message",
		func(ctx context.Context, cc *ConnContext, req ChatMessageRequest) (AckBody, error) {
			s.coord.SendMessage(ctx, cc.ConnID, req.Room, req.Body)
			return AckBody{}, nil
		},
	)

	// 🔹 rooms/leave ----------------------------------------------------------
	Register(
		s.router,
		"rooms/leave",
		func(ctx context.Context, cc *ConnContext, req LeaveRoomRequest) (AckBody, error) {
			s.coord.LeaveRoom(ctx, cc.ConnID, req.Room)
			return AckBody{}, nil
		},
	)
}

// statusFromErr maps coordinator errors onto the {ok, error} status body
// the client sees. Unexpected failures are logged and reported
// generically.
func statusFromErr(err error) StatusBody {
	switch {
	case err == nil:
		return StatusBody{OK: true}
	case errors.Is(err, coordinator.ErrMissingFields),
		errors.Is(err, coordinator.ErrWrongCredential),
		errors.Is(err, room.ErrRoomExists),
		errors.Is(err, room.ErrRoomNotFound):
		return StatusBody{OK: false, Error: err.Error()}
	default:
		zap.L().Error("ws.handler", zap.Error(err))
		return StatusBody{OK: false, Error: "server error"}
	}
}

func (s *WsServer) reader(connID string, conn *clientConn) {
	defer func() {
		// Cleanup runs to completion even though the connection is gone:
		// ghost occupants must never survive a disconnect.
		rooms := s.coord.DisconnectCleanup(connID)
		if len(rooms) > 0 {
			zap.L().Debug("ws.disconnect_cleanup",
				zap.String("conn", connID), zap.Strings("rooms", rooms))
		}
		s.hub.Unregister(connID)
		_ = conn.rawConn.Close()
	}()

	conn.rawConn.SetReadLimit(maxMessageSize)
	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	cc := &ConnContext{ConnID: connID, Server: s}

	for {
		_, data, err := conn.rawConn.ReadMessage()
		if err != nil {
			return // client closed or errored
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			_ = conn.writeJSON(map[string]any{
				"event": "error",
				"body":  ErrorBody{Error: "malformed_envelope"},
			})
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 1900*time.Millisecond)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		// ---- error -> {"event":"error", "body":{...}} ---------------
		if err != nil {
			_ = conn.writeJSON(map[string]any{
				"event": "error",
				"body":  ErrorBody{Error: err.Error()},
			})
			continue
		}

		// ---- success -> {"event":"<evt>-ack", "body":{...}} --------
		reply := map[string]any{"event": env.Event + "-ack"}
		if res != nil {
			reply["body"] = res
		}
		_ = conn.writeJSON(reply)
	}
}

func (s *WsServer) pinger(conn *clientConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.write(websocket.PingMessage, nil); err != nil {
			_ = conn.rawConn.Close()
			return
		}
	}
}
