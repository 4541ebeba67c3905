package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatline/internal/observability"
	"chatline/internal/relay"
)

// Handler upgrades HTTP requests and pumps inbound frames into the relay
// engine. Connections arrive unauthenticated; the login event establishes the
// sender identity for the rest of the connection's life.
type Handler struct {
	engine  *relay.Engine
	service string
}

func NewHandler(engine *relay.Engine, service string) *Handler {
	return &Handler{engine: engine, service: service}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := observability.GetLogger(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("upgrade error", zap.Error(err))
		return
	}

	session := NewSession(uuid.NewString(), conn)
	session.Start()

	log.Info("connected", zap.String("session_id", session.ID))
	observability.WebSocketConnectionsActive.WithLabelValues(h.service).Inc()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go h.readLoop(session)
}

func (h *Handler) readLoop(s *Session) {
	ctx := context.Background()
	log := observability.GetLogger(ctx)

	defer func() {
		h.engine.Disconnect(ctx, s)
		s.Close()
		log.Info("disconnected", zap.String("session_id", s.ID))
		observability.WebSocketConnectionsActive.WithLabelValues(h.service).Dec()
	}()

	senderID := ""
	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error("read loop error", zap.String("session_id", s.ID), zap.Error(err))
			}
			return
		}

		var frame relay.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			log.Debug("bad frame", zap.String("session_id", s.ID), zap.Error(err))
			continue
		}

		senderID = h.engine.Dispatch(ctx, s, senderID, frame)
	}
}
