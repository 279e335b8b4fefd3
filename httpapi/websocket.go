package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jxucoder/truthordare/eventbus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API is meant for local game screens on any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// handleSessionWebSocket streams state events of a session as JSON text
// messages. Messages from the client are ignored.
func (h *Handler) handleSessionWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied to the client.
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	logger := h.logger.With(zap.String("session_id", sess.ID))
	logger.Debug("websocket connected")

	bus := h.sessions.Bus()
	ch := bus.Subscribe(sess.ID)
	defer bus.Unsubscribe(sess.ID, ch)

	gone := make(chan struct{})
	go readPump(conn, gone)

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		logger.Debug("websocket disconnected")
	}()

	first := &eventbus.Event{SessionID: sess.ID, Type: eventbus.TypeState, State: sess.Engine().State(), CreatedAt: time.Now().UTC()}
	if err := writeEvent(conn, first); err != nil {
		return
	}

	for {
		select {
		case <-gone:
			return
		case event, ok := <-ch:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if err := writeEvent(conn, event); err != nil {
				logger.Debug("websocket write failed", zap.Error(err))
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

func writeEvent(conn *websocket.Conn, event *eventbus.Event) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(event)
}

// readPump drains client frames so that pongs and close frames are
// processed, and closes gone when the connection ends.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
