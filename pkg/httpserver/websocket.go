package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveWebSocket upgrades the request and streams scan updates to the
// client: the current snapshot immediately, then the updates published by
// the scanner until the client disconnects. A client that falls behind loses
// its oldest pending updates (see Scanner.Subscribe).
func (h *apiHandler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket-upgrade-failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, unsubscribe := h.scanner.Subscribe()
	defer unsubscribe()

	if err := h.sendSnapshot(conn); err != nil {
		return
	}

	done := make(chan struct{})
	go h.readPump(conn, done)

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		return nil
	})

	for {
		select {
		case <-done:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(update); err != nil {
				h.logger.Debug("websocket-write-failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains and discards client frames, only to detect disconnects;
// the control plane is otherwise one-directional.
func (h *apiHandler) readPump(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *apiHandler) sendSnapshot(conn *websocket.Conn) error {
	opportunities := h.scanner.Opportunities()
	dicts := make([]map[string]interface{}, len(opportunities))
	for i := range opportunities {
		dicts[i] = opportunities[i].ToDict()
	}

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(struct {
		Type          string                   `json:"type"`
		Opportunities []map[string]interface{} `json:"opportunities"`
		Stats         interface{}              `json:"stats"`
	}{
		Type:          "snapshot",
		Opportunities: dicts,
		Stats:         h.scanner.Stats(),
	})
}
