package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type client struct {
	learnerID string
	conn      *websocket.Conn
	send      chan []byte
}

// GET /ws
// Sends the current progress view on connect, then one view after every
// change to the learner's state. Inbound messages are commands:
// {"type":"key","key":"ArrowRight"}, {"type":"goto","index":5},
// {"type":"complete","id":1}, {"type":"next"}, {"type":"previous"},
// {"type":"section","id":2}.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	learnerID := learnerFrom(r.Context())
	// The connection holds the controller so an open tab keeps the learner
	// loaded.
	ctrl, release, err := s.registry.Get(r.Context(), learnerID)
	if err != nil {
		s.log.Error("load learner", "learner", learnerID, "error", err)
		http.Error(w, "failed to load progress", http.StatusInternalServerError)
		return
	}
	defer release()

	var header http.Header
	if cookies := w.Header().Values("Set-Cookie"); len(cookies) > 0 {
		header = http.Header{"Set-Cookie": cookies}
	}
	conn, err := upgrader.Upgrade(w, r, header)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{learnerID: learnerID, conn: conn, send: make(chan []byte, sendBuffer)}
	if !s.hub.register(c) {
		conn.Close()
		return
	}

	v := s.view(learnerID, ctrl.State())
	s.reply(c, outbound{Type: "progress", Progress: &v})

	go c.writePump()
	s.readPump(r, c)
}

// readPump applies inbound commands until the connection closes.
func (s *Server) readPump(r *http.Request, c *client) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("websocket read", "learner", c.learnerID, "error", err)
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.reply(c, outbound{Type: "error", Error: "invalid JSON"})
			continue
		}
		if _, err := s.apply(r.Context(), c.learnerID, "ws", cmd); err != nil {
			if !errors.Is(err, errBadCommand) && !errors.Is(err, errUnknownSection) {
				s.log.Error("apply command", "learner", c.learnerID, "type", cmd.Type, "error", err)
			}
			s.reply(c, outbound{Type: "error", Error: err.Error()})
		}
	}
}

// reply sends msg to c alone.
func (s *Server) reply(c *client, msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	if _, ok := s.hub.clients[c.learnerID][c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
// It exits when the hub closes c.send.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
