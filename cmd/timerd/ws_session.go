package main

import (
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"pomosync"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 << 10
)

// wsSession is one connected device on the sync channel. The daemon never
// interprets timer semantics; it validates the envelope and relays it to
// the user's other sessions.
type wsSession struct {
	userID pomosync.UserID
	conn   *websocket.Conn
	send   chan []byte
	hub    *hub
	l      *log.Logger
}

func newWSSession(userID pomosync.UserID, conn *websocket.Conn, h *hub, logger *log.Logger) *wsSession {
	return &wsSession{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 32),
		hub:    h,
		l:      logger,
	}
}

func (s *wsSession) readPump() {
	defer func() {
		s.hub.remove(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.l.Warn("sync channel read failed", "userID", s.userID, "err", err)
			}
			return
		}

		var evt pomosync.SyncEvent
		if err := json.Unmarshal(data, &evt); err != nil || !evt.Type.Valid() {
			s.l.Warn("dropping malformed sync event", "userID", s.userID, "err", err)
			continue
		}
		s.l.Debug("relaying sync event", "userID", s.userID, "type", evt.Type)
		s.hub.broadcast(s, data)
	}
}

func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
