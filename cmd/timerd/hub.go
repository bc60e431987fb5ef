package main

import (
	"sync"

	"github.com/charmbracelet/log"

	"pomosync"
)

// hub tracks every open sync-channel session grouped by user and relays
// events between them. The origin session is always excluded from a
// broadcast so an event never echoes back to its sender.
type hub struct {
	mu       sync.RWMutex
	sessions map[pomosync.UserID]map[*wsSession]struct{}
	l        *log.Logger
}

func newHub(logger *log.Logger) *hub {
	return &hub{
		sessions: make(map[pomosync.UserID]map[*wsSession]struct{}),
		l:        logger,
	}
}

func (h *hub) add(s *wsSession) {
	h.mu.Lock()
	defer h.mu.Unlock()

	peers, ok := h.sessions[s.userID]
	if !ok {
		peers = make(map[*wsSession]struct{})
		h.sessions[s.userID] = peers
	}
	peers[s] = struct{}{}
	h.l.Debug("session joined", "userID", s.userID, "count", len(peers))
}

func (h *hub) remove(s *wsSession) {
	h.mu.Lock()
	defer h.mu.Unlock()

	peers, ok := h.sessions[s.userID]
	if !ok {
		return
	}
	if _, ok := peers[s]; !ok {
		return
	}
	delete(peers, s)
	close(s.send)
	if len(peers) == 0 {
		delete(h.sessions, s.userID)
	}
	h.l.Debug("session left", "userID", s.userID, "count", len(peers))
}

func (h *hub) broadcast(origin *wsSession, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for peer := range h.sessions[origin.userID] {
		if peer == origin {
			continue
		}
		select {
		case peer.send <- data:
		default:
			// peer is not draining its queue; drop rather than stall the hub
			h.l.Warn("dropping event for slow session", "userID", peer.userID)
		}
	}
}

func (h *hub) sessionCnt(id pomosync.UserID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[id])
}

func (h *hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, peers := range h.sessions {
		for s := range peers {
			delete(peers, s)
			close(s.send)
			_ = s.conn.Close()
		}
	}
	h.sessions = make(map[pomosync.UserID]map[*wsSession]struct{})
}
