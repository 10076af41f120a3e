package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/anuragpy07/Sausico/logger"
	"github.com/anuragpy07/Sausico/model"
	"github.com/anuragpy07/Sausico/player"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 5 * time.Second

// StateHub fans playback state updates out to connected WebSocket clients.
// Clients that cannot keep up are dropped.
type StateHub struct {
	controller *player.Controller

	mu      sync.Mutex
	clients map[string]*websocket.Conn
	last    *model.PlaybackState

	done chan struct{}
}

// NewStateHub starts consuming the controller's update channel.
func NewStateHub(controller *player.Controller) *StateHub {
	h := &StateHub{
		controller: controller,
		clients:    make(map[string]*websocket.Conn),
		done:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *StateHub) run() {
	for {
		select {
		case state, ok := <-h.controller.Updates():
			if !ok {
				return
			}
			h.broadcast(state)
		case <-h.done:
			return
		}
	}
}

func (h *StateHub) broadcast(state model.PlaybackState) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last = &state
	for id, conn := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(state); err != nil {
			logger.Debug("dropping slow websocket client", logger.String("clientId", id))
			conn.Close()
			delete(h.clients, id)
		}
	}
}

// Handler upgrades the connection and registers the client. The latest
// known state is sent immediately so new clients render without waiting
// for the next change.
func (h *StateHub) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", logger.ErrorField(err))
		return
	}

	id := uuid.NewString()

	h.mu.Lock()
	h.clients[id] = conn
	last := h.last
	h.mu.Unlock()

	if last != nil {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(*last); err != nil {
			h.remove(id)
			return
		}
	}

	logger.Debug("websocket client connected", logger.String("clientId", id))

	// Drain reads to notice disconnects; clients never send payloads.
	go func() {
		defer h.remove(id)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *StateHub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conn, ok := h.clients[id]; ok {
		conn.Close()
		delete(h.clients, id)
	}
}

// Close disconnects all clients and stops the broadcast loop.
func (h *StateHub) Close() {
	close(h.done)
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, conn := range h.clients {
		conn.Close()
		delete(h.clients, id)
	}
}
