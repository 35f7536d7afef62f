package web

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"speakpanel/internal/panel"
)

const sendBuffer = 32

// message is the envelope for everything the server pushes to a browser.
type message struct {
	Type    string           `json:"type"`
	State   *panel.ViewState `json:"state,omitempty"`
	Message string           `json:"message,omitempty"`
}

func stateMessage(s panel.ViewState) []byte {
	b, _ := json.Marshal(message{Type: "state", State: &s})
	return b
}

func alertMessage(msg string) []byte {
	b, _ := json.Marshal(message{Type: "alert", Message: msg})
	return b
}

// ClientRecorder counts connected browsers.
type ClientRecorder interface {
	ClientConnected()
	ClientDisconnected()
}

type client struct {
	send chan []byte
	once sync.Once
	// removed is guarded by Hub.mu; a removed client is never added.
	removed bool
}

func newClient() *client {
	return &client{send: make(chan []byte, sendBuffer)}
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub is a panel.View that forwards every render and alert to all connected
// browsers.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	metrics ClientRecorder
	log     *logrus.Entry
}

func NewHub(metrics ClientRecorder) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		metrics: metrics,
		log:     logrus.WithField("component", "hub"),
	}
}

func (h *Hub) Render(s panel.ViewState) {
	h.broadcast(stateMessage(s))
}

func (h *Hub) Alert(msg string) {
	h.broadcast(alertMessage(msg))
}

// Len reports how many browsers are connected.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	if c.removed {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ClientConnected()
	}
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	c.removed = true
	h.mu.Unlock()

	c.close()
	if ok && h.metrics != nil {
		h.metrics.ClientDisconnected()
	}
}

func (h *Hub) broadcast(b []byte) {
	h.mu.Lock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.Unlock()

	// A client that cannot keep up would show stale state; drop it and let
	// the browser reconnect.
	for _, c := range slow {
		h.log.Warn("dropping slow panel client")
		h.remove(c)
	}
}
