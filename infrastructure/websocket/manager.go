package websocket

import (
	"sync"

	"github.com/google/uuid"

	"eventfaces/pkg/logger"
)

// Message is one progress update for the clients of a room
type Message struct {
	Room string      `json:"room"`
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client is one connected websocket. Outbound is closed when the client leaves.
type Client struct {
	ID       uuid.UUID
	Room     string
	Outbound chan Message
}

// RoomManager tracks clients per room. Rooms are keyed by event id.
type RoomManager struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]bool
	bufSize int
}

func NewRoomManager(bufSize int) *RoomManager {
	if bufSize <= 0 {
		bufSize = 32
	}
	return &RoomManager{
		rooms:   make(map[string]map[*Client]bool),
		bufSize: bufSize,
	}
}

// Join registers a client in a room
func (m *RoomManager) Join(clientID uuid.UUID, room string) *Client {
	c := &Client{ID: clientID, Room: room, Outbound: make(chan Message, m.bufSize)}

	m.mu.Lock()
	if m.rooms[room] == nil {
		m.rooms[room] = make(map[*Client]bool)
	}
	m.rooms[room][c] = true
	m.mu.Unlock()

	logger.WebSocket("client_joined", "Client joined room", map[string]interface{}{
		"client_id": clientID.String(),
		"room":      room,
	})
	return c
}

// Leave removes a client and closes its outbound channel. Safe to call twice.
func (m *RoomManager) Leave(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clients, ok := m.rooms[c.Room]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(m.rooms, c.Room)
	}
	close(c.Outbound)

	logger.WebSocket("client_left", "Client left room", map[string]interface{}{
		"client_id": c.ID.String(),
		"room":      c.Room,
	})
}

// Broadcast delivers msg to every client in msg.Room. Slow clients drop messages rather than block the sender.
func (m *RoomManager) Broadcast(msg Message) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	delivered := 0
	for c := range m.rooms[msg.Room] {
		select {
		case c.Outbound <- msg:
			delivered++
		default:
			logger.WebSocketError("broadcast_dropped", "Client buffer full, message dropped", nil, map[string]interface{}{
				"client_id": c.ID.String(),
				"room":      msg.Room,
				"type":      msg.Type,
			})
		}
	}
	return delivered
}

// Count returns the number of clients in a room
func (m *RoomManager) Count(room string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms[room])
}

// Notify sends a processing update to the room of the event
func (m *RoomManager) Notify(eventID uuid.UUID, msgType string, data interface{}) {
	m.Broadcast(Message{Room: eventID.String(), Type: msgType, Data: data})
}
