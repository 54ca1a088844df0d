package socket

import (
	"encoding/json"
	"sync"
	"time"

	"inkpad/pkg/logger"
)

// TypeUpdate is the only inbound message type the session loop handles.
// Anything else is dropped so new client message types stay backwards
// compatible.
const TypeUpdate = "update"

// Message is the canonical frame fanned out to every other viewer of a
// document after an edit is persisted.
type Message struct {
	Type         string    `json:"type"`
	DocumentID   string    `json:"documentId"`
	Content      string    `json:"content"`
	Title        string    `json:"title"`
	LastModified time.Time `json:"lastModified"`
}

// Hub tracks which channels are attached to which document. One instance
// is constructed at startup and shared by the socket sessions and the
// REST service layer.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]bool)}
}

// Attach registers the channel under the document id.
func (h *Hub) Attach(c *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[docID] == nil {
		h.rooms[docID] = make(map[*Client]bool)
	}
	h.rooms[docID][c] = true
}

// Detach removes the channel. Detaching a channel that was never
// attached, or detaching twice, is a no-op: detach races with
// disconnect and must never blow up. The room entry disappears with its
// last member so the map stays bounded by live connections.
func (h *Hub) Detach(c *Client, docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[docID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, docID)
	}
}

// Broadcast delivers msg to every channel attached to docID except
// exclude. The recipient set is snapshotted under the lock and the
// sends happen outside it. A channel that cannot accept the message is
// detached and closed; delivery to the rest continues.
func (h *Hub) Broadcast(msg Message, docID string, exclude *Client) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
		return
	}

	h.mu.Lock()
	recipients := make([]*Client, 0, len(h.rooms[docID]))
	for client := range h.rooms[docID] {
		if client != exclude {
			recipients = append(recipients, client)
		}
	}
	h.mu.Unlock()

	for _, client := range recipients {
		if !client.trySend(payload) {
			logger.Sugar.Warnf("Dropping unresponsive channel on doc %s", docID)
			h.Detach(client, docID)
			client.close()
		}
	}
}

// RemoveDocument force-detaches every channel of a deleted document.
func (h *Hub) RemoveDocument(docID string) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.rooms[docID]))
	for client := range h.rooms[docID] {
		clients = append(clients, client)
	}
	delete(h.rooms, docID)
	h.mu.Unlock()

	for _, client := range clients {
		client.close()
	}
}

// attached reports current membership, for tests.
func (h *Hub) attached(docID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[docID])
}

// hasRoom reports whether a registry entry exists at all, for tests.
func (h *Hub) hasRoom(docID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.rooms[docID]
	return ok
}
