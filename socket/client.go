package socket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"inkpad/pkg/logger"
	"inkpad/store"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin allows us to connect from the dev frontend
	CheckOrigin: func(r *http.Request) bool { return true },
}

// IdentityResolver validates the attach credential.
type IdentityResolver interface {
	Resolve(token string) (store.User, error)
}

// DocumentStore is the slice of persistence the session needs: the
// owner-or-any-grant authorization rule and the last-writer-wins update
// apply. Each call acquires its own scoped handle from the pool.
type DocumentStore interface {
	CheckAccess(docID, userID string) (bool, error)
	ApplyUpdate(docID, ownerID, content string, title *string, modified time.Time) (string, error)
}

type inboundMessage struct {
	Type    string  `json:"type"`
	Content string  `json:"content"`
	Title   *string `json:"title"`
}

// Client is one live channel. Identity is the connection, not the user:
// the same user gets one Client per open tab.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	store DocumentStore
	docID string
	user  store.User

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// ServeWs handles an attach to /ws/{documentId}. The credential travels
// as a query parameter because browsers cannot set headers on WebSocket
// dials. Authentication and authorization failures close with the same
// policy-violation code, so a caller cannot tell which check failed.
func ServeWs(hub *Hub, resolver IdentityResolver, docStore DocumentStore, w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "documentId")
	if docID == "" {
		http.Error(w, "Missing document id", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	user, err := resolver.Resolve(r.URL.Query().Get("token"))
	if err != nil {
		logger.Sugar.Warnf("Rejected unauthenticated attach to doc %s", docID)
		closePolicyViolation(conn)
		return
	}

	ok, err := docStore.CheckAccess(docID, user.ID)
	if err != nil || !ok {
		logger.Sugar.Warnf("User %s is not authorized to view doc %s", user.Email, docID)
		closePolicyViolation(conn)
		return
	}

	client := &Client{
		hub:   hub,
		conn:  conn,
		store: docStore,
		docID: docID,
		user:  user,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
	}
	hub.Attach(client, docID)

	go client.writePump()
	go client.readPump()
}

func closePolicyViolation(conn *websocket.Conn) {
	deadline := time.Now().Add(writeWait)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""), deadline)
	conn.Close()
}

// readPump is the session loop: receive an edit, persist it, fan the
// canonical state out to everyone else on the document. Whatever breaks
// the loop, the deferred cleanup detaches this channel exactly once.
func (c *Client) readPump() {
	defer func() {
		c.hub.Detach(c, c.docID)
		c.close()
	}()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}
		if msg.Type != TypeUpdate {
			continue
		}

		// An update to a not-yet-seen id creates the document, with the
		// sender as owner. Concurrent updates to the same document race
		// last-writer-wins; there is no optimistic check here.
		modified := time.Now().UTC()
		title, err := c.store.ApplyUpdate(c.docID, c.user.ID, msg.Content, msg.Title, modified)
		if err != nil {
			continue
		}

		c.hub.Broadcast(Message{
			Type:         TypeUpdate,
			DocumentID:   c.docID,
			Content:      msg.Content,
			Title:        title,
			LastModified: modified,
		}, c.docID, c)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// trySend queues a frame without blocking. False means the channel is
// closed or its buffer is full, either way it is beyond saving.
func (c *Client) trySend(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close tears the channel down, exactly once regardless of which exit
// path got here first.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}
