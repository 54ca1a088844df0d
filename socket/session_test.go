package socket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	authRepository "inkpad/internal/auth/repository"
	authService "inkpad/internal/auth/service"
	docRepository "inkpad/internal/document/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("session-test-secret")

func signToken(t *testing.T, email string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": email, "exp": time.Now().Add(time.Hour).Unix()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

// Helper function to read messages from a WebSocket connection with a timeout.
func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	var msg Message
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, p, err := conn.ReadMessage()
	require.NoError(t, err, "Failed to read message from WebSocket")
	require.NoError(t, json.Unmarshal(p, &msg), "Failed to unmarshal Message JSON")
	return msg
}

func newSessionServer(t *testing.T) (*Hub, sqlmock.Sqlmock, string, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	hub := NewHub()
	authSvc := authService.NewAuthService(authRepository.NewUserRepository(db), testSecret)
	docRepo := docRepository.NewDocumentRepository(db)

	r := chi.NewRouter()
	r.Get("/ws/{documentId}", func(w http.ResponseWriter, req *http.Request) {
		ServeWs(hub, authSvc, docRepo, w, req)
	})
	server := httptest.NewServer(r)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	return hub, mock, wsURL, func() {
		server.Close()
		db.Close()
	}
}

func expectResolve(mock sqlmock.Sqlmock, id, email string) {
	mock.ExpectQuery("SELECT id, email, password FROM users WHERE email = \\$1").
		WithArgs(email).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password"}).AddRow(id, email, "hash"))
}

func expectAccess(mock sqlmock.Sqlmock, docID, userID string, allowed bool) {
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(docID, userID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(allowed))
}

func TestSyncSessionBroadcastsToOtherViewers(t *testing.T) {
	hub, mock, wsURL, teardown := newSessionServer(t)
	defer teardown()

	docID := "42"

	expectResolve(mock, "user-a", "a@example.com")
	expectAccess(mock, docID, "user-a", true)
	connA, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/"+docID+"?token="+signToken(t, "a@example.com"), nil)
	require.NoError(t, err, "Client A failed to connect")
	defer connA.Close()

	expectResolve(mock, "user-b", "b@example.com")
	expectAccess(mock, docID, "user-b", true)
	connB, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/"+docID+"?token="+signToken(t, "b@example.com"), nil)
	require.NoError(t, err, "Client B failed to connect")
	defer connB.Close()

	require.Eventually(t, func() bool { return hub.attached(docID) == 2 },
		time.Second, 10*time.Millisecond, "both channels should be attached")

	// A sends a content-only update; persistence keeps the prior title.
	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(docID, "user-a", nil, "hello", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Untitled Document"))

	require.NoError(t, connA.WriteMessage(websocket.TextMessage, []byte(`{"type":"update","content":"hello"}`)))

	msg := readMessage(t, connB)
	assert.Equal(t, TypeUpdate, msg.Type)
	assert.Equal(t, docID, msg.DocumentID)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "Untitled Document", msg.Title)
	assert.False(t, msg.LastModified.IsZero())

	// The sender gets nothing back from its own message.
	connA.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = connA.ReadMessage()
	require.Error(t, err, "sender must not receive its own update")

	// Unknown message types are dropped without touching the store.
	require.NoError(t, connA.WriteMessage(websocket.TextMessage, []byte(`{"type":"cursor","content":"x"}`)))
	connB.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = connB.ReadMessage()
	require.Error(t, err, "unknown message types must not be broadcast")

	// A follow-up edit carries a strictly newer timestamp and can rename.
	mock.ExpectQuery("INSERT INTO documents").
		WithArgs(docID, "user-a", "Renamed", "hello again", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"title"}).AddRow("Renamed"))
	require.NoError(t, connA.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"update","content":"hello again","title":"Renamed"}`)))

	second := readMessage(t, connB)
	assert.Equal(t, "Renamed", second.Title)
	assert.True(t, second.LastModified.After(msg.LastModified),
		"lastModified must strictly increase across applied updates")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachRejectsInvalidCredential(t *testing.T) {
	hub, mock, wsURL, teardown := newSessionServer(t)
	defer teardown()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/42?token=not-a-token", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation),
		"expected policy violation close, got %v", err)

	assert.False(t, hub.hasRoom("42"), "rejected attach must not register a channel")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachRejectsUnauthorizedUser(t *testing.T) {
	hub, mock, wsURL, teardown := newSessionServer(t)
	defer teardown()

	expectResolve(mock, "user-c", "c@example.com")
	expectAccess(mock, "42", "user-c", false)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/42?token="+signToken(t, "c@example.com"), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	require.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation),
		"expected policy violation close, got %v", err)

	assert.False(t, hub.hasRoom("42"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDisconnectDetachesChannel(t *testing.T) {
	hub, mock, wsURL, teardown := newSessionServer(t)
	defer teardown()

	docID := "42"

	expectResolve(mock, "user-a", "a@example.com")
	expectAccess(mock, docID, "user-a", true)
	connA, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/"+docID+"?token="+signToken(t, "a@example.com"), nil)
	require.NoError(t, err)

	expectResolve(mock, "user-b", "b@example.com")
	expectAccess(mock, docID, "user-b", true)
	connB, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws/"+docID+"?token="+signToken(t, "b@example.com"), nil)
	require.NoError(t, err)
	defer connB.Close()

	require.Eventually(t, func() bool { return hub.attached(docID) == 2 },
		time.Second, 10*time.Millisecond)

	connA.Close()
	require.Eventually(t, func() bool { return hub.attached(docID) == 1 },
		time.Second, 10*time.Millisecond, "disconnect must detach the channel")

	// A broadcast after the disconnect reaches only the survivor.
	hub.Broadcast(Message{Type: TypeUpdate, DocumentID: docID, Content: "still here"}, docID, nil)
	msg := readMessage(t, connB)
	assert.Equal(t, "still here", msg.Content)

	assert.NoError(t, mock.ExpectationsWereMet())
}
