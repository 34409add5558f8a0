package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/models"
	"messenger-service/internal/presence"
	"messenger-service/internal/relay"
)

func newTestServer(t *testing.T) (*httptest.Server, *presence.Directory) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	directory := presence.NewDirectory()
	handler := NewHandler(directory, relay.New(relay.Deps{Directory: directory}))

	router := gin.New()
	router.GET("/ws", handler.Handle)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, directory
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readCallback(t *testing.T, conn *websocket.Conn) models.Callback {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var cb models.Callback
	require.NoError(t, conn.ReadJSON(&cb))
	return cb
}

func TestHandshakeRegistersIdentity(t *testing.T) {
	srv, directory := newTestServer(t)

	dialWS(t, srv, "?user_id=7")

	require.Eventually(t, func() bool { return directory.IsOnline(7) },
		time.Second, 10*time.Millisecond)
}

func TestAnonymousConnectionStaysUntracked(t *testing.T) {
	srv, directory := newTestServer(t)

	conn := dialWS(t, srv, "")
	require.NoError(t, conn.WriteJSON(models.Envelope{Event: "no_such_event", AckID: 1}))

	cb := readCallback(t, conn)
	assert.False(t, cb.Success)
	assert.False(t, directory.IsOnline(0))
}

func TestMalformedEnvelopeGetsFailureCallback(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dialWS(t, srv, "?user_id=7")
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))

	cb := readCallback(t, conn)
	assert.False(t, cb.Success)
	assert.Equal(t, "malformed envelope", cb.Error)
}

// Intents without an ack id are fire-and-forget; the first frame the client
// sees is the callback for the first acked intent.
func TestCallbackOnlyWhenAckRequested(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dialWS(t, srv, "?user_id=7")
	require.NoError(t, conn.WriteJSON(models.Envelope{Event: "fire_and_forget"}))
	require.NoError(t, conn.WriteJSON(models.Envelope{Event: "acked_intent", AckID: 9}))

	cb := readCallback(t, conn)
	assert.Equal(t, "acked_intent", cb.For)
	assert.Equal(t, int64(9), cb.AckID)
}

// The explicit goodbye unregisters the identity before the socket closes.
func TestEndUnregistersIdentity(t *testing.T) {
	srv, directory := newTestServer(t)

	conn := dialWS(t, srv, "?user_id=7")
	require.Eventually(t, func() bool { return directory.IsOnline(7) },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(models.Envelope{Event: "end"}))

	require.Eventually(t, func() bool { return !directory.IsOnline(7) },
		time.Second, 10*time.Millisecond)
}

func TestTransportDisconnectUnregistersIdentity(t *testing.T) {
	srv, directory := newTestServer(t)

	conn := dialWS(t, srv, "?user_id=8")
	require.Eventually(t, func() bool { return directory.IsOnline(8) },
		time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return !directory.IsOnline(8) },
		time.Second, 10*time.Millisecond)
}
