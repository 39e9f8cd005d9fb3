package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func ask(t *testing.T, conn *websocket.Conn, word string) WordReply {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(word)))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply WordReply
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestWebSocketQueries(t *testing.T) {
	f := setupFixture(t)
	s := New(testConfig(), f.store, abc)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv, nil)

	reply := ask(t, conn, "ABC")
	assert.Nil(t, reply.Error)
	assert.Equal(t, "ABC", reply.Word)
	assert.Equal(t, map[int]string{1: "A-BC", 2: "AB-C", 3: "A-B-C", 4: "A(B)C"}, reply.Formations)

	reply = ask(t, conn, "CCC")
	assert.Nil(t, reply.Error)
	assert.Empty(t, reply.Formations)

	reply = ask(t, conn, "AB")
	require.NotNil(t, reply.Error)
	assert.Equal(t, "CORRUPT_FORMATION", reply.Error.Code)

	// the connection survives a corrupt formation
	reply = ask(t, conn, "ABC")
	assert.Len(t, reply.Formations, 4)

	assert.Eventually(t, func() bool { return s.hub.Count() == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return s.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketBinaryMessage(t *testing.T) {
	f := setupFixture(t)
	srv := httptest.NewServer(New(testConfig(), f.store, abc).Handler())
	defer srv.Close()

	conn := dial(t, srv, nil)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("ABC")))
	var reply WordReply
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&reply))
	require.NotNil(t, reply.Error)
	assert.Equal(t, "BAD_REQUEST", reply.Error.Code)

	reply = ask(t, conn, "A\x00B")
	require.NotNil(t, reply.Error)
	assert.Equal(t, "BAD_REQUEST", reply.Error.Code)
}

func TestWebSocketRateLimit(t *testing.T) {
	f := setupFixture(t)
	cfg := testConfig()
	cfg.MaxMessageRate = 1
	srv := httptest.NewServer(New(cfg, f.store, abc).Handler())
	defer srv.Close()

	conn := dial(t, srv, nil)
	// a rate of one per second allows a burst of two
	assert.Nil(t, ask(t, conn, "ABC").Error)
	assert.Nil(t, ask(t, conn, "ABC").Error)
	reply := ask(t, conn, "ABC")
	require.NotNil(t, reply.Error)
	assert.Equal(t, "RATE_LIMITED", reply.Error.Code)
}

func TestWebSocketMessageTooLarge(t *testing.T) {
	f := setupFixture(t)
	cfg := testConfig()
	cfg.MaxMessageSize = 8
	srv := httptest.NewServer(New(cfg, f.store, abc).Handler())
	defer srv.Close()

	conn := dial(t, srv, nil)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(strings.Repeat("A", 64))))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err, "the server closes an oversized message's connection")
}

func TestWebSocketOrigin(t *testing.T) {
	f := setupFixture(t)
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"https://ok.example"}
	srv := httptest.NewServer(New(cfg, f.store, abc).Handler())
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, http.Header{"Origin": {"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dial(t, srv, http.Header{"Origin": {"https://ok.example"}})
	assert.Len(t, ask(t, conn, "ABC").Formations, 4)
}

func TestHubCloseAll(t *testing.T) {
	f := setupFixture(t)
	s := New(testConfig(), f.store, abc)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conns := []*websocket.Conn{dial(t, srv, nil), dial(t, srv, nil)}
	require.Eventually(t, func() bool { return s.hub.Count() == 2 }, time.Second, 10*time.Millisecond)

	s.hub.CloseAll()
	for _, c := range conns {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, _, err := c.ReadMessage()
		assert.Error(t, err)
	}
	assert.Eventually(t, func() bool { return s.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMessageRateBucket(t *testing.T) {
	assert.True(t, (*messageRateBucket)(nil).allow(), "nil bucket never limits")
	assert.Nil(t, newMessageRateBucket(0))

	b := newMessageRateBucket(2)
	for i := range 4 {
		assert.True(t, b.allow(), "burst message %d", i)
	}
	assert.False(t, b.allow())

	b.last = b.last.Add(-time.Second)
	assert.True(t, b.allow(), "a second later two tokens are back")
	assert.True(t, b.allow())
	assert.False(t, b.allow())
}
