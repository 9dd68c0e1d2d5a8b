package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exportcheck/internal/shared/testutil"
)

type fakeConn struct{}

func (fakeConn) WriteMessage(int, []byte) error { return nil }
func (fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, websocket.ErrCloseSent }
func (fakeConn) Close() error { return nil }
func (fakeConn) SetReadDeadline(time.Time) error { return nil }
func (fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (fakeConn) SetReadLimit(int64) {}
func (fakeConn) SetPongHandler(func(string) error) {}
func (fakeConn) RemoteAddr() string { return "127.0.0.1:1234" }

func startServer(t *testing.T, allowed []string) (*Hub, string) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(logger)
	hub.Start()
	t.Cleanup(hub.Stop)

	srv := httptest.NewServer(Handler(hub, allowed, logger))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub, url := startServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hello := readMessage(t, conn)
	assert.Equal(t, TypeConnection, hello.Type)
	assert.Equal(t, "connected", hello.Status)
	assert.Equal(t, 1, hub.ClientCount())

	hub.BroadcastUpdate("run:progress", "run-1", "running", map[string]int{"step": 3})

	msg := readMessage(t, conn)
	assert.Equal(t, "run:progress", msg.Type)
	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, "running", msg.Status)
	assert.Equal(t, map[string]interface{}{"step": float64(3)}, msg.Data)
	assert.NotEmpty(t, msg.Timestamp)
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub, url := startServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	readMessage(t, conn)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_StopDisconnectsClients(t *testing.T) {
	hub, url := startServer(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	readMessage(t, conn)

	hub.Stop()
	hub.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, hub.ClientCount())
}

func TestHandler_RejectsForeignOrigin(t *testing.T) {
	_, url := startServer(t, []string{"http://allowed.example"})

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "http://allowed.example")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func TestOriginAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"no origin", "", nil, true},
		{"same host", "http://localhost:8080", nil, true},
		{"foreign", "http://evil.example", nil, false},
		{"listed", "http://ui.example", []string{"http://ui.example"}, true},
		{"wildcard", "http://any.example", []string{"*"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://localhost:8080/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originAllowed(r, tt.allowed))
		})
	}
}

func TestHub_BroadcastNeverBlocks(t *testing.T) {
	hub := NewHub(nil)

	for i := 0; i < broadcastBuffer+10; i++ {
		hub.BroadcastUpdate("run:progress", "r", "running", i)
	}

	metrics := hub.GetHubMetrics()
	assert.Equal(t, int64(10), metrics["messages_dropped"])
	assert.Equal(t, broadcastBuffer, metrics["broadcast_queue"])
}

func TestHub_RegisterAfterStop(t *testing.T) {
	hub := NewHub(nil)
	hub.Start()
	hub.Stop()

	client := NewClient(hub, fakeConn{}, "trace-1", nil)
	hub.Register(client)

	_, ok := <-client.send
	assert.False(t, ok)
	assert.NotEmpty(t, client.ID())

	// dropped silently once stopped
	hub.BroadcastUpdate("run:status", "r", "done", nil)
	hub.Unregister(client)
}
