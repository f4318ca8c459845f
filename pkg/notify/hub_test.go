package notify

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plml/oscquery-go/pkg/log"
	"github.com/plml/oscquery-go/pkg/tree"
	"github.com/plml/oscquery-go/pkg/wire"
)

type captureLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (c *captureLogger) Log(e log.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}

func (c *captureLogger) count(cat log.Category, dir log.Direction) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Category == cat && e.Direction == dir {
			n++
		}
	}
	return n
}

type fixture struct {
	tree *tree.Tree
	hub  *Hub
	srv  *httptest.Server
	plog *captureLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tr := tree.New()
	require.NoError(t, tr.Register(tree.NewFloat("/hands/left/x", 0.5, tree.WithMin(0), tree.WithMax(1))))
	require.NoError(t, tr.Register(tree.NewString("/label", "a")))
	require.NoError(t, tr.Register(tree.NewColor("/tint", tree.Color{})))

	plog := &captureLogger{}
	cfg := DefaultConfig()
	cfg.ProtocolLogger = plog
	hub := NewHub(tr, cfg)
	tr.SetObserver(hub)

	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		srv.Close()
		_ = hub.Close()
	})
	return &fixture{tree: tr, hub: hub, srv: srv, plog: plog}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func (f *fixture) waitActive(t *testing.T, sessions int) string {
	t.Helper()
	require.Eventually(t, func() bool { return f.hub.Sessions() == sessions }, time.Second, 5*time.Millisecond)
	return f.hub.ActiveSession()
}

func sendCommand(t *testing.T, conn *websocket.Conn, cmd, path string) {
	t.Helper()
	data, err := json.Marshal(wire.Command{Command: cmd, Data: path})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func readFrame(t *testing.T, conn *websocket.Conn) (int, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return kind, data
}

func listening(f *fixture, path string) func() bool {
	return func() bool {
		v, ok := f.tree.Lookup(path)
		return ok && v.Listening
	}
}

func TestListenPushesValueChanges(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	f.waitActive(t, 1)

	sendCommand(t, conn, "LISTEN", "/hands/left/x")
	require.Eventually(t, listening(f, "/hands/left/x"), time.Second, 5*time.Millisecond)

	require.NoError(t, f.tree.SetValue("/hands/left/x", []any{0.25}))

	kind, data := readFrame(t, conn)
	assert.Equal(t, websocket.BinaryMessage, kind)

	pkt, err := wire.DecodePacket(data)
	require.NoError(t, err)
	msgs := pkt.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "/hands/left/x", msgs[0].Address)
	assert.Equal(t, []any{0.25}, msgs[0].Args)

	assert.Eventually(t, func() bool {
		return f.plog.count(log.CategoryMessage, log.DirectionOut) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestColorPushUsesRGBA(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	f.waitActive(t, 1)

	sendCommand(t, conn, "LISTEN", "/tint")
	require.Eventually(t, listening(f, "/tint"), time.Second, 5*time.Millisecond)

	require.NoError(t, f.tree.SetValue("/tint", []any{"FF000080"}))

	_, data := readFrame(t, conn)
	assert.True(t, bytes.Contains(data, []byte(",r")), "type tags in % x", data)
	pkt, err := wire.DecodePacket(data)
	require.NoError(t, err)
	assert.Equal(t, []any{wire.RGBA(0xFF000080)}, pkt.Args)
}

func TestCommandsAreCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	f.waitActive(t, 1)

	sendCommand(t, conn, "listen", "/LABEL")
	require.Eventually(t, listening(f, "/label"), time.Second, 5*time.Millisecond)

	sendCommand(t, conn, "Ignore", "/label")
	require.Eventually(t, func() bool { return !listening(f, "/label")() }, time.Second, 5*time.Millisecond)
}

func TestIgnoreStopsPushes(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	f.waitActive(t, 1)

	sendCommand(t, conn, "LISTEN", "/label")
	require.Eventually(t, listening(f, "/label"), time.Second, 5*time.Millisecond)
	sendCommand(t, conn, "IGNORE", "/label")
	require.Eventually(t, func() bool { return !listening(f, "/label")() }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.tree.Set("/label", "b"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err, "no frame expected after IGNORE")
}

func TestPathAddedPush(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	f.waitActive(t, 1)

	require.NoError(t, f.tree.Register(tree.NewInt("/hands/right/y", 3)))

	want := []string{"/hands/right", "/hands/right/y"}
	for _, path := range want {
		kind, data := readFrame(t, conn)
		assert.Equal(t, websocket.TextMessage, kind)

		var cmd wire.Command
		require.NoError(t, json.Unmarshal(data, &cmd))
		assert.Equal(t, wire.CommandPathAdded, cmd.Command)
		assert.Equal(t, path, cmd.Data)
	}
}

func TestNewestSessionIsActive(t *testing.T) {
	f := newFixture(t)
	first := f.dial(t)
	firstID := f.waitActive(t, 1)
	require.NotEmpty(t, firstID)

	second := f.dial(t)
	secondID := f.waitActive(t, 2)
	require.NotEqual(t, firstID, secondID)

	// Both sessions may still send commands.
	sendCommand(t, first, "LISTEN", "/label")
	require.Eventually(t, listening(f, "/label"), time.Second, 5*time.Millisecond)

	require.NoError(t, f.tree.Set("/label", "pushed"))

	kind, data := readFrame(t, second)
	assert.Equal(t, websocket.BinaryMessage, kind)
	pkt, err := wire.DecodePacket(data)
	require.NoError(t, err)
	assert.Equal(t, "/label", pkt.Address)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = first.ReadMessage()
	assert.Error(t, err, "inactive session must not receive pushes")
}

func TestMalformedCommandKeepsSession(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	f.waitActive(t, 1)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	sendCommand(t, conn, "LISTEN", "/missing")
	sendCommand(t, conn, "LISTEN", "/label")

	require.Eventually(t, listening(f, "/label"), time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, f.hub.Sessions())
	assert.Eventually(t, func() bool {
		return f.plog.count(log.CategoryError, log.DirectionIn) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestDisconnectClearsActive(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	f.waitActive(t, 1)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return f.hub.Sessions() == 0 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, f.hub.ActiveSession())

	// Pushes without a session are dropped, not blocked.
	require.NoError(t, f.tree.SetListening("/label", true))
	require.NoError(t, f.tree.Set("/label", "dropped"))
}

func TestCloseSendsNormalClosure(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	f.waitActive(t, 1)

	require.NoError(t, f.hub.Close())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Equal(t, 0, f.hub.Sessions())

	// A closed hub refuses new sessions.
	resp, err := http.Get(f.srv.URL)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	assert.NoError(t, f.hub.Close())
}

func TestFullQueueDrops(t *testing.T) {
	s := &session{send: make(chan outFrame, 1), done: make(chan struct{})}
	assert.True(t, s.enqueue(outFrame{}))
	assert.False(t, s.enqueue(outFrame{}))

	close(s.done)
	<-s.send
	assert.False(t, s.enqueue(outFrame{}))
}

func TestIsUpgrade(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, IsUpgrade(r))

	r.Header.Set("Connection", "Upgrade")
	r.Header.Set("Upgrade", "websocket")
	assert.True(t, IsUpgrade(r))
}
