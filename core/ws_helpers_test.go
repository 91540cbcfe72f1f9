package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

var baseTimeout = time.Second

type openedConn struct {
	id       string
	username string
}

type wsFixture struct {
	t       *testing.T
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	cm      *ConnManager
	server  *httptest.Server
	opened  chan openedConn
	mu      sync.Mutex
	clients []*websocket.Conn
}

func setUpWSFixture(t *testing.T, opts ...ManagerOption) *wsFixture {
	f := &wsFixture{t: t, opened: make(chan openedConn, 16)}
	f.ctx, f.cancel = context.WithCancel(context.Background())

	f.cm = NewConnManager(f.ctx, &f.wg, discardLogger(), opts...)
	f.cm.OnConnectionOpened(func(id, username string) {
		f.opened <- openedConn{id: id, username: username}
	})
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.cm.Connect(r.URL.Query().Get("username"), w, r)
	}))
	return f
}

func getWSURLFromHTTPURL(httpURL string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http")
}

// dial connects a client and returns it with the id the manager assigned.
func (f *wsFixture) dial(username string) (*websocket.Conn, string) {
	f.t.Helper()
	u := getWSURLFromHTTPURL(f.server.URL) + "?username=" + url.QueryEscape(username)
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoErrorf(f.t, err, "%s: failed to connect to server", username)
	f.mu.Lock()
	f.clients = append(f.clients, conn)
	f.mu.Unlock()

	select {
	case o := <-f.opened:
		require.Equal(f.t, username, o.username)
		return conn, o.id
	case <-time.After(baseTimeout):
		f.t.Fatal("Timeout waiting for connection to be opened")
		return nil, ""
	}
}

// next returns the next event the manager received.
func (f *wsFixture) next() *Event {
	f.t.Helper()
	select {
	case e := <-f.cm.Receive():
		return e
	case <-time.After(baseTimeout):
		f.t.Fatal("Timeout waiting for event")
		return nil
	}
}

// expectNoEvent fails if the manager receives anything within d.
func (f *wsFixture) expectNoEvent(d time.Duration) {
	f.t.Helper()
	select {
	case e := <-f.cm.Receive():
		f.t.Fatalf("unexpected event: %v", e)
	case <-time.After(d):
	}
}

func (f *wsFixture) tearDown() {
	f.mu.Lock()
	for _, c := range f.clients {
		c.Close()
	}
	f.mu.Unlock()

	f.cm.Close()
	f.cancel()
	waitOrTimeout(f.t, f.wg.Wait, baseTimeout, "Timeout waiting for connection loops to exit")
	f.server.Close()
}

func writeEvent(t *testing.T, conn *websocket.Conn, typ string, payload string) {
	t.Helper()
	err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"`+typ+`","payload":`+payload+`}`))
	require.NoError(t, err)
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(baseTimeout))
	var e Event
	require.NoError(t, conn.ReadJSON(&e))
	return e
}
