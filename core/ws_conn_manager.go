package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// DefaultMaxEventSize bounds a single inbound frame, file payloads included.
	DefaultMaxEventSize = 10 << 20
)

// ConnManager owns the websocket connections and implements EventTransport.
type ConnManager struct {
	conns   map[string]*Conn
	mu      sync.RWMutex
	connWg  *sync.WaitGroup
	context context.Context
	logger  *slog.Logger

	onConnectionOpened func(id, username string)

	receivedEvent chan *Event

	upgrader        websocket.Upgrader
	ReadStreamSize  int
	WriteStreamSize int
	maxEventSize    int64
	rateLimit       rate.Limit
	rateBurst       int
}

var defaultUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ManagerOption func(*ConnManager)

func WithCheckOrigin(f func(r *http.Request) bool) ManagerOption {
	return func(m *ConnManager) {
		m.upgrader.CheckOrigin = f
	}
}

func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *ConnManager) {
		m.logger = l
	}
}

// WithMaxEventSize sets the largest inbound frame accepted before the connection is closed.
func WithMaxEventSize(n int64) ManagerOption {
	return func(m *ConnManager) {
		if n > 0 {
			m.maxEventSize = n
		}
	}
}

// WithWriteBuffer sets how many outbound events may queue per connection.
// A connection whose queue is full is dropped.
func WithWriteBuffer(n int) ManagerOption {
	return func(m *ConnManager) {
		if n > 0 {
			m.WriteStreamSize = n
		}
	}
}

// WithRateLimit caps inbound events per connection. A zero rate disables the limit.
func WithRateLimit(perSecond float64, burst int) ManagerOption {
	return func(m *ConnManager) {
		if perSecond <= 0 {
			return
		}
		m.rateLimit = rate.Limit(perSecond)
		m.rateBurst = max(burst, 1)
	}
}

func NewConnManager(ctx context.Context, wg *sync.WaitGroup, logger *slog.Logger, opts ...ManagerOption) *ConnManager {
	m := &ConnManager{
		connWg:             wg,
		conns:              make(map[string]*Conn),
		logger:             logger,
		context:            ctx,
		upgrader:           defaultUpgrader,
		ReadStreamSize:     100,
		WriteStreamSize:    256,
		maxEventSize:       DefaultMaxEventSize,
		onConnectionOpened: func(string, string) {},
	}

	for _, opt := range opts {
		opt(m)
	}

	m.receivedEvent = make(chan *Event, m.ReadStreamSize)

	return m
}

func (m *ConnManager) Receive() <-chan *Event {
	return m.receivedEvent
}

// OnConnectionOpened registers a hook that runs after the upgrade and before
// any event from the connection is read.
func (m *ConnManager) OnConnectionOpened(f func(id, username string)) {
	m.onConnectionOpened = f
}

func (m *ConnManager) IsConnected(id string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.conns[id]
	return ok
}

func (m *ConnManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Connect upgrades the request and starts serving it under a fresh connection id.
func (m *ConnManager) Connect(username string, w http.ResponseWriter, r *http.Request) (string, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return "", fmt.Errorf("upgrade: %w", err)
	}
	conn.SetReadLimit(m.maxEventSize)

	id := uuid.NewString()
	wsConn := &Conn{
		username:    username,
		id:          id,
		conn:        conn,
		context:     m.context,
		writeStream: make(chan *Event, m.WriteStreamSize),
		readStream:  m.receivedEvent,
		ticker:      time.NewTicker(pingPeriod),
		logger:      m.logger.With(slog.String("connection", id), slog.String("username", username)),
		notifyDisconnect: func() {
			m.disconnect(id)
		},
	}
	if m.rateLimit > 0 {
		wsConn.limiter = rate.NewLimiter(m.rateLimit, m.rateBurst)
	}

	m.mu.Lock()
	m.conns[id] = wsConn
	m.mu.Unlock()

	m.onConnectionOpened(id, username)

	m.connWg.Add(2)
	go func() {
		defer m.connWg.Done()
		wsConn.readLoop()
	}()
	go func() {
		defer m.connWg.Done()
		wsConn.writeLoop()
	}()

	return id, nil
}

func (m *ConnManager) disconnect(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[id]
	if !ok {
		return
	}
	delete(m.conns, id)
	c.close()
}

// SendTo queues e on each connection. A connection that cannot keep up is
// closed rather than allowed to block the others.
func (m *ConnManager) SendTo(e *Event, ids ...string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range ids {
		c, ok := m.conns[id]
		if !ok {
			continue
		}
		select {
		case c.writeStream <- e:
		default:
			c.logger.Warn("write stream full, dropping connection")
			c.conn.Close()
		}
	}
}

// Close shuts every connection down with a normal closure.
func (m *ConnManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.conns {
		delete(m.conns, id)
		c.close()
	}
}
