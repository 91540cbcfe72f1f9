package core

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Outbound is one event to deliver to a set of connections.
type Outbound struct {
	Type    string
	Payload any
	To      []string
}

// Relay owns all shared chat state. Every operation runs under one lock and
// returns the events it produced; delivering them is left to the caller so that
// no I/O happens while the lock is held.
type Relay struct {
	mu     sync.Mutex
	conns  *ConnectionRegistry
	rooms  *RoomDirectory
	store  *MessageStore
	unread *UnreadCounter

	historyLimit int
	now          func() time.Time
}

type RelayOption func(*Relay)

// WithHistoryLimit bounds the number of messages kept per room.
func WithHistoryLimit(n int) RelayOption {
	return func(r *Relay) {
		r.historyLimit = n
	}
}

func WithClock(now func() time.Time) RelayOption {
	return func(r *Relay) {
		r.now = now
	}
}

func NewRelay(opts ...RelayOption) *Relay {
	r := &Relay{
		historyLimit: DefaultHistoryLimit,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.conns = NewConnectionRegistry()
	r.rooms = NewRoomDirectory(r.conns)
	r.store = NewMessageStore(r.historyLimit)
	r.unread = NewUnreadCounter()
	return r
}

// Connect records a new connection for username. It does not join any room.
func (r *Relay) Connect(connID, username string) error {
	username = strings.TrimSpace(username)
	if connID == "" || username == "" {
		return fmt.Errorf("%w: connection id and username are required", ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns.Add(connID, username); !ok {
		return fmt.Errorf("connection %s already registered", connID)
	}
	return nil
}

// SendText appends a text message to the room, broadcasts it, bumps the
// unread counters of the other users present and acknowledges delivery to the author.
func (r *Relay) SendText(in TextInput) ([]Outbound, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := r.store.Append(Message{
		Room:      in.Room,
		Username:  in.Username,
		Timestamp: r.now().UTC(),
		Type:      KindText,
		Message:   in.Message,
	})
	to := r.rooms.Conns(in.Room)
	out := []Outbound{{Type: EventChatMessage, Payload: msg, To: to}}

	others := lo.Without(r.rooms.Members(in.Room), in.Username)
	for _, username := range others {
		n := r.unread.Increment(in.Room, username)
		out = append(out, Outbound{
			Type:    EventUnreadCount,
			Payload: n,
			To:      r.rooms.ConnsOf(in.Room, username),
		})
	}

	if o, ok := r.markDelivered(msg); ok {
		out = append(out, o)
	}
	return out, nil
}

// SendFile appends a file message to the room and broadcasts it.
// File messages take part in history but not in unread or delivery tracking.
func (r *Relay) SendFile(in FileInput) ([]Outbound, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	mimeType := DetectMimeType(in.File)

	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.store.Append(Message{
		Room:      in.Room,
		Username:  in.Username,
		Timestamp: r.now().UTC(),
		Type:      KindFile,
		Filename:  in.Filename,
		File:      in.File,
		MimeType:  mimeType,
	})
	return []Outbound{{Type: EventFileMessage, Payload: msg, To: r.rooms.Conns(in.Room)}}, nil
}

// React records the reaction on the message when it is still in the room's
// history, replacing any earlier one, and broadcasts it to the room either way.
func (r *Relay) React(in ReactInput) ([]Outbound, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.store.Find(in.Room, *in.MessageID); ok {
		m.Reaction = in.Reaction
	}
	return []Outbound{{
		Type:    EventMessageReaction,
		Payload: Reaction{MessageID: *in.MessageID, Reaction: in.Reaction},
		To:      r.rooms.Conns(in.Room),
	}}, nil
}

func (r *Relay) Members(room string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms.Members(room)
}

func (r *Relay) Unread(room, username string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unread.Get(room, username)
}

// Page returns the page-th newest window of DefaultPageSize messages.
func (r *Relay) Page(room string, page int) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.Page(room, page, DefaultPageSize)
}

// Dump returns every room's history.
func (r *Relay) Dump() map[string][]Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.store.All()
}

// Connections returns the connections that have joined a room, in connect order.
func (r *Relay) Connections() []Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Filter(r.conns.List(), func(c Connection, _ int) bool {
		return c.Room != ""
	})
}

// Connection returns a copy of the connection's state.
func (r *Relay) Connection(connID string) (Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns.Get(connID)
	if !ok {
		return Connection{}, false
	}
	return *c, true
}
