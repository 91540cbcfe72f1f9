package core

import (
	"cmp"
	"slices"
	"time"
)

const (
	DefaultHistoryLimit = 100
	DefaultPageSize     = 20
)

type Kind string

const (
	KindText   Kind = "text"
	KindFile   Kind = "file"
	KindSystem Kind = "system"
)

type Message struct {
	ID        int64     `json:"id"`
	Room      string    `json:"room"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
	Type      Kind      `json:"type"`
	Message   string    `json:"message,omitempty"`
	Filename  string    `json:"filename,omitempty"`
	File      string    `json:"file,omitempty"`
	MimeType  string    `json:"mimeType,omitempty"`
	Reaction  string    `json:"reaction,omitempty"`
	Delivered bool      `json:"delivered"`
	Read      bool      `json:"read"`
}

// MessageStore keeps a bounded, append-only log per room.
// Ids come from a single sequence shared by every room.
// It is not safe for concurrent use; Relay serializes access.
type MessageStore struct {
	rooms map[string][]Message
	next  int64
	limit int
}

func NewMessageStore(limit int) *MessageStore {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &MessageStore{
		rooms: make(map[string][]Message),
		limit: limit,
	}
}

// Append stores m under m.Room with the next id and returns the stored copy.
// The oldest entries are evicted once the room holds more than the limit.
func (s *MessageStore) Append(m Message) Message {
	m.ID = s.next
	s.next++
	m.Delivered = false
	m.Read = false

	log := append(s.rooms[m.Room], m)
	if over := len(log) - s.limit; over > 0 {
		log = slices.Delete(log, 0, over)
	}
	s.rooms[m.Room] = log
	return m
}

// Page returns a window of the room's current log, newest page first.
// The window is recomputed from the current length on every call,
// so consecutive pages shift when messages are appended in between.
func (s *MessageStore) Page(room string, page, size int) []Message {
	if size <= 0 {
		size = DefaultPageSize
	}
	log := s.rooms[room]
	n := len(log)
	start := min(max(n-page*size, 0), n)
	end := min(max(n-(page-1)*size, 0), n)
	if start >= end {
		return []Message{}
	}
	return slices.Clone(log[start:end])
}

// All returns a copy of every room's log.
func (s *MessageStore) All() map[string][]Message {
	all := make(map[string][]Message, len(s.rooms))
	for room, log := range s.rooms {
		all[room] = slices.Clone(log)
	}
	return all
}

// Find returns a pointer into the room's log for the message with the given id.
// The pointer is only valid until the next Append.
func (s *MessageStore) Find(room string, id int64) (*Message, bool) {
	log := s.rooms[room]
	i, ok := slices.BinarySearchFunc(log, id, func(m Message, id int64) int {
		return cmp.Compare(m.ID, id)
	})
	if !ok {
		return nil, false
	}
	return &log[i], true
}

// Each calls f with a pointer to every message of the room in append order.
func (s *MessageStore) Each(room string, f func(m *Message)) {
	log := s.rooms[room]
	for i := range log {
		f(&log[i])
	}
}

func (s *MessageStore) Len(room string) int {
	return len(s.rooms[room])
}
