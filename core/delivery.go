package core

import (
	"fmt"

	"github.com/samber/lo"
)

// markDelivered flags msg as accepted and addresses the acknowledgement to the
// author's connections in the message's room. Must be called with r.mu held.
func (r *Relay) markDelivered(msg Message) (Outbound, bool) {
	if m, ok := r.store.Find(msg.Room, msg.ID); ok {
		m.Delivered = true
	}
	to := r.rooms.ConnsOf(msg.Room, msg.Username)
	if len(to) == 0 {
		return Outbound{}, false
	}
	return Outbound{Type: EventDelivered, Payload: Receipt{MessageID: msg.ID}, To: to}, true
}

// MarkRead resets the caller's unread counter for room and marks every text
// message in the room as read. Each author still connected is told which of
// their messages turned read. Connections that never joined a room are ignored.
func (r *Relay) MarkRead(connID, room string) ([]Outbound, error) {
	if room == "" {
		return nil, fmt.Errorf("%w: room is required", ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns.Get(connID)
	if !ok || c.Room == "" {
		return nil, fmt.Errorf("connection %s: %w", connID, ErrNotFound)
	}

	r.unread.Reset(room, c.Username)
	out := []Outbound{{Type: EventUnreadCount, Payload: 0, To: []string{connID}}}

	r.store.Each(room, func(m *Message) {
		if m.Type != KindText || m.Read {
			return
		}
		m.Read = true
		authors := r.connsOfUser(m.Username)
		if len(authors) == 0 {
			return
		}
		out = append(out, Outbound{Type: EventRead, Payload: Receipt{MessageID: m.ID}, To: authors})
	})
	return out, nil
}

// connsOfUser returns every live connection of username regardless of room.
func (r *Relay) connsOfUser(username string) []string {
	return lo.FilterMap(r.conns.List(), func(c Connection, _ int) (string, bool) {
		return c.ID, c.Username == username
	})
}
