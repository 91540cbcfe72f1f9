package core

import (
	"fmt"
	"slices"
)

// Join moves the connection into room. If it was in another room it leaves
// that room first, and the old room is told before the new one. Re-joining the
// current room keeps membership unchanged but still announces the join.
func (r *Relay) Join(connID, room string) ([]Outbound, error) {
	if room == "" {
		return nil, fmt.Errorf("%w: room is required", ErrValidation)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns.Get(connID)
	if !ok {
		return nil, fmt.Errorf("connection %s: %w", connID, ErrNotFound)
	}

	var out []Outbound
	if prev := c.Room; prev != "" && prev != room {
		r.rooms.remove(prev, connID)
		c.Room = ""
		out = append(out, r.presence(prev, c.Username, "left")...)
	}

	c.Room = room
	r.rooms.add(room, connID)
	r.unread.Reset(room, c.Username)
	out = append(out, r.presence(room, c.Username, "joined")...)
	return out, nil
}

// Leave removes the connection from its room, tells the room, and forgets the
// connection. Unknown connections are ignored.
func (r *Relay) Leave(connID string) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conns.Get(connID)
	if !ok {
		return nil
	}
	r.conns.Remove(connID)
	if c.Room == "" {
		return nil
	}
	r.rooms.remove(c.Room, connID)
	return r.presence(c.Room, c.Username, "left")
}

// OnlineUsers answers the caller with the members of room.
func (r *Relay) OnlineUsers(connID, room string) []Outbound {
	r.mu.Lock()
	defer r.mu.Unlock()
	return []Outbound{{Type: EventOnlineUsers, Payload: r.rooms.Members(room), To: []string{connID}}}
}

// presence announces a membership change to everyone still in room.
func (r *Relay) presence(room, username, verb string) []Outbound {
	to := r.rooms.Conns(room)
	if len(to) == 0 {
		return nil
	}
	notice := Notice{
		Type:      KindSystem,
		Room:      room,
		Username:  username,
		Message:   fmt.Sprintf("%s %s the room", username, verb),
		Timestamp: r.now().UTC(),
	}
	return []Outbound{
		{Type: EventOnlineUsers, Payload: r.rooms.Members(room), To: to},
		{Type: EventSystemMessage, Payload: notice, To: slices.Clone(to)},
	}
}
