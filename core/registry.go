package core

import (
	"slices"

	"github.com/samber/lo"
)

// Connection is one live client session. Room is empty until the first join.
type Connection struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Room     string `json:"room"`
}

// ConnectionRegistry maps connection ids to their session state.
type ConnectionRegistry struct {
	conns map[string]*Connection
	order []string
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{conns: make(map[string]*Connection)}
}

func (r *ConnectionRegistry) Add(id, username string) (*Connection, bool) {
	if _, ok := r.conns[id]; ok {
		return nil, false
	}
	c := &Connection{ID: id, Username: username}
	r.conns[id] = c
	r.order = append(r.order, id)
	return c, true
}

func (r *ConnectionRegistry) Get(id string) (*Connection, bool) {
	c, ok := r.conns[id]
	return c, ok
}

func (r *ConnectionRegistry) Remove(id string) {
	if _, ok := r.conns[id]; !ok {
		return
	}
	delete(r.conns, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
}

// List returns a copy of every connection in connect order.
func (r *ConnectionRegistry) List() []Connection {
	return lo.Map(r.order, func(id string, _ int) Connection {
		return *r.conns[id]
	})
}

// RoomDirectory maps a room to the ids of the connections currently in it,
// in join order. Usernames are derived from the registry so the two never disagree.
type RoomDirectory struct {
	rooms    map[string][]string
	registry *ConnectionRegistry
}

func NewRoomDirectory(registry *ConnectionRegistry) *RoomDirectory {
	return &RoomDirectory{
		rooms:    make(map[string][]string),
		registry: registry,
	}
}

func (d *RoomDirectory) add(room, connID string) {
	if slices.Contains(d.rooms[room], connID) {
		return
	}
	d.rooms[room] = append(d.rooms[room], connID)
}

func (d *RoomDirectory) remove(room, connID string) {
	ids := slices.DeleteFunc(d.rooms[room], func(id string) bool { return id == connID })
	if len(ids) == 0 {
		delete(d.rooms, room)
		return
	}
	d.rooms[room] = ids
}

// Conns returns the ids of the connections in room.
func (d *RoomDirectory) Conns(room string) []string {
	return slices.Clone(d.rooms[room])
}

// ConnsOf returns the ids of username's connections in room.
func (d *RoomDirectory) ConnsOf(room, username string) []string {
	return lo.Filter(d.rooms[room], func(id string, _ int) bool {
		return d.username(id) == username
	})
}

// Members returns the distinct usernames present in room, never nil.
func (d *RoomDirectory) Members(room string) []string {
	members := lo.Uniq(lo.Map(d.rooms[room], func(id string, _ int) string {
		return d.username(id)
	}))
	if members == nil {
		return []string{}
	}
	return members
}

func (d *RoomDirectory) username(connID string) string {
	c, ok := d.registry.Get(connID)
	if !ok {
		return ""
	}
	return c.Username
}
