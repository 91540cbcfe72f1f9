package core

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// SendPrivate delivers a direct message to the recipient's connections that
// share the sender's current room and echoes it to the sender. Nothing is sent
// when the recipient is not in that room.
func (r *Relay) SendPrivate(connID string, in PrivateInput) ([]Outbound, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	sender, ok := r.conns.Get(connID)
	if !ok || sender.Room == "" {
		return nil, fmt.Errorf("sender %s: %w", connID, ErrNotFound)
	}
	recipients := r.rooms.ConnsOf(sender.Room, in.To)
	if len(recipients) == 0 {
		return nil, fmt.Errorf("recipient %q in room %q: %w", in.To, sender.Room, ErrNotFound)
	}

	ts := in.Timestamp
	if ts == "" {
		ts = r.now().UTC().Format(time.RFC3339Nano)
	}
	return []Outbound{{
		Type:    EventPrivateMessage,
		Payload: PrivateMessage{Username: in.Username, Message: in.Message, Timestamp: ts},
		To:      lo.Uniq(append(recipients, connID)),
	}}, nil
}
