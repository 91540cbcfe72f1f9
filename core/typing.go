package core

import "github.com/samber/lo"

// Typing relays a typing signal to every other connection in the room.
// No state is kept; clearing the indicator is up to the receivers.
func (r *Relay) Typing(connID string, in TypingInput) ([]Outbound, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	to := lo.Without(r.rooms.Conns(in.Room), connID)
	if len(to) == 0 {
		return nil, nil
	}
	return []Outbound{{Type: EventUserTyping, Payload: TypingNotice{Username: in.Username}, To: to}}, nil
}
