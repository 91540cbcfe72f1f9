package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// Inbound events.
const (
	EventJoinRoom       = "joinRoom"
	EventGetOnlineUsers = "getOnlineUsers"
	EventRoomMessage    = "roomMessage"
	EventTyping         = "typing"
	EventReactMessage   = "reactMessage"
	EventReadMessages   = "readMessages"
	// EventDisconnect is produced by the transport when a connection goes away.
	EventDisconnect = "disconnect"
)

// Outbound events.
const (
	EventOnlineUsers     = "onlineUsers"
	EventChatMessage     = "chatMessage"
	EventSystemMessage   = "systemMessage"
	EventUserTyping      = "userTyping"
	EventMessageReaction = "messageReaction"
	EventUnreadCount     = "unreadCount"
	EventDelivered       = "delivered"
	EventRead            = "read"
)

// Used in both directions.
const (
	EventFileMessage    = "fileMessage"
	EventPrivateMessage = "privateMessage"
)

type Event struct {
	// Dispatcher is the id of the connection the event arrived on.
	Dispatcher string          `json:"-"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func (e Event) String() string {
	return fmt.Sprintf("Event{Dispatcher: %s, Type: %s, Payload.Size: %d}", e.Dispatcher, e.Type, len(e.Payload))
}

func EncodeEvent(w io.Writer, e *Event) error {
	if err := json.NewEncoder(w).Encode(e); err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return nil
}

func DecodeEvent(r io.Reader, e *Event) error {
	if err := json.NewDecoder(r).Decode(e); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if e.Type == "" {
		return fmt.Errorf("decode event: %w: missing type", ErrValidation)
	}
	return nil
}

// DecodePayload unmarshals the event payload into v.
func DecodePayload(e *Event, v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s payload: %w", ErrValidation, e.Type, err)
	}
	return nil
}

type EventTransport interface {
	SendTo(event *Event, connIDs ...string)
	Receive() <-chan *Event
}

type EventHandler func(context.Context, *Event) error

// EventRouter dispatches inbound events to handlers one at a time, in arrival order.
type EventRouter struct {
	listeners map[string]EventHandler
	transport EventTransport
	logger    *slog.Logger
}

func NewEventRouter(logger *slog.Logger, transport EventTransport) *EventRouter {
	return &EventRouter{
		listeners: make(map[string]EventHandler),
		transport: transport,
		logger:    logger,
	}
}

// Listen consumes events until ctx is done or the transport closes its stream.
func (er *EventRouter) Listen(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-er.transport.Receive():
			if !ok {
				return
			}
			er.dispatch(ctx, e)
		}
	}
}

func (er *EventRouter) dispatch(ctx context.Context, e *Event) {
	defer func() {
		if r := recover(); r != nil {
			er.logger.Error(fmt.Sprintf("handler(%s): %v", e.Type, r))
		}
	}()
	er.logger.Debug(fmt.Sprintf("received: %v", e))

	handler, ok := er.listeners[e.Type]
	if !ok {
		er.logger.Warn("unknown event", slog.String("type", e.Type), slog.String("connection", e.Dispatcher))
		return
	}
	err := handler(ctx, e)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		er.logger.Debug(fmt.Sprintf("%s handler: %s", e.Type, err))
	case errors.Is(err, ErrValidation):
		er.logger.Warn(fmt.Sprintf("%s handler: %s", e.Type, err))
	default:
		er.logger.Error(fmt.Sprintf("%s handler: %s", e.Type, err))
	}
}

func (er *EventRouter) On(eventName string, handler EventHandler) {
	er.listeners[eventName] = handler
}

// EmitTo sends an event to the given connections.
func (er *EventRouter) EmitTo(t string, payload any, connIDs ...string) error {
	if len(connIDs) == 0 {
		return nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	er.transport.SendTo(&Event{Type: t, Payload: b}, connIDs...)
	return nil
}

// EmitAll sends every outbound produced by a Relay operation.
func (er *EventRouter) EmitAll(out []Outbound) error {
	var errs []error
	for _, o := range out {
		if err := er.EmitTo(o.Type, o.Payload, o.To...); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Type, err))
		}
	}
	return errors.Join(errs...)
}
