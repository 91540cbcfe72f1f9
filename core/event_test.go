package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentEvent struct {
	event *Event
	to    []string
}

type fakeTransport struct {
	in   chan *Event
	mu   sync.Mutex
	sent []sentEvent
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan *Event, 16)}
}

func (f *fakeTransport) SendTo(e *Event, ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentEvent{event: e, to: ids})
}

func (f *fakeTransport) Receive() <-chan *Event {
	return f.in
}

func (f *fakeTransport) Sent() []sentEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentEvent(nil), f.sent...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEventCodec(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeEvent(&buf, &Event{Dispatcher: "c1", Type: EventJoinRoom, Payload: json.RawMessage(`"general"`)}))
	assert.JSONEq(t, `{"type":"joinRoom","payload":"general"}`, buf.String())

	var e Event
	require.NoError(t, DecodeEvent(&buf, &e))
	assert.Equal(t, EventJoinRoom, e.Type)
	assert.Empty(t, e.Dispatcher, "dispatcher never travels on the wire")

	var room string
	require.NoError(t, DecodePayload(&e, &room))
	assert.Equal(t, "general", room)

	err := DecodeEvent(strings.NewReader(`{"payload":1}`), &e)
	assert.ErrorIs(t, err, ErrValidation)

	err = DecodePayload(&Event{Type: EventRoomMessage, Payload: json.RawMessage(`"oops"`)}, &TextInput{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEventRouter_DispatchesInOrder(t *testing.T) {
	transport := newFakeTransport()
	er := NewEventRouter(discardLogger(), transport)

	var mu sync.Mutex
	var got []string
	er.On(EventTyping, func(ctx context.Context, e *Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, string(e.Payload))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		er.Listen(ctx)
		close(done)
	}()

	for _, p := range []string{"1", "2", "3", "4"} {
		transport.in <- &Event{Type: EventTyping, Payload: json.RawMessage(p)}
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 4
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"1", "2", "3", "4"}, got)

	cancel()
	waitOrTimeout(t, func() { <-done }, time.Second, "Listen did not return after cancel")
}

func TestEventRouter_SurvivesFailingHandlers(t *testing.T) {
	transport := newFakeTransport()
	er := NewEventRouter(discardLogger(), transport)

	handled := make(chan string, 4)
	er.On("panic", func(ctx context.Context, e *Event) error {
		panic("boom")
	})
	er.On("fail", func(ctx context.Context, e *Event) error {
		return errors.Join(ErrValidation, errors.New("bad"))
	})
	er.On("ok", func(ctx context.Context, e *Event) error {
		handled <- e.Dispatcher
		return nil
	})

	for _, typ := range []string{"panic", "fail", "unknown"} {
		er.dispatch(context.Background(), &Event{Type: typ})
	}
	er.dispatch(context.Background(), &Event{Type: "ok", Dispatcher: "c1"})

	select {
	case id := <-handled:
		assert.Equal(t, "c1", id)
	default:
		t.Fatal("handler after a panic was not called")
	}
}

func TestEventRouter_EmitAll(t *testing.T) {
	transport := newFakeTransport()
	er := NewEventRouter(discardLogger(), transport)

	err := er.EmitAll([]Outbound{
		{Type: EventUnreadCount, Payload: 3, To: []string{"b1"}},
		{Type: EventUserTyping, Payload: TypingNotice{Username: "alice"}, To: nil},
		{Type: EventDelivered, Payload: Receipt{MessageID: 7}, To: []string{"a1", "a2"}},
	})
	require.NoError(t, err)

	sent := transport.Sent()
	require.Len(t, sent, 2, "outbounds without recipients are skipped")
	assert.Equal(t, []string{"b1"}, sent[0].to)
	assert.JSONEq(t, `3`, string(sent[0].event.Payload))
	assert.Equal(t, EventDelivered, sent[1].event.Type)
	assert.JSONEq(t, `{"messageId":7}`, string(sent[1].event.Payload))

	err = er.EmitAll([]Outbound{{Type: "bad", Payload: make(chan int), To: []string{"a1"}}})
	assert.Error(t, err)
}

func waitOrTimeout(t *testing.T, f func(), timeout time.Duration, msg string) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		f()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		t.Fatal(msg)
	}
}
