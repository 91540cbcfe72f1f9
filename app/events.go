package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/putto11262002/roomrelay/core"
)

func (app *App) registerEventHandlers() {
	app.eventRouter.On(core.EventJoinRoom, app.JoinRoomHandler)
	app.eventRouter.On(core.EventGetOnlineUsers, app.GetOnlineUsersHandler)
	app.eventRouter.On(core.EventRoomMessage, app.RoomMessageHandler)
	app.eventRouter.On(core.EventFileMessage, app.FileMessageHandler)
	app.eventRouter.On(core.EventTyping, app.TypingHandler)
	app.eventRouter.On(core.EventReactMessage, app.ReactMessageHandler)
	app.eventRouter.On(core.EventPrivateMessage, app.PrivateMessageHandler)
	app.eventRouter.On(core.EventReadMessages, app.ReadMessagesHandler)
	app.eventRouter.On(core.EventDisconnect, app.DisconnectHandler)
}

func (app *App) onConnectionOpen(id, username string) {
	if err := app.relay.Connect(id, username); err != nil {
		app.logger.Error(fmt.Sprintf("connect: %v", err), slog.String("connection", id))
	}
}

// emit sends the outbounds of a relay operation, or passes its error through.
func (app *App) emit(out []core.Outbound, err error) error {
	if err != nil {
		return err
	}
	return app.eventRouter.EmitAll(out)
}

func (app *App) JoinRoomHandler(ctx context.Context, e *core.Event) error {
	var room string
	if err := core.DecodePayload(e, &room); err != nil {
		return err
	}
	return app.emit(app.relay.Join(e.Dispatcher, room))
}

func (app *App) GetOnlineUsersHandler(ctx context.Context, e *core.Event) error {
	var room string
	if err := core.DecodePayload(e, &room); err != nil {
		return err
	}
	return app.emit(app.relay.OnlineUsers(e.Dispatcher, room), nil)
}

func (app *App) RoomMessageHandler(ctx context.Context, e *core.Event) error {
	var in core.TextInput
	if err := core.DecodePayload(e, &in); err != nil {
		return err
	}
	return app.emit(app.relay.SendText(in))
}

func (app *App) FileMessageHandler(ctx context.Context, e *core.Event) error {
	var in core.FileInput
	if err := core.DecodePayload(e, &in); err != nil {
		return err
	}
	return app.emit(app.relay.SendFile(in))
}

func (app *App) TypingHandler(ctx context.Context, e *core.Event) error {
	var in core.TypingInput
	if err := core.DecodePayload(e, &in); err != nil {
		return err
	}
	return app.emit(app.relay.Typing(e.Dispatcher, in))
}

func (app *App) ReactMessageHandler(ctx context.Context, e *core.Event) error {
	var in core.ReactInput
	if err := core.DecodePayload(e, &in); err != nil {
		return err
	}
	return app.emit(app.relay.React(in))
}

func (app *App) PrivateMessageHandler(ctx context.Context, e *core.Event) error {
	var in core.PrivateInput
	if err := core.DecodePayload(e, &in); err != nil {
		return err
	}
	return app.emit(app.relay.SendPrivate(e.Dispatcher, in))
}

func (app *App) ReadMessagesHandler(ctx context.Context, e *core.Event) error {
	var room string
	if err := core.DecodePayload(e, &room); err != nil {
		return err
	}
	return app.emit(app.relay.MarkRead(e.Dispatcher, room))
}

func (app *App) DisconnectHandler(ctx context.Context, e *core.Event) error {
	return app.emit(app.relay.Leave(e.Dispatcher), nil)
}
