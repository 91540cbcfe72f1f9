package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type Conn struct {
	conn             *websocket.Conn
	context          context.Context
	username         string
	id               string
	writeStream      chan *Event
	readStream       chan *Event
	notifyDisconnect func()
	ticker           *time.Ticker
	limiter          *rate.Limiter
	logger           *slog.Logger
}

// close ends the write loop, which sends a close frame to the peer.
// Callers must hold the manager's write lock.
func (c *Conn) close() {
	close(c.writeStream)
}

func (c *Conn) push(e *Event) bool {
	select {
	case c.readStream <- e:
		return true
	case <-c.context.Done():
		return false
	}
}

func (c *Conn) readLoop() {
	c.logger.Info("read loop started")
	defer func() {
		c.push(&Event{Type: EventDisconnect, Dispatcher: c.id})
		c.notifyDisconnect()
		c.conn.Close()
		c.logger.Info("read loop stopped")
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		format, r, err := c.conn.NextReader()
		if err != nil {
			switch {
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				c.logger.Info(fmt.Sprintf("expected close: %v", err))
			case errors.Is(err, websocket.ErrReadLimit):
				c.logger.Warn(fmt.Sprintf("event too large: %v", err))
			case websocket.IsUnexpectedCloseError(err):
				c.logger.Error(fmt.Sprintf("unexpected close: %v", err))
			default:
				c.logger.Debug(fmt.Sprintf("NextReader: %v", err))
			}
			return
		}

		if format != websocket.TextMessage {
			c.logger.Warn(fmt.Sprintf("unexpected message format: %v", format))
			continue
		}

		var event Event
		if err := DecodeEvent(r, &event); err != nil {
			c.logger.Warn(err.Error())
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			c.logger.Warn("rate limited", slog.String("type", event.Type))
			continue
		}
		event.Dispatcher = c.id

		if !c.push(&event) {
			return
		}
	}
}

func (c *Conn) writeLoop() {
	c.logger.Info("write loop started")
	defer func() {
		c.ticker.Stop()
		c.conn.Close()
		c.logger.Info("write loop stopped")
	}()

	for {
		select {
		case e, ok := <-c.writeStream:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				c.logger.Error(fmt.Sprintf("getting next writer: %v", err))
				return
			}
			if err := EncodeEvent(w, e); err != nil {
				c.logger.Error(err.Error())
			}
			if err := w.Close(); err != nil {
				c.logger.Error(fmt.Sprintf("flushing frame: %v", err))
				return
			}
		case <-c.context.Done():
			return
		case <-c.ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Error(fmt.Sprintf("writing ping: %v", err))
				return
			}
		}
	}
}
