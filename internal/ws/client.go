package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ignatzorin/feedreach-backend/internal/goroutine"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
	"github.com/ignatzorin/feedreach-backend/internal/pkg/apperror"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 4 * 1024
	sendBuffer     = 32
)

// Frame исходящее сообщение.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type inboundFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type errorPayload struct {
	Channel string `json:"channel,omitempty"`
	Message string `json:"message"`
}

// Client одно WebSocket подключение со своими подписками.
type Client struct {
	conn      *websocket.Conn
	hub       *Hub
	principal Principal
	send      chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]func()

	closeOnce sync.Once
}

func newClient(ctx context.Context, conn *websocket.Conn, hub *Hub, p Principal) *Client {
	ctx, cancel := context.WithCancel(ctx)
	return &Client{
		conn:      conn,
		hub:       hub,
		principal: p,
		send:      make(chan []byte, sendBuffer),
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[string]func()),
	}
}

func (c *Client) run() {
	goroutine.SafeGo(c.writePump)
	c.readPump()
}

// Close отписывает все каналы и закрывает соединение. Повторный вызов безопасен.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		subs := c.subs
		c.subs = make(map[string]func())
		c.mu.Unlock()
		for _, stop := range subs {
			stop()
		}

		c.hub.remove(c)
		_ = c.conn.Close()
	})
}

func (c *Client) subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ctx.Err() != nil {
		return
	}
	if _, ok := c.subs[channel]; ok {
		return
	}
	src, ok := c.hub.source(channel)
	if !ok {
		c.emitError(channel, "неизвестный канал")
		return
	}

	stop, err := src(c.ctx, c.principal, func(data any) { c.emit(channel, data) })
	if err != nil {
		msg := "не удалось подписаться"
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		c.emitError(channel, msg)
		return
	}
	c.subs[channel] = stop
}

func (c *Client) unsubscribe(channel string) {
	c.mu.Lock()
	stop, ok := c.subs[channel]
	delete(c.subs, channel)
	c.mu.Unlock()
	if ok {
		stop()
	}
}

func (c *Client) emit(frameType string, data any) {
	raw, err := json.Marshal(Frame{Type: frameType, Data: data})
	if err != nil {
		logger.Component("ws").WithField("error", err.Error()).Error("не удалось сериализовать сообщение")
		return
	}

	select {
	case <-c.ctx.Done():
	case c.send <- raw:
	default:
		// медленный клиент; Close нельзя звать синхронно из обработчика подписки
		logger.Component("ws").WithField("user_id", c.principal.UserID).Warn("буфер клиента переполнен, отключаем")
		goroutine.SafeGo(c.Close)
	}
}

func (c *Client) emitError(channel, message string) {
	c.emit("error", errorPayload{Channel: channel, Message: message})
}

func (c *Client) readPump() {
	defer c.Close()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in inboundFrame
		if err := c.conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Component("ws").WithField("error", err.Error()).Debug("соединение закрыто")
			}
			return
		}

		switch in.Type {
		case "subscribe":
			c.subscribe(in.Channel)
		case "unsubscribe":
			c.unsubscribe(in.Channel)
		case "ping":
			c.emit("pong", nil)
		default:
			c.emitError(in.Channel, "неизвестный тип сообщения")
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.ctx.Done():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
