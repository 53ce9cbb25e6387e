package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ignatzorin/feedreach-backend/internal/metrics"
)

// Каналы живых обновлений.
const (
	ChannelNotifications      = "notifications"
	ChannelDonationsMine      = "donations.mine"
	ChannelDonationsAvailable = "donations.available"
	ChannelDonationsPickups   = "donations.pickups"
)

// Principal владелец соединения.
type Principal struct {
	UserID  uuid.UUID
	Role    string
	IsAdmin bool
}

// Source открывает подписку на канал. emit может вызываться синхронно внутри Source
// (начальный снимок) и из любых горутин после возврата. stop отписывает источник.
type Source func(ctx context.Context, p Principal, emit func(data any)) (stop func(), err error)

// Hub реестр подключений и источников каналов.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	sources  map[string]Source
	defaults []string
}

// NewHub создаёт хаб. defaults каналы, на которые клиент подписывается сразу после подключения.
func NewHub(defaults ...string) *Hub {
	return &Hub{
		clients:  make(map[*Client]struct{}),
		sources:  make(map[string]Source),
		defaults: defaults,
	}
}

// Handle регистрирует источник канала.
func (h *Hub) Handle(channel string, src Source) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sources[channel] = src
}

func (h *Hub) source(channel string) (Source, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	src, ok := h.sources[channel]
	return src, ok
}

// Serve обслуживает соединение до его закрытия.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, p Principal) {
	client := newClient(ctx, conn, h, p)
	h.add(client)

	for _, channel := range h.defaults {
		client.subscribe(channel)
	}
	client.run()
}

// ClientCount число активных подключений.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown закрывает все подключения.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.WSConnected()
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if ok {
		metrics.WSDisconnected()
	}
}
