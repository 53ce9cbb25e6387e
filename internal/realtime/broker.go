package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ignatzorin/feedreach-backend/internal/goroutine"
	"github.com/ignatzorin/feedreach-backend/internal/logger"
)

// TopicDonations события изменения пожертвований.
const TopicDonations = "donations"

// NotificationTopic топик уведомлений адресата (UUID пользователя или "all").
func NotificationTopic(target string) string {
	return "notifications." + target
}

// Handler получает сериализованное событие.
type Handler func(payload []byte)

// Bridge пересылает события между инстансами. Bridge сам доставляет событие
// обратно в локальный Dispatch, поэтому Broker не вызывает Dispatch при успешной публикации.
type Bridge interface {
	Publish(topic string, data []byte) error
}

// Broker внутрипроцессная шина событий с опциональным мостом между инстансами.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]Handler
	nextID uint64
	bridge Bridge
}

// NewBroker создаёт шину без моста.
func NewBroker() *Broker {
	return &Broker{subs: make(map[string]map[uint64]Handler)}
}

// SetBridge подключает мост между инстансами.
func (b *Broker) SetBridge(bridge Bridge) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bridge = bridge
}

// Subscribe регистрирует обработчик топика. Возвращаемая функция отписывает его; повторный вызов безопасен.
func (b *Broker) Subscribe(topic string, h Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]Handler)
	}
	b.subs[topic][id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[topic], id)
			if len(b.subs[topic]) == 0 {
				delete(b.subs, topic)
			}
		})
	}
}

// Publish сериализует v в JSON и рассылает подписчикам топика.
func (b *Broker) Publish(ctx context.Context, topic string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("realtime: не удалось сериализовать событие: %w", err)
	}

	b.mu.RLock()
	bridge := b.bridge
	b.mu.RUnlock()

	if bridge != nil {
		err := bridge.Publish(topic, data)
		if err == nil {
			return nil
		}
		logger.Component("realtime").WithFields(map[string]interface{}{
			"topic": topic,
			"error": err.Error(),
		}).Warn("мост недоступен, доставляем локально")
	}

	b.Dispatch(topic, data)
	return nil
}

// Dispatch синхронно доставляет событие локальным подписчикам.
// Panic в обработчике не мешает доставке остальным.
func (b *Broker) Dispatch(topic string, data []byte) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		goroutine.SafeCall("realtime handler "+topic, func() { h(data) })
	}
}

// SubscriberCount число подписчиков топика.
func (b *Broker) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// DonationEvent полезная нагрузка TopicDonations.
type DonationEvent struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}
