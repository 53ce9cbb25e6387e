package realtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ignatzorin/feedreach-backend/internal/logger"
)

// NATSBridge пересылает события шины через NATS, чтобы подписчики
// на всех инстансах получали изменения, сделанные на любом из них.
type NATSBridge struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	prefix string
}

// ConnectNATS подключается к NATS, подписывается на "<prefix>.>" и подключает мост к broker.
func ConnectNATS(url, prefix string, broker *Broker) (*NATSBridge, error) {
	log := logger.Component("nats")

	conn, err := nats.Connect(url,
		nats.Name("feedreach-backend"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("соединение с NATS потеряно")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.WithField("url", c.ConnectedUrl()).Info("соединение с NATS восстановлено")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats: не удалось подключиться к %s: %w", url, err)
	}

	bridge := &NATSBridge{conn: conn, prefix: prefix}
	subjectPrefix := prefix + "."

	sub, err := conn.Subscribe(subjectPrefix+">", func(msg *nats.Msg) {
		broker.Dispatch(strings.TrimPrefix(msg.Subject, subjectPrefix), msg.Data)
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("nats: не удалось подписаться: %w", err)
	}
	bridge.sub = sub
	broker.SetBridge(bridge)

	log.WithField("url", conn.ConnectedUrl()).Info("мост событий NATS подключён")
	return bridge, nil
}

// Publish отправляет событие в NATS.
func (b *NATSBridge) Publish(topic string, data []byte) error {
	return b.conn.Publish(b.prefix+"."+topic, data)
}

// Close дожидается доставки буфера и закрывает соединение.
func (b *NATSBridge) Close() error {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	return b.conn.Drain()
}

// Health сообщает, есть ли живое соединение с NATS.
func (b *NATSBridge) Health(ctx context.Context) error {
	if !b.conn.IsConnected() {
		return fmt.Errorf("nats: нет соединения (%s)", b.conn.Status())
	}
	return nil
}
