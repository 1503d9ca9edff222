package kafka

import (
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerConfig — параметры чтения топика команд.
type ConsumerConfig struct {
	Brokers     []string
	Topic       string
	GroupID     string
	StartOffset string // first|last

	ProcessTimeout time.Duration
	RetryInitial   time.Duration
	RetryMax       time.Duration
}

// ReaderConfig — конфиг kafka.Reader с ручным коммитом оффсетов.
func (c *ConsumerConfig) ReaderConfig() kafka.ReaderConfig {
	rc := kafka.ReaderConfig{
		Brokers:        c.Brokers,
		GroupID:        c.GroupID,
		Topic:          c.Topic,
		CommitInterval: 0,
	}

	switch strings.ToLower(strings.TrimSpace(c.StartOffset)) {
	case "first":
		rc.StartOffset = kafka.FirstOffset
	default:
		rc.StartOffset = kafka.LastOffset
	}

	return rc
}

// PublisherConfig — параметры публикации снимков корзины.
type PublisherConfig struct {
	Brokers      []string
	Topic        string
	Key          string // ключ сообщения = ключ корзины в хранилище
	WriteTimeout time.Duration
}

// writer — синхронный kafka.Writer, подтверждение всеми репликами.
func (c *PublisherConfig) writer() *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Topic:        c.Topic,
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
		WriteTimeout: c.WriteTimeout,
	}
}
