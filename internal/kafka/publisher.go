package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/metrics"
)

var _ ports.Runner = (*Publisher)(nil)

// writer — минимальный контракт над kafka.Writer для моков.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher — публикует снимки корзины в топик событий.
// Снимки приходят из подписки CartStore (latest-wins), поэтому
// медленный брокер пропускает промежуточные версии, а не копит очередь.
type Publisher struct {
	writer    writer
	topic     string
	key       []byte
	updates   <-chan domain.Snapshot
	log       ports.Logger
	timeout   time.Duration
	closeOnce sync.Once
}

// NewPublisher — конструктор; updates обычно берётся из CartStore.Subscribe().
func NewPublisher(cfg *PublisherConfig, updates <-chan domain.Snapshot, log ports.Logger) *Publisher {
	return &Publisher{
		writer:  cfg.writer(),
		topic:   cfg.Topic,
		key:     []byte(cfg.Key),
		updates: updates,
		log:     log,
		timeout: durationOr(cfg.WriteTimeout, 5*time.Second),
	}
}

// Run — публикует каждый полученный снимок, пока канал открыт и ctx жив.
// Ошибка записи не останавливает цикл: следующий снимок всё равно актуальнее.
func (p *Publisher) Run(ctx context.Context) error {
	p.log.Infof(ctx, "kafka publisher started topic=%s", p.topic)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-p.updates:
			if !ok {
				p.log.Infof(ctx, "kafka publisher: updates closed, stopping")
				return nil
			}
			p.publish(ctx, snap)
		}
	}
}

func (p *Publisher) publish(ctx context.Context, snap domain.Snapshot) {
	value, err := json.Marshal(snap)
	if err != nil {
		metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "error").Inc()
		p.log.Errorf(ctx, "marshal snapshot version=%d: %v", snap.Version, err)
		return
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   p.key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
	if err != nil {
		metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "error").Inc()
		p.log.Warnf(ctx, "publish snapshot version=%d failed: %v", snap.Version, err)
		return
	}
	metrics.KafkaMessagesPublished.WithLabelValues(p.topic, "ok").Inc()
}

// Close — закрывает writer (дописывает буферизованные сообщения).
func (p *Publisher) Close() (retErr error) {
	p.closeOnce.Do(func() {
		retErr = p.writer.Close()
	})
	return retErr
}
