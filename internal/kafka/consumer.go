package kafka

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/metrics"
)

// Проверка, что Consumer удовлетворяет интерфейсу фонового компонента.
var _ ports.Runner = (*Consumer)(nil)

// reader — минимальный контракт над источником (kafka.Reader),
// чтобы легко подменять его моками в тестах.
type reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Config() kafka.ReaderConfig
	Close() error
}

// commandApplier — зависимость на корзину, которая разбирает и применяет команду.
type commandApplier interface {
	ApplyMessage(ctx context.Context, raw []byte) error
}

// Consumer — читает команды корзины из топика и применяет их к CartStore.
type Consumer struct {
	reader         reader
	cart           commandApplier
	log            ports.Logger
	processTimeout time.Duration
	retryInitial   time.Duration
	retryMax       time.Duration
	jitterRand     *rand.Rand
	closeOnce      sync.Once
}

// NewConsumer — конструктор. ReaderConfig() настроен на ручной коммит оффсетов.
func NewConsumer(cfg *ConsumerConfig, cart commandApplier, log ports.Logger) *Consumer {
	return &Consumer{
		reader:         kafka.NewReader(cfg.ReaderConfig()),
		cart:           cart,
		log:            log,
		processTimeout: durationOr(cfg.ProcessTimeout, 5*time.Second),
		retryInitial:   durationOr(cfg.RetryInitial, 1*time.Second),
		retryMax:       durationOr(cfg.RetryMax, 30*time.Second),
		// рассинхронизирует повторы нескольких экземпляров
		jitterRand: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run — основной цикл:
// 1) читаем команду без авто-коммита;
// 2) команда применена → CommitMessages;
// 3) невалидная команда или товар → лог и CommitMessages (пропускаем навсегда);
// 4) корзина не готова или временная ошибка → без коммита (повтор, at-least-once).
func (c *Consumer) Run(ctx context.Context) error {
	rc := c.reader.Config()
	c.log.Infof(ctx, "kafka consumer started topic=%s group_id=%s brokers=%v", rc.Topic, rc.GroupID, rc.Brokers)

	// экспоненциальный backoff на ошибках FetchMessage с equal-jitter
	retry := c.retryInitial

	for {
		msg, fetchErr := c.reader.FetchMessage(ctx)
		if fetchErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			sleep := c.withJitterEqual(retry)
			c.log.Warnf(ctx, "fetch failed: %v (will retry in %s)", fetchErr, sleep)
			if !c.sleepWithBackoff(ctx, sleep) {
				return ctx.Err()
			}
			retry = c.nextBackoff(retry)
			continue
		}

		retry = c.retryInitial
		metrics.KafkaMessagesConsumed.WithLabelValues(rc.Topic).Inc()

		if shouldCommit := c.handleMessage(ctx, rc.Topic, &msg); shouldCommit {
			c.commitSafely(ctx, &msg)
		} else {
			// пауза перед повторной выдачей того же сообщения
			_ = c.sleepWithBackoff(ctx, c.withJitterEqual(minDuration(c.retryInitial, 500*time.Millisecond)))
		}
	}
}

// Close — закрывает reader. Вызывается при остановке приложения.
func (c *Consumer) Close() (retErr error) {
	c.closeOnce.Do(func() {
		retErr = c.reader.Close()
	})
	return retErr
}

func durationOr(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
