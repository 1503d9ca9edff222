package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/ctxmeta"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/metrics"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/validate"
)

// handleMessage применяет одну команду и определяет, нужно ли коммитить оффсет.
func (c *Consumer) handleMessage(ctx context.Context, topic string, msg *kafka.Message) bool {
	ctx = ctxmeta.WithSource(ctx, ctxmeta.SourceKafka)
	ctx = ctxmeta.WithRequestID(ctx, fmt.Sprintf("%s/%d/%d", topic, msg.Partition, msg.Offset))

	ctxTimeout, cancel := context.WithTimeout(ctx, c.processTimeout)
	err := c.cart.ApplyMessage(ctxTimeout, msg.Value)
	cancel()

	switch {
	case err == nil:
		metrics.KafkaMessagesProcessed.WithLabelValues(topic).Inc()
		return true
	case errors.Is(err, domain.ErrInvalidCommand), errors.Is(err, validate.ErrInvalidItem):
		// мусор не ретраим
		metrics.KafkaMessagesFailed.WithLabelValues(topic).Inc()
		c.log.Warnf(ctx, "invalid command offset=%d: %v (skipped)", msg.Offset, err)
		return true
	default:
		// корзина не готова / таймаут: НЕ коммитим, сообщение придёт снова
		metrics.KafkaMessagesFailed.WithLabelValues(topic).Inc()
		c.log.Warnf(ctx, "apply failed offset=%d: %v (will retry without commit)", msg.Offset, err)
		return false
	}
}

// commitSafely пытается закоммитить оффсет и залогировать ошибку.
func (c *Consumer) commitSafely(ctx context.Context, msg *kafka.Message) {
	if commitErr := c.reader.CommitMessages(ctx, *msg); commitErr != nil {
		c.log.Warnf(ctx, "commit failed offset=%d: %v", msg.Offset, commitErr)
	}
}

// sleepWithBackoff ждёт backoff или останавливается по контексту.
func (c *Consumer) sleepWithBackoff(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

// nextBackoff — следующее время ожидания повтора с учётом retryMax.
func (c *Consumer) nextBackoff(current time.Duration) time.Duration {
	current *= 2
	if current > c.retryMax {
		return c.retryMax
	}
	return current
}

// withJitterEqual — половина задержки фиксирована, вторая половина случайна.
func (c *Consumer) withJitterEqual(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	half := d / 2
	jitter := time.Duration(c.jitterRand.Int63n(int64(d-half) + 1))
	return half + jitter
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
