//go:build integration

package testutil

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// CartTopics — топик команд, топик снимков и группа консьюмера одного теста.
type CartTopics struct {
	Commands  string
	Snapshots string
	Group     string
}

// NewCartTopics — уникальные имена на основе base.
// Пример: base="cart-itc" → "cart-itc-cmd-20250826T010203123456789".
func NewCartTopics(base string) CartTopics {
	s := strings.ReplaceAll(time.Now().UTC().Format("20060102T150405.000000000"), ".", "")
	return CartTopics{
		Commands:  fmt.Sprintf("%s-cmd-%s", base, s),
		Snapshots: fmt.Sprintf("%s-snap-%s", base, s),
		Group:     fmt.Sprintf("%s-group-%s", base, s),
	}
}

// EnsureTopics — создаёт топики через контроллер кластера (существующие не ошибка)
// и ждёт их появления в метаданных.
// broker: "host:port", "PLAINTEXT://host:port" или список через запятую (берётся первый).
func EnsureTopics(ctx context.Context, broker string, topics ...string) error {
	addr := firstBootstrap(broker)

	conn, err := kafka.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	ctrl, err := conn.Controller()
	_ = conn.Close()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}

	admin, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer admin.Close()

	configs := make([]kafka.TopicConfig, 0, len(topics))
	for _, t := range topics {
		configs = append(configs, kafka.TopicConfig{Topic: t, NumPartitions: 1, ReplicationFactor: 1})
	}
	if err := admin.CreateTopics(configs...); err != nil &&
		!strings.Contains(strings.ToLower(err.Error()), "already exists") {
		return fmt.Errorf("create topics: %w", err)
	}

	for _, t := range topics {
		if err := waitTopicReady(ctx, addr, t); err != nil {
			return err
		}
	}
	return nil
}

// firstBootstrap — первый адрес из bootstrap-строки без схемы.
func firstBootstrap(raw string) string {
	first := strings.TrimSpace(strings.Split(raw, ",")[0])
	if strings.Contains(first, "://") {
		if u, err := url.Parse(first); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return first
}

func waitTopicReady(ctx context.Context, broker, topic string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tick := time.NewTicker(200 * time.Millisecond)
	defer tick.Stop()

	var lastErr error
	for {
		c, err := kafka.DialContext(ctx, "tcp", broker)
		if err == nil {
			parts, perr := c.ReadPartitions(topic)
			_ = c.Close()
			if perr == nil && len(parts) > 0 {
				return nil
			}
			err = perr
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return fmt.Errorf("topic %q not ready: %v", topic, lastErr)
		case <-tick.C:
		}
	}
}
