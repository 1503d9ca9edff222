package kafka_test

import (
	"slices"
	"testing"

	kafkago "github.com/segmentio/kafka-go"

	mykafka "github.com/Gunvolt24/gomarketplace_cart/internal/kafka"
)

func TestConsumerConfig_ReaderConfig(t *testing.T) {
	t.Parallel()

	offsets := map[string]int64{
		"first":      kafkago.FirstOffset,
		"FIRST":      kafkago.FirstOffset,
		" FiRsT \n":  kafkago.FirstOffset,
		"\tfirst\t":  kafkago.FirstOffset,
		"":           kafkago.LastOffset,
		"last":       kafkago.LastOffset,
		"LAST":       kafkago.LastOffset,
		"from-start": kafkago.LastOffset,
	}

	for raw, want := range offsets {
		raw, want := raw, want
		t.Run("offset="+raw, func(t *testing.T) {
			t.Parallel()

			cfg := mykafka.ConsumerConfig{
				Brokers:     []string{"k1:9092", "k2:9092"},
				Topic:       "cart-commands",
				GroupID:     "cart",
				StartOffset: raw,
			}
			rc := cfg.ReaderConfig()

			if rc.StartOffset != want {
				t.Fatalf("StartOffset(%q): want %d, got %d", raw, want, rc.StartOffset)
			}
			if !slices.Equal(rc.Brokers, cfg.Brokers) || rc.Topic != cfg.Topic || rc.GroupID != cfg.GroupID {
				t.Fatalf("base fields not propagated: %+v", rc)
			}
			// команды коммитим вручную после применения
			if rc.CommitInterval != 0 {
				t.Fatalf("CommitInterval: want 0, got %v", rc.CommitInterval)
			}
		})
	}
}
