package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	CartMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart mutation calls by operation and result",
		},
		[]string{"op", "result"}, // op: add|increment|decrement|clear; result: applied|noop|rejected
	)
	CartItems = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_line_items",
			Help: "Number of line items currently in the cart",
		},
	)
	CartUnits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_units",
			Help: "Total quantity of all line items in the cart",
		},
	)
)

var (
	PersistOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_persist_operations_total",
			Help: "Cart persistence operations by kind and result",
		},
		[]string{"op", "result"}, // op: load|save|delete; result: ok|error|corrupt|missing
	)
	PersistDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cart_persist_duration_seconds",
			Help:    "Latency of cart persistence calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	ErrorsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cart_errors_dropped_total",
			Help: "Errors dropped because the error channel was full",
		},
	)
	KVEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cart_kv_memory_entries",
			Help: "Number of keys held by the in-memory KV store",
		},
	)
)

var (
	KafkaMessagesConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_consumed_total",
			Help: "Number of messages fetched from Kafka",
		},
		[]string{"topic"},
	)
	KafkaMessagesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_processed_total",
			Help: "Number of messages processed successfully",
		},
		[]string{"topic"},
	)
	KafkaMessagesFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_failed_total",
			Help: "Number of messages failed to process",
		},
		[]string{"topic"},
	)
	KafkaMessagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_messages_published_total",
			Help: "Number of cart snapshots published to Kafka",
		},
		[]string{"topic", "result"},
	)
)

var registerOnce sync.Once

// MustRegister — регистрирует метрики в default registry; повторный вызов ничего не делает.
func MustRegister() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CartMutations, CartItems, CartUnits,
			PersistOps, PersistDuration, ErrorsDropped, KVEntries,
			KafkaMessagesConsumed, KafkaMessagesProcessed, KafkaMessagesFailed, KafkaMessagesPublished,
		)
	})
}
