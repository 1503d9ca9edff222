package breaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
)

var _ ports.KVStore = (*KVStore)(nil)

// Settings — параметры автомата.
type Settings struct {
	Name             string
	FailureThreshold uint32        // подряд идущих ошибок до размыкания
	OpenTimeout      time.Duration // сколько держать разомкнутым
	HalfOpenRequests uint32        // пробных запросов в half-open
}

type loadResult struct {
	raw   []byte
	found bool
}

// KVStore — обёртка над хранилищем с автоматическим выключателем.
// Пока автомат разомкнут, вызовы сразу возвращают domain.ErrStorageUnavailable.
type KVStore struct {
	next ports.KVStore
	cb   *gobreaker.CircuitBreaker[loadResult]
}

func NewKVStore(next ports.KVStore, s Settings, log ports.Logger) *KVStore {
	if s.FailureThreshold == 0 {
		s.FailureThreshold = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 10 * time.Second
	}
	if s.HalfOpenRequests == 0 {
		s.HalfOpenRequests = 1
	}

	cb := gobreaker.NewCircuitBreaker[loadResult](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.FailureThreshold
		},
		// отмена вызывающим не признак больного хранилища
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf(context.Background(), "storage breaker %s: %s -> %s", name, from, to)
		},
	})
	return &KVStore{next: next, cb: cb}
}

func (s *KVStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := s.cb.Execute(func() (loadResult, error) {
		raw, found, err := s.next.Load(ctx, key)
		return loadResult{raw: raw, found: found}, err
	})
	if err != nil {
		return nil, false, wrap(err)
	}
	return res.raw, res.found, nil
}

func (s *KVStore) Save(ctx context.Context, key string, raw []byte) error {
	_, err := s.cb.Execute(func() (loadResult, error) {
		return loadResult{}, s.next.Save(ctx, key, raw)
	})
	return wrap(err)
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	_, err := s.cb.Execute(func() (loadResult, error) {
		return loadResult{}, s.next.Delete(ctx, key)
	})
	return wrap(err)
}

// State — текущее состояние автомата (для логов и тестов).
func (s *KVStore) State() gobreaker.State { return s.cb.State() }

func wrap(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	return err
}
