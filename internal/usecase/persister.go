package usecase

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Gunvolt24/gomarketplace_cart/internal/codec"
	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/metrics"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/telemetry"
)

// persistJob — состояние, которое нужно записать. clear=true означает удаление ключа.
type persistJob struct {
	seq   uint64
	items []domain.LineItem
	clear bool
}

// schedulePersistLocked — заменяет ожидающую запись последним состоянием и будит писателя.
func (s *CartStore) schedulePersistLocked(clear bool) {
	s.scheduledSeq++
	s.pending = &persistJob{
		seq:   s.scheduledSeq,
		items: domain.CloneItems(s.items),
		clear: clear,
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// persistLoop — единственный писатель в хранилище. После stop дописывает
// последнее ожидающее состояние и выходит.
func (s *CartStore) persistLoop() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.drainPending()
		case <-s.stop:
			s.drainPending()
			return
		}
	}
}

func (s *CartStore) drainPending() {
	for {
		s.mu.Lock()
		job := s.pending
		s.pending = nil
		s.mu.Unlock()
		if job == nil {
			return
		}

		s.write(job)

		s.mu.Lock()
		s.attemptedSeq = job.seq
		close(s.attempted)
		s.attempted = make(chan struct{})
		s.mu.Unlock()
	}
}

func (s *CartStore) write(job *persistJob) {
	op := "save"
	if job.clear {
		op = "delete"
	}

	ctx, cancel := context.WithTimeout(s.bgCtx, s.cfg.PersistTimeout)
	defer cancel()
	ctx, span := telemetry.Tracer().Start(ctx, "cart.persist", trace.WithAttributes(
		attribute.String("cart.key", s.cfg.Key),
		attribute.String("cart.op", op),
		attribute.Int("cart.items", len(job.items)),
	))
	defer span.End()

	start := time.Now()
	err := s.writeJob(ctx, job)
	metrics.PersistDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.PersistOps.WithLabelValues(op, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Errorf(ctx, "cart persist failed op=%s seq=%d err=%v", op, job.seq, err)
		s.reportError(fmt.Errorf("persist cart %s: %w", op, err))
		return
	}
	metrics.PersistOps.WithLabelValues(op, "ok").Inc()
}

func (s *CartStore) writeJob(ctx context.Context, job *persistJob) error {
	if job.clear {
		return s.kv.Delete(ctx, s.cfg.Key)
	}
	raw, err := codec.Encode(job.items)
	if err != nil {
		return err
	}
	return s.kv.Save(ctx, s.cfg.Key, raw)
}

// Flush — ждёт завершения (успешного или нет) всех запланированных к этому моменту записей.
func (s *CartStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	target := s.scheduledSeq
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if s.attemptedSeq >= target {
			s.mu.Unlock()
			return nil
		}
		attempted := s.attempted
		s.mu.Unlock()

		select {
		case <-attempted:
		case <-s.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
