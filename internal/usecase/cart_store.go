package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/Gunvolt24/gomarketplace_cart/internal/codec"
	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/metrics"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/telemetry"
)

// Проверка, что CartStore удовлетворяет интерфейсу CartService.
var _ ports.CartService = (*CartStore)(nil)

// DefaultNamespaceKey — ключ, под которым корзина лежит в хранилище.
const DefaultNamespaceKey = "@GoMarketplace:products"

const (
	defaultPersistTimeout = 5 * time.Second
	defaultLoadTimeout    = 15 * time.Second
	defaultErrorBuffer    = 16
)

const (
	opAdd       = "add"
	opIncrement = "increment"
	opDecrement = "decrement"
	opClear     = "clear"

	resultApplied  = "applied"
	resultNoop     = "noop"
	resultRejected = "rejected"
)

type storeState int

const (
	stateUninitialized storeState = iota
	stateReady
	stateClosed
)

// CartStoreConfig — параметры CartStore.
type CartStoreConfig struct {
	Key            string        // ключ в хранилище
	PersistTimeout time.Duration // таймаут одной записи
	LoadTimeout    time.Duration // таймаут общей загрузки в Initialize
	ErrorBuffer    int           // размер буфера канала ошибок
}

// CartStore — единственный владелец состояния корзины.
// Все изменения проходят под одним мьютексом; запись в хранилище идёт
// в фоне одной горутиной, которая всегда пишет последнее состояние.
type CartStore struct {
	kv        ports.KVStore
	validator ports.ItemValidator
	log       ports.Logger
	cfg       CartStoreConfig

	mu      sync.Mutex
	state   storeState
	items   []domain.LineItem
	version uint64
	subs    map[uint64]chan domain.Snapshot
	nextSub uint64

	// фоновая запись
	pending      *persistJob
	scheduledSeq uint64
	attemptedSeq uint64
	attempted    chan struct{} // закрывается после каждой попытки записи
	wake         chan struct{}
	stop         chan struct{}
	done         chan struct{}
	bgCtx        context.Context
	bgCancel     context.CancelFunc

	errs      chan error
	initGroup singleflight.Group
}

// NewCartStore — DI-конструктор. Запускает фоновую запись; Close обязателен.
func NewCartStore(kv ports.KVStore, validator ports.ItemValidator, log ports.Logger, cfg CartStoreConfig) *CartStore {
	if cfg.Key == "" {
		cfg.Key = DefaultNamespaceKey
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = defaultPersistTimeout
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = defaultLoadTimeout
	}
	if cfg.ErrorBuffer <= 0 {
		cfg.ErrorBuffer = defaultErrorBuffer
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	s := &CartStore{
		kv:        kv,
		validator: validator,
		log:       log,
		cfg:       cfg,
		items:     []domain.LineItem{},
		subs:      make(map[uint64]chan domain.Snapshot),
		attempted: make(chan struct{}),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		bgCtx:     bgCtx,
		bgCancel:  bgCancel,
		errs:      make(chan error, cfg.ErrorBuffer),
	}
	go s.persistLoop()
	return s
}

// Key — ключ корзины в хранилище.
func (s *CartStore) Key() string { return s.cfg.Key }

// Initialize — загрузить сохранённое состояние. Блокирует до результата.
// Битое состояние не ошибка: корзина становится пустой, причина уходит в Errors().
// Недоступное хранилище — ошибка, повторный вызов допустим.
// Одновременные вызовы ждут одну загрузку; она идёт под собственным таймаутом
// и не прерывается отменой ctx отдельного вызывающего.
func (s *CartStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch state {
	case stateReady:
		return nil
	case stateClosed:
		return domain.ErrNotReady
	}

	done := s.initGroup.DoChan("init", func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.LoadTimeout)
		defer cancel()
		return nil, s.load(loadCtx)
	})
	select {
	case res := <-done:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CartStore) load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == stateReady {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ctx, span := telemetry.Tracer().Start(ctx, "cart.load",
		trace.WithAttributes(attribute.String("cart.key", s.cfg.Key)))
	defer span.End()

	start := time.Now()
	raw, found, err := s.kv.Load(ctx, s.cfg.Key)
	metrics.PersistDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PersistOps.WithLabelValues("load", "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Errorf(ctx, "cart load failed key=%s err=%v", s.cfg.Key, err)
		if !errors.Is(err, domain.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
		}
		return fmt.Errorf("load cart: %w", err)
	}

	items := []domain.LineItem{}
	switch {
	case !found:
		metrics.PersistOps.WithLabelValues("load", "missing").Inc()
		s.log.Infof(ctx, "cart not found key=%s, starting empty", s.cfg.Key)
	default:
		decoded, decErr := codec.Decode(raw)
		if decErr != nil {
			metrics.PersistOps.WithLabelValues("load", "corrupt").Inc()
			span.RecordError(decErr)
			s.log.Warnf(ctx, "cart state corrupt key=%s, starting empty err=%v", s.cfg.Key, decErr)
			s.reportError(fmt.Errorf("load cart key=%s: %w", s.cfg.Key, decErr))
			break
		}
		metrics.PersistOps.WithLabelValues("load", "ok").Inc()
		items = decoded
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateReady:
		return nil
	case stateClosed:
		return domain.ErrNotReady
	}
	s.items = items
	s.state = stateReady
	span.SetAttributes(attribute.Int("cart.items", len(items)))
	s.updateGaugesLocked()
	s.publishLocked(s.snapshotLocked())
	s.log.Infof(ctx, "cart ready key=%s items=%d", s.cfg.Key, len(items))
	return nil
}

// Ready — true после успешного Initialize и до Close.
func (s *CartStore) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateReady
}

// Snapshot — копия текущего состояния.
func (s *CartStore) Snapshot(_ context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateReady {
		return domain.Snapshot{}, domain.ErrNotReady
	}
	return s.snapshotLocked(), nil
}

// AddToCart — добавить товар или увеличить количество уже лежащего.
func (s *CartStore) AddToCart(ctx context.Context, item domain.ItemDescriptor) (domain.Snapshot, error) {
	if err := s.validator.Validate(ctx, item); err != nil {
		metrics.CartMutations.WithLabelValues(opAdd, resultRejected).Inc()
		s.log.Warnf(ctx, "add to cart rejected id=%q err=%v", item.ID, err)
		return domain.Snapshot{}, err
	}
	return s.mutate(ctx, opAdd, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		if hasItem(items, item.ID) {
			return s.increment(ctx, items, item.ID)
		}
		return domain.AddItem(items, item), true
	})
}

// Increment — +1 к позиции; неизвестный id не ошибка.
func (s *CartStore) Increment(ctx context.Context, id string) (domain.Snapshot, error) {
	return s.mutate(ctx, opIncrement, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return s.increment(ctx, items, id)
	})
}

// Decrement — -1 к позиции, при количестве 1 позиция удаляется.
func (s *CartStore) Decrement(ctx context.Context, id string) (domain.Snapshot, error) {
	return s.mutate(ctx, opDecrement, func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return domain.DecrementItem(items, id)
	})
}

// Clear — очистить корзину; в хранилище ключ удаляется.
func (s *CartStore) Clear(ctx context.Context) (domain.Snapshot, error) {
	return s.mutate(ctx, opClear, func([]domain.LineItem) ([]domain.LineItem, bool) {
		return []domain.LineItem{}, true
	})
}

func (s *CartStore) increment(ctx context.Context, items []domain.LineItem, id string) ([]domain.LineItem, bool) {
	next, changed := domain.IncrementItem(items, id)
	if !changed {
		if li, ok := (domain.Snapshot{Items: items}).Find(id); ok && li.Quantity == math.MaxUint32 {
			s.log.Warnf(ctx, "cart quantity saturated id=%s", id)
		}
	}
	return next, changed
}

// mutate — атомарное чтение-изменение-запись под мьютексом.
func (s *CartStore) mutate(
	ctx context.Context,
	op string,
	apply func([]domain.LineItem) ([]domain.LineItem, bool),
) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != stateReady {
		metrics.CartMutations.WithLabelValues(op, resultRejected).Inc()
		return domain.Snapshot{}, domain.ErrNotReady
	}

	next, changed := apply(s.items)
	if !changed {
		metrics.CartMutations.WithLabelValues(op, resultNoop).Inc()
		return s.snapshotLocked(), nil
	}

	s.items = next
	s.version++
	snap := s.snapshotLocked()
	s.updateGaugesLocked()
	s.publishLocked(snap)
	s.schedulePersistLocked(op == opClear)
	metrics.CartMutations.WithLabelValues(op, resultApplied).Inc()
	return snap, nil
}

// Errors — ошибки фоновой записи и загрузки. Канал не закрывается.
func (s *CartStore) Errors() <-chan error { return s.errs }

func (s *CartStore) reportError(err error) {
	select {
	case s.errs <- err:
	default:
		metrics.ErrorsDropped.Inc()
	}
}

// Close — прекращает приём изменений, закрывает подписки и дожидается
// последней записи. Если ctx истёк раньше, запись отменяется.
func (s *CartStore) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = stateClosed
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
	s.mu.Unlock()

	close(s.stop)
	select {
	case <-s.done:
		s.bgCancel()
		return nil
	case <-ctx.Done():
		s.bgCancel()
		s.log.Warnf(ctx, "cart close: final write cancelled err=%v", ctx.Err())
		return ctx.Err()
	}
}

func (s *CartStore) snapshotLocked() domain.Snapshot {
	return domain.NewSnapshot(s.version, s.items)
}

func (s *CartStore) updateGaugesLocked() {
	snap := domain.Snapshot{Items: s.items}
	metrics.CartItems.Set(float64(snap.Len()))
	metrics.CartUnits.Set(float64(snap.TotalQuantity()))
}

func hasItem(items []domain.LineItem, id string) bool {
	_, ok := domain.Snapshot{Items: items}.Find(id)
	return ok
}
