package app_test

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"

	"github.com/Gunvolt24/gomarketplace_cart/config"
	"github.com/Gunvolt24/gomarketplace_cart/internal/app"
	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports/mocks"
)

// логгер-заглушка
type nopLogger struct{}

func (nopLogger) Infof(context.Context, string, ...any)  {}
func (nopLogger) Warnf(context.Context, string, ...any)  {}
func (nopLogger) Errorf(context.Context, string, ...any) {}

// фейковый фоновый компонент, который ждёт отмены контекста
type fakeWorker struct {
	runCalls   int32
	closeCalls int32
}

func (f *fakeWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&f.runCalls, 1)
	<-ctx.Done()
	return ctx.Err()
}
func (f *fakeWorker) Close() error {
	atomic.AddInt32(&f.closeCalls, 1)
	return nil
}

// фейковая корзина: первые failInit попыток загрузки падают
type fakeCart struct {
	failInit   int32
	initCalls  int32
	closeCalls int32
	errs       chan error
}

func (f *fakeCart) Initialize(context.Context) error {
	if atomic.AddInt32(&f.initCalls, 1) <= f.failInit {
		return domain.ErrStorageUnavailable
	}
	return nil
}
func (f *fakeCart) Errors() <-chan error { return f.errs }
func (f *fakeCart) Close(context.Context) error {
	atomic.AddInt32(&f.closeCalls, 1)
	return nil
}

func TestAppRun_GracefulShutdown(t *testing.T) {
	// HTTP-сервер на случайном свободном порту
	srv := &http.Server{
		Addr:    "127.0.0.1:0",
		Handler: http.NewServeMux(),
	}

	w1, w2 := &fakeWorker{}, &fakeWorker{}
	cart := &fakeCart{errs: make(chan error, 1)}
	cart.errs <- errors.New("persist failed")

	a := &app.App{
		Logger:     nopLogger{},
		HTTPServer: srv,
		Cart:       cart,
		Workers:    []ports.Runner{w1, w2},
	}

	// Запуск и быстрая остановка
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for i, w := range []*fakeWorker{w1, w2} {
		if atomic.LoadInt32(&w.runCalls) == 0 {
			t.Fatalf("worker %d: Run should be called", i)
		}
		if atomic.LoadInt32(&w.closeCalls) == 0 {
			t.Fatalf("worker %d: Close should be called", i)
		}
	}
	if atomic.LoadInt32(&cart.initCalls) == 0 {
		t.Fatalf("cart.Initialize should be called")
	}
	if atomic.LoadInt32(&cart.closeCalls) != 1 {
		t.Fatalf("cart.Close should be called once, got %d", cart.closeCalls)
	}
}

// Упавший фоновый компонент останавливает приложение без отмены внешнего ctx.
func TestAppRun_WorkerErrorStopsApp(t *testing.T) {
	ctrl := gomock.NewController(t)
	worker := mocks.NewMockRunner(ctrl)
	worker.EXPECT().Run(gomock.Any()).Return(errors.New("broker gone"))
	worker.EXPECT().Close().Return(nil)

	cart := &fakeCart{errs: make(chan error)}
	a := &app.App{
		Logger:     nopLogger{},
		HTTPServer: &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()},
		Cart:       cart,
		Workers:    []ports.Runner{worker},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after worker error")
	}
	if atomic.LoadInt32(&cart.closeCalls) != 1 {
		t.Fatalf("cart must be closed on shutdown")
	}
}

func TestAppRun_RetriesCartInitialize(t *testing.T) {
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NewServeMux()}
	cart := &fakeCart{failInit: 1, errs: make(chan error)}

	a := &app.App{Logger: nopLogger{}, HTTPServer: srv, Cart: cart}

	// первая попытка падает, вторая через ~500ms проходит
	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := atomic.LoadInt32(&cart.initCalls); got != 2 {
		t.Fatalf("want 2 initialize attempts, got %d", got)
	}
}

func TestBootstrap_UnknownDriver(t *testing.T) {
	cfg, err := config.LoadWithPrefix("CART_TEST_BOOTSTRAP_BAD")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.Store.Driver = "cassandra"

	_, cleanup, err := app.Bootstrap(context.Background(), &cfg)
	defer cleanup()
	if !errors.Is(err, app.ErrUnknownDriver) {
		t.Fatalf("want ErrUnknownDriver, got %v", err)
	}
}

func TestBootstrap_MemoryDriver(t *testing.T) {
	cfg, err := config.LoadWithPrefix("CART_TEST_BOOTSTRAP_MEM")
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	cfg.HTTP.GinMode = "test"

	a, cleanup, err := app.Bootstrap(context.Background(), &cfg)
	if err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	defer cleanup()

	if a.HTTPServer == nil || a.Cart == nil {
		t.Fatalf("app is not fully assembled: %+v", a)
	}
	if len(a.Workers) != 0 {
		t.Fatalf("kafka disabled: want no workers, got %d", len(a.Workers))
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.Cart.Initialize(ctx); err != nil {
		t.Fatalf("Initialize over memory store: %v", err)
	}
	if err := a.Cart.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
