package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/segmentio/kafka-go"

	"github.com/Gunvolt24/gomarketplace_cart/internal/domain"
	"github.com/Gunvolt24/gomarketplace_cart/internal/kafka/mocks"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/ctxmeta"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/validate"
)

type nopLogger struct{}

func (nopLogger) Infof(context.Context, string, ...any)  {}
func (nopLogger) Warnf(context.Context, string, ...any)  {}
func (nopLogger) Errorf(context.Context, string, ...any) {}

// runAsync запускает Consumer.Run в отдельном горутине и возвращает канал с ошибкой.
func runAsync(ctx context.Context, c *Consumer) <-chan error {
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()
	return errCh
}

func newTestConsumer(r reader, s commandApplier) *Consumer {
	return &Consumer{
		reader: r, cart: s, log: nopLogger{},
		processTimeout: 30 * time.Millisecond,
		retryInitial:   5 * time.Millisecond,
		retryMax:       10 * time.Millisecond,
		jitterRand:     rand.New(rand.NewSource(1)),
	}
}

// Успешная обработка + коммит
func TestRun_OK_Commits(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	s := mocks.NewMockcommandApplier(ctrl)

	rc := kafka.ReaderConfig{Topic: "cart-commands", GroupID: "g1", Brokers: []string{"b:9092"}}
	r.EXPECT().Config().Return(rc).AnyTimes()
	// 1-й цикл: сообщение обрабатывается
	r.EXPECT().FetchMessage(gomock.Any()).
		Return(kafka.Message{Offset: 1, Value: []byte(`{"op":"clear"}`)}, nil)
	s.EXPECT().ApplyMessage(gomock.Any(), []byte(`{"op":"clear"}`)).Return(nil)
	r.EXPECT().CommitMessages(gomock.Any(), gomock.Any()).Return(nil)
	// 2-й fetch блокируется до отмены контекста
	r.EXPECT().FetchMessage(gomock.Any()).
		DoAndReturn(func(ctx context.Context) (kafka.Message, error) {
			<-ctx.Done()
			return kafka.Message{}, ctx.Err()
		})

	c := newTestConsumer(r, s)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, c)

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for Run to stop")
	}
}

// Невалидный товар => тоже коммитим (чтобы не ретраить мусор)
func TestRun_InvalidItem_Commits(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	s := mocks.NewMockcommandApplier(ctrl)

	rc := kafka.ReaderConfig{Topic: "cart-commands", GroupID: "g1", Brokers: []string{"b:9092"}}
	r.EXPECT().Config().Return(rc).AnyTimes()

	// 1-й цикл: получили сообщение, сервис вернул validate.ErrInvalidItem, выполняем CommitMessages
	r.EXPECT().FetchMessage(gomock.Any()).
		Return(kafka.Message{Offset: 7, Value: []byte(`{"op":"add","item":{"id":""}}`)}, nil)
	s.EXPECT().ApplyMessage(gomock.Any(), []byte(`{"op":"add","item":{"id":""}}`)).Return(validate.ErrInvalidItem)
	r.EXPECT().CommitMessages(gomock.Any(), gomock.Any()).Return(nil)

	// 2-й fetch будет ждать отмены
	r.EXPECT().FetchMessage(gomock.Any()).
		DoAndReturn(func(ctx context.Context) (kafka.Message, error) {
			<-ctx.Done()
			return kafka.Message{}, ctx.Err()
		})

	c := newTestConsumer(r, s)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, c)

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for Run to stop")
	}
}

// Временная ошибка корзины (таймаут) => НЕ коммитим
func TestRun_TemporaryFailure_NoCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	s := mocks.NewMockcommandApplier(ctrl)

	rc := kafka.ReaderConfig{Topic: "cart-commands", GroupID: "g1", Brokers: []string{"b:9092"}}
	r.EXPECT().Config().Return(rc).AnyTimes()

	// 1-й цикл: получили сообщение, сервис упал "временной" ошибкой -> CommitMessages НЕ вызывается
	r.EXPECT().FetchMessage(gomock.Any()).
		Return(kafka.Message{Offset: 2, Value: []byte(`{"op":"increment","id":"p1"}`)}, nil)
	s.EXPECT().ApplyMessage(gomock.Any(), []byte(`{"op":"increment","id":"p1"}`)).Return(errors.New("deadline exceeded"))
	// Никаких r.EXPECT().CommitMessages(...) специально НЕ ставим:
	// если Consumer по ошибке его вызовет — тест упадёт как "unexpected call".

	// 2-й fetch блокируется до отмены
	r.EXPECT().FetchMessage(gomock.Any()).
		DoAndReturn(func(ctx context.Context) (kafka.Message, error) {
			<-ctx.Done()
			return kafka.Message{}, ctx.Err()
		})

	c := newTestConsumer(r, s)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, c)

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for Run to stop")
	}
}

// Ошибки FetchMessage ретраятся; по отмене контекста — корректный выход
func TestRun_FetchError_RetryThenStopOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	s := mocks.NewMockcommandApplier(ctrl)

	rc := kafka.ReaderConfig{Topic: "cart-commands", GroupID: "g1", Brokers: []string{"b:9092"}}
	r.EXPECT().Config().Return(rc).AnyTimes()

	// Всегда возвращаем ошибку брокера; Consumer будет ждать по backoff и ретраить,
	// пока не отменится контекст
	r.EXPECT().FetchMessage(gomock.Any()).
		DoAndReturn(func(_ context.Context) (kafka.Message, error) {
			return kafka.Message{}, errors.New("broker error")
		}).AnyTimes()

	c := newTestConsumer(r, s)

	// Короткий таймаут, чтобы быстро выйти
	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()

	if err := c.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want DeadlineExceeded, got %v", err)
	}
}

// CommitMessages вернул ошибку — получаем предупреждение; цикл живёт дальше
func TestRun_CommitWarnOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	s := mocks.NewMockcommandApplier(ctrl)

	rc := kafka.ReaderConfig{Topic: "cart-commands", GroupID: "g1", Brokers: []string{"b:9092"}}
	r.EXPECT().Config().Return(rc).AnyTimes()

	// 1-й цикл: сервис работает, но CommitMessages возвращает ошибку — не должен падать
	r.EXPECT().FetchMessage(gomock.Any()).
		Return(kafka.Message{Offset: 3, Value: []byte(`{"op":"clear"}`)}, nil)
	s.EXPECT().ApplyMessage(gomock.Any(), []byte(`{"op":"clear"}`)).Return(nil)
	r.EXPECT().CommitMessages(gomock.Any(), gomock.Any()).
		Return(errors.New("temporary"))

	// 2-й fetch блокируется до отмены
	r.EXPECT().FetchMessage(gomock.Any()).
		DoAndReturn(func(ctx context.Context) (kafka.Message, error) {
			<-ctx.Done()
			return kafka.Message{}, ctx.Err()
		})

	c := newTestConsumer(r, s)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, c)

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for Run to stop")
	}
}

// Проверка Close() прокидывает вызов в reader.Close()
func TestClose_DelegatesToReader(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	s := mocks.NewMockcommandApplier(ctrl)

	// Close должен быть вызван и вернуть nil
	r.EXPECT().Close().Return(nil)

	c := newTestConsumer(r, s)
	if err := c.Close(); err != nil {
		t.Fatalf("expected nil from Close, got %v", err)
	}
}

// runUntilCancel гоняет Run ~20мс и проверяет корректный выход по отмене.
func runUntilCancel(t *testing.T, c *Consumer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := runAsync(ctx, c)

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", err)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for Run to stop")
	}
}

func blockUntilCancel(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

// Нераспознанная команда => коммитим и идём дальше
func TestRun_InvalidCommand_Commits(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	s := mocks.NewMockcommandApplier(ctrl)

	r.EXPECT().Config().Return(kafka.ReaderConfig{Topic: "cart-commands"}).AnyTimes()
	r.EXPECT().FetchMessage(gomock.Any()).
		Return(kafka.Message{Offset: 11, Value: []byte("not-a-json")}, nil)
	s.EXPECT().ApplyMessage(gomock.Any(), []byte("not-a-json")).
		Return(fmt.Errorf("%w: invalid json", domain.ErrInvalidCommand))
	r.EXPECT().CommitMessages(gomock.Any(), gomock.Any()).Return(nil)
	r.EXPECT().FetchMessage(gomock.Any()).DoAndReturn(blockUntilCancel)

	runUntilCancel(t, newTestConsumer(r, s))
}

// Корзина ещё не загружена => без коммита, сообщение будет прочитано повторно
func TestRun_NotReady_NoCommit(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	s := mocks.NewMockcommandApplier(ctrl)

	r.EXPECT().Config().Return(kafka.ReaderConfig{Topic: "cart-commands"}).AnyTimes()
	r.EXPECT().FetchMessage(gomock.Any()).
		Return(kafka.Message{Offset: 12, Value: []byte(`{"op":"clear"}`)}, nil)
	s.EXPECT().ApplyMessage(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("apply clear: %w", domain.ErrNotReady))
	r.EXPECT().FetchMessage(gomock.Any()).DoAndReturn(blockUntilCancel)

	runUntilCancel(t, newTestConsumer(r, s))
}

// Команда обрабатывается с источником kafka в контексте
func TestHandleMessage_SetsSource(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := mocks.NewMockreader(ctrl)
	s := mocks.NewMockcommandApplier(ctrl)

	s.EXPECT().ApplyMessage(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ []byte) error {
			if src, ok := ctxmeta.SourceFromContext(ctx); !ok || src != ctxmeta.SourceKafka {
				t.Errorf("want source=kafka, got %q", src)
			}
			if id, ok := ctxmeta.RequestIDFromContext(ctx); !ok || id != "cart-commands/0/5" {
				t.Errorf("unexpected request id %q", id)
			}
			return nil
		})

	c := newTestConsumer(r, s)
	if !c.handleMessage(context.Background(), "cart-commands", &kafka.Message{Offset: 5}) {
		t.Fatal("expected commit on success")
	}
}
