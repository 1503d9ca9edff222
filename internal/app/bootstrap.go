package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Gunvolt24/gomarketplace_cart/config"
	"github.com/Gunvolt24/gomarketplace_cart/internal/kafka"
	"github.com/Gunvolt24/gomarketplace_cart/internal/ports"
	"github.com/Gunvolt24/gomarketplace_cart/internal/repo/breaker"
	"github.com/Gunvolt24/gomarketplace_cart/internal/repo/memory"
	mongorepo "github.com/Gunvolt24/gomarketplace_cart/internal/repo/mongo"
	"github.com/Gunvolt24/gomarketplace_cart/internal/repo/postgres"
	redisrepo "github.com/Gunvolt24/gomarketplace_cart/internal/repo/redis"
	rest "github.com/Gunvolt24/gomarketplace_cart/internal/transport/http"
	"github.com/Gunvolt24/gomarketplace_cart/internal/usecase"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/logger"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/metrics"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/telemetry"
	"github.com/Gunvolt24/gomarketplace_cart/pkg/validate"
)

// ErrUnknownDriver — неизвестное значение CART_STORE_DRIVER.
var ErrUnknownDriver = errors.New("unknown store driver")

// Cart — то, что App нужно от корзины на старте и при остановке.
type Cart interface {
	Initialize(ctx context.Context) error
	Errors() <-chan error
	Close(ctx context.Context) error
}

// App — собранное приложение и его внешние интерфейсы (HTTP, фоновые компоненты).
type App struct {
	Logger          ports.Logger   // логгер
	HTTPServer      *http.Server   // HTTP-сервер
	Cart            Cart           // корзина
	Workers         []ports.Runner // консьюмер команд, публикатор снимков
	initTimeout     time.Duration  // таймаут одной попытки загрузки корзины
	retryMax        time.Duration  // потолок паузы между попытками загрузки
	gracefulTimeout time.Duration  // время ожидания завершения HTTP-сервера
	closeTimeout    time.Duration  // время на финальную запись корзины
}

// Cleanup — функция освобождения ресурсов.
type Cleanup func()

// applyGinMode — устанавливает режим Gin по строке;
// неизвестное значение → debug и предупреждение в лог.
func applyGinMode(ctx context.Context, mode string, log ports.Logger) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	case "", "debug":
		gin.SetMode(gin.DebugMode)
	default:
		gin.SetMode(gin.DebugMode)
		log.Warnf(ctx, "unknown GIN_MODE=%q, fallback to debug", mode)
	}
}

// openKV — хранилище по драйверу и функция его закрытия.
func openKV(ctx context.Context, cfg *config.Config, log ports.Logger) (ports.KVStore, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Driver)) {
	case config.DriverMemory, "":
		return memory.NewKVStore(), func() {}, nil

	case config.DriverRedis:
		client, err := redisrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Warnf(ctx, "redis close: %v", err)
			}
		}
		return redisrepo.NewKVStore(client, cfg.Redis.Prefix, cfg.Redis.TTL), closeFn, nil

	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.Migrate {
			if err := postgres.Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return postgres.NewKVStore(pool), pool.Close, nil

	case config.DriverMongo:
		db, disconnect, err := mongorepo.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := disconnect(dctx); err != nil {
				log.Warnf(ctx, "mongo disconnect: %v", err)
			}
		}
		return mongorepo.NewKVStore(db, cfg.Mongo.Collection), closeFn, nil
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Store.Driver)
}

// Bootstrap — собирает зависимости и возвращает приложение, функцию очистки и ошибку.
func Bootstrap(ctx context.Context, cfg *config.Config) (*App, Cleanup, error) {
	// Логгер (dev/prod режим задаётся конфигурацией).
	logg, cleanupLogger, err := logger.NewZapLogger(cfg.Logger.IsProd)
	if err != nil {
		return nil, func() {}, err
	}

	// Регистрация метрик (Prometheus).
	metrics.MustRegister()

	// Хранилище корзины.
	kv, closeKV, err := openKV(ctx, cfg, logg)
	if err != nil {
		if cErr := cleanupLogger(); cErr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cErr)
		}
		return nil, func() {}, err
	}
	logg.Infof(ctx, "cart store driver=%s breaker=%v", cfg.Store.Driver, cfg.Store.BreakerEnabled)
	if cfg.Store.BreakerEnabled {
		kv = breaker.NewKVStore(kv, breaker.Settings{
			Name:             "cart-kv-" + cfg.Store.Driver,
			FailureThreshold: cfg.Store.BreakerFailures,
			OpenTimeout:      cfg.Store.BreakerOpen,
			HalfOpenRequests: cfg.Store.BreakerHalfOpenN,
		}, logg)
	}

	// Трейсинг OTEL (при включённой конфигурации); по умолчанию — no-op.
	shutdownTrace := func(context.Context) error { return nil }
	if cfg.Tracing.Enabled {
		setup, tErr := telemetry.SetupTracing(ctx, cfg.Tracing.ServiceName, cfg.Tracing.Endpoint,
			cfg.Cart.NamespaceKey, cfg.Tracing.SampleRatio)
		if tErr != nil {
			logg.Warnf(ctx, "failed to setup tracing: %v", tErr)
		} else {
			logg.Infof(ctx, "otel tracing enabled service=%s endpoint=%s sample=%.2f",
				cfg.Tracing.ServiceName, cfg.Tracing.Endpoint, cfg.Tracing.SampleRatio)
			shutdownTrace = setup
		}
	}

	// Корзина. Загрузка состояния — в Run, с повторами.
	cart := usecase.NewCartStore(kv, validate.NewItemValidator(), logg, usecase.CartStoreConfig{
		Key:            cfg.Cart.NamespaceKey,
		PersistTimeout: cfg.Cart.PersistTimeout,
		LoadTimeout:    cfg.Cart.InitTimeout,
		ErrorBuffer:    cfg.Cart.ErrorBuffer,
	})

	// Режим Gin.
	applyGinMode(ctx, cfg.HTTP.GinMode, logg)

	// Имя сервиса для otelgin (только при включённом трейсинге).
	otelServiceName := ""
	if cfg.Tracing.Enabled {
		otelServiceName = cfg.Tracing.ServiceName
	}

	// Роутер и HTTP-сервер.
	httpHandler := rest.NewHandler(cart, logg, cfg.HTTP.HandlerTimeout)
	router := rest.NewRouter(httpHandler, otelServiceName)

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	// Kafka: консьюмер команд и публикатор снимков.
	var workers []ports.Runner
	if cfg.Kafka.Enabled {
		consumerCfg := kafka.ConsumerConfig{
			Brokers:        cfg.Kafka.Brokers,
			GroupID:        cfg.Kafka.GroupID,
			Topic:          cfg.Kafka.CommandTopic,
			StartOffset:    cfg.Kafka.StartOffset,
			ProcessTimeout: cfg.Kafka.ProcessTimeout,
			RetryInitial:   cfg.Kafka.RetryInitial,
			RetryMax:       cfg.Kafka.RetryMax,
		}
		workers = append(workers, kafka.NewConsumer(&consumerCfg, cart, logg))

		if cfg.Kafka.EventsTopic != "" {
			updates, _ := cart.Subscribe() // подписка закрывается в CartStore.Close
			publisherCfg := kafka.PublisherConfig{
				Brokers:      cfg.Kafka.Brokers,
				Topic:        cfg.Kafka.EventsTopic,
				Key:          cart.Key(),
				WriteTimeout: cfg.Kafka.WriteTimeout,
			}
			workers = append(workers, kafka.NewPublisher(&publisherCfg, updates, logg))
		}
	}

	app := &App{
		Logger:          logg,
		HTTPServer:      httpSrv,
		Cart:            cart,
		Workers:         workers,
		initTimeout:     cfg.Cart.InitTimeout,
		retryMax:        cfg.Kafka.RetryMax,
		gracefulTimeout: cfg.HTTP.GracefulTimeout,
		closeTimeout:    cfg.Cart.CloseTimeout,
	}

	// Очистка ресурсов (в обратном порядке).
	cleanup := func() {
		if terr := shutdownTrace(context.Background()); terr != nil {
			logg.Warnf(ctx, "shutdown tracing: %v", terr)
		}
		for _, w := range workers {
			if err := w.Close(); err != nil {
				logg.Warnf(ctx, "worker close error: %v", err)
			}
		}
		closeKV()
		if cerr := cleanupLogger(); cerr != nil {
			logg.Warnf(ctx, "cleanup logger: %v", cerr)
		}
	}

	return app, cleanup, nil
}
