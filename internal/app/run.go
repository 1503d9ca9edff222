package app

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Run — загружает корзину, запускает HTTP-сервер и фоновые компоненты;
// ждёт отмены контекста или ошибки и останавливает их.
// Пока корзина не загружена, HTTP отвечает 503.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, len(a.Workers)+1)

	runCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()

	if a.Cart != nil {
		go a.watchCartErrors(runCtx)
		go a.initializeCart(runCtx)
	}

	// Запуск фоновых компонентов.
	for _, w := range a.Workers {
		go func() {
			if err := w.Run(runCtx); err != nil {
				errCh <- err
			}
		}()
	}

	// Запуск HTTP-сервера.
	go func() {
		a.Logger.Infof(ctx, "http server starting (addr=%s)", a.HTTPServer.Addr)
		if err := a.HTTPServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Ожидание сигнала остановки или фоновой ошибки.
	select {
	case <-ctx.Done():
		a.Logger.Infof(ctx, "shutdown requested, starting graceful shutdown")
	case err := <-errCh:
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			a.Logger.Infof(ctx, "background component stopped: %v", err)
		} else {
			a.Logger.Warnf(ctx, "background error: %v", err)
		}
	}

	gt := a.gracefulTimeout
	if gt <= 0 {
		gt = 5 * time.Second
	}

	// Корректная остановка HTTP-сервера.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), gt)
	defer cancel()

	if err := a.HTTPServer.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warnf(ctx, "http server shutdown failed: %v", err)
	} else {
		a.Logger.Infof(ctx, "http server stopped gracefully")
	}

	// Консьюмер больше не применяет команды.
	stopBackground()

	// Финальная запись корзины; закрытие подписок останавливает публикатор.
	if a.Cart != nil {
		ct := a.closeTimeout
		if ct <= 0 {
			ct = 5 * time.Second
		}
		closeCtx, closeCancel := context.WithTimeout(context.Background(), ct)
		if err := a.Cart.Close(closeCtx); err != nil {
			a.Logger.Warnf(ctx, "cart close: %v", err)
		} else {
			a.Logger.Infof(ctx, "cart persisted and closed")
		}
		closeCancel()
	}

	for _, w := range a.Workers {
		if err := w.Close(); err != nil {
			a.Logger.Warnf(ctx, "worker close error: %v", err)
		}
	}

	a.Logger.Infof(ctx, "service stopped")
	return nil
}

// initializeCart — повторяет Initialize с экспоненциальной паузой, пока хранилище недоступно.
func (a *App) initializeCart(ctx context.Context) {
	retry := 500 * time.Millisecond
	retryMax := a.retryMax
	if retryMax <= 0 {
		retryMax = 30 * time.Second
	}

	for {
		attemptCtx := ctx
		cancel := func() {}
		if a.initTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, a.initTimeout)
		}
		err := a.Cart.Initialize(attemptCtx)
		cancel()
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		a.Logger.Warnf(ctx, "cart initialize failed: %v (will retry in %s)", err, retry)
		t := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		if retry *= 2; retry > retryMax {
			retry = retryMax
		}
	}
}

// watchCartErrors — ошибки фоновой записи и загрузки корзины в лог.
func (a *App) watchCartErrors(ctx context.Context) {
	errs := a.Cart.Errors()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errs:
			a.Logger.Errorf(ctx, "cart background error: %v", err)
		}
	}
}
