package ports

import "context"

// Runner — фоновый компонент приложения (консьюмер команд, публикатор снимков).
type Runner interface {
	Run(ctx context.Context) error
	Close() error
}
