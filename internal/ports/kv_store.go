package ports

import "context"

// KVStore — долговременное хранилище ключ-значение, в котором лежит состояние корзины.
// Ошибки недоступности хранилища оборачивают domain.ErrStorageUnavailable.
type KVStore interface {
	// Load — вернуть значение по ключу; found=false, если ключа нет.
	Load(ctx context.Context, key string) (raw []byte, found bool, err error)

	// Save — записать/перезаписать значение.
	Save(ctx context.Context, key string, raw []byte) error

	// Delete — удалить ключ (отсутствие ключа не ошибка).
	Delete(ctx context.Context, key string) error
}
