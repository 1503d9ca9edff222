package domain

import "errors"

var (
	// ErrNotReady — операция вызвана до завершения Initialize (или после Close).
	ErrNotReady = errors.New("cart store is not ready")

	// ErrCorruptPersistedState — сохранённое состояние не удалось разобрать.
	ErrCorruptPersistedState = errors.New("corrupt persisted cart state")

	// ErrStorageUnavailable — хранилище ключ-значение недоступно.
	ErrStorageUnavailable = errors.New("cart storage unavailable")

	// ErrInvalidCommand — команда корзины (Kafka) не распознана.
	ErrInvalidCommand = errors.New("invalid cart command")
)
