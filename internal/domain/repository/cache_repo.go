package repository

import (
	"time"
)

// CacheRepository определяет методы для кеширования
type CacheRepository interface {
	// SetJSON сохраняет структуру JSON в кеше
	SetJSON(key string, value interface{}, expiration time.Duration) error

	// GetJSON получает структуру JSON из кеша; возвращает
	// apperrors.ErrNotFound при промахе
	GetJSON(key string, dest interface{}) error

	// Delete удаляет значение из кеша
	Delete(key string) error
}
