package service

import (
	"sync"
)

// scopeLocks выдает мьютекс на строковый ключ области мутации.
// Выбор ответа сериализуется по ключу (вопрос, команда), голосование —
// по ключу ответа: сообщения разных соединений обрабатываются
// параллельно, и без блокировки две гонки select могли бы оставить
// два выбранных ответа на один вопрос.
type scopeLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newScopeLocks() *scopeLocks {
	return &scopeLocks{locks: make(map[string]*sync.Mutex)}
}

// get возвращает мьютекс для ключа, создавая его при первом обращении
func (s *scopeLocks) get(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}
