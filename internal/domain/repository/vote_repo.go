package repository

import (
	"github.com/yourusername/pubquiz-api/internal/domain/entity"
)

// VoteRepository определяет методы для работы с голосами
type VoteRepository interface {
	// Create добавляет голос участника за ответ. Возвращает false,
	// если голос уже существовал (повтор молча поглощается).
	Create(answerID, membershipID uint) (bool, error)

	// Delete удаляет голос участника за ответ и возвращает число
	// удаленных строк (0, если голоса не было)
	Delete(answerID, membershipID uint) (int64, error)

	// ListByAnswer возвращает голоса за ответ
	ListByAnswer(answerID uint) ([]entity.Vote, error)
}
