package repository

import (
	"github.com/yourusername/pubquiz-api/internal/domain/entity"
)

// QuestionRepository определяет методы для работы с вопросами
type QuestionRepository interface {
	// GetByUUID возвращает вопрос по токену
	GetByUUID(uuid string) (*entity.Question, error)

	// ListByGame возвращает вопросы игры в порядке вставки
	ListByGame(gameID uint) ([]entity.Question, error)

	// CreateBatch создает пакет вопросов
	CreateBatch(questions []entity.Question) error

	// Update обновляет вопрос (текст, флаг публикации)
	Update(question *entity.Question) error
}
