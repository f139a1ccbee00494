package repository

import (
	"github.com/yourusername/pubquiz-api/internal/domain/entity"
)

// GameRepository определяет методы для работы с играми
type GameRepository interface {
	// List возвращает все игры в порядке создания
	List() ([]entity.Game, error)

	// GetByUUID возвращает игру по токену
	GetByUUID(uuid string) (*entity.Game, error)

	// Create создает новую игру (вместе с вложенными вопросами, если заданы)
	Create(game *entity.Game) error
}
