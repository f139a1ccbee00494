package repository

import (
	"github.com/yourusername/pubquiz-api/internal/domain/entity"
)

// PlayerRepository определяет методы для работы с игроками
type PlayerRepository interface {
	// GetByID возвращает игрока по ID
	GetByID(id uint) (*entity.Player, error)

	// GetByUUID возвращает игрока по session-токену
	GetByUUID(uuid string) (*entity.Player, error)

	// GetOrCreateByUUID возвращает игрока по session-токену,
	// создавая запись с пустым именем и цветом при первом контакте
	GetOrCreateByUUID(uuid string) (*entity.Player, error)

	// Update обновляет данные игрока
	Update(player *entity.Player) error
}
