package repository

import (
	"github.com/yourusername/pubquiz-api/internal/domain/entity"
)

// TeamRepository определяет методы для работы с командами
type TeamRepository interface {
	// GetByID возвращает команду по ID
	GetByID(id uint) (*entity.Team, error)

	// GetOrCreate возвращает команду по коду в пределах игры,
	// создавая ее с пустым именем, если такой еще нет
	GetOrCreate(gameID uint, teamCode string) (*entity.Team, error)

	// Update обновляет данные команды
	Update(team *entity.Team) error
}
