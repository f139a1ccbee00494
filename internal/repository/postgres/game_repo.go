package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
)

// GameRepo реализует repository.GameRepository
type GameRepo struct {
	db *gorm.DB
}

// NewGameRepo создает новый репозиторий игр
func NewGameRepo(db *gorm.DB) *GameRepo {
	return &GameRepo{db: db}
}

// List возвращает все игры в порядке создания
func (r *GameRepo) List() ([]entity.Game, error) {
	var games []entity.Game
	err := r.db.Order("id").Find(&games).Error
	if err != nil {
		return nil, err
	}
	return games, nil
}

// GetByUUID возвращает игру по токену
func (r *GameRepo) GetByUUID(uuid string) (*entity.Game, error) {
	var game entity.Game
	err := r.db.Where("uuid = ?", uuid).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &game, nil
}

// Create создает новую игру вместе с вложенными вопросами
func (r *GameRepo) Create(game *entity.Game) error {
	return r.db.Create(game).Error
}
