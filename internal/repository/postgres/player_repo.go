package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
)

// PlayerRepo реализует repository.PlayerRepository
type PlayerRepo struct {
	db *gorm.DB
}

// NewPlayerRepo создает новый репозиторий игроков
func NewPlayerRepo(db *gorm.DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// GetByID возвращает игрока по ID
func (r *PlayerRepo) GetByID(id uint) (*entity.Player, error) {
	var player entity.Player
	err := r.db.First(&player, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &player, nil
}

// GetByUUID возвращает игрока по session-токену
func (r *PlayerRepo) GetByUUID(uuid string) (*entity.Player, error) {
	var player entity.Player
	err := r.db.Where("uuid = ?", uuid).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &player, nil
}

// GetOrCreateByUUID возвращает игрока по session-токену, создавая
// запись с пустым именем и цветом при первом контакте
func (r *PlayerRepo) GetOrCreateByUUID(uuid string) (*entity.Player, error) {
	var player entity.Player
	err := r.db.Where(entity.Player{UUID: uuid}).FirstOrCreate(&player).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// Update обновляет данные игрока
func (r *PlayerRepo) Update(player *entity.Player) error {
	return r.db.Save(player).Error
}
