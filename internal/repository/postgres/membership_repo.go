package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
)

// MembershipRepo реализует repository.MembershipRepository
type MembershipRepo struct {
	db *gorm.DB
}

// NewMembershipRepo создает новый репозиторий участий
func NewMembershipRepo(db *gorm.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

// Get возвращает участие игрока в игре с подгруженной командой
func (r *MembershipRepo) Get(playerID, gameID uint) (*entity.Membership, error) {
	var m entity.Membership
	err := r.db.Preload("Team").
		Where("player_id = ? AND game_id = ?", playerID, gameID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// GetOrCreate возвращает участие игрока в игре, создавая запись без
// команды, если ее еще нет. Уникальность (player_id, game_id) защищает
// от дубликата при гонке.
func (r *MembershipRepo) GetOrCreate(playerID, gameID uint) (*entity.Membership, error) {
	var m entity.Membership
	err := r.db.Where(entity.Membership{PlayerID: playerID, GameID: gameID}).FirstOrCreate(&m).Error
	if err != nil {
		if isUniqueViolation(err) {
			return r.Get(playerID, gameID)
		}
		return nil, err
	}
	if m.TeamID != nil {
		// FirstOrCreate не подгружает ассоциации — дочитываем команду
		return r.Get(playerID, gameID)
	}
	return &m, nil
}

// SetTeam привязывает участие к команде
func (r *MembershipRepo) SetTeam(membershipID, teamID uint) error {
	return r.db.Model(&entity.Membership{}).
		Where("id = ?", membershipID).
		Update("team_id", teamID).Error
}

// ListByTeam возвращает всех участников команды с подгруженными игроками
func (r *MembershipRepo) ListByTeam(teamID uint) ([]entity.Membership, error) {
	var members []entity.Membership
	err := r.db.Preload("Player").
		Where("team_id = ?", teamID).
		Order("id").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
