package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
)

// TeamRepo реализует repository.TeamRepository
type TeamRepo struct {
	db *gorm.DB
}

// NewTeamRepo создает новый репозиторий команд
func NewTeamRepo(db *gorm.DB) *TeamRepo {
	return &TeamRepo{db: db}
}

// GetByID возвращает команду по ID
func (r *TeamRepo) GetByID(id uint) (*entity.Team, error) {
	var team entity.Team
	err := r.db.First(&team, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &team, nil
}

// GetOrCreate возвращает команду по коду в пределах игры, создавая ее,
// если такой еще нет. Код команды уникален на игру, поэтому гонка
// двух одновременных вступлений разрешается на уровне БД.
func (r *TeamRepo) GetOrCreate(gameID uint, teamCode string) (*entity.Team, error) {
	var team entity.Team
	err := r.db.Where(entity.Team{GameID: gameID, TeamCode: teamCode}).FirstOrCreate(&team).Error
	if err != nil {
		if isUniqueViolation(err) {
			// Параллельное создание той же команды: перечитываем
			err = r.db.Where("game_id = ? AND team_code = ?", gameID, teamCode).First(&team).Error
		}
		if err != nil {
			return nil, err
		}
	}
	return &team, nil
}

// Update обновляет данные команды
func (r *TeamRepo) Update(team *entity.Team) error {
	return r.db.Save(team).Error
}
