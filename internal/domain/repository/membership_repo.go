package repository

import (
	"github.com/yourusername/pubquiz-api/internal/domain/entity"
)

// MembershipRepository определяет методы для работы с участиями игроков в играх
type MembershipRepository interface {
	// Get возвращает участие игрока в игре (с подгруженной командой)
	Get(playerID, gameID uint) (*entity.Membership, error)

	// GetOrCreate возвращает участие игрока в игре,
	// создавая запись без команды, если ее еще нет
	GetOrCreate(playerID, gameID uint) (*entity.Membership, error)

	// SetTeam привязывает участие к команде (повторная привязка
	// обновляет ту же строку)
	SetTeam(membershipID, teamID uint) error

	// ListByTeam возвращает всех участников команды с подгруженными игроками
	ListByTeam(teamID uint) ([]entity.Membership, error)
}
