package service

import (
	"github.com/google/uuid"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	"github.com/yourusername/pubquiz-api/internal/domain/repository"
)

// IdentityService разрешает session-токен клиента в долговременную
// личность игрока. Кабинетов и паролей нет: токен, сохраненный на
// стороне клиента, и есть вся аутентификация.
type IdentityService struct {
	playerRepo repository.PlayerRepository
}

// NewIdentityService создает новый сервис идентификации
func NewIdentityService(playerRepo repository.PlayerRepository) *IdentityService {
	return &IdentityService{playerRepo: playerRepo}
}

// Resolve возвращает игрока по токену. Пустой токен означает первый визит:
// генерируем свежий и создаем игрока с пустым именем и цветом. Незнакомый,
// но непустой токен тоже создает игрока — клиент мог пережить чистку базы.
// Возвращает игрока и фактический токен, который нужно вернуть клиенту.
func (s *IdentityService) Resolve(token string) (*entity.Player, string, error) {
	if token == "" {
		token = uuid.New().String()
	}
	player, err := s.playerRepo.GetOrCreateByUUID(token)
	if err != nil {
		return nil, "", err
	}
	return player, token, nil
}
