package service

import (
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	"github.com/yourusername/pubquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
)

const (
	gamesListCacheKey = "games:list"
	gamesListCacheTTL = 30 * time.Second
)

// GameService отвечает за каталог игр: список для приветственного
// сообщения, создание игр и пакетная загрузка вопросов.
type GameService struct {
	gameRepo     repository.GameRepository
	questionRepo repository.QuestionRepository
	cacheRepo    repository.CacheRepository // nil, если Redis не настроен
}

// NewGameService создает новый сервис игр
func NewGameService(
	gameRepo repository.GameRepository,
	questionRepo repository.QuestionRepository,
	cacheRepo repository.CacheRepository,
) *GameService {
	return &GameService{
		gameRepo:     gameRepo,
		questionRepo: questionRepo,
		cacheRepo:    cacheRepo,
	}
}

// List возвращает все игры в порядке создания. Список уходит каждому
// новому соединению, поэтому прикрыт коротким кешем; промах или отказ
// кеша прозрачно уводит запрос в базу.
func (s *GameService) List() ([]GameInfo, error) {
	if s.cacheRepo != nil {
		var cached []GameInfo
		err := s.cacheRepo.GetJSON(gamesListCacheKey, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[GameService] Ошибка чтения кеша списка игр: %v", err)
		}
	}

	games, err := s.gameRepo.List()
	if err != nil {
		return nil, err
	}
	infos := make([]GameInfo, 0, len(games))
	for i := range games {
		infos = append(infos, buildGameInfo(&games[i]))
	}

	if s.cacheRepo != nil {
		if err := s.cacheRepo.SetJSON(gamesListCacheKey, infos, gamesListCacheTTL); err != nil {
			log.Printf("[GameService] Ошибка записи кеша списка игр: %v", err)
		}
	}
	return infos, nil
}

// GetByUUID возвращает игру по токену
func (s *GameService) GetByUUID(gameUUID string) (*entity.Game, error) {
	return s.gameRepo.GetByUUID(gameUUID)
}

// Create создает игру с заданными вопросами. Токены игры и вопросов
// генерируются на сервере.
func (s *GameService) Create(name string, numQuestions int, questionTexts []string) (*entity.Game, error) {
	if name == "" {
		return nil, apperrors.ErrValidation
	}
	if numQuestions <= 0 {
		numQuestions = len(questionTexts)
	}
	game := &entity.Game{
		UUID:         uuid.New().String(),
		Name:         name,
		NumQuestions: numQuestions,
	}
	for _, text := range questionTexts {
		game.Questions = append(game.Questions, entity.Question{
			UUID: uuid.New().String(),
			Text: text,
		})
	}
	if err := s.gameRepo.Create(game); err != nil {
		return nil, err
	}
	s.invalidateList()
	return game, nil
}

// ImportQuestions добавляет пакет вопросов в игру и возвращает
// число добавленных строк
func (s *GameService) ImportQuestions(gameUUID string, texts []string) (int, error) {
	game, err := s.gameRepo.GetByUUID(gameUUID)
	if err != nil {
		return 0, err
	}
	questions := make([]entity.Question, 0, len(texts))
	for _, text := range texts {
		if text == "" {
			continue
		}
		questions = append(questions, entity.Question{
			UUID:   uuid.New().String(),
			GameID: game.ID,
			Text:   text,
		})
	}
	if len(questions) == 0 {
		return 0, nil
	}
	if err := s.questionRepo.CreateBatch(questions); err != nil {
		return 0, err
	}
	return len(questions), nil
}

// ExportQuestions возвращает игру и все ее вопросы
func (s *GameService) ExportQuestions(gameUUID string) (*entity.Game, []entity.Question, error) {
	game, err := s.gameRepo.GetByUUID(gameUUID)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.questionRepo.ListByGame(game.ID)
	if err != nil {
		return nil, nil, err
	}
	return game, questions, nil
}

func (s *GameService) invalidateList() {
	if s.cacheRepo == nil {
		return
	}
	if err := s.cacheRepo.Delete(gamesListCacheKey); err != nil {
		log.Printf("[GameService] Ошибка сброса кеша списка игр: %v", err)
	}
}
