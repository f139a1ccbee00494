package repository

import (
	"github.com/yourusername/pubquiz-api/internal/domain/entity"
)

// AnswerRepository определяет методы для работы с ответами участников
type AnswerRepository interface {
	// GetByUUID возвращает ответ по токену с подгруженными голосами
	// и участием (включая команду)
	GetByUUID(uuid string) (*entity.GivenAnswer, error)

	// Upsert обновляет текст ответа для пары (вопрос, участие),
	// создавая строку, если ее еще нет. Возвращает актуальную строку
	// с подгруженными голосами.
	Upsert(questionID, membershipID uint, text string) (*entity.GivenAnswer, error)

	// ListByTeam возвращает все ответы участников команды
	// (с голосами и участиями)
	ListByTeam(teamID uint) ([]entity.GivenAnswer, error)

	// ListSelectedByGame возвращает все выбранные ответы игры
	// (с участиями и командами) — для админ-команды
	ListSelectedByGame(gameID uint) ([]entity.GivenAnswer, error)

	// ListSelectedForQuestionTeam возвращает выбранные ответы на вопрос
	// в пределах одной команды
	ListSelectedForQuestionTeam(questionID, teamID uint) ([]entity.GivenAnswer, error)

	// SetSelected выставляет или снимает флаг выбора ответа
	SetSelected(answerID uint, selected bool) error
}
