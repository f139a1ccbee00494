package postgres

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
)

// AnswerRepo реализует repository.AnswerRepository
type AnswerRepo struct {
	db *gorm.DB
}

// NewAnswerRepo создает новый репозиторий ответов
func NewAnswerRepo(db *gorm.DB) *AnswerRepo {
	return &AnswerRepo{db: db}
}

// GetByUUID возвращает ответ по токену с голосами и участием (включая команду)
func (r *AnswerRepo) GetByUUID(uuid string) (*entity.GivenAnswer, error) {
	var answer entity.GivenAnswer
	err := r.db.Preload("Votes").Preload("Question").
		Preload("Membership").Preload("Membership.Team").
		Where("uuid = ?", uuid).
		First(&answer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &answer, nil
}

// Upsert обновляет текст ответа для пары (вопрос, участие), создавая строку,
// если ее еще нет. На пару существует ровно одна строка, поэтому повторная
// отправка мутирует текст, а не вставляет дубликат.
func (r *AnswerRepo) Upsert(questionID, membershipID uint, text string) (*entity.GivenAnswer, error) {
	var answer entity.GivenAnswer
	err := r.db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("question_id = ? AND membership_id = ?", questionID, membershipID).
			First(&answer).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			answer = entity.GivenAnswer{
				UUID:         uuid.New().String(),
				QuestionID:   questionID,
				MembershipID: membershipID,
				Text:         text,
			}
			if err := tx.Create(&answer).Error; err != nil {
				if isUniqueViolation(err) {
					// Гонка с параллельной вставкой: дочитываем и обновляем
					if err := tx.Where("question_id = ? AND membership_id = ?", questionID, membershipID).
						First(&answer).Error; err != nil {
						return err
					}
					answer.Text = text
					answer.CreatedAt = time.Now()
					return tx.Save(&answer).Error
				}
				return err
			}
			return nil
		case err != nil:
			return err
		default:
			// Повторная отправка обновляет и метку времени: payload ответа
			// несет время последней правки
			answer.Text = text
			answer.CreatedAt = time.Now()
			return tx.Save(&answer).Error
		}
	})
	if err != nil {
		return nil, err
	}
	// Перечитываем с голосами, чтобы вызывающий собрал полный payload
	return r.GetByUUID(answer.UUID)
}

// ListByTeam возвращает все ответы участников команды
func (r *AnswerRepo) ListByTeam(teamID uint) ([]entity.GivenAnswer, error) {
	var answers []entity.GivenAnswer
	err := r.db.Preload("Votes").Preload("Question").Preload("Membership").
		Joins("JOIN memberships ON memberships.id = given_answers.membership_id").
		Where("memberships.team_id = ?", teamID).
		Order("given_answers.id").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// ListSelectedByGame возвращает все выбранные ответы игры с командами авторов
func (r *AnswerRepo) ListSelectedByGame(gameID uint) ([]entity.GivenAnswer, error) {
	var answers []entity.GivenAnswer
	err := r.db.Preload("Question").Preload("Membership").Preload("Membership.Team").
		Joins("JOIN questions ON questions.id = given_answers.question_id").
		Where("questions.game_id = ? AND given_answers.is_selected = true", gameID).
		Order("given_answers.id").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// ListSelectedForQuestionTeam возвращает выбранные ответы на вопрос в пределах команды
func (r *AnswerRepo) ListSelectedForQuestionTeam(questionID, teamID uint) ([]entity.GivenAnswer, error) {
	var answers []entity.GivenAnswer
	err := r.db.Preload("Votes").Preload("Question").Preload("Membership").
		Joins("JOIN memberships ON memberships.id = given_answers.membership_id").
		Where("given_answers.question_id = ? AND memberships.team_id = ? AND given_answers.is_selected = true",
			questionID, teamID).
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// SetSelected выставляет или снимает флаг выбора ответа
func (r *AnswerRepo) SetSelected(answerID uint, selected bool) error {
	return r.db.Model(&entity.GivenAnswer{}).
		Where("id = ?", answerID).
		Update("is_selected", selected).Error
}
