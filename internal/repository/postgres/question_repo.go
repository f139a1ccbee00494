package postgres

import (
	"errors"

	"gorm.io/gorm"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
)

// QuestionRepo реализует repository.QuestionRepository
type QuestionRepo struct {
	db *gorm.DB
}

// NewQuestionRepo создает новый репозиторий вопросов
func NewQuestionRepo(db *gorm.DB) *QuestionRepo {
	return &QuestionRepo{db: db}
}

// GetByUUID возвращает вопрос по токену
func (r *QuestionRepo) GetByUUID(uuid string) (*entity.Question, error) {
	var question entity.Question
	err := r.db.Where("uuid = ?", uuid).First(&question).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &question, nil
}

// ListByGame возвращает вопросы игры в порядке вставки
func (r *QuestionRepo) ListByGame(gameID uint) ([]entity.Question, error) {
	var questions []entity.Question
	err := r.db.Where("game_id = ?", gameID).Order("id").Find(&questions).Error
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// CreateBatch создает пакет вопросов
func (r *QuestionRepo) CreateBatch(questions []entity.Question) error {
	if len(questions) == 0 {
		return nil
	}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&questions).Error
	})
}

// Update обновляет вопрос
func (r *QuestionRepo) Update(question *entity.Question) error {
	return r.db.Save(question).Error
}
