package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
)

// VoteRepo реализует repository.VoteRepository
type VoteRepo struct {
	db *gorm.DB
}

// NewVoteRepo создает новый репозиторий голосов
func NewVoteRepo(db *gorm.DB) *VoteRepo {
	return &VoteRepo{db: db}
}

// Create добавляет голос участника за ответ. Пара (ответ, участие) уникальна:
// повторный голос поглощается и на уровне проверки, и на уровне ограничения БД,
// поэтому параллельный дубль тоже не становится ошибкой.
func (r *VoteRepo) Create(answerID, membershipID uint) (bool, error) {
	var existing entity.Vote
	err := r.db.Where("answer_id = ? AND membership_id = ?", answerID, membershipID).
		First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	vote := entity.Vote{AnswerID: answerID, MembershipID: membershipID}
	if err := r.db.Create(&vote).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete удаляет голос участника за ответ и возвращает число удаленных строк
func (r *VoteRepo) Delete(answerID, membershipID uint) (int64, error) {
	result := r.db.Where("answer_id = ? AND membership_id = ?", answerID, membershipID).
		Delete(&entity.Vote{})
	return result.RowsAffected, result.Error
}

// ListByAnswer возвращает голоса за ответ
func (r *VoteRepo) ListByAnswer(answerID uint) ([]entity.Vote, error) {
	var votes []entity.Vote
	err := r.db.Where("answer_id = ?", answerID).Order("id").Find(&votes).Error
	if err != nil {
		return nil, err
	}
	return votes, nil
}

// isUniqueViolation проверяет Postgres unique violation (23505) для pgconn и lib/pq драйверов
func isUniqueViolation(err error) bool {
	// pgx/v5 driver (pgconn.PgError)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	// lib/pq driver
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}
	return false
}
