package entity

import (
	"time"
)

// GivenAnswer представляет ответ участника на вопрос.
// На пару (вопрос, участие) существует ровно одна строка: повторная отправка
// обновляет текст и время, а не создает новую запись. Не более одного ответа
// на пару (вопрос, команда) может иметь IsSelected=true — это инвариант
// машины состояний сессии, а не ограничение схемы, поскольку команда
// выводится транзитивно через участие.
type GivenAnswer struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	UUID         string `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	QuestionID   uint   `gorm:"not null;uniqueIndex:idx_answers_question_membership" json:"question_id"`
	MembershipID uint   `gorm:"not null;uniqueIndex:idx_answers_question_membership" json:"membership_id"`
	Text         string `gorm:"size:2000;not null" json:"text"`
	IsSelected   bool   `gorm:"not null;default:false" json:"is_selected"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Membership Membership `gorm:"foreignKey:MembershipID" json:"membership,omitempty"`
	Question   Question   `gorm:"foreignKey:QuestionID" json:"question,omitempty"`
	Votes      []Vote     `gorm:"foreignKey:AnswerID" json:"votes,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (GivenAnswer) TableName() string {
	return "given_answers"
}

// TeamID возвращает ID команды, которой принадлежит ответ (через участие).
// Вторым значением сообщает, состоит ли автор ответа в команде вообще.
func (a *GivenAnswer) TeamID() (uint, bool) {
	if a.Membership.TeamID == nil {
		return 0, false
	}
	return *a.Membership.TeamID, true
}
