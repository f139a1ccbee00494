package entity

// Vote представляет голос участника за ответ.
// Пара (ответ, участие) уникальна: повторный голос того же участника
// молча поглощается, а не считается ошибкой.
type Vote struct {
	ID           uint `gorm:"primaryKey" json:"id"`
	AnswerID     uint `gorm:"not null;uniqueIndex:idx_votes_answer_membership;index" json:"answer_id"`
	MembershipID uint `gorm:"not null;uniqueIndex:idx_votes_answer_membership" json:"membership_id"`
}

// TableName определяет имя таблицы для GORM
func (Vote) TableName() string {
	return "votes"
}
