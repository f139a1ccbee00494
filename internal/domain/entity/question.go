package entity

// Question представляет вопрос внутри игры.
// Флаг IsActive управляет видимостью: команды без админ-прав видят вопрос
// только после публикации, админ-команда видит всегда.
type Question struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	UUID     string `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	GameID   uint   `gorm:"not null;index" json:"game_id"`
	Text     string `gorm:"size:2000;not null" json:"text"`
	IsActive bool   `gorm:"not null;default:false" json:"is_active"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}
