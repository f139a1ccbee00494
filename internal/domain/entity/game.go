package entity

// Game представляет одну игру-викторину
type Game struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	UUID         string `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Name         string `gorm:"size:200;not null" json:"name"`
	NumQuestions int    `gorm:"not null;default:20" json:"num_questions"`

	Questions []Question `gorm:"foreignKey:GameID" json:"questions,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Game) TableName() string {
	return "games"
}
