package entity

// Player представляет игрока. UUID — это session-токен, который клиент
// хранит у себя и присылает в init: других учетных данных нет.
// Имя и цвет глобальны для игрока и действуют во всех его играх.
type Player struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	UUID  string `gorm:"type:uuid;uniqueIndex;not null" json:"uuid"`
	Name  string `gorm:"size:100;not null;default:''" json:"name"`
	Color string `gorm:"size:20;not null;default:''" json:"color"`
}

// TableName определяет имя таблицы для GORM
func (Player) TableName() string {
	return "players"
}
