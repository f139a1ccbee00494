package entity

// Team представляет команду внутри конкретной игры.
// Код команды уникален в пределах игры; команда с IsAdmin=true видит все
// вопросы и все выбранные ответы игры независимо от публикации.
type Team struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	GameID   uint   `gorm:"not null;uniqueIndex:idx_teams_game_code" json:"game_id"`
	TeamCode string `gorm:"size:100;not null;uniqueIndex:idx_teams_game_code" json:"team_code"`
	Name     string `gorm:"size:200;not null;default:''" json:"name"`
	IsAdmin  bool   `gorm:"not null;default:false" json:"is_admin"`
}

// TableName определяет имя таблицы для GORM
func (Team) TableName() string {
	return "teams"
}
