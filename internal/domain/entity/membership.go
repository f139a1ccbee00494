package entity

// Membership представляет участие игрока в одной конкретной игре.
// У игрока не более одной записи участия на игру; вступление в команду
// выставляет TeamID в той же строке, повторное вступление не создает дубликат.
type Membership struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	PlayerID uint  `gorm:"not null;uniqueIndex:idx_memberships_player_game" json:"player_id"`
	GameID   uint  `gorm:"not null;uniqueIndex:idx_memberships_player_game" json:"game_id"`
	TeamID   *uint `gorm:"index" json:"team_id,omitempty"`

	Player Player `gorm:"foreignKey:PlayerID" json:"player,omitempty"`
	Team   *Team  `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

// TableName определяет имя таблицы для GORM
func (Membership) TableName() string {
	return "memberships"
}

// OnTeam сообщает, состоит ли участник в какой-либо команде
func (m *Membership) OnTeam() bool {
	return m != nil && m.TeamID != nil
}
