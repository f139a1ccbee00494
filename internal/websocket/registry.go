package websocket

import (
	"log"
	"sync"
)

// Registry — единственный источник истины о том, «кто сейчас слушает что».
// Хранит живые подключения и их текущие привязки (игрок, команда, игра)
// в явных двунаправленных индексах. Привязки эфемерны: они живут столько,
// сколько живет транспортная сессия, и снимаются целиком при Unregister.
type Registry struct {
	mu sync.RWMutex

	// Все живые подключения
	conns map[*Client]struct{}

	// Подключение → ID игрока (после init)
	players map[*Client]uint

	// Подключение → текущая команда и обратный индекс для рассылок
	teamByConn  map[*Client]uint
	connsByTeam map[uint]map[*Client]struct{}

	// Подключение → текущая игра и обратный индекс для рассылок
	gameByConn  map[*Client]uint
	connsByGame map[uint]map[*Client]struct{}
}

// NewRegistry создает пустой реестр подключений
func NewRegistry() *Registry {
	return &Registry{
		conns:       make(map[*Client]struct{}),
		players:     make(map[*Client]uint),
		teamByConn:  make(map[*Client]uint),
		connsByTeam: make(map[uint]map[*Client]struct{}),
		gameByConn:  make(map[*Client]uint),
		connsByGame: make(map[uint]map[*Client]struct{}),
	}
}

// Register добавляет подключение в реестр
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[c] = struct{}{}
}

// BindPlayer связывает подключение с личностью игрока; идемпотентен
func (r *Registry) BindPlayer(c *Client, playerID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return
	}
	r.players[c] = playerID
}

// PlayerID возвращает ID игрока, привязанного к подключению
func (r *Registry) PlayerID(c *Client) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.players[c]
	return id, ok
}

// SetTeamScope выставляет текущую команду подключения. Прежняя привязка
// по этой оси заменяется: оба направления индекса обновляются вместе.
func (r *Registry) SetTeamScope(c *Client, teamID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return
	}
	if prev, ok := r.teamByConn[c]; ok {
		delete(r.connsByTeam[prev], c)
		if len(r.connsByTeam[prev]) == 0 {
			delete(r.connsByTeam, prev)
		}
	}
	r.teamByConn[c] = teamID
	if r.connsByTeam[teamID] == nil {
		r.connsByTeam[teamID] = make(map[*Client]struct{})
	}
	r.connsByTeam[teamID][c] = struct{}{}
}

// TeamID возвращает текущую команду подключения
func (r *Registry) TeamID(c *Client) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.teamByConn[c]
	return id, ok
}

// SetGameScope выставляет текущую игру подключения (замена, не накопление)
func (r *Registry) SetGameScope(c *Client, gameID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[c]; !ok {
		return
	}
	if prev, ok := r.gameByConn[c]; ok {
		delete(r.connsByGame[prev], c)
		if len(r.connsByGame[prev]) == 0 {
			delete(r.connsByGame, prev)
		}
	}
	r.gameByConn[c] = gameID
	if r.connsByGame[gameID] == nil {
		r.connsByGame[gameID] = make(map[*Client]struct{})
	}
	r.connsByGame[gameID][c] = struct{}{}
}

// GameID возвращает текущую игру подключения
func (r *Registry) GameID(c *Client) (uint, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.gameByConn[c]
	return id, ok
}

// Unregister снимает подключение со всех учетов и закрывает его исходящую
// очередь. Обязан вызываться ровно один раз за жизнь подключения, включая
// аварийное закрытие; повторные вызовы — безопасные no-op.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	if _, ok := r.conns[c]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.conns, c)
	delete(r.players, c)
	if teamID, ok := r.teamByConn[c]; ok {
		delete(r.teamByConn, c)
		delete(r.connsByTeam[teamID], c)
		if len(r.connsByTeam[teamID]) == 0 {
			delete(r.connsByTeam, teamID)
		}
	}
	if gameID, ok := r.gameByConn[c]; ok {
		delete(r.gameByConn, c)
		delete(r.connsByGame[gameID], c)
		if len(r.connsByGame[gameID]) == 0 {
			delete(r.connsByGame, gameID)
		}
	}
	r.mu.Unlock()

	c.CloseSend()
	log.Printf("WebSocket: connection %s unregistered", c.ConnectionID)
}

// TeamMembers возвращает снимок подключений, привязанных к команде
func (r *Registry) TeamMembers(teamID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]*Client, 0, len(r.connsByTeam[teamID]))
	for c := range r.connsByTeam[teamID] {
		members = append(members, c)
	}
	return members
}

// GameMembers возвращает снимок подключений, привязанных к игре
func (r *Registry) GameMembers(gameID uint) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]*Client, 0, len(r.connsByGame[gameID]))
	for c := range r.connsByGame[gameID] {
		members = append(members, c)
	}
	return members
}

// ClientCount возвращает количество живых подключений
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
