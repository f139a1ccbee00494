package websocket

import (
	"encoding/json"
	"log"
)

// Router рассылает события по заданной области: команде или игре.
// Доставка каждому получателю — best-effort: отказ одного подключения
// не прерывает доставку остальным и не возвращается вызывающему как
// ошибка; отказавшие подключения снимаются с учета после рассылки.
type Router struct {
	registry *Registry
}

// NewRouter создает новый маршрутизатор рассылок поверх реестра
func NewRouter(registry *Registry) *Router {
	return &Router{registry: registry}
}

// ToTeam доставляет событие всем подключениям, привязанным к команде.
// Состав получателей фиксируется снимком на момент вызова: подключение,
// вступившее в команду после снимка, эту рассылку не получит.
func (r *Router) ToTeam(teamID uint, event Event) {
	r.fanOut(r.registry.TeamMembers(teamID), event)
}

// ToGame доставляет событие всем подключениям, привязанным к игре
func (r *Router) ToGame(gameID uint, event Event) {
	r.fanOut(r.registry.GameMembers(gameID), event)
}

// ToClient доставляет событие одному подключению, снимая его с учета
// при отказе очереди
func (r *Router) ToClient(c *Client, event Event) {
	r.fanOut([]*Client{c}, event)
}

func (r *Router) fanOut(recipients []*Client, event Event) {
	if len(recipients) == 0 {
		return
	}

	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("[Router] Ошибка сериализации события %s: %v", event.MsgType, err)
		return
	}

	var dead []*Client
	for _, c := range recipients {
		if !c.enqueue(message) {
			dead = append(dead, c)
		}
	}

	// Снимаем отказавшие подключения с учета после завершения всех
	// постановок в очередь; Unregister идемпотентен
	for _, c := range dead {
		log.Printf("[Router] Недоставляемое подключение %s снимается с учета", c.ConnectionID)
		r.registry.Unregister(c)
	}
}
