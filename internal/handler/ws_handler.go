package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/pubquiz-api/internal/config"
	"github.com/yourusername/pubquiz-api/internal/service"
	"github.com/yourusername/pubquiz-api/internal/websocket"
)

// Action — тип действия входящего сообщения. Набор действий закрыт:
// диспетчеризация идет через switch, незнакомое действие логируется
// и отбрасывается.
type Action string

const (
	ActionInit              Action = "init"
	ActionSetName           Action = "set_name"
	ActionSetColor          Action = "set_color"
	ActionJoinTeam          Action = "join_team"
	ActionSetTeamName       Action = "set_team_name"
	ActionLoadGame          Action = "load_game"
	ActionUpdateAnswer      Action = "update_answer"
	ActionSelectAnswer      Action = "select_answer"
	ActionUnselectAnswer    Action = "unselect_answer"
	ActionVoteAnswer        Action = "vote_answer"
	ActionUnvoteAnswer      Action = "unvote_answer"
	ActionUpdateQuestion    Action = "update_question"
	ActionPublishQuestion   Action = "publish_question"
	ActionUnpublishQuestion Action = "unpublish_question"
)

// clientAction — входящее сообщение протокола. Клиент кладет в одно
// сообщение только релевантные действию поля, остальные остаются пустыми.
type clientAction struct {
	Action       Action `json:"action"`
	UUID         string `json:"uuid"`
	PlayerName   string `json:"player_name"`
	Color        string `json:"color"`
	TeamCode     string `json:"team_code"`
	TeamName     string `json:"team_name"`
	GameUUID     string `json:"game_uuid"`
	QuestionUUID string `json:"question_uuid"`
	Answer       string `json:"answer"`
	AnswerUUID   string `json:"answer_uuid"`
	QuestionText string `json:"question_text"`
}

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	registry     *websocket.Registry
	sessions     *service.SessionService
	games        *service.GameService
	upgrader     gorillaws.Upgrader
	clientConfig websocket.ClientConfig
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	registry *websocket.Registry,
	sessions *service.SessionService,
	games *service.GameService,
	cfg *config.Config,
) *WSHandler {
	allowed := cfg.Server.AllowedOrigins
	upgrader := gorillaws.Upgrader{
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")

			// Пустой Origin - не браузерный клиент (curl, нативное
			// приложение), такие подключения разрешаем
			if origin == "" {
				return true
			}
			for _, a := range allowed {
				if a == "*" || a == origin {
					return true
				}
			}
			log.Printf("WebSocket: отклонен неразрешенный origin: %s", origin)
			return false
		},
	}

	clientConfig := websocket.DefaultClientConfig()
	if cfg.WebSocket.Buffers.ClientSendBuffer > 0 {
		clientConfig.BufferSize = cfg.WebSocket.Buffers.ClientSendBuffer
	}
	if cfg.WebSocket.Ping.Interval > 0 {
		clientConfig.PingInterval = time.Duration(cfg.WebSocket.Ping.Interval) * time.Second
	}
	if cfg.WebSocket.Limits.PongWait > 0 {
		clientConfig.PongWait = time.Duration(cfg.WebSocket.Limits.PongWait) * time.Second
	}
	if cfg.WebSocket.Limits.WriteWait > 0 {
		clientConfig.WriteWait = time.Duration(cfg.WebSocket.Limits.WriteWait) * time.Second
	}
	if cfg.WebSocket.Limits.MaxMessageSize > 0 {
		clientConfig.MaxMessageSize = int64(cfg.WebSocket.Limits.MaxMessageSize)
	}

	return &WSHandler{
		registry:     registry,
		sessions:     sessions,
		games:        games,
		upgrader:     upgrader,
		clientConfig: clientConfig,
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение:
// регистрирует его в реестре, отправляет список игр и запускает пампы
func (h *WSHandler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket: ошибка апгрейда соединения: %v", err)
		return
	}

	client := websocket.NewClientWithConfig(h.registry, conn, h.clientConfig)
	h.registry.Register(client)
	log.Printf("WebSocket: новое соединение %s (всего: %d)", client.ConnectionID, h.registry.ClientCount())

	// Приветствие: список игр уходит до всякой идентификации
	if games, err := h.games.List(); err != nil {
		log.Printf("WebSocket: ошибка чтения списка игр для %s: %v", client.ConnectionID, err)
	} else if err := client.SendEvent(websocket.Event{MsgType: websocket.MsgGamesList, Payload: games}); err != nil {
		log.Printf("WebSocket: ошибка отправки списка игр для %s: %v", client.ConnectionID, err)
	}

	client.StartPumps(h.handleMessage)
}

// handleMessage разбирает и диспетчеризует одно входящее сообщение.
// Ошибка возвращается только при отказе хранилища; протокольные
// нарушения (мусор вместо JSON, операция до init, незнакомое действие)
// логируются и отбрасываются, не роняя соединение.
func (h *WSHandler) handleMessage(message []byte, client *websocket.Client) error {
	var action clientAction
	if err := json.Unmarshal(message, &action); err != nil {
		log.Printf("WebSocket: нечитаемое сообщение от %s: %v", client.ConnectionID, err)
		return nil
	}

	// До init разрешено только само init: остальное требует
	// привязанного игрока
	if _, bound := h.registry.PlayerID(client); !bound && action.Action != ActionInit {
		log.Printf("WebSocket: действие %q до init от %s отброшено", action.Action, client.ConnectionID)
		return nil
	}

	var err error
	switch action.Action {
	case ActionInit:
		err = h.sessions.Init(client, action.UUID)
	case ActionSetName:
		err = h.sessions.SetName(client, action.PlayerName)
	case ActionSetColor:
		err = h.sessions.SetColor(client, action.Color)
	case ActionJoinTeam:
		err = h.sessions.JoinTeam(client, action.TeamCode, action.TeamName)
	case ActionSetTeamName:
		err = h.sessions.SetTeamName(client, action.TeamName)
	case ActionLoadGame:
		err = h.sessions.LoadGame(client, action.GameUUID)
	case ActionUpdateAnswer:
		err = h.sessions.UpdateAnswer(client, action.QuestionUUID, action.Answer)
	case ActionSelectAnswer:
		err = h.sessions.SelectAnswer(client, action.AnswerUUID)
	case ActionUnselectAnswer:
		err = h.sessions.UnselectAnswer(client, action.AnswerUUID)
	case ActionVoteAnswer:
		err = h.sessions.VoteAnswer(client, action.AnswerUUID)
	case ActionUnvoteAnswer:
		err = h.sessions.UnvoteAnswer(client, action.AnswerUUID)
	case ActionUpdateQuestion:
		err = h.sessions.UpdateQuestion(client, action.QuestionUUID, action.QuestionText)
	case ActionPublishQuestion:
		err = h.sessions.PublishQuestion(client, action.QuestionUUID)
	case ActionUnpublishQuestion:
		err = h.sessions.UnpublishQuestion(client, action.QuestionUUID)
	default:
		log.Printf("WebSocket: незнакомое действие %q от %s", action.Action, client.ConnectionID)
		return nil
	}
	if err != nil {
		// Отказ хранилища не роняет соединение: клиент увидит
		// отсутствие эффекта и сможет повторить действие
		log.Printf("WebSocket: ошибка действия %s от %s: %v", action.Action, client.ConnectionID, err)
	}
	return nil
}
