package websocket

// Типы исходящих сообщений протокола сессии
const (
	// MsgGamesList — список доступных игр, отправляется сразу после подключения
	MsgGamesList = "games_list"

	// MsgPlayerID — личность игрока (токен, имя, цвет)
	MsgPlayerID = "player_id"

	// MsgInit — данные загруженной игры
	MsgInit = "init"

	// MsgTeamID — состав и данные команды
	MsgTeamID = "team_id"

	// MsgSetQuestions — видимый список вопросов игры
	MsgSetQuestions = "set_questions"

	// MsgSetAnswers — ответы команды вызывающего
	MsgSetAnswers = "set_answers"

	// MsgSetSelectedAnswers — выбранные ответы всей игры (только админ-команде)
	MsgSetSelectedAnswers = "set_selected_answers"

	// MsgAnswerChanged — изменение одного ответа (текст, голоса, выбор)
	MsgAnswerChanged = "answer_changed"

	// MsgUpdateQuestion — изменение вопроса (текст, публикация)
	MsgUpdateQuestion = "update_question"
)

// Event представляет структуру исходящего WebSocket-сообщения
type Event struct {
	MsgType string      `json:"msg_type"`
	Payload interface{} `json:"payload"`
}
