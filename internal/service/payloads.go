package service

import (
	"github.com/yourusername/pubquiz-api/internal/domain/entity"
)

// Формы payload'ов, уходящих клиентам по WebSocket. Имена полей
// зафиксированы протоколом и ожидаются фронтендом как есть.

// GameInfo описывает игру в списке игр и в init-сообщении
type GameInfo struct {
	GameName     string `json:"game_name"`
	GameUUID     string `json:"game_uuid"`
	NumQuestions int    `json:"num_questions"`
}

type playerIdentityPayload struct {
	PlayerUUID  string `json:"player_uuid"`
	PlayerName  string `json:"player_name"`
	PlayerColor string `json:"player_color"`
}

type teamMemberPayload struct {
	PlayerName  string `json:"player_name"`
	PlayerColor string `json:"player_color"`
	PlayerID    uint   `json:"player_id"`
}

// teamInfoPayload несет состав команды; self_id — ID участия получателя,
// по нему фронтенд отличает собственные ответы и голоса
type teamInfoPayload struct {
	TeamCode  string              `json:"team_code"`
	TeamName  string              `json:"team_name"`
	Members   []teamMemberPayload `json:"members"`
	QuizAdmin bool                `json:"quizadmin"`
	SelfID    uint                `json:"self_id"`
}

type questionPayload struct {
	Title        string `json:"title"`
	Idx          int    `json:"idx"`
	QuestionUUID string `json:"question_uuid"`
	IsActive     bool   `json:"is_active"`
}

// answerPayload — ответ команды; player_id и votes — ID участий,
// timestamp — микросекунды Unix-времени последней правки
type answerPayload struct {
	Answer       string `json:"answer"`
	QuestionUUID string `json:"question_uuid"`
	AnswerUUID   string `json:"answer_uuid"`
	PlayerID     uint   `json:"player_id"`
	Votes        []uint `json:"votes"`
	IsSelected   bool   `json:"is_selected"`
	Timestamp    int64  `json:"timestamp"`
}

type selectedAnswerPayload struct {
	Answer       string `json:"answer"`
	QuestionUUID string `json:"question_uuid"`
	AnswerUUID   string `json:"answer_uuid"`
	TeamCode     string `json:"team_code"`
}

func buildGameInfo(game *entity.Game) GameInfo {
	return GameInfo{
		GameName:     game.Name,
		GameUUID:     game.UUID,
		NumQuestions: game.NumQuestions,
	}
}

func buildPlayerIdentity(player *entity.Player) playerIdentityPayload {
	return playerIdentityPayload{
		PlayerUUID:  player.UUID,
		PlayerName:  player.Name,
		PlayerColor: player.Color,
	}
}

func buildQuestionPayload(question *entity.Question, idx int) questionPayload {
	return questionPayload{
		Title:        question.Text,
		Idx:          idx,
		QuestionUUID: question.UUID,
		IsActive:     question.IsActive,
	}
}

func buildAnswerPayload(answer *entity.GivenAnswer) answerPayload {
	votes := make([]uint, 0, len(answer.Votes))
	for _, v := range answer.Votes {
		votes = append(votes, v.MembershipID)
	}
	return answerPayload{
		Answer:       answer.Text,
		QuestionUUID: answer.Question.UUID,
		AnswerUUID:   answer.UUID,
		PlayerID:     answer.MembershipID,
		Votes:        votes,
		IsSelected:   answer.IsSelected,
		Timestamp:    answer.CreatedAt.UnixMicro(),
	}
}

func buildSelectedAnswerPayload(answer *entity.GivenAnswer) selectedAnswerPayload {
	teamCode := ""
	if answer.Membership.Team != nil {
		teamCode = answer.Membership.Team.TeamCode
	}
	return selectedAnswerPayload{
		Answer:       answer.Text,
		QuestionUUID: answer.Question.UUID,
		AnswerUUID:   answer.UUID,
		TeamCode:     teamCode,
	}
}
