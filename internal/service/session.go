package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	"github.com/yourusername/pubquiz-api/internal/domain/repository"
	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
	ws "github.com/yourusername/pubquiz-api/internal/websocket"
)

// eventRouter — исходящая рассылка по областям; реализуется
// websocket.Router
type eventRouter interface {
	ToTeam(teamID uint, event ws.Event)
	ToGame(gameID uint, event ws.Event)
	ToClient(c *ws.Client, event ws.Event)
}

// SessionService реализует машину состояний живой викторины: привязку
// личности, вступление в команды, загрузку игры и мутации ответов
// с рассылкой по областям (команда или игра).
//
// Политика ошибок — «тихий отказ»: неавторизованная или неконсистентная
// команда клиента логируется и отбрасывается, соединение живет дальше.
// Ошибку возвращают только отказы хранилища.
type SessionService struct {
	registry *ws.Registry
	router   eventRouter

	identity       *IdentityService
	playerRepo     repository.PlayerRepository
	gameRepo       repository.GameRepository
	questionRepo   repository.QuestionRepository
	teamRepo       repository.TeamRepository
	membershipRepo repository.MembershipRepository
	answerRepo     repository.AnswerRepository
	voteRepo       repository.VoteRepository

	locks *scopeLocks
}

// NewSessionService создает новый сервис сессий
func NewSessionService(
	registry *ws.Registry,
	router eventRouter,
	identity *IdentityService,
	playerRepo repository.PlayerRepository,
	gameRepo repository.GameRepository,
	questionRepo repository.QuestionRepository,
	teamRepo repository.TeamRepository,
	membershipRepo repository.MembershipRepository,
	answerRepo repository.AnswerRepository,
	voteRepo repository.VoteRepository,
) *SessionService {
	return &SessionService{
		registry:       registry,
		router:         router,
		identity:       identity,
		playerRepo:     playerRepo,
		gameRepo:       gameRepo,
		questionRepo:   questionRepo,
		teamRepo:       teamRepo,
		membershipRepo: membershipRepo,
		answerRepo:     answerRepo,
		voteRepo:       voteRepo,
		locks:          newScopeLocks(),
	}
}

// Init разрешает session-токен клиента в игрока, привязывает соединение
// и возвращает клиенту его личность (включая фактический токен)
func (s *SessionService) Init(c *ws.Client, token string) error {
	player, _, err := s.identity.Resolve(token)
	if err != nil {
		return fmt.Errorf("разрешение токена: %w", err)
	}
	s.registry.BindPlayer(c, player.ID)
	return s.sendPlayerIdentity(c, player)
}

// SetName переименовывает игрока и оповещает его команду в текущей игре
func (s *SessionService) SetName(c *ws.Client, name string) error {
	player, err := s.boundPlayer(c)
	if err != nil || player == nil {
		return err
	}
	player.Name = name
	if err := s.playerRepo.Update(player); err != nil {
		return fmt.Errorf("обновление имени игрока: %w", err)
	}
	if err := s.refreshTeamAfterProfileChange(c, player); err != nil {
		return err
	}
	return s.sendPlayerIdentity(c, player)
}

// SetColor меняет цвет игрока и оповещает его команду в текущей игре
func (s *SessionService) SetColor(c *ws.Client, color string) error {
	player, err := s.boundPlayer(c)
	if err != nil || player == nil {
		return err
	}
	player.Color = color
	if err := s.playerRepo.Update(player); err != nil {
		return fmt.Errorf("обновление цвета игрока: %w", err)
	}
	if err := s.refreshTeamAfterProfileChange(c, player); err != nil {
		return err
	}
	return s.sendPlayerIdentity(c, player)
}

// JoinTeam вступает в команду по коду в пределах загруженной игры.
// Команда создается при первом вступлении; участие игрока в игре
// перевешивается на новую команду, не создавая дубликата. После
// вступления команда получает обновленный состав, а вызывающий —
// вопросы и ответы новой команды.
func (s *SessionService) JoinTeam(c *ws.Client, teamCode, teamName string) error {
	player, err := s.boundPlayer(c)
	if err != nil || player == nil {
		return err
	}
	gameID, ok := s.registry.GameID(c)
	if !ok {
		log.Printf("[Session] join_team без загруженной игры (player_id=%d)", player.ID)
		return nil
	}
	if teamCode == "" {
		log.Printf("[Session] join_team с пустым кодом команды (player_id=%d)", player.ID)
		return nil
	}

	team, err := s.teamRepo.GetOrCreate(gameID, teamCode)
	if err != nil {
		return fmt.Errorf("получение команды: %w", err)
	}
	if teamName != "" && team.Name != teamName {
		team.Name = teamName
		if err := s.teamRepo.Update(team); err != nil {
			return fmt.Errorf("переименование команды: %w", err)
		}
	}

	membership, err := s.membershipRepo.GetOrCreate(player.ID, gameID)
	if err != nil {
		return fmt.Errorf("получение участия: %w", err)
	}
	if membership.TeamID == nil || *membership.TeamID != team.ID {
		if err := s.membershipRepo.SetTeam(membership.ID, team.ID); err != nil {
			return fmt.Errorf("привязка участия к команде: %w", err)
		}
	}
	s.registry.SetTeamScope(c, team.ID)

	if err := s.broadcastTeamInfo(team, membership.ID); err != nil {
		return err
	}
	if err := s.sendQuestions(c, gameID, team); err != nil {
		return err
	}
	if err := s.sendTeamAnswers(c, team.ID); err != nil {
		return err
	}
	return s.sendSelectedAnswers(c, gameID, team)
}

// SetTeamName переименовывает текущую команду вызывающего и рассылает
// команде обновленные данные
func (s *SessionService) SetTeamName(c *ws.Client, teamName string) error {
	player, err := s.boundPlayer(c)
	if err != nil || player == nil {
		return err
	}
	membership, team, err := s.currentTeam(c, player.ID)
	if err != nil || team == nil {
		return err
	}
	if teamName != "" && team.Name != teamName {
		team.Name = teamName
		if err := s.teamRepo.Update(team); err != nil {
			return fmt.Errorf("переименование команды: %w", err)
		}
	}
	return s.broadcastTeamInfo(team, membership.ID)
}

// LoadGame переключает соединение на игру по токену: выставляет область
// игры, восстанавливает командную область из участия и догружает клиенту
// текущее состояние (вопросы, ответы команды, выбранные ответы для
// админ-команды)
func (s *SessionService) LoadGame(c *ws.Client, gameUUID string) error {
	player, err := s.boundPlayer(c)
	if err != nil || player == nil {
		return err
	}
	game, err := s.gameRepo.GetByUUID(gameUUID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[Session] load_game: неизвестная игра %s (player_id=%d)", gameUUID, player.ID)
			return nil
		}
		return fmt.Errorf("чтение игры: %w", err)
	}
	s.registry.SetGameScope(c, game.ID)

	s.router.ToClient(c, ws.Event{MsgType: ws.MsgInit, Payload: buildGameInfo(game)})

	// Участие могло остаться с прошлого визита: восстанавливаем команду
	var team *entity.Team
	membership, err := s.membershipRepo.Get(player.ID, game.ID)
	switch {
	case err == nil:
		if membership.OnTeam() {
			team = membership.Team
			s.registry.SetTeamScope(c, team.ID)
			if err := s.broadcastTeamInfo(team, membership.ID); err != nil {
				return err
			}
		}
	case errors.Is(err, apperrors.ErrNotFound):
		// Игрок еще не вступал в эту игру
	default:
		return fmt.Errorf("чтение участия: %w", err)
	}

	if err := s.sendQuestions(c, game.ID, team); err != nil {
		return err
	}
	if team != nil {
		if err := s.sendTeamAnswers(c, team.ID); err != nil {
			return err
		}
	}
	return s.sendSelectedAnswers(c, game.ID, team)
}

// UpdateAnswer записывает или переписывает ответ вызывающего на вопрос
// и рассылает его команде измененную строку
func (s *SessionService) UpdateAnswer(c *ws.Client, questionUUID, text string) error {
	membership, team, err := s.teamContext(c)
	if err != nil || team == nil {
		return err
	}
	question, err := s.questionRepo.GetByUUID(questionUUID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[Session] update_answer: неизвестный вопрос %s", questionUUID)
			return nil
		}
		return fmt.Errorf("чтение вопроса: %w", err)
	}
	answer, err := s.answerRepo.Upsert(question.ID, membership.ID, text)
	if err != nil {
		return fmt.Errorf("запись ответа: %w", err)
	}
	s.notifyAnswerChanged(team.ID, answer)
	return nil
}

// SelectAnswer помечает ответ выбранным для своей команды. На пару
// (вопрос, команда) выбранным остается не более одного ответа: прежний
// выбор снимается в той же операции, и команда видит оба изменения —
// сначала снятие, затем новый выбор. Повторный выбор уже выбранного
// ответа лишь переотправляет его состояние.
func (s *SessionService) SelectAnswer(c *ws.Client, answerUUID string) error {
	answer, _, team, err := s.teamAnswer(c, answerUUID, "select_answer")
	if err != nil || answer == nil {
		return err
	}

	lock := s.locks.get(fmt.Sprintf("select:%d:%d", answer.QuestionID, team.ID))
	lock.Lock()
	defer lock.Unlock()

	previous, err := s.answerRepo.ListSelectedForQuestionTeam(answer.QuestionID, team.ID)
	if err != nil {
		return fmt.Errorf("чтение выбранных ответов: %w", err)
	}
	for i := range previous {
		prev := &previous[i]
		if prev.ID == answer.ID {
			continue
		}
		if err := s.answerRepo.SetSelected(prev.ID, false); err != nil {
			return fmt.Errorf("снятие выбора с ответа: %w", err)
		}
		prev.IsSelected = false
		s.notifyAnswerChanged(team.ID, prev)
	}
	if err := s.answerRepo.SetSelected(answer.ID, true); err != nil {
		return fmt.Errorf("выбор ответа: %w", err)
	}
	answer.IsSelected = true
	s.notifyAnswerChanged(team.ID, answer)
	return nil
}

// UnselectAnswer снимает выбор с ответа своей команды. Снятие выбора
// с невыбранного ответа безвредно: команда просто получит его текущее
// состояние еще раз.
func (s *SessionService) UnselectAnswer(c *ws.Client, answerUUID string) error {
	answer, _, team, err := s.teamAnswer(c, answerUUID, "unselect_answer")
	if err != nil || answer == nil {
		return err
	}
	if err := s.answerRepo.SetSelected(answer.ID, false); err != nil {
		return fmt.Errorf("снятие выбора с ответа: %w", err)
	}
	answer.IsSelected = false
	s.notifyAnswerChanged(team.ID, answer)
	return nil
}

// VoteAnswer добавляет голос вызывающего за ответ своей команды.
// Повторный голос молча поглощается и рассылки не порождает.
func (s *SessionService) VoteAnswer(c *ws.Client, answerUUID string) error {
	answer, membership, team, err := s.teamAnswer(c, answerUUID, "vote_answer")
	if err != nil || answer == nil {
		return err
	}

	lock := s.locks.get(fmt.Sprintf("vote:%d", answer.ID))
	lock.Lock()
	defer lock.Unlock()

	created, err := s.voteRepo.Create(answer.ID, membership.ID)
	if err != nil {
		return fmt.Errorf("запись голоса: %w", err)
	}
	if !created {
		return nil
	}
	return s.refreshAndNotify(team.ID, answer.UUID)
}

// UnvoteAnswer снимает голос вызывающего с ответа. Снятие
// несуществующего голоса — no-op без рассылки.
func (s *SessionService) UnvoteAnswer(c *ws.Client, answerUUID string) error {
	membership, team, err := s.teamContext(c)
	if err != nil || team == nil {
		return err
	}
	answer, err := s.answerRepo.GetByUUID(answerUUID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[Session] unvote_answer: неизвестный ответ %s", answerUUID)
			return nil
		}
		return fmt.Errorf("чтение ответа: %w", err)
	}

	lock := s.locks.get(fmt.Sprintf("vote:%d", answer.ID))
	lock.Lock()
	defer lock.Unlock()

	removed, err := s.voteRepo.Delete(answer.ID, membership.ID)
	if err != nil {
		return fmt.Errorf("удаление голоса: %w", err)
	}
	if removed == 0 {
		return nil
	}
	return s.refreshAndNotify(team.ID, answer.UUID)
}

// UpdateQuestion меняет текст вопроса. Доступно только участникам
// админ-команды в пределах загруженной игры; изменение рассылается
// всем соединениям игры.
func (s *SessionService) UpdateQuestion(c *ws.Client, questionUUID, text string) error {
	question, err := s.adminQuestion(c, questionUUID, "update_question")
	if err != nil || question == nil {
		return err
	}
	question.Text = text
	if err := s.questionRepo.Update(question); err != nil {
		return fmt.Errorf("обновление вопроса: %w", err)
	}
	s.notifyQuestionChanged(question)
	return nil
}

// PublishQuestion делает вопрос видимым всем командам игры
func (s *SessionService) PublishQuestion(c *ws.Client, questionUUID string) error {
	return s.setQuestionActive(c, questionUUID, true, "publish_question")
}

// UnpublishQuestion скрывает вопрос от обычных команд
func (s *SessionService) UnpublishQuestion(c *ws.Client, questionUUID string) error {
	return s.setQuestionActive(c, questionUUID, false, "unpublish_question")
}

func (s *SessionService) setQuestionActive(c *ws.Client, questionUUID string, active bool, action string) error {
	question, err := s.adminQuestion(c, questionUUID, action)
	if err != nil || question == nil {
		return err
	}
	question.IsActive = active
	if err := s.questionRepo.Update(question); err != nil {
		return fmt.Errorf("обновление вопроса: %w", err)
	}
	s.notifyQuestionChanged(question)
	return nil
}

// boundPlayer возвращает игрока, привязанного к соединению.
// (nil, nil) означает, что соединение не прошло init — вызывающая
// операция молча отбрасывается.
func (s *SessionService) boundPlayer(c *ws.Client) (*entity.Player, error) {
	playerID, ok := s.registry.PlayerID(c)
	if !ok {
		log.Printf("[Session] Операция до init отброшена (conn=%s)", c.ConnectionID)
		return nil, nil
	}
	player, err := s.playerRepo.GetByID(playerID)
	if err != nil {
		return nil, fmt.Errorf("чтение игрока: %w", err)
	}
	return player, nil
}

// currentTeam возвращает участие и команду игрока в загруженной игре.
// (nil, nil, nil) — у соединения нет игры или игрок не в команде.
func (s *SessionService) currentTeam(c *ws.Client, playerID uint) (*entity.Membership, *entity.Team, error) {
	gameID, ok := s.registry.GameID(c)
	if !ok {
		return nil, nil, nil
	}
	membership, err := s.membershipRepo.Get(playerID, gameID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("чтение участия: %w", err)
	}
	if !membership.OnTeam() {
		return nil, nil, nil
	}
	return membership, membership.Team, nil
}

// teamContext — как currentTeam, но от соединения: сам разрешает игрока
func (s *SessionService) teamContext(c *ws.Client) (*entity.Membership, *entity.Team, error) {
	player, err := s.boundPlayer(c)
	if err != nil || player == nil {
		return nil, nil, err
	}
	membership, team, err := s.currentTeam(c, player.ID)
	if err != nil {
		return nil, nil, err
	}
	if team == nil {
		log.Printf("[Session] Операция без команды отброшена (player_id=%d)", player.ID)
		return nil, nil, nil
	}
	return membership, team, nil
}

// teamAnswer загружает ответ и проверяет, что он принадлежит команде
// вызывающего. Чужой или неизвестный ответ — тихий отказ.
func (s *SessionService) teamAnswer(c *ws.Client, answerUUID, action string) (*entity.GivenAnswer, *entity.Membership, *entity.Team, error) {
	membership, team, err := s.teamContext(c)
	if err != nil || team == nil {
		return nil, nil, nil, err
	}
	answer, err := s.answerRepo.GetByUUID(answerUUID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[Session] %s: неизвестный ответ %s", action, answerUUID)
			return nil, nil, nil, nil
		}
		return nil, nil, nil, fmt.Errorf("чтение ответа: %w", err)
	}
	answerTeamID, onTeam := answer.TeamID()
	if !onTeam || answerTeamID != team.ID {
		log.Printf("[Session] %s: ответ %s не принадлежит команде %d, отброшено", action, answerUUID, team.ID)
		return nil, nil, nil, nil
	}
	return answer, membership, team, nil
}

// adminQuestion загружает вопрос и проверяет права: игра вопроса должна
// совпадать с загруженной, а вызывающий — состоять в админ-команде
func (s *SessionService) adminQuestion(c *ws.Client, questionUUID, action string) (*entity.Question, error) {
	membership, team, err := s.teamContext(c)
	if err != nil || team == nil {
		return nil, err
	}
	if !team.IsAdmin {
		log.Printf("[Session] %s: команда %d не админская, отброшено (membership=%d)", action, team.ID, membership.ID)
		return nil, nil
	}
	question, err := s.questionRepo.GetByUUID(questionUUID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[Session] %s: неизвестный вопрос %s", action, questionUUID)
			return nil, nil
		}
		return nil, fmt.Errorf("чтение вопроса: %w", err)
	}
	gameID, ok := s.registry.GameID(c)
	if !ok || question.GameID != gameID {
		log.Printf("[Session] %s: вопрос %s из другой игры, отброшено", action, questionUUID)
		return nil, nil
	}
	return question, nil
}

func (s *SessionService) sendPlayerIdentity(c *ws.Client, player *entity.Player) error {
	s.router.ToClient(c, ws.Event{MsgType: ws.MsgPlayerID, Payload: buildPlayerIdentity(player)})
	return nil
}

// refreshTeamAfterProfileChange переотправляет состав команды после
// смены имени или цвета, если игрок состоит в команде загруженной игры
func (s *SessionService) refreshTeamAfterProfileChange(c *ws.Client, player *entity.Player) error {
	membership, team, err := s.currentTeam(c, player.ID)
	if err != nil || team == nil {
		return err
	}
	return s.broadcastTeamInfo(team, membership.ID)
}

// broadcastTeamInfo рассылает состав команды всем ее соединениям.
// self_id вызывающего уходит всей команде: фронтенд каждого участника
// берет из payload только нужные ему поля.
func (s *SessionService) broadcastTeamInfo(team *entity.Team, selfID uint) error {
	members, err := s.membershipRepo.ListByTeam(team.ID)
	if err != nil {
		return fmt.Errorf("чтение состава команды: %w", err)
	}
	payload := teamInfoPayload{
		TeamCode:  team.TeamCode,
		TeamName:  team.Name,
		QuizAdmin: team.IsAdmin,
		SelfID:    selfID,
		Members:   make([]teamMemberPayload, 0, len(members)),
	}
	for i := range members {
		m := &members[i]
		payload.Members = append(payload.Members, teamMemberPayload{
			PlayerName:  m.Player.Name,
			PlayerColor: m.Player.Color,
			PlayerID:    m.ID,
		})
	}
	s.router.ToTeam(team.ID, ws.Event{MsgType: ws.MsgTeamID, Payload: payload})
	return nil
}

// sendQuestions отправляет клиенту вопросы игры. Обычная команда видит
// только опубликованные вопросы, админ-команда — все. Пустой список
// не отправляется.
func (s *SessionService) sendQuestions(c *ws.Client, gameID uint, team *entity.Team) error {
	questions, err := s.questionRepo.ListByGame(gameID)
	if err != nil {
		return fmt.Errorf("чтение вопросов: %w", err)
	}
	isAdmin := team != nil && team.IsAdmin
	payload := make([]questionPayload, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		if !q.IsActive && !isAdmin {
			continue
		}
		payload = append(payload, buildQuestionPayload(q, i))
	}
	if len(payload) == 0 {
		return nil
	}
	s.router.ToClient(c, ws.Event{MsgType: ws.MsgSetQuestions, Payload: payload})
	return nil
}

// sendTeamAnswers отправляет клиенту все ответы его команды.
// Пустой список не отправляется.
func (s *SessionService) sendTeamAnswers(c *ws.Client, teamID uint) error {
	answers, err := s.answerRepo.ListByTeam(teamID)
	if err != nil {
		return fmt.Errorf("чтение ответов команды: %w", err)
	}
	if len(answers) == 0 {
		return nil
	}
	payload := make([]answerPayload, 0, len(answers))
	for i := range answers {
		payload = append(payload, buildAnswerPayload(&answers[i]))
	}
	s.router.ToClient(c, ws.Event{MsgType: ws.MsgSetAnswers, Payload: payload})
	return nil
}

// sendSelectedAnswers отправляет выбранные ответы всей игры — но только
// участнику админ-команды
func (s *SessionService) sendSelectedAnswers(c *ws.Client, gameID uint, team *entity.Team) error {
	if team == nil || !team.IsAdmin {
		return nil
	}
	answers, err := s.answerRepo.ListSelectedByGame(gameID)
	if err != nil {
		return fmt.Errorf("чтение выбранных ответов: %w", err)
	}
	if len(answers) == 0 {
		return nil
	}
	payload := make([]selectedAnswerPayload, 0, len(answers))
	for i := range answers {
		payload = append(payload, buildSelectedAnswerPayload(&answers[i]))
	}
	s.router.ToClient(c, ws.Event{MsgType: ws.MsgSetSelectedAnswers, Payload: payload})
	return nil
}

func (s *SessionService) notifyAnswerChanged(teamID uint, answer *entity.GivenAnswer) {
	s.router.ToTeam(teamID, ws.Event{MsgType: ws.MsgAnswerChanged, Payload: buildAnswerPayload(answer)})
}

// refreshAndNotify перечитывает ответ (чтобы подхватить актуальные
// голоса) и рассылает его команде
func (s *SessionService) refreshAndNotify(teamID uint, answerUUID string) error {
	answer, err := s.answerRepo.GetByUUID(answerUUID)
	if err != nil {
		return fmt.Errorf("перечитывание ответа: %w", err)
	}
	s.notifyAnswerChanged(teamID, answer)
	return nil
}

func (s *SessionService) notifyQuestionChanged(question *entity.Question) {
	s.router.ToGame(question.GameID, ws.Event{MsgType: ws.MsgUpdateQuestion, Payload: buildQuestionPayload(question, 0)})
}
