package service

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/pubquiz-api/internal/domain/entity"
	apperrors "github.com/yourusername/pubquiz-api/internal/pkg/errors"
	ws "github.com/yourusername/pubquiz-api/internal/websocket"
)

// ============================================================================
// In-memory хранилище для тестов сессий. Состояние машины состояний
// размазано по шести таблицам, поэтому вместо покомандных моков — одно
// согласованное хранилище, воспроизводящее семантику репозиториев
// (включая подгрузку ассоциаций и уникальные ограничения).
// ============================================================================

type memStore struct {
	nextID      uint
	players     []*entity.Player
	games       []*entity.Game
	questions   []*entity.Question
	teams       []*entity.Team
	memberships []*entity.Membership
	answers     []*entity.GivenAnswer
	votes       []*entity.Vote
}

func newMemStore() *memStore {
	return &memStore{}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

func (s *memStore) addGame(name string, numQuestions int) *entity.Game {
	g := &entity.Game{ID: s.id(), UUID: uuid.New().String(), Name: name, NumQuestions: numQuestions}
	s.games = append(s.games, g)
	return g
}

func (s *memStore) addQuestion(game *entity.Game, text string, active bool) *entity.Question {
	q := &entity.Question{ID: s.id(), UUID: uuid.New().String(), GameID: game.ID, Text: text, IsActive: active}
	s.questions = append(s.questions, q)
	return q
}

func (s *memStore) addPlayer(token, name, color string) *entity.Player {
	p := &entity.Player{ID: s.id(), UUID: token, Name: name, Color: color}
	s.players = append(s.players, p)
	return p
}

func (s *memStore) addTeam(game *entity.Game, code, name string, admin bool) *entity.Team {
	t := &entity.Team{ID: s.id(), GameID: game.ID, TeamCode: code, Name: name, IsAdmin: admin}
	s.teams = append(s.teams, t)
	return t
}

func (s *memStore) addMembership(player *entity.Player, game *entity.Game, team *entity.Team) *entity.Membership {
	m := &entity.Membership{ID: s.id(), PlayerID: player.ID, GameID: game.ID}
	if team != nil {
		teamID := team.ID
		m.TeamID = &teamID
	}
	s.memberships = append(s.memberships, m)
	return m
}

func (s *memStore) addAnswer(q *entity.Question, m *entity.Membership, text string, selected bool) *entity.GivenAnswer {
	a := &entity.GivenAnswer{
		ID:           s.id(),
		UUID:         uuid.New().String(),
		QuestionID:   q.ID,
		MembershipID: m.ID,
		Text:         text,
		IsSelected:   selected,
		CreatedAt:    time.Now(),
	}
	s.answers = append(s.answers, a)
	return a
}

func (s *memStore) teamByID(id uint) *entity.Team {
	for _, t := range s.teams {
		if t.ID == id {
			copied := *t
			return &copied
		}
	}
	return nil
}

func (s *memStore) playerByID(id uint) *entity.Player {
	for _, p := range s.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// loadMembership собирает копию участия с подгруженными игроком и командой
func (s *memStore) loadMembership(m *entity.Membership) *entity.Membership {
	copied := *m
	if p := s.playerByID(m.PlayerID); p != nil {
		copied.Player = *p
	}
	if m.TeamID != nil {
		copied.Team = s.teamByID(*m.TeamID)
	}
	return &copied
}

// loadAnswer собирает копию ответа с вопросом, участием и голосами
func (s *memStore) loadAnswer(a *entity.GivenAnswer) *entity.GivenAnswer {
	copied := *a
	for _, q := range s.questions {
		if q.ID == a.QuestionID {
			copied.Question = *q
		}
	}
	for _, m := range s.memberships {
		if m.ID == a.MembershipID {
			copied.Membership = *s.loadMembership(m)
		}
	}
	copied.Votes = nil
	for _, v := range s.votes {
		if v.AnswerID == a.ID {
			copied.Votes = append(copied.Votes, *v)
		}
	}
	return &copied
}

// --- Обертки, реализующие интерфейсы репозиториев ---

type memPlayers struct{ s *memStore }

func (r memPlayers) GetByID(id uint) (*entity.Player, error) {
	if p := r.s.playerByID(id); p != nil {
		copied := *p
		return &copied, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r memPlayers) GetByUUID(token string) (*entity.Player, error) {
	for _, p := range r.s.players {
		if p.UUID == token {
			copied := *p
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memPlayers) GetOrCreateByUUID(token string) (*entity.Player, error) {
	if p, err := r.GetByUUID(token); err == nil {
		return p, nil
	}
	p := r.s.addPlayer(token, "", "")
	copied := *p
	return &copied, nil
}

func (r memPlayers) Update(player *entity.Player) error {
	if p := r.s.playerByID(player.ID); p != nil {
		*p = *player
		return nil
	}
	return apperrors.ErrNotFound
}

type memGames struct{ s *memStore }

func (r memGames) List() ([]entity.Game, error) {
	games := make([]entity.Game, 0, len(r.s.games))
	for _, g := range r.s.games {
		games = append(games, *g)
	}
	return games, nil
}

func (r memGames) GetByUUID(token string) (*entity.Game, error) {
	for _, g := range r.s.games {
		if g.UUID == token {
			copied := *g
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memGames) Create(game *entity.Game) error {
	game.ID = r.s.id()
	stored := *game
	stored.Questions = nil
	r.s.games = append(r.s.games, &stored)
	for i := range game.Questions {
		q := game.Questions[i]
		q.ID = r.s.id()
		q.GameID = game.ID
		r.s.questions = append(r.s.questions, &q)
	}
	return nil
}

type memQuestions struct{ s *memStore }

func (r memQuestions) GetByUUID(token string) (*entity.Question, error) {
	for _, q := range r.s.questions {
		if q.UUID == token {
			copied := *q
			return &copied, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memQuestions) ListByGame(gameID uint) ([]entity.Question, error) {
	var questions []entity.Question
	for _, q := range r.s.questions {
		if q.GameID == gameID {
			questions = append(questions, *q)
		}
	}
	return questions, nil
}

func (r memQuestions) CreateBatch(questions []entity.Question) error {
	for i := range questions {
		q := questions[i]
		q.ID = r.s.id()
		r.s.questions = append(r.s.questions, &q)
	}
	return nil
}

func (r memQuestions) Update(question *entity.Question) error {
	for _, q := range r.s.questions {
		if q.ID == question.ID {
			*q = *question
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type memTeams struct{ s *memStore }

func (r memTeams) GetByID(id uint) (*entity.Team, error) {
	if t := r.s.teamByID(id); t != nil {
		return t, nil
	}
	return nil, apperrors.ErrNotFound
}

func (r memTeams) GetOrCreate(gameID uint, teamCode string) (*entity.Team, error) {
	for _, t := range r.s.teams {
		if t.GameID == gameID && t.TeamCode == teamCode {
			copied := *t
			return &copied, nil
		}
	}
	t := &entity.Team{ID: r.s.id(), GameID: gameID, TeamCode: teamCode}
	r.s.teams = append(r.s.teams, t)
	copied := *t
	return &copied, nil
}

func (r memTeams) Update(team *entity.Team) error {
	for _, t := range r.s.teams {
		if t.ID == team.ID {
			*t = *team
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type memMemberships struct{ s *memStore }

func (r memMemberships) Get(playerID, gameID uint) (*entity.Membership, error) {
	for _, m := range r.s.memberships {
		if m.PlayerID == playerID && m.GameID == gameID {
			return r.s.loadMembership(m), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memMemberships) GetOrCreate(playerID, gameID uint) (*entity.Membership, error) {
	if m, err := r.Get(playerID, gameID); err == nil {
		return m, nil
	}
	m := &entity.Membership{ID: r.s.id(), PlayerID: playerID, GameID: gameID}
	r.s.memberships = append(r.s.memberships, m)
	return r.s.loadMembership(m), nil
}

func (r memMemberships) SetTeam(membershipID, teamID uint) error {
	for _, m := range r.s.memberships {
		if m.ID == membershipID {
			id := teamID
			m.TeamID = &id
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (r memMemberships) ListByTeam(teamID uint) ([]entity.Membership, error) {
	var members []entity.Membership
	for _, m := range r.s.memberships {
		if m.TeamID != nil && *m.TeamID == teamID {
			members = append(members, *r.s.loadMembership(m))
		}
	}
	return members, nil
}

type memAnswers struct{ s *memStore }

func (r memAnswers) GetByUUID(token string) (*entity.GivenAnswer, error) {
	for _, a := range r.s.answers {
		if a.UUID == token {
			return r.s.loadAnswer(a), nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (r memAnswers) Upsert(questionID, membershipID uint, text string) (*entity.GivenAnswer, error) {
	for _, a := range r.s.answers {
		if a.QuestionID == questionID && a.MembershipID == membershipID {
			a.Text = text
			a.CreatedAt = time.Now()
			return r.s.loadAnswer(a), nil
		}
	}
	a := &entity.GivenAnswer{
		ID:           r.s.id(),
		UUID:         uuid.New().String(),
		QuestionID:   questionID,
		MembershipID: membershipID,
		Text:         text,
		CreatedAt:    time.Now(),
	}
	r.s.answers = append(r.s.answers, a)
	return r.s.loadAnswer(a), nil
}

func (r memAnswers) ListByTeam(teamID uint) ([]entity.GivenAnswer, error) {
	var answers []entity.GivenAnswer
	for _, a := range r.s.answers {
		loaded := r.s.loadAnswer(a)
		if tid, ok := loaded.TeamID(); ok && tid == teamID {
			answers = append(answers, *loaded)
		}
	}
	return answers, nil
}

func (r memAnswers) ListSelectedByGame(gameID uint) ([]entity.GivenAnswer, error) {
	var answers []entity.GivenAnswer
	for _, a := range r.s.answers {
		if !a.IsSelected {
			continue
		}
		loaded := r.s.loadAnswer(a)
		if loaded.Question.GameID == gameID {
			answers = append(answers, *loaded)
		}
	}
	return answers, nil
}

func (r memAnswers) ListSelectedForQuestionTeam(questionID, teamID uint) ([]entity.GivenAnswer, error) {
	var answers []entity.GivenAnswer
	for _, a := range r.s.answers {
		if !a.IsSelected || a.QuestionID != questionID {
			continue
		}
		loaded := r.s.loadAnswer(a)
		if tid, ok := loaded.TeamID(); ok && tid == teamID {
			answers = append(answers, *loaded)
		}
	}
	return answers, nil
}

func (r memAnswers) SetSelected(answerID uint, selected bool) error {
	for _, a := range r.s.answers {
		if a.ID == answerID {
			a.IsSelected = selected
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type memVotes struct{ s *memStore }

func (r memVotes) Create(answerID, membershipID uint) (bool, error) {
	for _, v := range r.s.votes {
		if v.AnswerID == answerID && v.MembershipID == membershipID {
			return false, nil
		}
	}
	r.s.votes = append(r.s.votes, &entity.Vote{ID: r.s.id(), AnswerID: answerID, MembershipID: membershipID})
	return true, nil
}

func (r memVotes) Delete(answerID, membershipID uint) (int64, error) {
	for i, v := range r.s.votes {
		if v.AnswerID == answerID && v.MembershipID == membershipID {
			r.s.votes = append(r.s.votes[:i], r.s.votes[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (r memVotes) ListByAnswer(answerID uint) ([]entity.Vote, error) {
	var votes []entity.Vote
	for _, v := range r.s.votes {
		if v.AnswerID == answerID {
			votes = append(votes, *v)
		}
	}
	return votes, nil
}

// ============================================================================
// Записывающий маршрутизатор: фиксирует каждую рассылку с ее областью
// ============================================================================

type routedEvent struct {
	scope  string // "team", "game" или "client"
	id     uint
	client *ws.Client
	event  ws.Event
}

type recordingRouter struct {
	mu     sync.Mutex
	events []routedEvent
}

func (r *recordingRouter) ToTeam(teamID uint, event ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, routedEvent{scope: "team", id: teamID, event: event})
}

func (r *recordingRouter) ToGame(gameID uint, event ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, routedEvent{scope: "game", id: gameID, event: event})
}

func (r *recordingRouter) ToClient(c *ws.Client, event ws.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, routedEvent{scope: "client", client: c, event: event})
}

func (r *recordingRouter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *recordingRouter) byType(msgType string) []routedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []routedEvent
	for _, e := range r.events {
		if e.event.MsgType == msgType {
			matched = append(matched, e)
		}
	}
	return matched
}

// ============================================================================
// Фикстура
// ============================================================================

type fixture struct {
	store    *memStore
	registry *ws.Registry
	router   *recordingRouter
	sessions *SessionService
}

func newFixture() *fixture {
	store := newMemStore()
	registry := ws.NewRegistry()
	router := &recordingRouter{}
	identity := NewIdentityService(memPlayers{store})
	sessions := NewSessionService(
		registry,
		router,
		identity,
		memPlayers{store},
		memGames{store},
		memQuestions{store},
		memTeams{store},
		memMemberships{store},
		memAnswers{store},
		memVotes{store},
	)
	return &fixture{store: store, registry: registry, router: router, sessions: sessions}
}

func (f *fixture) connect() *ws.Client {
	c := ws.NewClient(f.registry, nil)
	f.registry.Register(c)
	return c
}

// connectAs подключает клиента и проходит init указанным токеном
func (f *fixture) connectAs(t *testing.T, token string) *ws.Client {
	t.Helper()
	c := f.connect()
	require.NoError(t, f.sessions.Init(c, token))
	return c
}

// ============================================================================
// Тесты
// ============================================================================

func TestInit_GeneratesIdentityForEmptyToken(t *testing.T) {
	f := newFixture()
	c := f.connect()

	require.NoError(t, f.sessions.Init(c, ""))

	_, bound := f.registry.PlayerID(c)
	assert.True(t, bound, "после init подключение должно быть привязано к игроку")
	require.Len(t, f.store.players, 1)
	assert.NotEmpty(t, f.store.players[0].UUID)

	events := f.router.byType(ws.MsgPlayerID)
	require.Len(t, events, 1)
	payload := events[0].event.Payload.(playerIdentityPayload)
	assert.Equal(t, f.store.players[0].UUID, payload.PlayerUUID)
}

func TestInit_ReusesExistingPlayer(t *testing.T) {
	f := newFixture()
	existing := f.store.addPlayer("tok-1", "Alice", "#f00")
	c := f.connect()

	require.NoError(t, f.sessions.Init(c, "tok-1"))

	playerID, _ := f.registry.PlayerID(c)
	assert.Equal(t, existing.ID, playerID)
	require.Len(t, f.store.players, 1, "повторный init не должен плодить игроков")

	events := f.router.byType(ws.MsgPlayerID)
	require.Len(t, events, 1)
	payload := events[0].event.Payload.(playerIdentityPayload)
	assert.Equal(t, "Alice", payload.PlayerName)
	assert.Equal(t, "#f00", payload.PlayerColor)
}

func TestActionsBeforeInitAreDropped(t *testing.T) {
	f := newFixture()
	c := f.connect()

	require.NoError(t, f.sessions.SetName(c, "Bob"))
	require.NoError(t, f.sessions.JoinTeam(c, "alpha", ""))
	require.NoError(t, f.sessions.VoteAnswer(c, "whatever"))

	assert.Empty(t, f.store.players)
	assert.Empty(t, f.router.events)
}

func TestLoadGame_UnknownUUIDKeepsConnectionAlive(t *testing.T) {
	f := newFixture()
	c := f.connectAs(t, "")
	f.router.reset()

	require.NoError(t, f.sessions.LoadGame(c, "no-such-game"))

	_, hasGame := f.registry.GameID(c)
	assert.False(t, hasGame)
	assert.Empty(t, f.router.byType(ws.MsgInit))
}

func TestLoadGame_SendsInitAndVisibleQuestions(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("Weekly Quiz", 20)
	f.store.addQuestion(game, "Published?", true)
	f.store.addQuestion(game, "Hidden", false)

	c := f.connectAs(t, "")
	f.router.reset()

	require.NoError(t, f.sessions.LoadGame(c, game.UUID))

	gameID, ok := f.registry.GameID(c)
	require.True(t, ok)
	assert.Equal(t, game.ID, gameID)

	inits := f.router.byType(ws.MsgInit)
	require.Len(t, inits, 1)
	info := inits[0].event.Payload.(GameInfo)
	assert.Equal(t, "Weekly Quiz", info.GameName)
	assert.Equal(t, 20, info.NumQuestions)

	// Без команды видны только опубликованные вопросы
	questionEvents := f.router.byType(ws.MsgSetQuestions)
	require.Len(t, questionEvents, 1)
	questions := questionEvents[0].event.Payload.([]questionPayload)
	require.Len(t, questions, 1)
	assert.Equal(t, "Published?", questions[0].Title)
	assert.Equal(t, 0, questions[0].Idx, "нумерация вопросов начинается с нуля")
	assert.True(t, questions[0].IsActive)
}

func TestLoadGame_RestoresTeamFromMembership(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	player := f.store.addPlayer("tok", "Alice", "")
	team := f.store.addTeam(game, "alpha", "Alphas", false)
	m := f.store.addMembership(player, game, team)
	f.store.addAnswer(q, m, "42", false)

	c := f.connectAs(t, "tok")
	f.router.reset()

	require.NoError(t, f.sessions.LoadGame(c, game.UUID))

	teamID, ok := f.registry.TeamID(c)
	require.True(t, ok, "командная область должна восстанавливаться из участия")
	assert.Equal(t, team.ID, teamID)

	teamEvents := f.router.byType(ws.MsgTeamID)
	require.Len(t, teamEvents, 1)
	info := teamEvents[0].event.Payload.(teamInfoPayload)
	assert.Equal(t, "alpha", info.TeamCode)
	assert.Equal(t, m.ID, info.SelfID)
	require.Len(t, info.Members, 1)
	assert.Equal(t, "Alice", info.Members[0].PlayerName)

	answerEvents := f.router.byType(ws.MsgSetAnswers)
	require.Len(t, answerEvents, 1)
	answers := answerEvents[0].event.Payload.([]answerPayload)
	require.Len(t, answers, 1)
	assert.Equal(t, "42", answers[0].Answer)

	// Обычная команда не получает выбранные ответы игры
	assert.Empty(t, f.router.byType(ws.MsgSetSelectedAnswers))
}

func TestLoadGame_AdminSeesEverything(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	f.store.addQuestion(game, "visible", true)
	hidden := f.store.addQuestion(game, "hidden", false)

	// Чужая команда с выбранным ответом
	other := f.store.addPlayer("other", "Bob", "")
	otherTeam := f.store.addTeam(game, "beta", "", false)
	otherM := f.store.addMembership(other, game, otherTeam)
	f.store.addAnswer(hidden, otherM, "their pick", true)

	admin := f.store.addPlayer("admin", "Quizmaster", "")
	adminTeam := f.store.addTeam(game, "quizadmin", "", true)
	f.store.addMembership(admin, game, adminTeam)

	c := f.connectAs(t, "admin")
	f.router.reset()

	require.NoError(t, f.sessions.LoadGame(c, game.UUID))

	questionEvents := f.router.byType(ws.MsgSetQuestions)
	require.Len(t, questionEvents, 1)
	questions := questionEvents[0].event.Payload.([]questionPayload)
	require.Len(t, questions, 2, "админ-команда видит и неопубликованные вопросы")
	assert.Equal(t, 0, questions[0].Idx)
	assert.Equal(t, 1, questions[1].Idx)

	selectedEvents := f.router.byType(ws.MsgSetSelectedAnswers)
	require.Len(t, selectedEvents, 1)
	selected := selectedEvents[0].event.Payload.([]selectedAnswerPayload)
	require.Len(t, selected, 1)
	assert.Equal(t, "their pick", selected[0].Answer)
	assert.Equal(t, "beta", selected[0].TeamCode)
}

func TestJoinTeam_CreatesTeamAndMembership(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	c := f.connectAs(t, "")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.JoinTeam(c, "alpha", "The Alphas"))

	require.Len(t, f.store.teams, 1)
	assert.Equal(t, "The Alphas", f.store.teams[0].Name)
	require.Len(t, f.store.memberships, 1)
	require.NotNil(t, f.store.memberships[0].TeamID)
	assert.Equal(t, f.store.teams[0].ID, *f.store.memberships[0].TeamID)

	teamID, ok := f.registry.TeamID(c)
	require.True(t, ok)
	assert.Equal(t, f.store.teams[0].ID, teamID)

	teamEvents := f.router.byType(ws.MsgTeamID)
	require.Len(t, teamEvents, 1)
	assert.Equal(t, "team", teamEvents[0].scope)
}

func TestJoinTeam_SwitchRewiresSameMembership(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	c := f.connectAs(t, "")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))

	require.NoError(t, f.sessions.JoinTeam(c, "alpha", ""))
	require.NoError(t, f.sessions.JoinTeam(c, "beta", ""))

	require.Len(t, f.store.memberships, 1, "смена команды не должна плодить участия")
	require.Len(t, f.store.teams, 2)
	assert.Equal(t, f.store.teams[1].ID, *f.store.memberships[0].TeamID)

	teamID, _ := f.registry.TeamID(c)
	assert.Equal(t, f.store.teams[1].ID, teamID, "область рассылки должна следовать за сменой команды")
}

func TestJoinTeam_WithoutGameDropped(t *testing.T) {
	f := newFixture()
	c := f.connectAs(t, "")
	f.router.reset()

	require.NoError(t, f.sessions.JoinTeam(c, "alpha", ""))

	assert.Empty(t, f.store.teams)
	assert.Empty(t, f.store.memberships)
}

func TestSetName_UpdatesPlayerAndRebroadcastsTeam(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	f.store.addMembership(player, game, team)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.SetName(c, "Alice"))

	assert.Equal(t, "Alice", f.store.players[0].Name)

	teamEvents := f.router.byType(ws.MsgTeamID)
	require.Len(t, teamEvents, 1, "команда должна увидеть новое имя")
	info := teamEvents[0].event.Payload.(teamInfoPayload)
	require.Len(t, info.Members, 1)
	assert.Equal(t, "Alice", info.Members[0].PlayerName)

	identityEvents := f.router.byType(ws.MsgPlayerID)
	require.Len(t, identityEvents, 1)
	assert.Equal(t, "Alice", identityEvents[0].event.Payload.(playerIdentityPayload).PlayerName)
}

func TestSetColor_WithoutTeamOnlyResendsIdentity(t *testing.T) {
	f := newFixture()
	c := f.connectAs(t, "")
	f.router.reset()

	require.NoError(t, f.sessions.SetColor(c, "#0f0"))

	assert.Equal(t, "#0f0", f.store.players[0].Color)
	assert.Empty(t, f.router.byType(ws.MsgTeamID))
	assert.Len(t, f.router.byType(ws.MsgPlayerID), 1)
}

func TestSetTeamName_RenamesAndBroadcasts(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "Old", false)
	f.store.addMembership(player, game, team)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.SetTeamName(c, "New Name"))

	assert.Equal(t, "New Name", f.store.teams[0].Name)
	teamEvents := f.router.byType(ws.MsgTeamID)
	require.Len(t, teamEvents, 1)
	assert.Equal(t, "New Name", teamEvents[0].event.Payload.(teamInfoPayload).TeamName)
}

func TestUpdateAnswer_UpsertsSingleRow(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	f.store.addMembership(player, game, team)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.UpdateAnswer(c, q.UUID, "first"))
	require.NoError(t, f.sessions.UpdateAnswer(c, q.UUID, "second"))

	require.Len(t, f.store.answers, 1, "повторная отправка должна мутировать, а не вставлять")
	assert.Equal(t, "second", f.store.answers[0].Text)

	changed := f.router.byType(ws.MsgAnswerChanged)
	require.Len(t, changed, 2)
	for _, e := range changed {
		assert.Equal(t, "team", e.scope)
		assert.Equal(t, team.ID, e.id)
	}
	assert.Equal(t, "second", changed[1].event.Payload.(answerPayload).Answer)
}

func TestUpdateAnswer_UnknownQuestionDropped(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	f.store.addMembership(player, game, team)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.UpdateAnswer(c, "missing", "text"))

	assert.Empty(t, f.store.answers)
	assert.Empty(t, f.router.byType(ws.MsgAnswerChanged))
}

func TestUpdateAnswer_WithoutTeamDropped(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	c := f.connectAs(t, "")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.UpdateAnswer(c, q.UUID, "text"))

	assert.Empty(t, f.store.answers)
}

func TestSelectAnswer_KeepsSingleSelectionPerQuestionTeam(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	player := f.store.addPlayer("tok", "", "")
	mate := f.store.addPlayer("mate", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	m1 := f.store.addMembership(player, game, team)
	m2 := f.store.addMembership(mate, game, team)
	a1 := f.store.addAnswer(q, m1, "first", false)
	a2 := f.store.addAnswer(q, m2, "second", false)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))

	require.NoError(t, f.sessions.SelectAnswer(c, a1.UUID))
	f.router.reset()
	require.NoError(t, f.sessions.SelectAnswer(c, a2.UUID))

	assert.False(t, f.store.answers[0].IsSelected, "прежний выбор должен сниматься")
	assert.True(t, f.store.answers[1].IsSelected)

	changed := f.router.byType(ws.MsgAnswerChanged)
	require.Len(t, changed, 2, "команда должна увидеть и снятие, и новый выбор")
	first := changed[0].event.Payload.(answerPayload)
	second := changed[1].event.Payload.(answerPayload)
	assert.Equal(t, a1.UUID, first.AnswerUUID)
	assert.False(t, first.IsSelected, "снятие уходит раньше нового выбора")
	assert.Equal(t, a2.UUID, second.AnswerUUID)
	assert.True(t, second.IsSelected)
}

func TestSelectAnswer_ReselectOnlyRenotifies(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	m := f.store.addMembership(player, game, team)
	a := f.store.addAnswer(q, m, "mine", true)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.SelectAnswer(c, a.UUID))

	assert.True(t, f.store.answers[0].IsSelected)
	changed := f.router.byType(ws.MsgAnswerChanged)
	require.Len(t, changed, 1)
	assert.True(t, changed[0].event.Payload.(answerPayload).IsSelected)
}

func TestSelectAnswer_ForeignTeamDropped(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)

	stranger := f.store.addPlayer("stranger", "", "")
	otherTeam := f.store.addTeam(game, "beta", "", false)
	otherM := f.store.addMembership(stranger, game, otherTeam)
	foreign := f.store.addAnswer(q, otherM, "not yours", false)

	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	f.store.addMembership(player, game, team)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.SelectAnswer(c, foreign.UUID))

	assert.False(t, f.store.answers[0].IsSelected, "чужой ответ нельзя выбрать")
	assert.Empty(t, f.router.byType(ws.MsgAnswerChanged))
}

func TestUnselectAnswer_Idempotent(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	m := f.store.addMembership(player, game, team)
	a := f.store.addAnswer(q, m, "mine", false)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.UnselectAnswer(c, a.UUID))

	assert.False(t, f.store.answers[0].IsSelected)
	// Снятие невыбранного безвредно: команда просто получает состояние
	changed := f.router.byType(ws.MsgAnswerChanged)
	require.Len(t, changed, 1)
	assert.False(t, changed[0].event.Payload.(answerPayload).IsSelected)
}

func TestVoteAnswer_SecondVoteSwallowed(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	m := f.store.addMembership(player, game, team)
	a := f.store.addAnswer(q, m, "mine", false)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.VoteAnswer(c, a.UUID))
	require.NoError(t, f.sessions.VoteAnswer(c, a.UUID))

	require.Len(t, f.store.votes, 1, "повторный голос не должен накапливаться")

	changed := f.router.byType(ws.MsgAnswerChanged)
	require.Len(t, changed, 1, "повтор не должен порождать рассылку")
	payload := changed[0].event.Payload.(answerPayload)
	assert.Equal(t, []uint{m.ID}, payload.Votes)
}

func TestUnvoteAnswer_AbsentVoteNoBroadcast(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	m := f.store.addMembership(player, game, team)
	a := f.store.addAnswer(q, m, "mine", false)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.UnvoteAnswer(c, a.UUID))

	assert.Empty(t, f.router.byType(ws.MsgAnswerChanged))
}

func TestUnvoteAnswer_RemovesVoteAndNotifies(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	m := f.store.addMembership(player, game, team)
	a := f.store.addAnswer(q, m, "mine", false)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	require.NoError(t, f.sessions.VoteAnswer(c, a.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.UnvoteAnswer(c, a.UUID))

	assert.Empty(t, f.store.votes)
	changed := f.router.byType(ws.MsgAnswerChanged)
	require.Len(t, changed, 1)
	assert.Empty(t, changed[0].event.Payload.(answerPayload).Votes)
}

func TestPublishQuestion_RequiresAdminTeam(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", false)
	player := f.store.addPlayer("tok", "", "")
	team := f.store.addTeam(game, "alpha", "", false)
	f.store.addMembership(player, game, team)

	c := f.connectAs(t, "tok")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.PublishQuestion(c, q.UUID))

	assert.False(t, f.store.questions[0].IsActive, "обычная команда не публикует вопросы")
	assert.Empty(t, f.router.byType(ws.MsgUpdateQuestion))
}

func TestPublishQuestion_AdminBroadcastsToGame(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", false)
	admin := f.store.addPlayer("admin", "", "")
	adminTeam := f.store.addTeam(game, "quizadmin", "", true)
	f.store.addMembership(admin, game, adminTeam)

	c := f.connectAs(t, "admin")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.PublishQuestion(c, q.UUID))

	assert.True(t, f.store.questions[0].IsActive)
	events := f.router.byType(ws.MsgUpdateQuestion)
	require.Len(t, events, 1)
	assert.Equal(t, "game", events[0].scope)
	assert.Equal(t, game.ID, events[0].id)
	payload := events[0].event.Payload.(questionPayload)
	assert.True(t, payload.IsActive)
}

func TestUnpublishQuestion_HidesFromTeams(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "q1", true)
	admin := f.store.addPlayer("admin", "", "")
	adminTeam := f.store.addTeam(game, "quizadmin", "", true)
	f.store.addMembership(admin, game, adminTeam)

	c := f.connectAs(t, "admin")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.UnpublishQuestion(c, q.UUID))

	assert.False(t, f.store.questions[0].IsActive)
	require.Len(t, f.router.byType(ws.MsgUpdateQuestion), 1)
}

func TestUpdateQuestion_OtherGameDropped(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	otherGame := f.store.addGame("other", 10)
	foreignQ := f.store.addQuestion(otherGame, "foreign", true)
	admin := f.store.addPlayer("admin", "", "")
	adminTeam := f.store.addTeam(game, "quizadmin", "", true)
	f.store.addMembership(admin, game, adminTeam)

	c := f.connectAs(t, "admin")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.UpdateQuestion(c, foreignQ.UUID, "hacked"))

	assert.Equal(t, "foreign", f.store.questions[0].Text, "вопрос чужой игры неприкосновенен")
	assert.Empty(t, f.router.byType(ws.MsgUpdateQuestion))
}

func TestUpdateQuestion_AdminEditsText(t *testing.T) {
	f := newFixture()
	game := f.store.addGame("g", 10)
	q := f.store.addQuestion(game, "old text", true)
	admin := f.store.addPlayer("admin", "", "")
	adminTeam := f.store.addTeam(game, "quizadmin", "", true)
	f.store.addMembership(admin, game, adminTeam)

	c := f.connectAs(t, "admin")
	require.NoError(t, f.sessions.LoadGame(c, game.UUID))
	f.router.reset()

	require.NoError(t, f.sessions.UpdateQuestion(c, q.UUID, "new text"))

	assert.Equal(t, "new text", f.store.questions[0].Text)
	events := f.router.byType(ws.MsgUpdateQuestion)
	require.Len(t, events, 1)
	assert.Equal(t, "new text", events[0].event.Payload.(questionPayload).Title)
}
