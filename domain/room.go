package domain

import (
	"sort"
	"sync"
	"time"

	"quizrealm/apperrors"
)

// MaxPlayersPerRoom and MaxSpectatorsPerRoom bound room membership.
const (
	MaxPlayersPerRoom    = 50
	MaxSpectatorsPerRoom = 10
)

// Room is the aggregate root for a single quiz session. Every field that
// can be observed by more than one goroutine (connection read pumps,
// timer callbacks, the cleanup sweep) is guarded by mu; callers never see
// a Room in a half-updated state.
type Room struct {
	mu sync.RWMutex

	ID   string
	PIN  PIN
	Code string // human-display alias of PIN, kept for symmetry with the teacher's room codes

	HostConnectionID   string
	HostUserID         uint
	HostToken          Token
	HostTokenCreatedAt time.Time
	HostDisconnectedAt *time.Time

	QuizID   string
	Snapshot *Snapshot

	State                RoomState
	CurrentQuestionIndex int
	GameStartedAt        *time.Time

	PausedAt        *time.Time
	pausedFromState RoomState

	players    map[string]*Player
	spectators map[string]*Spectator
	banned     map[string]struct{} // lowercased nicknames

	AnswerHistory []AnswerRecord

	CreatedAt time.Time

	// MaxPlayers, MaxSpectators, and MaxQuestions default to the package
	// constants MaxPlayersPerRoom, MaxSpectatorsPerRoom and
	// MaxQuestionsPerQuiz but can be overridden per room from configuration,
	// e.g. by a use case honoring MAX_PLAYERS/MAX_SPECTATORS/MAX_QUESTIONS.
	MaxPlayers    int
	MaxSpectators int
	MaxQuestions  int

	// TokenTTL bounds how old a reconnect token may be before
	// Reconnect{Host,Player,Spectator} reject it outright, regardless of
	// grace period. Defaults to DefaultTokenTTL, overridable from
	// TOKEN_TTL_MS.
	TokenTTL time.Duration
}

// NewRoom constructs a Room in WAITING_PLAYERS with no players yet.
func NewRoom(id string, pin PIN, hostConnectionID string, hostUserID uint, hostToken Token, now time.Time) *Room {
	return &Room{
		ID:                 id,
		PIN:                pin,
		Code:               pin.String(),
		HostConnectionID:   hostConnectionID,
		HostUserID:         hostUserID,
		HostToken:          hostToken,
		HostTokenCreatedAt: now,
		State:              WaitingPlayers,
		players:            make(map[string]*Player),
		spectators:         make(map[string]*Spectator),
		banned:             make(map[string]struct{}),
		CreatedAt:          now,
		MaxPlayers:         MaxPlayersPerRoom,
		MaxSpectators:      MaxSpectatorsPerRoom,
		MaxQuestions:       MaxQuestionsPerQuiz,
		TokenTTL:           DefaultTokenTTL,
	}
}

func (r *Room) isHostLocked(requesterConnectionID string) bool {
	return r.HostConnectionID != "" && requesterConnectionID == r.HostConnectionID
}

// IsHost reports whether requesterConnectionID is the room's current host
// connection.
func (r *Room) IsHost(requesterConnectionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isHostLocked(requesterConnectionID)
}

// FindPlayerByConnectionID returns the player currently bound to
// connectionID, if any.
func (r *Room) FindPlayerByConnectionID(connectionID string) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p := r.playerByConnectionIDLocked(connectionID)
	if p == nil {
		return Player{}, false
	}
	return *p, true
}

// HasHostToken reports whether token is the room's current host reconnect
// token, letting a secondary index self-heal once a host token rotates.
func (r *Room) HasHostToken(token Token) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return token != "" && r.HostToken == token
}

// HasParticipantToken reports whether token currently belongs to a live
// player or spectator in the room.
func (r *Room) HasParticipantToken(token Token) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if token == "" {
		return false
	}
	if r.playerByTokenLocked(token) != nil {
		return true
	}
	return r.spectatorByTokenLocked(token) != nil
}

// HasConnection reports whether connectionID is currently bound to the
// host, a player, or a spectator in the room.
func (r *Room) HasConnection(connectionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if connectionID == "" {
		return false
	}
	if r.isHostLocked(connectionID) {
		return true
	}
	if r.playerByConnectionIDLocked(connectionID) != nil {
		return true
	}
	for _, s := range r.spectators {
		if s.ConnectionID == connectionID {
			return true
		}
	}
	return false
}

// FindSpectatorByConnectionID returns the spectator currently bound to
// connectionID, if any.
func (r *Room) FindSpectatorByConnectionID(connectionID string) (Spectator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.spectators {
		if s.ConnectionID == connectionID {
			return *s, true
		}
	}
	return Spectator{}, false
}

// CurrentQuestion returns a copy of the question at CurrentQuestionIndex
// in the room's snapshot.
func (r *Room) CurrentQuestion() (Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Snapshot == nil {
		return Question{}, apperrors.Validation("no active quiz snapshot")
	}
	return r.Snapshot.Question(r.CurrentQuestionIndex)
}

// QuestionIndex returns the room's current question index under the same
// lock CurrentQuestion and NextQuestion mutate it behind.
func (r *Room) QuestionIndex() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.CurrentQuestionIndex
}

// StartedAt returns the time the game's quiz snapshot was installed, or
// nil if the game hasn't started yet. Guarded by the same lock
// SetQuizSnapshot writes GameStartedAt behind.
func (r *Room) StartedAt() *time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.GameStartedAt
}

// SnapshotLen returns the number of questions in the room's snapshot, or
// 0 if none is set.
func (r *Room) SnapshotLen() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.Snapshot == nil {
		return 0
	}
	return r.Snapshot.Len()
}

func (r *Room) requireHostLocked(requesterConnectionID string) error {
	if !r.isHostLocked(requesterConnectionID) {
		return apperrors.Forbidden("only the host may perform this action")
	}
	return nil
}

// nicknameTakenLocked reports whether nickname is already used by any
// player or spectator, case-insensitively.
func (r *Room) nicknameTakenLocked(nickname Nickname) bool {
	key := nickname.Lower()
	for _, p := range r.players {
		if p.Nickname.Lower() == key {
			return true
		}
	}
	for _, s := range r.spectators {
		if s.Nickname.Lower() == key {
			return true
		}
	}
	return false
}

func (r *Room) nicknameBannedLocked(nickname Nickname) bool {
	_, banned := r.banned[nickname.Lower()]
	return banned
}

// AddPlayer admits a new player. Only legal while the room is waiting for
// players, below capacity, and the nickname is neither taken nor banned.
func (r *Room) AddPlayer(p *Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State != WaitingPlayers {
		return apperrors.Validation("room is not accepting new players")
	}
	if len(r.players) >= r.MaxPlayers {
		return apperrors.Conflict("room is full")
	}
	if r.nicknameBannedLocked(p.Nickname) {
		return apperrors.Conflict("nickname is banned from this room")
	}
	if r.nicknameTakenLocked(p.Nickname) {
		return apperrors.Conflict("nickname is already taken")
	}
	r.players[p.ID] = p
	return nil
}

// AddSpectator admits a new spectator. Spectators may join at any point in
// the room's lifetime, subject to the capacity and nickname rules.
func (r *Room) AddSpectator(s *Spectator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.spectators) >= r.MaxSpectators {
		return apperrors.Conflict("spectator slots are full")
	}
	if r.nicknameBannedLocked(s.Nickname) {
		return apperrors.Conflict("nickname is banned from this room")
	}
	if r.nicknameTakenLocked(s.Nickname) {
		return apperrors.Conflict("nickname is already taken")
	}
	r.spectators[s.ID] = s
	return nil
}

// RemovePlayer deletes a player outright. Idempotent: removing an absent
// player is not an error.
func (r *Room) RemovePlayer(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, playerID)
}

// RemoveSpectator deletes a spectator outright. Idempotent.
func (r *Room) RemoveSpectator(spectatorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.spectators, spectatorID)
}

func (r *Room) playerByConnectionIDLocked(connectionID string) *Player {
	for _, p := range r.players {
		if p.ConnectionID == connectionID {
			return p
		}
	}
	return nil
}

func (r *Room) playerByTokenLocked(token Token) *Player {
	for _, p := range r.players {
		if p.Token == token {
			return p
		}
	}
	return nil
}

func (r *Room) spectatorByTokenLocked(token Token) *Spectator {
	for _, s := range r.spectators {
		if s.Token == token {
			return s
		}
	}
	return nil
}

// SetPlayerDisconnected records disconnectedAt=now for the player
// currently holding connectionID. It is idempotent: calling it again for
// an already-disconnected player just refreshes the timestamp.
func (r *Room) SetPlayerDisconnected(connectionID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.playerByConnectionIDLocked(connectionID)
	if p == nil {
		return apperrors.NotFound("player not found for connection")
	}
	p.DisconnectedAt = &now
	return nil
}

// SetSpectatorDisconnected mirrors SetPlayerDisconnected for spectators.
func (r *Room) SetSpectatorDisconnected(connectionID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.spectators {
		if s.ConnectionID == connectionID {
			s.DisconnectedAt = &now
			return nil
		}
	}
	return apperrors.NotFound("spectator not found for connection")
}

// SetHostDisconnected records that the host's connection dropped. The
// room stays alive for the reconnect grace period.
func (r *Room) SetHostDisconnected(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.HostDisconnectedAt = &now
}

// HostDisconnectedSince reports how long the host has been disconnected,
// and whether it is currently disconnected at all.
func (r *Room) HostDisconnectedSince(now time.Time) (time.Duration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.HostDisconnectedAt == nil {
		return 0, false
	}
	return now.Sub(*r.HostDisconnectedAt), true
}

// ReconnectPlayer validates oldToken against the grace period and, on
// success, rotates the token and rebinds the player to newConnectionID.
func (r *Room) ReconnectPlayer(oldToken Token, newConnectionID string, gracePeriod time.Duration, newToken Token, now time.Time) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerByTokenLocked(oldToken)
	if p == nil {
		return nil, apperrors.Unauthorized("unknown or invalid reconnect token")
	}
	if !p.TokenValid(oldToken, r.TokenTTL, now) {
		return nil, apperrors.Unauthorized("reconnect token has expired")
	}
	if p.DisconnectedAt != nil && now.Sub(*p.DisconnectedAt) > gracePeriod {
		return nil, apperrors.Forbidden("reconnect grace period has expired")
	}
	p.ConnectionID = newConnectionID
	p.DisconnectedAt = nil
	p.RotateToken(newToken, now)
	return p, nil
}

// ReconnectSpectator mirrors ReconnectPlayer for spectators.
func (r *Room) ReconnectSpectator(oldToken Token, newConnectionID string, gracePeriod time.Duration, newToken Token, now time.Time) (*Spectator, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.spectatorByTokenLocked(oldToken)
	if s == nil {
		return nil, apperrors.Unauthorized("unknown or invalid reconnect token")
	}
	if !s.TokenValid(oldToken, r.TokenTTL, now) {
		return nil, apperrors.Unauthorized("reconnect token has expired")
	}
	if s.DisconnectedAt != nil && now.Sub(*s.DisconnectedAt) > gracePeriod {
		return nil, apperrors.Forbidden("reconnect grace period has expired")
	}
	s.ConnectionID = newConnectionID
	s.DisconnectedAt = nil
	s.RotateToken(newToken, now)
	return s, nil
}

// ReconnectHost mirrors ReconnectPlayer for the host's own connection.
func (r *Room) ReconnectHost(oldToken Token, newConnectionID string, gracePeriod time.Duration, newToken Token, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.HostToken == "" || oldToken == "" || r.HostToken != oldToken {
		return apperrors.Unauthorized("unknown or invalid host reconnect token")
	}
	if now.Sub(r.HostTokenCreatedAt) > r.TokenTTL {
		return apperrors.Unauthorized("host reconnect token has expired")
	}
	if r.HostDisconnectedAt != nil && now.Sub(*r.HostDisconnectedAt) > gracePeriod {
		return apperrors.Forbidden("reconnect grace period has expired")
	}
	r.HostConnectionID = newConnectionID
	r.HostDisconnectedAt = nil
	r.HostToken = newToken
	r.HostTokenCreatedAt = now
	return nil
}

// StartGame validates that the room may begin: the caller must be host,
// the room must be waiting for players, and at least one player must have
// joined. It performs no mutation; GameUseCases.StartGame installs the
// quiz snapshot and advances the state separately.
func (r *Room) StartGame(requesterConnectionID string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.requireHostLocked(requesterConnectionID); err != nil {
		return err
	}
	if r.State != WaitingPlayers {
		return apperrors.Validation("room is not waiting for players")
	}
	if len(r.players) == 0 {
		return apperrors.Validation("at least one player is required to start")
	}
	return nil
}

// HasQuizSnapshot reports whether a quiz has already been installed.
func (r *Room) HasQuizSnapshot() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Snapshot != nil
}

// SetQuizSnapshot installs quiz as the room's frozen snapshot, exactly
// once per room, and records the game's start time.
func (r *Room) SetQuizSnapshot(quiz Quiz, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.Snapshot != nil {
		return apperrors.Conflict("quiz snapshot already set for this room")
	}
	snap, err := NewSnapshotWithLimit(quiz, r.MaxQuestions)
	if err != nil {
		return err
	}
	r.Snapshot = &snap
	r.QuizID = quiz.ID
	r.GameStartedAt = &now
	return nil
}

// SetState forces a state transition, rejecting any that isn't legal per
// CanTransition.
func (r *Room) SetState(newState RoomState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setStateLocked(newState)
}

func (r *Room) setStateLocked(newState RoomState) error {
	if !CanTransition(r.State, newState) {
		return apperrors.Validation("illegal transition from %s to %s", r.State, newState)
	}
	r.State = newState
	return nil
}

// NextQuestion advances past the current question. It is host-only and
// only legal from LEADERBOARD: it either moves to QUESTION_INTRO for the
// next question, or to PODIUM if the last question has been shown.
func (r *Room) NextQuestion(requesterConnectionID string, totalQuestions int) (hasMore bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(requesterConnectionID); err != nil {
		return false, err
	}
	if r.State != Leaderboard {
		return false, apperrors.Validation("can only advance from the leaderboard")
	}
	if r.CurrentQuestionIndex >= totalQuestions-1 {
		if err := r.setStateLocked(Podium); err != nil {
			return false, err
		}
		return false, nil
	}
	r.CurrentQuestionIndex++
	if err := r.setStateLocked(QuestionIntro); err != nil {
		r.CurrentQuestionIndex--
		return false, err
	}
	return true, nil
}

// Pause freezes the game from LEADERBOARD, remembering the prior state so
// Resume can restore it.
func (r *Room) Pause(requesterConnectionID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(requesterConnectionID); err != nil {
		return err
	}
	if r.State != Leaderboard {
		return apperrors.Validation("can only pause from the leaderboard")
	}
	prior := r.State
	if err := r.setStateLocked(Paused); err != nil {
		return err
	}
	r.pausedFromState = prior
	r.PausedAt = &now
	return nil
}

// Resume restores the state Pause recorded.
func (r *Room) Resume(requesterConnectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.requireHostLocked(requesterConnectionID); err != nil {
		return err
	}
	if r.State != Paused {
		return apperrors.Validation("room is not paused")
	}
	if err := r.setStateLocked(r.pausedFromState); err != nil {
		return err
	}
	r.PausedAt = nil
	r.pausedFromState = ""
	return nil
}

// KickPlayer removes a player without banning their nickname.
func (r *Room) KickPlayer(playerID, requesterConnectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireHostLocked(requesterConnectionID); err != nil {
		return err
	}
	if _, ok := r.players[playerID]; !ok {
		return apperrors.NotFound("player not found")
	}
	delete(r.players, playerID)
	return nil
}

// BanPlayer removes a player and blocks their nickname from rejoining.
func (r *Room) BanPlayer(playerID, requesterConnectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireHostLocked(requesterConnectionID); err != nil {
		return err
	}
	p, ok := r.players[playerID]
	if !ok {
		return apperrors.NotFound("player not found")
	}
	r.banned[p.Nickname.Lower()] = struct{}{}
	delete(r.players, playerID)
	return nil
}

// UnbanNickname lifts a ban.
func (r *Room) UnbanNickname(nickname Nickname, requesterConnectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.requireHostLocked(requesterConnectionID); err != nil {
		return err
	}
	delete(r.banned, nickname.Lower())
	return nil
}

// GetBannedNicknames lists currently-banned nicknames.
func (r *Room) GetBannedNicknames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.banned))
	for n := range r.banned {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// ClearAllAnswerAttempts wipes every player's in-flight answer, called
// when a new answering phase begins.
func (r *Room) ClearAllAnswerAttempts() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		p.ClearAnswerAttempt()
	}
}

// RecordAnswer scores and records a player's answer to the current
// question. It performs the full submit-answer transaction atomically
// under the room's lock: validate, score, mutate the player, append to
// history, and report whether every connected player has now answered.
func (r *Room) RecordAnswer(playerID string, questionIndex, answerIndex int, elapsedMs int64, now time.Time) (correct bool, awarded int, allAnswered bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.State != AnsweringPhase {
		return false, 0, false, apperrors.Validation("room is not in the answering phase")
	}
	p, ok := r.players[playerID]
	if !ok {
		return false, 0, false, apperrors.NotFound("player not in room")
	}
	if !p.IsConnected() {
		return false, 0, false, apperrors.Forbidden("disconnected players cannot submit answers")
	}
	if p.HasAnswered() {
		return false, 0, false, apperrors.Conflict("already answered")
	}
	if questionIndex != r.CurrentQuestionIndex {
		return false, 0, false, apperrors.Validation("question index does not match the current question")
	}
	if r.Snapshot == nil {
		return false, 0, false, apperrors.Validation("no active quiz snapshot")
	}
	q, err := r.Snapshot.Question(questionIndex)
	if err != nil {
		return false, 0, false, err
	}

	correct = q.IsCorrect(answerIndex)
	basePoints := 0
	if correct {
		basePoints = ScoreAnswer(true, elapsedMs, int64(q.TimeLimitSeconds)*1000, q.Points)
	}

	p.AnswerAttempt = &AnswerAttempt{AnswerIndex: answerIndex, ElapsedMs: elapsedMs, SubmittedAt: now}
	awarded = p.ApplyAnswer(correct, basePoints)

	r.AnswerHistory = append(r.AnswerHistory, AnswerRecord{
		PlayerID:      p.ID,
		Username:      string(p.Nickname),
		QuestionIndex: questionIndex,
		AnswerIndex:   answerIndex,
		Correct:       correct,
		Score:         awarded,
		ElapsedMs:     elapsedMs,
		SubmittedAt:   now,
	})

	allAnswered = r.haveAllPlayersAnsweredLocked()
	return correct, awarded, allAnswered, nil
}

func (r *Room) haveAllPlayersAnsweredLocked() bool {
	for _, p := range r.players {
		if p.IsConnected() && !p.HasAnswered() {
			return false
		}
	}
	return true
}

// HaveAllPlayersAnswered reports whether every connected player has an
// open answer attempt for the current question.
func (r *Room) HaveAllPlayersAnswered() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.haveAllPlayersAnsweredLocked()
}

// GetAnswerDistribution tallies, among players who submitted an answer
// this round, how many chose each option. isCorrect classifies a given
// option index as correct or not. Indices outside [0, optionCount) count
// toward skippedCount instead of a distribution bucket, so a malformed
// client answer never panics.
func (r *Room) GetAnswerDistribution(optionCount int, isCorrect func(answerIndex int) bool) (distribution []int, correctCount, skippedCount int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	distribution = make([]int, optionCount)
	for _, p := range r.players {
		if p.AnswerAttempt == nil {
			continue
		}
		idx := p.AnswerAttempt.AnswerIndex
		if idx < 0 || idx >= optionCount {
			skippedCount++
			continue
		}
		distribution[idx]++
		if isCorrect(idx) {
			correctCount++
		}
	}
	return distribution, correctCount, skippedCount
}

// GetLeaderboard returns players ordered by score descending, breaking
// ties by earliest join time so repeated calls are stable.
func (r *Room) GetLeaderboard() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// GetPodium returns the top three players by the same ordering as
// GetLeaderboard.
func (r *Room) GetPodium() []Player {
	lb := r.GetLeaderboard()
	if len(lb) > 3 {
		lb = lb[:3]
	}
	return lb
}

// RemoveStaleDisconnectedPlayers evicts players that have been
// disconnected longer than grace, returning the ones removed so the
// caller can announce their departure.
func (r *Room) RemoveStaleDisconnectedPlayers(grace time.Duration, now time.Time) []Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []Player
	for id, p := range r.players {
		if p.DisconnectedAt != nil && now.Sub(*p.DisconnectedAt) > grace {
			removed = append(removed, *p)
			delete(r.players, id)
		}
	}
	return removed
}

// GetDisconnectedPlayers lists players currently without a live
// connection.
func (r *Room) GetDisconnectedPlayers() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Player
	for _, p := range r.players {
		if !p.IsConnected() {
			out = append(out, *p)
		}
	}
	return out
}

// GetPlayers lists every player currently in the room.
func (r *Room) GetPlayers() []Player {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	return out
}

// GetSpectators lists every spectator currently in the room.
func (r *Room) GetSpectators() []Spectator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Spectator, 0, len(r.spectators))
	for _, s := range r.spectators {
		out = append(out, *s)
	}
	return out
}

// GetPlayerByID returns the live player, if present.
func (r *Room) GetPlayerByID(id string) (Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// PlayerCount and SpectatorCount report current membership sizes.
func (r *Room) PlayerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}

func (r *Room) SpectatorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.spectators)
}

// CurrentState returns the room's flow state.
func (r *Room) CurrentState() RoomState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.State
}

// AnswerHistorySnapshot returns a copy of the full answer history, safe
// for a caller to retain after the room is torn down.
func (r *Room) AnswerHistorySnapshot() []AnswerRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]AnswerRecord, len(r.AnswerHistory))
	copy(out, r.AnswerHistory)
	return out
}
