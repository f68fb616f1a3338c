package usecases

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quizrealm/apperrors"
	"quizrealm/domain"
	"quizrealm/keylock"
	"quizrealm/registry"
)

// RoomUseCases orchestrates room membership and lifecycle: create, join,
// leave, kick/ban, and the disconnect/reconnect flows.
type RoomUseCases struct {
	Registry  *registry.Registry
	QuizRepo  QuizRepository
	JoinLocks *keylock.Locker
	Now       func() time.Time

	// MaxPlayers, MaxSpectators, and MaxQuestions are stamped onto every
	// room this creates, letting a configured cap (MAX_PLAYERS,
	// MAX_SPECTATORS, MAX_QUESTIONS) override domain's package defaults.
	MaxPlayers    int
	MaxSpectators int
	MaxQuestions  int

	// TokenTTL is stamped onto every room this creates, letting
	// TOKEN_TTL_MS override domain.DefaultTokenTTL.
	TokenTTL time.Duration

	// OnHostDisconnected is invoked whenever HandleDisconnect marks a
	// room's host disconnected, carrying just the PIN so the dispatcher
	// can broadcast host_disconnected without this package importing
	// the transport layer, mirroring GameUseCases.OnAutoAdvance.
	OnHostDisconnected func(pin domain.PIN)
}

// NewRoomUseCases wires a RoomUseCases with real clocks and a fresh join
// lock table, defaulting every cap to domain's package constants.
func NewRoomUseCases(reg *registry.Registry, quizRepo QuizRepository) *RoomUseCases {
	return &RoomUseCases{
		Registry:      reg,
		QuizRepo:      quizRepo,
		JoinLocks:     keylock.New(),
		Now:           time.Now,
		MaxPlayers:    domain.MaxPlayersPerRoom,
		MaxSpectators: domain.MaxSpectatorsPerRoom,
		MaxQuestions:  domain.MaxQuestionsPerQuiz,
		TokenTTL:      domain.DefaultTokenTTL,
	}
}

func (u *RoomUseCases) now() time.Time {
	if u.Now != nil {
		return u.Now()
	}
	return time.Now()
}

// CreateRoom loads the quiz, mints a fresh PIN and host token, and saves
// a new Room in WAITING_PLAYERS.
func (u *RoomUseCases) CreateRoom(ctx context.Context, hostUserID uint, hostConnectionID, quizID string) (*domain.Room, domain.Token, error) {
	quiz, err := u.QuizRepo.FindByID(ctx, quizID)
	if err != nil {
		return nil, "", err
	}

	pin, err := u.Registry.GenerateUniquePIN()
	if err != nil {
		return nil, "", err
	}
	hostToken, err := domain.NewToken()
	if err != nil {
		return nil, "", err
	}

	room := domain.NewRoom(uuid.NewString(), pin, hostConnectionID, hostUserID, hostToken, u.now())
	room.QuizID = quiz.ID
	if u.MaxPlayers > 0 {
		room.MaxPlayers = u.MaxPlayers
	}
	if u.MaxSpectators > 0 {
		room.MaxSpectators = u.MaxSpectators
	}
	if u.MaxQuestions > 0 {
		room.MaxQuestions = u.MaxQuestions
	}
	if u.TokenTTL > 0 {
		room.TokenTTL = u.TokenTTL
	}
	u.Registry.Save(room)
	return room, hostToken, nil
}

// JoinRoom admits a new player under a per-(pin,nickname) join lock so
// two simultaneous joins with the same nickname can't both succeed.
func (u *RoomUseCases) JoinRoom(ctx context.Context, pin domain.PIN, rawNickname, connectionID string) (*domain.Player, error) {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	nickname, err := domain.ParseNickname(rawNickname)
	if err != nil {
		return nil, err
	}

	lockKey := string(pin) + ":" + nickname.Lower()
	if !u.JoinLocks.TryAcquire(lockKey, u.now()) {
		return nil, apperrors.Conflict("a join with this nickname is already in progress")
	}
	defer u.JoinLocks.Release(lockKey)

	token, err := domain.NewToken()
	if err != nil {
		return nil, err
	}
	player := domain.NewPlayer(uuid.NewString(), connectionID, nickname, pin, token, u.now())
	if err := room.AddPlayer(player); err != nil {
		return nil, err
	}
	u.Registry.ReindexConnection(room)
	return player, nil
}

// JoinAsSpectator mirrors JoinRoom for a Spectator. Spectator joins do
// not require authentication.
func (u *RoomUseCases) JoinAsSpectator(ctx context.Context, pin domain.PIN, rawNickname, connectionID string) (*domain.Spectator, error) {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	nickname, err := domain.ParseNickname(rawNickname)
	if err != nil {
		return nil, err
	}

	lockKey := string(pin) + ":" + nickname.Lower()
	if !u.JoinLocks.TryAcquire(lockKey, u.now()) {
		return nil, apperrors.Conflict("a join with this nickname is already in progress")
	}
	defer u.JoinLocks.Release(lockKey)

	token, err := domain.NewToken()
	if err != nil {
		return nil, err
	}
	spectator := domain.NewSpectator(uuid.NewString(), connectionID, nickname, pin, token, u.now())
	if err := room.AddSpectator(spectator); err != nil {
		return nil, err
	}
	u.Registry.ReindexConnection(room)
	return spectator, nil
}

// LeaveRoom removes a player outright.
func (u *RoomUseCases) LeaveRoom(ctx context.Context, pin domain.PIN, playerID string) error {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	room.RemovePlayer(playerID)
	return nil
}

// LeaveAsSpectator removes a spectator outright.
func (u *RoomUseCases) LeaveAsSpectator(ctx context.Context, pin domain.PIN, spectatorID string) error {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	room.RemoveSpectator(spectatorID)
	return nil
}

// CloseRoom tears a room down outright; host-only. Callers that need the
// game archived should call GameUseCases.ArchiveGame or
// SaveInterruptedGame first.
func (u *RoomUseCases) CloseRoom(ctx context.Context, pin domain.PIN, requesterConnectionID string) error {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	if !room.IsHost(requesterConnectionID) {
		return apperrors.Forbidden("only the host may close the room")
	}
	u.Registry.Delete(pin)
	return nil
}

// KickPlayer, BanPlayer and UnbanNickname delegate straight to the Room
// aggregate and refresh the registry's secondary indexes afterward.
func (u *RoomUseCases) KickPlayer(ctx context.Context, pin domain.PIN, playerID, requesterConnectionID string) error {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	if err := room.KickPlayer(playerID, requesterConnectionID); err != nil {
		return err
	}
	u.Registry.ReindexConnection(room)
	return nil
}

func (u *RoomUseCases) BanPlayer(ctx context.Context, pin domain.PIN, playerID, requesterConnectionID string) error {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	if err := room.BanPlayer(playerID, requesterConnectionID); err != nil {
		return err
	}
	u.Registry.ReindexConnection(room)
	return nil
}

func (u *RoomUseCases) UnbanNickname(ctx context.Context, pin domain.PIN, rawNickname, requesterConnectionID string) error {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	nickname, err := domain.ParseNickname(rawNickname)
	if err != nil {
		return err
	}
	return room.UnbanNickname(nickname, requesterConnectionID)
}

func (u *RoomUseCases) GetBannedNicknames(ctx context.Context, pin domain.PIN) ([]string, error) {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	return room.GetBannedNicknames(), nil
}

func (u *RoomUseCases) GetPlayers(ctx context.Context, pin domain.PIN) ([]domain.Player, error) {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	return room.GetPlayers(), nil
}

func (u *RoomUseCases) GetSpectators(ctx context.Context, pin domain.PIN) ([]domain.Spectator, error) {
	room, ok := u.Registry.GetByPIN(pin)
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	return room.GetSpectators(), nil
}

// HandleDisconnect scans the registry's connection index for the room
// owning connectionID and applies the disconnect rule: the host is
// marked disconnected; a player is removed outright during
// WAITING_PLAYERS or marked disconnected (reconnect-eligible) otherwise;
// a spectator is always just marked disconnected. A connection that
// isn't bound to any room is a benign no-op.
func (u *RoomUseCases) HandleDisconnect(ctx context.Context, connectionID string) error {
	room, ok := u.Registry.GetByConnectionID(connectionID)
	if !ok {
		return nil
	}

	if room.IsHost(connectionID) {
		room.SetHostDisconnected(u.now())
		if u.OnHostDisconnected != nil {
			u.OnHostDisconnected(room.PIN)
		}
		return nil
	}
	if p, ok := room.FindPlayerByConnectionID(connectionID); ok {
		if room.CurrentState() == domain.WaitingPlayers {
			room.RemovePlayer(p.ID)
		} else {
			_ = room.SetPlayerDisconnected(connectionID, u.now())
		}
		return nil
	}
	if _, ok := room.FindSpectatorByConnectionID(connectionID); ok {
		_ = room.SetSpectatorDisconnected(connectionID, u.now())
	}
	return nil
}

// ReconnectHost validates oldToken and rebinds the host to
// newConnectionID, rotating the token.
func (u *RoomUseCases) ReconnectHost(ctx context.Context, oldToken domain.Token, newConnectionID string, grace time.Duration) (*domain.Room, domain.Token, error) {
	room, ok := u.Registry.GetByHostToken(oldToken)
	if !ok {
		return nil, "", apperrors.Unauthorized("unknown or invalid host reconnect token")
	}
	newToken, err := domain.NewToken()
	if err != nil {
		return nil, "", err
	}
	if err := room.ReconnectHost(oldToken, newConnectionID, grace, newToken, u.now()); err != nil {
		return nil, "", err
	}
	u.Registry.ReindexConnection(room)
	return room, newToken, nil
}

// ReconnectPlayer validates oldToken and rebinds a player to
// newConnectionID, rotating the token.
func (u *RoomUseCases) ReconnectPlayer(ctx context.Context, oldToken domain.Token, newConnectionID string, grace time.Duration) (*domain.Room, *domain.Player, domain.Token, error) {
	room, ok := u.Registry.GetByToken(oldToken)
	if !ok {
		return nil, nil, "", apperrors.Unauthorized("unknown or invalid reconnect token")
	}
	newToken, err := domain.NewToken()
	if err != nil {
		return nil, nil, "", err
	}
	player, err := room.ReconnectPlayer(oldToken, newConnectionID, grace, newToken, u.now())
	if err != nil {
		return nil, nil, "", err
	}
	u.Registry.ReindexConnection(room)
	return room, player, newToken, nil
}

// ReconnectSpectator mirrors ReconnectPlayer for spectators.
func (u *RoomUseCases) ReconnectSpectator(ctx context.Context, oldToken domain.Token, newConnectionID string, grace time.Duration) (*domain.Room, *domain.Spectator, domain.Token, error) {
	room, ok := u.Registry.GetByToken(oldToken)
	if !ok {
		return nil, nil, "", apperrors.Unauthorized("unknown or invalid reconnect token")
	}
	newToken, err := domain.NewToken()
	if err != nil {
		return nil, nil, "", err
	}
	spectator, err := room.ReconnectSpectator(oldToken, newConnectionID, grace, newToken, u.now())
	if err != nil {
		return nil, nil, "", err
	}
	u.Registry.ReindexConnection(room)
	return room, spectator, newToken, nil
}
