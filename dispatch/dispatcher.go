// Package dispatch wires one inbound websocket envelope to the matching
// use-case call and turns its result into outbound broadcasts, the role
// handlers/multiplayer.go's switch over Message.Type played in the
// teacher, rebuilt table-driven against usecases.RoomUseCases and
// usecases.GameUseCases instead of a package-level rooms map.
package dispatch

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"quizrealm/apperrors"
	"quizrealm/domain"
	"quizrealm/ratelimit"
	"quizrealm/transport"
	"quizrealm/usecases"
)

// Hub is the subset of transport.Hub the dispatcher needs, satisfied
// structurally so this package never imports transport.Hub's concrete
// type and could be driven by a fake in tests.
type Hub interface {
	Send(connectionID, event string, data interface{})
	BroadcastToRoom(pin domain.PIN, event string, data interface{})
	DropRoomSockets(pin domain.PIN)
	Join(pin domain.PIN, connectionID string)
	Leave(pin domain.PIN, connectionID string)
}

// Identity is the resolved caller carried on the websocket's upgrade
// request, just enough of middleware.HostIdentity for CreateRoom to
// attribute a host user ID.
type Identity struct {
	UserID  uint
	IsGuest bool
}

// Dispatcher holds everything HandleInbound needs to route one event.
type Dispatcher struct {
	Room    *usecases.RoomUseCases
	Game    *usecases.GameUseCases
	Limiter *ratelimit.Limiter
	Hub     Hub
	Now     func() time.Time

	// HostGrace and PlayerGrace bound how long a disconnected host or
	// player/spectator may wait before reconnect_host/reconnect_player/
	// reconnect_spectator is rejected with Forbidden, fed from
	// config.Config.HostGrace/PlayerGrace. Spectators share PlayerGrace,
	// the same way cleanup.Service treats them.
	HostGrace   time.Duration
	PlayerGrace time.Duration
}

// NewDispatcher wires d.Game.OnAutoAdvance so a timer expiry or an
// all-players-answered submit both broadcast show_results the same way a
// host-initiated end_answering does, and d.Room.OnHostDisconnected so a
// dropped host connection immediately announces host_disconnected,
// without either use case importing this package or transport.
func NewDispatcher(room *usecases.RoomUseCases, game *usecases.GameUseCases, limiter *ratelimit.Limiter, hub Hub, hostGrace, playerGrace time.Duration) *Dispatcher {
	d := &Dispatcher{Room: room, Game: game, Limiter: limiter, Hub: hub, Now: time.Now, HostGrace: hostGrace, PlayerGrace: playerGrace}
	game.OnAutoAdvance = func(pin domain.PIN, results usecases.EndAnsweringResult) {
		d.Hub.BroadcastToRoom(pin, OutShowResults, map[string]interface{}{
			"correctAnswerIndex": results.CorrectAnswerIndex,
			"distribution":       results.Distribution,
			"correctCount":       results.CorrectCount,
			"totalPlayers":       results.TotalPlayers,
		})
	}
	room.OnHostDisconnected = func(pin domain.PIN) {
		d.Hub.BroadcastToRoom(pin, OutHostDisconnected, nil)
	}
	return d
}

func (d *Dispatcher) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// HandleInbound is the entry point a transport.Connection's read pump
// calls for every decoded envelope.
func (d *Dispatcher) HandleInbound(ctx context.Context, connectionID string, identity Identity, env transport.Envelope) {
	if allowed, retryAfter := d.Limiter.Allow(connectionID, env.Event, d.now()); !allowed {
		d.sendError(connectionID, apperrors.RateLimit(retryAfter, "too many %s requests", env.Event))
		return
	}

	if err := d.route(ctx, connectionID, identity, env); err != nil {
		d.sendError(connectionID, err)
	}
}

func (d *Dispatcher) route(ctx context.Context, connectionID string, identity Identity, env transport.Envelope) error {
	if RequiresHost(env.Event) {
		var p struct {
			PIN string `json:"pin"`
		}
		if err := json.Unmarshal(env.Data, &p); err == nil && p.PIN != "" {
			if pin, err := domain.ParsePIN(p.PIN); err == nil {
				if room, ok := d.Room.Registry.GetByPIN(pin); ok && !room.IsHost(connectionID) {
					return apperrors.Forbidden("only the host may issue %s", env.Event)
				}
			}
		}
	}

	switch env.Event {
	case EventCreateRoom:
		return d.handleCreateRoom(ctx, connectionID, identity, env.Data)
	case EventJoinRoom:
		return d.handleJoinRoom(ctx, connectionID, env.Data)
	case EventJoinSpectator:
		return d.handleJoinSpectator(ctx, connectionID, env.Data)
	case EventLeaveRoom:
		return d.handleLeaveRoom(ctx, connectionID, env.Data)
	case EventCloseRoom:
		return d.handleCloseRoom(ctx, connectionID, env.Data)
	case EventKickPlayer:
		return d.handleKickPlayer(ctx, connectionID, env.Data)
	case EventBanPlayer:
		return d.handleBanPlayer(ctx, connectionID, env.Data)
	case EventUnbanNickname:
		return d.handleUnbanNickname(ctx, connectionID, env.Data)
	case EventStartGame:
		return d.handleStartGame(ctx, connectionID, env.Data)
	case EventStartAnswering:
		return d.handleStartAnswering(ctx, connectionID, env.Data)
	case EventSubmitAnswer:
		return d.handleSubmitAnswer(ctx, connectionID, env.Data)
	case EventEndAnswering:
		return d.handleEndAnswering(ctx, connectionID, env.Data)
	case EventShowLeaderboard:
		return d.handleShowLeaderboard(ctx, connectionID, env.Data)
	case EventNextQuestion:
		return d.handleNextQuestion(ctx, connectionID, env.Data)
	case EventPauseGame:
		return d.handlePauseGame(ctx, connectionID, env.Data)
	case EventResumeGame:
		return d.handleResumeGame(ctx, connectionID, env.Data)
	case EventReconnectHost:
		return d.handleReconnectHost(ctx, connectionID, env.Data)
	case EventReconnectPlayer:
		return d.handleReconnectPlayer(ctx, connectionID, env.Data)
	case EventReconnectSpectator:
		return d.handleReconnectSpectator(ctx, connectionID, env.Data)
	default:
		return apperrors.Validation("unknown event %q", env.Event)
	}
}

func (d *Dispatcher) sendError(connectionID string, err error) {
	kind := apperrors.KindInternal
	message := err.Error()
	retryAfter := 0
	if e, ok := apperrors.As(err); ok {
		kind = e.Kind
		message = e.Message
		retryAfter = e.RetryAfter
	} else {
		log.Printf("⚠️  dispatch: unclassified error for %s: %v", connectionID, err)
	}
	payload := map[string]interface{}{"kind": kind, "message": message}
	if retryAfter > 0 {
		payload["retryAfterSeconds"] = retryAfter
	}
	d.Hub.Send(connectionID, OutError, payload)
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return apperrors.Validation("missing payload")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperrors.Validation("malformed payload: %v", err)
	}
	return nil
}

func parsePIN(raw string) (domain.PIN, error) {
	return domain.ParsePIN(raw)
}

func playerView(p domain.Player) map[string]interface{} {
	return map[string]interface{}{
		"id":            p.ID,
		"nickname":      string(p.Nickname),
		"score":         int(p.Score),
		"streak":        p.Streak,
		"longestStreak": p.LongestStreak,
		"connected":     p.IsConnected(),
	}
}

func playerViews(players []domain.Player) []map[string]interface{} {
	out := make([]map[string]interface{}, len(players))
	for i, p := range players {
		out[i] = playerView(p)
	}
	return out
}

// --- room lifecycle ---------------------------------------------------

func (d *Dispatcher) handleCreateRoom(ctx context.Context, connectionID string, identity Identity, raw json.RawMessage) error {
	var payload struct {
		QuizID string `json:"quizId"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	room, hostToken, err := d.Room.CreateRoom(ctx, identity.UserID, connectionID, payload.QuizID)
	if err != nil {
		return err
	}
	d.Hub.Join(room.PIN, connectionID)
	d.Hub.Send(connectionID, OutRoomCreated, map[string]interface{}{
		"pin":       string(room.PIN),
		"hostToken": string(hostToken),
		"quizId":    room.QuizID,
	})
	return nil
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN      string `json:"pin"`
		Nickname string `json:"nickname"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	player, err := d.Room.JoinRoom(ctx, pin, payload.Nickname, connectionID)
	if err != nil {
		return err
	}
	room, _ := d.Room.Registry.GetByPIN(pin)
	d.Hub.Join(pin, connectionID)
	d.Hub.Send(connectionID, OutRoomJoined, map[string]interface{}{
		"pin":     string(pin),
		"token":   string(player.Token),
		"player":  playerView(*player),
		"players": playerViews(room.GetPlayers()),
	})
	d.Hub.BroadcastToRoom(pin, OutPlayerJoined, playerView(*player))
	return nil
}

func (d *Dispatcher) handleJoinSpectator(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN      string `json:"pin"`
		Nickname string `json:"nickname"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	spectator, err := d.Room.JoinAsSpectator(ctx, pin, payload.Nickname, connectionID)
	if err != nil {
		return err
	}
	d.Hub.Join(pin, connectionID)
	d.Hub.Send(connectionID, OutRoomJoinedSpectator, map[string]interface{}{
		"pin":   string(pin),
		"token": string(spectator.Token),
	})
	d.Hub.BroadcastToRoom(pin, OutSpectatorJoined, map[string]interface{}{
		"id":       spectator.ID,
		"nickname": string(spectator.Nickname),
	})
	return nil
}

func (d *Dispatcher) handleLeaveRoom(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN      string `json:"pin"`
		PlayerID string `json:"playerId"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	if err := d.Room.LeaveRoom(ctx, pin, payload.PlayerID); err != nil {
		return err
	}
	d.Hub.Leave(pin, connectionID)
	d.Hub.BroadcastToRoom(pin, OutPlayerLeft, map[string]interface{}{"playerId": payload.PlayerID})
	return nil
}

func (d *Dispatcher) handleCloseRoom(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	if err := d.Room.CloseRoom(ctx, pin, connectionID); err != nil {
		return err
	}
	d.Hub.BroadcastToRoom(pin, OutRoomClosed, map[string]interface{}{"reason": "host_closed"})
	d.Hub.DropRoomSockets(pin)
	return nil
}

func (d *Dispatcher) handleKickPlayer(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN      string `json:"pin"`
		PlayerID string `json:"playerId"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	room, ok := d.Room.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	player, _ := room.GetPlayerByID(payload.PlayerID)
	if err := d.Room.KickPlayer(ctx, pin, payload.PlayerID, connectionID); err != nil {
		return err
	}
	d.Hub.Send(player.ConnectionID, OutYouWereKicked, map[string]interface{}{"pin": string(pin)})
	d.Hub.Leave(pin, player.ConnectionID)
	d.Hub.BroadcastToRoom(pin, OutPlayerKicked, map[string]interface{}{"playerId": payload.PlayerID})
	return nil
}

func (d *Dispatcher) handleBanPlayer(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN      string `json:"pin"`
		PlayerID string `json:"playerId"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	room, ok := d.Room.Registry.GetByPIN(pin)
	if !ok {
		return apperrors.NotFound("room not found")
	}
	player, _ := room.GetPlayerByID(payload.PlayerID)
	if err := d.Room.BanPlayer(ctx, pin, payload.PlayerID, connectionID); err != nil {
		return err
	}
	d.Hub.Send(player.ConnectionID, OutYouWereKicked, map[string]interface{}{"pin": string(pin), "banned": true})
	d.Hub.Leave(pin, player.ConnectionID)
	d.Hub.BroadcastToRoom(pin, OutPlayerBanned, map[string]interface{}{"playerId": payload.PlayerID})
	return nil
}

func (d *Dispatcher) handleUnbanNickname(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN      string `json:"pin"`
		Nickname string `json:"nickname"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	return d.Room.UnbanNickname(ctx, pin, payload.Nickname, connectionID)
}

// --- game flow ----------------------------------------------------------

func (d *Dispatcher) handleStartGame(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	result, err := d.Game.StartGame(ctx, pin, connectionID)
	if err != nil {
		return err
	}
	d.Hub.Send(connectionID, OutGameStarted, map[string]interface{}{
		"totalQuestions": result.TotalQuestions,
		"question":       result.HostQuestion,
	})
	d.Hub.BroadcastToRoom(pin, OutQuestionIntro, map[string]interface{}{
		"totalQuestions": result.TotalQuestions,
		"question":       result.PublicQuestion,
	})
	return nil
}

func (d *Dispatcher) handleStartAnswering(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	q, err := d.Game.StartAnsweringPhase(ctx, pin, connectionID)
	if err != nil {
		return err
	}
	d.Hub.BroadcastToRoom(pin, OutAnsweringStarted, map[string]interface{}{"question": q.Public()})
	return nil
}

func (d *Dispatcher) handleSubmitAnswer(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN         string `json:"pin"`
		AnswerIndex int    `json:"answerIndex"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	correct, awarded, allAnswered, err := d.Game.SubmitAnswer(ctx, pin, connectionID, payload.AnswerIndex)
	if err != nil {
		return err
	}
	d.Hub.Send(connectionID, OutAnswerReceived, map[string]interface{}{"correct": correct, "awarded": awarded})
	if allAnswered {
		d.Hub.BroadcastToRoom(pin, OutAllPlayersAnswered, nil)
	}
	return nil
}

func (d *Dispatcher) handleEndAnswering(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	results, err := d.Game.EndAnsweringPhase(ctx, pin, connectionID)
	if err != nil {
		return err
	}
	d.Hub.BroadcastToRoom(pin, OutShowResults, map[string]interface{}{
		"correctAnswerIndex": results.CorrectAnswerIndex,
		"distribution":       results.Distribution,
		"correctCount":       results.CorrectCount,
		"totalPlayers":       results.TotalPlayers,
	})
	return nil
}

func (d *Dispatcher) handleShowLeaderboard(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	players, err := d.Game.ShowLeaderboard(ctx, pin, connectionID)
	if err != nil {
		return err
	}
	d.Hub.BroadcastToRoom(pin, OutLeaderboard, map[string]interface{}{"players": playerViews(players)})
	return nil
}

func (d *Dispatcher) handleNextQuestion(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	result, err := d.Game.NextQuestion(ctx, pin, connectionID)
	if err != nil {
		return err
	}
	if !result.HasMore {
		d.Hub.BroadcastToRoom(pin, OutGameOver, map[string]interface{}{"podium": playerViews(result.Podium)})
		if session, err := d.Game.ArchiveGame(ctx, pin); err != nil {
			log.Printf("⚠️  dispatch: archive-on-podium failed for pin %s: %v", pin, err)
		} else if session.PIN != "" {
			d.Hub.DropRoomSockets(pin)
		}
		return nil
	}
	d.Hub.Send(connectionID, OutQuestionIntro, map[string]interface{}{"question": result.HostQuestion})
	d.Hub.BroadcastToRoom(pin, OutQuestionIntro, map[string]interface{}{"question": result.PublicQuestion})
	return nil
}

func (d *Dispatcher) handlePauseGame(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	if err := d.Game.PauseGame(ctx, pin, connectionID); err != nil {
		return err
	}
	d.Hub.BroadcastToRoom(pin, OutGamePaused, nil)
	return nil
}

func (d *Dispatcher) handleResumeGame(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		PIN string `json:"pin"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	pin, err := parsePIN(payload.PIN)
	if err != nil {
		return err
	}
	if err := d.Game.ResumeGame(ctx, pin, connectionID); err != nil {
		return err
	}
	d.Hub.BroadcastToRoom(pin, OutGameResumed, nil)
	return nil
}

// --- reconnection -------------------------------------------------------

func (d *Dispatcher) handleReconnectHost(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		Token string `json:"token"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	room, newToken, err := d.Room.ReconnectHost(ctx, domain.Token(payload.Token), connectionID, d.HostGrace)
	if err != nil {
		return err
	}
	d.Hub.Join(room.PIN, connectionID)
	d.Hub.Send(connectionID, OutHostReturned, map[string]interface{}{
		"pin":   string(room.PIN),
		"token": string(newToken),
		"state": room.CurrentState(),
	})
	d.Hub.BroadcastToRoom(room.PIN, OutHostReturned, map[string]interface{}{"pin": string(room.PIN)})
	d.sendTimerSync(room.PIN, connectionID)
	return nil
}

// sendTimerSync aligns a just-reconnected client to the room's running
// countdown, if one is active, so it doesn't miss the periodic
// timer_tick broadcasts that already went out while it was offline.
func (d *Dispatcher) sendTimerSync(pin domain.PIN, connectionID string) {
	if d.Game.Timer == nil || !d.Game.Timer.IsTimerActive(pin) {
		return
	}
	sync := d.Game.Timer.GetTimerSync(pin)
	d.Hub.Send(connectionID, OutTimerSync, map[string]interface{}{
		"durationMs":  sync.Duration.Milliseconds(),
		"remainingMs": sync.RemainingMs,
	})
}

func (d *Dispatcher) handleReconnectPlayer(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		Token string `json:"token"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	room, player, newToken, err := d.Room.ReconnectPlayer(ctx, domain.Token(payload.Token), connectionID, d.PlayerGrace)
	if err != nil {
		return err
	}
	d.Hub.Join(room.PIN, connectionID)
	d.Hub.Send(connectionID, OutRoomJoined, map[string]interface{}{
		"pin":    string(room.PIN),
		"token":  string(newToken),
		"player": playerView(*player),
		"state":  room.CurrentState(),
	})
	d.Hub.BroadcastToRoom(room.PIN, OutPlayerJoined, playerView(*player))
	d.sendTimerSync(room.PIN, connectionID)
	return nil
}

func (d *Dispatcher) handleReconnectSpectator(ctx context.Context, connectionID string, raw json.RawMessage) error {
	var payload struct {
		Token string `json:"token"`
	}
	if err := decode(raw, &payload); err != nil {
		return err
	}
	room, spectator, newToken, err := d.Room.ReconnectSpectator(ctx, domain.Token(payload.Token), connectionID, d.PlayerGrace)
	if err != nil {
		return err
	}
	d.Hub.Join(room.PIN, connectionID)
	d.Hub.Send(connectionID, OutRoomJoinedSpectator, map[string]interface{}{
		"pin":   string(room.PIN),
		"token": string(newToken),
		"id":    spectator.ID,
	})
	d.sendTimerSync(room.PIN, connectionID)
	return nil
}
