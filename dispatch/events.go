// Package dispatch is the event dispatcher (the teacher's handler layer
// promoted to a single table-driven entry point): it applies the rate
// limiter and host-authorization check described for each inbound
// event, calls the matching use-case, and turns the result into the
// outbound broadcasts the connected sockets expect. It mirrors the
// shape of handlers/multiplayer.go's big switch over Message.Type, but
// table-driven instead of a long if/else chain, and talks to
// usecases.RoomUseCases/GameUseCases instead of mutating the package
// rooms map directly.
package dispatch

// Inbound event names, exactly the set the core consumes.
const (
	EventCreateRoom        = "create_room"
	EventJoinRoom          = "join_room"
	EventJoinSpectator     = "join_spectator"
	EventLeaveRoom         = "leave_room"
	EventCloseRoom         = "close_room"
	EventKickPlayer        = "kick_player"
	EventBanPlayer         = "ban_player"
	EventUnbanNickname     = "unban_nickname"
	EventStartGame         = "start_game"
	EventStartAnswering    = "start_answering"
	EventSubmitAnswer      = "submit_answer"
	EventEndAnswering      = "end_answering"
	EventShowLeaderboard   = "show_leaderboard"
	EventNextQuestion      = "next_question"
	EventPauseGame         = "pause_game"
	EventResumeGame        = "resume_game"
	EventReconnectHost     = "reconnect_host"
	EventReconnectPlayer   = "reconnect_player"
	EventReconnectSpectator = "reconnect_spectator"
)

// Outbound event names. OutSpectatorLeft, OutTimeExpired,
// OutAnswerCountUpdated and OutRoundEnded are declared but no code path
// sends them.
const (
	OutRoomCreated           = "room_created"
	OutRoomJoined            = "room_joined"
	OutRoomJoinedSpectator   = "room_joined_spectator"
	OutPlayerJoined          = "player_joined"
	OutSpectatorJoined       = "spectator_joined"
	OutPlayerLeft            = "player_left"
	OutSpectatorLeft         = "spectator_left"
	OutPlayerRemoved         = "player_removed"
	OutHostDisconnected      = "host_disconnected"
	OutHostDisconnectedWarn  = "host_disconnected_warning"
	OutHostReturned          = "host_returned"
	OutGameStarted           = "game_started"
	OutQuestionIntro         = "question_intro"
	OutAnsweringStarted      = "answering_started"
	OutTimerStarted          = "timer_started"
	OutTimerTick             = "timer_tick"
	OutTimerSync             = "timer_sync"
	OutTimeExpired           = "time_expired"
	OutAnswerReceived        = "answer_received"
	OutAnswerCountUpdated    = "answer_count_updated"
	OutAllPlayersAnswered    = "all_players_answered"
	OutShowResults           = "show_results"
	OutRoundEnded            = "round_ended"
	OutLeaderboard           = "leaderboard"
	OutGameOver              = "game_over"
	OutPlayerKicked          = "player_kicked"
	OutPlayerBanned          = "player_banned"
	OutYouWereKicked         = "you_were_kicked"
	OutGamePaused            = "game_paused"
	OutGameResumed           = "game_resumed"
	OutRoomClosed            = "room_closed"
	OutError                 = "error"
)

// hostActions is the set of inbound events the dispatcher requires the
// sender to be the room's current host for, checked after the rate
// limiter and before the use-case call.
var hostActions = map[string]bool{
	EventCreateRoom:      false, // no room exists yet to be host of
	EventStartGame:       true,
	EventStartAnswering:  true,
	EventEndAnswering:    false, // also reachable as the "server" principal
	EventShowLeaderboard: true,
	EventNextQuestion:    true,
	EventPauseGame:       true,
	EventResumeGame:      true,
	EventKickPlayer:      true,
	EventBanPlayer:       true,
	EventUnbanNickname:   true,
	EventCloseRoom:       true,
}

// RequiresHost reports whether event must be issued by the room's host.
func RequiresHost(event string) bool {
	return hostActions[event]
}
