package domain

// RoomState enumerates the room's flow state. Allowed transitions are
// enforced by Room.SetState against allowedTransitions below.
type RoomState string

const (
	WaitingPlayers RoomState = "WAITING_PLAYERS"
	QuestionIntro  RoomState = "QUESTION_INTRO"
	AnsweringPhase RoomState = "ANSWERING_PHASE"
	ShowResults    RoomState = "SHOW_RESULTS"
	Leaderboard    RoomState = "LEADERBOARD"
	Paused         RoomState = "PAUSED"
	Podium         RoomState = "PODIUM"
)

var allowedTransitions = map[RoomState][]RoomState{
	WaitingPlayers: {QuestionIntro},
	QuestionIntro:  {AnsweringPhase},
	AnsweringPhase: {ShowResults},
	ShowResults:    {Leaderboard},
	Leaderboard:    {QuestionIntro, Podium, Paused},
	Paused:         {Leaderboard},
	Podium:         {}, // terminal
}

// CanTransition reports whether moving from 'from' to 'to' is legal.
func CanTransition(from, to RoomState) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
