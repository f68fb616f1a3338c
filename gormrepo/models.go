// Package gormrepo persists quizzes, users, and archived game sessions
// through gorm.io/gorm, the teacher's own ORM, generalizing
// database/db.go's sqlite connection to the go.mod-declared
// gorm.io/driver/postgres and models/multiplayer.go's JSON-text-column
// pattern (nested data kept as a marshaled JSON string column rather
// than a joined child table, same as QuestionsJSON/PlayersJSON there)
// to GameSession's player results and answer history.
package gormrepo

import "time"

// QuizRow is the storage row for a Quiz. Questions are kept as a single
// JSON column, the same choice models/game_state.go makes for
// QuestionsJSON rather than a joined per-question table.
type QuizRow struct {
	ID            string `gorm:"primaryKey;size:100"`
	Title         string `gorm:"size:200"`
	QuestionsJSON string `gorm:"type:text;not null"`
	PlayCount     int    `gorm:"default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (QuizRow) TableName() string { return "quizzes" }

// UserRow is the minimal identity record the core resolves archived
// sessions against; authentication itself happens upstream of the JWT
// this server consumes.
type UserRow struct {
	ID       uint `gorm:"primaryKey"`
	Username string `gorm:"size:100;index"`
}

func (UserRow) TableName() string { return "users" }

// GameSessionRow is the archive row written once a room finishes or is
// interrupted, mirroring MultiplayerGame's status/timestamps shape
// plus MultiplayerGamePlayer's per-player stats folded into a single
// JSON column rather than a child table, since the archive is
// write-once and always read back whole.
type GameSessionRow struct {
	ID                 uint   `gorm:"primaryKey"`
	PIN                string `gorm:"index;size:6"`
	QuizID             string `gorm:"index;size:100"`
	HostUserID         uint   `gorm:"index"`
	HostUsername       string `gorm:"size:100"`
	PlayerCount        int
	PlayerResultsJSON  string `gorm:"type:text"`
	AnswersJSON        string `gorm:"type:text"`
	StartedAt          time.Time `gorm:"index"`
	EndedAt            time.Time `gorm:"index"`
	Status             string    `gorm:"size:20;index"`
	InterruptionReason string    `gorm:"size:200"`
	LastQuestionIndex  int
	LastState          string `gorm:"size:20"`
	CreatedAt          time.Time
}

func (GameSessionRow) TableName() string { return "game_sessions" }
