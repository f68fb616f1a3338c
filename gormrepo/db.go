package gormrepo

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to dsn the same way database/db.go configured its
// sqlite connection pool, generalized to the postgres driver the
// go.mod already declares.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("✅ database connected successfully")
	return db, nil
}

// Migrate runs AutoMigrate for every row model and creates the indexes
// AutoMigrate doesn't express on its own, mirroring
// database/migrate.go's createCoreIndexes pass.
func Migrate(db *gorm.DB) error {
	log.Println("🔄 running database migrations...")
	if err := db.AutoMigrate(&QuizRow{}, &UserRow{}, &GameSessionRow{}); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	createIndexes(db)
	log.Println("✅ migrations completed")
	return nil
}

func createIndexes(db *gorm.DB) {
	db.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_pin ON game_sessions(pin)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_quiz ON game_sessions(quiz_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_host ON game_sessions(host_user_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_status ON game_sessions(status)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_ended ON game_sessions(ended_at DESC)")
}
