// Package config centralizes the environment-configurable knobs, in the
// same plain os.Getenv-plus-default style main.go and
// middleware/ratelimit.go already used, rather than adopting a
// struct-tag/flag-based config library the rest of the stack doesn't use.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every environment-configurable parameter.
type Config struct {
	Port string

	JWTSecret string

	DatabaseURL string

	HostGrace        time.Duration
	PlayerGrace      time.Duration
	EmptyRoomTimeout time.Duration
	IdleRoomTimeout  time.Duration
	CleanupInterval  time.Duration

	LockTimeout time.Duration
	TokenTTL    time.Duration

	MaxPlayers    int
	MaxSpectators int
	MaxQuestions  int
}

// Load reads .env (if present, silently ignored otherwise) and builds a
// Config from the environment, falling back to spec defaults.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("ℹ️  no .env file found, using process environment only")
	}

	return &Config{
		Port:        getEnvString("PORT", "8080"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		HostGrace:        getEnvMillis("HOST_GRACE_MS", 60000),
		PlayerGrace:      getEnvMillis("PLAYER_GRACE_MS", 120000),
		EmptyRoomTimeout: getEnvMillis("EMPTY_ROOM_TIMEOUT_MS", 300000),
		IdleRoomTimeout:  getEnvMillis("IDLE_ROOM_TIMEOUT_MS", 3600000),
		CleanupInterval:  getEnvMillis("CLEANUP_INTERVAL_MS", 30000),

		LockTimeout: getEnvMillis("LOCK_TIMEOUT_MS", 10000),
		TokenTTL:    getEnvMillis("TOKEN_TTL_MS", 86400000),

		MaxPlayers:    getEnvInt("MAX_PLAYERS", 50),
		MaxSpectators: getEnvInt("MAX_SPECTATORS", 10),
		MaxQuestions:  getEnvInt("MAX_QUESTIONS", 50),
	}
}

func getEnvString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("⚠️  invalid integer for %s=%q, using default %d", key, v, def)
	}
	return def
}

func getEnvMillis(key string, defMs int) time.Duration {
	return time.Duration(getEnvInt(key, defMs)) * time.Millisecond
}
