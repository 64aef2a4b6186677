package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port        string
	DatabaseURL string // empty selects the in-memory content store

	MaxRooms          int
	MaxPlayersPerRoom int

	AnswerWindow       time.Duration
	RevealDuration     time.Duration
	ScoreboardDuration time.Duration
	ReconnectGrace     time.Duration
	RoomIdleTimeout    time.Duration
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		MaxRooms:          getEnvAsInt("MAX_ROOMS", 1000),
		MaxPlayersPerRoom: getEnvAsInt("MAX_PLAYERS_PER_ROOM", 32),

		AnswerWindow:       getEnvAsDuration("ANSWER_WINDOW", 20*time.Second),
		RevealDuration:     getEnvAsDuration("REVEAL_DURATION", 5*time.Second),
		ScoreboardDuration: getEnvAsDuration("SCOREBOARD_DURATION", 5*time.Second),
		ReconnectGrace:     getEnvAsDuration("RECONNECT_GRACE", 30*time.Second),
		RoomIdleTimeout:    getEnvAsDuration("ROOM_IDLE_TIMEOUT", 10*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
