package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries the game and scheduler settings for the room service.
// Everything comes from the environment, .env is loaded by configs.LoadEnv.
type Config struct {
	RoomCodeLength   int
	MinPlayers       int
	TotalRounds      int // 0 derives the count from the player count at start
	HostPlays        bool
	DefaultGameType  string
	RoundDuration    time.Duration
	BetweenRounds    time.Duration
	InactivityLimit  time.Duration
	TimerInterval    time.Duration
	AdvanceInterval  time.Duration
	CleanupInterval  time.Duration
	MinTargetNumber  int
	MaxTargetNumber  int
}

func Load() *Config {
	return &Config{
		RoomCodeLength:  clamp(envInt("ROOM_CODE_LENGTH", 4), 4, 6),
		MinPlayers:      envInt("MIN_PLAYERS_TO_START", 2),
		TotalRounds:     envInt("TOTAL_ROUNDS", 0),
		HostPlays:       envBool("HOST_PLAYS", true),
		DefaultGameType: envStr("DEFAULT_GAME_TYPE", "guess_number"),
		RoundDuration:   envSeconds("ROUND_DURATION_SEC", 30),
		BetweenRounds:   envSeconds("BETWEEN_ROUNDS_DELAY_SEC", 5),
		InactivityLimit: envSeconds("ROOM_INACTIVITY_THRESHOLD_SEC", 3600),
		TimerInterval:   envSeconds("ROUND_TIMER_JOB_INTERVAL_SEC", 1),
		AdvanceInterval: envSeconds("ROUND_ADVANCE_JOB_INTERVAL_SEC", 1),
		CleanupInterval: envSeconds("ROOM_CLEANUP_JOB_INTERVAL_SEC", 60),
		MinTargetNumber: envInt("MIN_TARGET_NUMBER", 1),
		MaxTargetNumber: envInt("MAX_TARGET_NUMBER", 100),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
