// Package config reads process environment variables into the fixed set
// of knobs the room engine needs, falling back to the defaults spec.md
// names. This follows the plain os.Getenv-with-fallback style used
// throughout the retrieved corpus (e.g. sumanthd032-CollabText's
// REDIS_ADDR/DATABASE_URL handling) rather than a config-file library —
// nothing in the corpus reaches for one.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every tunable named in spec.md §6 plus the ambient ones
// this expansion adds (mDNS discovery).
type Config struct {
	Port                string
	MaxUsersPerRoom      int
	MaxOperations        int
	EmptyRoomGrace       time.Duration
	IdleRoomTimeout      time.Duration
	RoomReapInterval     time.Duration
	EnableMDNSDiscovery  bool
}

// Load reads Config from the environment, defaulting anything unset.
func Load() Config {
	return Config{
		Port:                getEnv("PORT", "8080"),
		MaxUsersPerRoom:     getEnvInt("MAX_USERS_PER_ROOM", 20),
		MaxOperations:       getEnvInt("MAX_OPERATIONS", 1000),
		EmptyRoomGrace:      getEnvDuration("EMPTY_ROOM_GRACE", 60*time.Second),
		IdleRoomTimeout:     getEnvDuration("IDLE_ROOM_TIMEOUT", time.Hour),
		RoomReapInterval:    getEnvDuration("ROOM_REAP_INTERVAL", 5*time.Minute),
		EnableMDNSDiscovery: getEnvBool("ENABLE_MDNS_DISCOVERY", false),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
