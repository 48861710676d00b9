// Package config reads the application configuration from the environment,
// optionally seeded by a .env file in the working directory.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	RefreshToken string

	SampleRate    int // output sample rate in Hz
	CacheCapacity int // retained streams, active track included

	LogPath  string
	LogLevel string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// Load reads configuration from environment variables (via .env file) or
// defaults. Only the OAuth client credentials are mandatory.
func Load() (*Config, error) {
	// godotenv.Load never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	cfg := &Config{
		ClientID:      os.Getenv("CLIENT_ID"),
		ClientSecret:  os.Getenv("CLIENT_SECRET"),
		RedirectURL:   getEnv("REDIRECT_URL", "http://localhost:5000/"),
		RefreshToken:  os.Getenv("REFRESH_TOKEN"),
		SampleRate:    getEnvInt("SAMPLE_RATE", 44100),
		CacheCapacity: getEnvInt("CACHE_CAPACITY", 5),
		LogPath:       getEnv("LOG_PATH", "wavepod.log"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("config: CLIENT_ID and CLIENT_SECRET must be set")
	}
	if cfg.CacheCapacity < 1 {
		return nil, fmt.Errorf("config: CACHE_CAPACITY must be at least 1")
	}
	return cfg, nil
}
