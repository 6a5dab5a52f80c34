package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envFiles are loaded in order when present. Variables already set in the
// environment are never overridden.
var envFiles = []string{".env.local", ".env"}

type Config struct {
	ProjectID             string
	LogLevel              string
	Port                  string
	PreferencesCollection string
	SQLitePath            string
}

func New() *Config {
	loadEnvFiles()

	return &Config{
		ProjectID:             os.Getenv("PROJECTID"),
		LogLevel:              os.Getenv("LOGLEVEL"),
		Port:                  getEnv("PORT", "8080"),
		PreferencesCollection: getEnv("PREFERENCESCOLLECTION", "dashboard_preferences"),
		SQLitePath:            getEnv("SQLITEPATH", "dashboard.db"),
	}
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func loadEnvFiles() {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		_ = godotenv.Load(f)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
