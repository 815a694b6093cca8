package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerURL       string
	CredentialsFile string
	LogLevel        string

	// The service has shipped divergent lobby flows; both knobs default to
	// the feature-complete variant.
	RankedBypassesLobby bool
	AllowSpectators     bool
}

// Load reads .env if present, then the environment, with defaults for
// everything so a bare invocation talks to a local server.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ServerURL:           "http://localhost:8080",
		LogLevel:            "info",
		RankedBypassesLobby: true,
		AllowSpectators:     true,
	}

	if v := os.Getenv("CHESS_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("CHESS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CHESS_CREDENTIALS_FILE"); v != "" {
		cfg.CredentialsFile = v
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			dir = "."
		}
		cfg.CredentialsFile = filepath.Join(dir, "chessclient", "token")
	}
	if v := os.Getenv("CHESS_RANKED_LOBBY"); v == "true" {
		cfg.RankedBypassesLobby = false
	}
	if v := os.Getenv("CHESS_NO_SPECTATORS"); v == "true" {
		cfg.AllowSpectators = false
	}
	return cfg
}
