// Package config loads questd configuration from layered sources:
// built-in defaults, a JSON config file at
// $XDG_CONFIG_HOME/questd/config.json, and QUESTD_* environment
// variables, with later layers overriding earlier ones.
package config

import (
	"fmt"
)

type Config struct {
	Server  ServerConfig
	OpenAI  OpenAIConfig
	Game    GameConfig
	Poll    PollConfig
	Walrus  WalrusConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	ImageModel string
}

type GameConfig struct {
	DefaultGenre      string
	DefaultLanguage   string
	DefaultTurns      int
	MaxNarrativeChars int
}

type PollConfig struct {
	// Interval and Deadline are duration strings ("2s", "3m").
	Interval string
	Deadline string
}

type WalrusConfig struct {
	// Endpoint is the Walrus publisher base URL. Empty disables
	// remote archiving; artifacts stay local-only.
	Endpoint string
	Epochs   int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		OpenAI: OpenAIConfig{
			Model:      "gpt-4o",
			ImageModel: "dall-e-3",
		},
		Game: GameConfig{
			DefaultGenre:      "fantasy",
			DefaultLanguage:   "English",
			DefaultTurns:      10,
			MaxNarrativeChars: 1000,
		},
		Poll: PollConfig{
			Interval: "2s",
			Deadline: "2m",
		},
		Walrus: WalrusConfig{
			Epochs: 1,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the config file and QUESTD_* env
// overrides. The OpenAI API key is required and is only accepted from
// the environment, never from the config file.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: OpenAI API key. Set it via environment variable QUESTD_OPENAI_API_KEY")
	}

	return cfg, nil
}
