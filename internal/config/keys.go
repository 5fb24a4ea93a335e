package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "QUESTD_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "openai.api_key", typ: kString, env: "QUESTD_OPENAI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "openai.base_url", typ: kString, env: "QUESTD_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
	},
	{
		key: "openai.model", typ: kString, env: "QUESTD_OPENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.Model },
	},
	{
		key: "openai.image_model", typ: kString, env: "QUESTD_OPENAI_IMAGE_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.ImageModel = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.ImageModel },
	},
	{
		key: "game.default_genre", typ: kString, env: "QUESTD_GAME_DEFAULT_GENRE",
		apply:   func(cfg *Config, v any) { cfg.Game.DefaultGenre = v.(string) },
		extract: func(cfg Config) any { return cfg.Game.DefaultGenre },
	},
	{
		key: "game.default_language", typ: kString, env: "QUESTD_GAME_DEFAULT_LANGUAGE",
		apply:   func(cfg *Config, v any) { cfg.Game.DefaultLanguage = v.(string) },
		extract: func(cfg Config) any { return cfg.Game.DefaultLanguage },
	},
	{
		key: "game.default_turns", typ: kInt, env: "QUESTD_GAME_DEFAULT_TURNS",
		apply:   func(cfg *Config, v any) { cfg.Game.DefaultTurns = v.(int) },
		extract: func(cfg Config) any { return cfg.Game.DefaultTurns },
	},
	{
		key: "game.max_narrative_chars", typ: kInt, env: "QUESTD_GAME_MAX_NARRATIVE_CHARS",
		apply:   func(cfg *Config, v any) { cfg.Game.MaxNarrativeChars = v.(int) },
		extract: func(cfg Config) any { return cfg.Game.MaxNarrativeChars },
	},
	{
		key: "poll.interval", typ: kString, env: "QUESTD_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Poll.Interval = v.(string) },
		extract: func(cfg Config) any { return cfg.Poll.Interval },
	},
	{
		key: "poll.deadline", typ: kString, env: "QUESTD_POLL_DEADLINE",
		apply:   func(cfg *Config, v any) { cfg.Poll.Deadline = v.(string) },
		extract: func(cfg Config) any { return cfg.Poll.Deadline },
	},
	{
		key: "walrus.endpoint", typ: kString, env: "QUESTD_WALRUS_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Walrus.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Walrus.Endpoint },
	},
	{
		key: "walrus.epochs", typ: kInt, env: "QUESTD_WALRUS_EPOCHS",
		apply:   func(cfg *Config, v any) { cfg.Walrus.Epochs = v.(int) },
		extract: func(cfg Config) any { return cfg.Walrus.Epochs },
	},
	{
		key: "storage.data_dir", typ: kString, env: "QUESTD_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "QUESTD_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
