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
	key    string
	typ    keyType
	env    string
	secret bool
	// alias is a conventional env var read when env is unset.
	alias string
	// account names the secret in the secrets file.
	account string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "NOTEFLOW_SERVER_PORT", alias: "PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "NOTEFLOW_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "NOTEFLOW_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "openai.api_key", typ: kString, env: "NOTEFLOW_OPENAI_API_KEY", alias: "OPENAI_API_KEY",
		secret: true, account: "openai_api_key",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.APIKey },
	},
	{
		key: "openai.base_url", typ: kString, env: "NOTEFLOW_OPENAI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.BaseURL },
	},
	{
		key: "openai.model", typ: kString, env: "NOTEFLOW_OPENAI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.Model },
	},
	{
		key: "openai.reasoning_effort", typ: kString, env: "NOTEFLOW_OPENAI_REASONING_EFFORT",
		apply:   func(cfg *Config, v any) { cfg.OpenAI.ReasoningEffort = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenAI.ReasoningEffort },
	},
	{
		key: "elevenlabs.api_key", typ: kString, env: "NOTEFLOW_ELEVENLABS_API_KEY", alias: "ELEVENLABS_API_KEY",
		secret: true, account: "elevenlabs_api_key",
		apply:   func(cfg *Config, v any) { cfg.ElevenLabs.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.ElevenLabs.APIKey },
	},
	{
		key: "elevenlabs.base_url", typ: kString, env: "NOTEFLOW_ELEVENLABS_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.ElevenLabs.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.ElevenLabs.BaseURL },
	},
	{
		key: "elevenlabs.model", typ: kString, env: "NOTEFLOW_ELEVENLABS_MODEL",
		apply:   func(cfg *Config, v any) { cfg.ElevenLabs.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.ElevenLabs.Model },
	},
	{
		key: "gemini.api_key", typ: kString, env: "NOTEFLOW_GEMINI_API_KEY", alias: "GEMINI_API_KEY",
		secret: true, account: "gemini_api_key",
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.base_url", typ: kString, env: "NOTEFLOW_GEMINI_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.BaseURL },
	},
	{
		key: "gemini.model", typ: kString, env: "NOTEFLOW_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "rapidapi.key", typ: kString, env: "NOTEFLOW_RAPIDAPI_KEY", alias: "RAPIDAPI_KEY",
		secret: true, account: "rapidapi_key",
		apply:   func(cfg *Config, v any) { cfg.RapidAPI.Key = v.(string) },
		extract: func(cfg Config) any { return cfg.RapidAPI.Key },
	},
	{
		key: "insights.count", typ: kInt, env: "NOTEFLOW_INSIGHTS_COUNT",
		apply:   func(cfg *Config, v any) { cfg.Insights.Count = v.(int) },
		extract: func(cfg Config) any { return cfg.Insights.Count },
	},
	{
		key: "api.token", typ: kString, env: "NOTEFLOW_API_TOKEN",
		secret: true, account: "api_token",
		apply:   func(cfg *Config, v any) { cfg.API.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.API.Token },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
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

func lookupEnv(s keySpec) (name, raw string) {
	if raw = os.Getenv(s.env); raw != "" {
		return s.env, raw
	}
	if s.alias != "" {
		if raw = os.Getenv(s.alias); raw != "" {
			return s.alias, raw
		}
	}
	return "", ""
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		name, raw := lookupEnv(s)
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
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", name, raw, err)
			}
		}
	}
}

// applySecrets fills secrets still empty after the environment from the
// secrets store.
func applySecrets(cfg *Config, store secretStore) {
	for _, s := range specs {
		if !s.secret || s.account == "" {
			continue
		}
		if v, _ := s.extract(*cfg).(string); v != "" {
			continue
		}
		if v, err := store.Get(s.account); err == nil && v != "" {
			s.apply(cfg, v)
		}
	}
}
