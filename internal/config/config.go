// Package config loads noteflow settings from the config file, the
// environment and the secrets file.
package config

import (
	"fmt"
)

type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Log        LogConfig
	OpenAI     OpenAIConfig
	ElevenLabs ProviderConfig
	Gemini     ProviderConfig
	RapidAPI   RapidAPIConfig
	Insights   InsightsConfig
	API        APIConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	Model           string
	ReasoningEffort string
}

// ProviderConfig configures an HTTP provider. Empty fields use the client's
// defaults.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type RapidAPIConfig struct {
	Key string
}

type InsightsConfig struct {
	Count int
}

// APIConfig guards the HTTP API. An empty token disables bearer auth.
type APIConfig struct {
	Token string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		OpenAI: OpenAIConfig{
			BaseURL:         "https://api.openai.com/v1",
			Model:           "gpt-5.1",
			ReasoningEffort: "low",
		},
		ElevenLabs: ProviderConfig{
			BaseURL: "https://api.elevenlabs.io",
			Model:   "scribe_v1",
		},
		Gemini: ProviderConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.0-flash",
		},
		Insights: InsightsConfig{
			Count: 5,
		},
	}
}

// Load reads configuration from the JSON config file, then NOTEFLOW_*
// environment variables (which win), then the secrets file for secrets
// still unset. Secrets are never read from the config file.
func Load() (Config, error) {
	return loadWith(newFileBackend(ConfigFilePath()), secretsFile{path: secretsFilePath()})
}

func loadWith(b ConfigBackend, secrets secretStore) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)
	applySecrets(&cfg, secrets)

	if cfg.OpenAI.APIKey == "" {
		return Config{}, fmt.Errorf("%s", "missing required config: OpenAI API key. "+
			"Set it via environment variable NOTEFLOW_OPENAI_API_KEY or OPENAI_API_KEY, "+
			"or add openai_api_key to "+secretsFilePath())
	}
	if cfg.Insights.Count <= 0 {
		cfg.Insights.Count = 5
	}

	return cfg, nil
}
