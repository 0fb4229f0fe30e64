package config

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// KeyInfo is one non-secret setting as shown by `noteflow config show`.
type KeyInfo struct {
	Key    string
	EnvVar string
	Value  string
	// Source is the environment variable that supplied Value, if any.
	Source string
}

// ShowAll lists the non-secret settings of cfg in declaration order.
func ShowAll(cfg Config) []KeyInfo {
	var result []KeyInfo
	for _, s := range specs {
		if s.secret {
			continue
		}
		name, _ := lookupEnv(s)
		result = append(result, KeyInfo{
			Key:    s.key,
			EnvVar: s.env,
			Value:  fmt.Sprint(s.extract(cfg)),
			Source: name,
		})
	}
	return result
}

// SecretInfo reports whether a provider credential is present. The value
// itself is never exposed.
type SecretInfo struct {
	Key    string
	EnvVar string
	Set    bool
}

// SecretStatus lists every secret key and whether cfg carries a value for it.
func SecretStatus(cfg Config) []SecretInfo {
	var result []SecretInfo
	for _, s := range specs {
		if !s.secret {
			continue
		}
		v, _ := s.extract(cfg).(string)
		result = append(result, SecretInfo{Key: s.key, EnvVar: s.env, Set: v != ""})
	}
	return result
}

// SetKey writes a setting to the config file. Secrets are refused; they
// belong in the environment or the secrets file.
func SetKey(key, value string) error {
	return setKey(newFileBackend(ConfigFilePath()), key, value)
}

var (
	logLevels        = []string{"debug", "info", "warn", "error"}
	reasoningEfforts = []string{"minimal", "low", "medium", "high"}
)

func setKey(b ConfigBackend, key, value string) error {
	i := slices.IndexFunc(specs, func(s keySpec) bool { return s.key == key })
	if i < 0 {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(ValidKeys(), ", "))
	}
	s := specs[i]
	if s.secret {
		return fmt.Errorf("%s is a secret; set %s or add %s to %s", key, s.env, s.account, secretsFilePath())
	}

	if s.typ == kInt {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %w", key, err)
		}
		switch {
		case key == "server.port" && (n < 1 || n > 65535):
			return fmt.Errorf("server.port must be between 1 and 65535, got %d", n)
		case key == "insights.count" && n < 1:
			return fmt.Errorf("insights.count must be positive, got %d", n)
		}
		return b.SetInt(key, n)
	}

	switch key {
	case "log.level":
		value = strings.ToLower(value)
		if !slices.Contains(logLevels, value) {
			return fmt.Errorf("log.level must be one of %s", strings.Join(logLevels, ", "))
		}
	case "openai.reasoning_effort":
		value = strings.ToLower(value)
		if !slices.Contains(reasoningEfforts, value) {
			return fmt.Errorf("openai.reasoning_effort must be one of %s", strings.Join(reasoningEfforts, ", "))
		}
	}
	return b.SetString(key, value)
}

// ValidKeys returns the names accepted by SetKey.
func ValidKeys() []string {
	var keys []string
	for _, s := range specs {
		if !s.secret {
			keys = append(keys, s.key)
		}
	}
	return keys
}
