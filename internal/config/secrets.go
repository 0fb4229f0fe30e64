package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// secretStore supplies secrets that were not set in the environment.
type secretStore interface {
	Get(account string) (string, error)
}

// secretsFilePath holds a flat {"openai_api_key": "..."} object readable
// only by the owner.
func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

type secretsFile struct {
	path string
}

func (s secretsFile) Get(account string) (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("secrets file not available: %w", err)
	}
	var secrets map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return "", fmt.Errorf("parsing secrets file: %w", err)
	}
	val, ok := secrets[account]
	if !ok {
		return "", fmt.Errorf("secret %q not found", account)
	}
	return val, nil
}
