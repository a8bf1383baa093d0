package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const tokenAccount = "api_token"

// GetAPIToken returns the bearer token protecting the local HTTP API.
// Resolution order: MENTORMATCH_API_TOKEN env var, then the platform secret
// store. If neither has one, a fresh token is generated and persisted so the
// server and CLI agree across restarts.
func GetAPIToken() (string, error) {
	if t := os.Getenv("MENTORMATCH_API_TOKEN"); t != "" {
		return t, nil
	}

	if raw, err := keychainGet(secretService, tokenAccount); err == nil {
		if t := strings.TrimSpace(string(raw)); t != "" {
			return t, nil
		}
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating API token: %w", err)
	}
	token := hex.EncodeToString(buf)

	if err := keychainSet(secretService, tokenAccount, token); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return token, nil
}

// SetGeminiAPIKey stores the Gemini key in the platform secret store.
func SetGeminiAPIKey(key string) error {
	return keychainSet(secretService, "gemini_api_key", key)
}
