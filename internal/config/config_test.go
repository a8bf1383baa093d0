package config

import (
	"errors"
	"strconv"
	"testing"
)

// mapBackend is an in-memory ConfigBackend for tests.
type mapBackend struct {
	data map[string]string
}

func (b *mapBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	return v, ok, nil
}

func (b *mapBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, true, err
	}
	return i, true, nil
}

func (b *mapBackend) SetString(key, val string) error { b.data[key] = val; return nil }
func (b *mapBackend) SetInt(string, int) error        { return nil }
func (b *mapBackend) Delete(string) error             { return nil }

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

func emptyBackend() *mapBackend {
	return &mapBackend{data: map[string]string{}}
}

// TestDefaults verifies default values survive an empty backend.
func TestDefaults(t *testing.T) {
	t.Setenv("MENTORMATCH_GEMINI_API_KEY", "")

	cfg, err := loadWith(emptyBackend(), mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4600 {
		t.Errorf("Server.Port = %d, want 4600", cfg.Server.Port)
	}
	if cfg.Server.MCPPort != 4601 {
		t.Errorf("Server.MCPPort = %d, want 4601", cfg.Server.MCPPort)
	}
	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if !cfg.Gemini.Enabled {
		t.Error("Gemini.Enabled = false, want true by default")
	}
	if cfg.Matching.TopK != 10 {
		t.Errorf("Matching.TopK = %d, want 10", cfg.Matching.TopK)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
}

// TestBackendValues verifies backend values override defaults.
func TestBackendValues(t *testing.T) {
	t.Setenv("MENTORMATCH_GEMINI_API_KEY", "")
	b := &mapBackend{data: map[string]string{
		"server.port":     "5000",
		"server.mcp_port": "5001",
		"matching.top_k":  "7",
		"gemini.enabled":  "false",
		"gemini.model":    "gemini-2.5-pro",
		"log.level":       "debug",
	}}

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 || cfg.Server.MCPPort != 5001 {
		t.Errorf("ports = %d/%d", cfg.Server.Port, cfg.Server.MCPPort)
	}
	if cfg.Matching.TopK != 7 {
		t.Errorf("Matching.TopK = %d, want 7", cfg.Matching.TopK)
	}
	if cfg.Gemini.Enabled {
		t.Error("Gemini.Enabled = true, want false from backend")
	}
	if cfg.Gemini.Model != "gemini-2.5-pro" {
		t.Errorf("Gemini.Model = %q", cfg.Gemini.Model)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
}

// TestEnvOverride verifies environment variables beat backend values.
func TestEnvOverride(t *testing.T) {
	b := &mapBackend{data: map[string]string{"gemini.model": "from-backend"}}

	t.Setenv("MENTORMATCH_GEMINI_MODEL", "from-env")
	t.Setenv("MENTORMATCH_GEMINI_API_KEY", "env-key")

	cfg, err := loadWith(b, mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.Model != "from-env" {
		t.Errorf("Gemini.Model = %q, want env override", cfg.Gemini.Model)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Errorf("Gemini.APIKey = %q, want env value", cfg.Gemini.APIKey)
	}
}

// TestKeychainFallback verifies the secret store is consulted when the key is
// absent from env and backend.
func TestKeychainFallback(t *testing.T) {
	t.Setenv("MENTORMATCH_GEMINI_API_KEY", "")

	cfg, err := loadWith(emptyBackend(), mockKeychain{value: "keychain-secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Gemini.APIKey != "keychain-secret" {
		t.Errorf("Gemini.APIKey = %q, want keychain value", cfg.Gemini.APIKey)
	}
}

// TestMissingGeminiKeyIsNotFatal verifies loading succeeds without any key;
// the model path is simply unavailable.
func TestMissingGeminiKeyIsNotFatal(t *testing.T) {
	t.Setenv("MENTORMATCH_GEMINI_API_KEY", "")

	cfg, err := loadWith(emptyBackend(), mockKeychain{err: errors.New("no keychain")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "" {
		t.Errorf("Gemini.APIKey = %q, want empty", cfg.Gemini.APIKey)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.Gemini.APIKey = "super-secret"

	for _, info := range ShowAll(cfg) {
		if info.Key == "gemini.api_key" {
			t.Errorf("secret key listed in ShowAll")
		}
		if info.Value == "super-secret" {
			t.Errorf("secret value leaked via %s", info.Key)
		}
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if k == "gemini.api_key" {
			t.Error("ValidKeys includes the secret key")
		}
	}
}
