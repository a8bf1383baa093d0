package config

import "strings"

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Gemini   GeminiConfig
	Matching MatchingConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port    int
	MCPPort int
}

type StorageConfig struct {
	DataDir string
}

// GeminiConfig controls the model-assisted ranking path. Matching works
// without it; a missing key just means deterministic scoring only.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Enabled bool
	Timeout string
}

type MatchingConfig struct {
	TopK int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4600,
			MCPPort: 4601,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			Enabled: true,
			Timeout: "8s",
		},
		Matching: MatchingConfig{
			TopK: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.mentormatch.app) and
// secrets fall back to macOS Keychain. On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/mentormatch/config.json and secrets live in
// $XDG_DATA_HOME/mentormatch/secrets.json.
//
// Environment variables (MENTORMATCH_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// Try the platform secret store for the Gemini key if still empty.
	// An absent key is not an error; the ranker simply stays disabled.
	if cfg.Gemini.APIKey == "" {
		if key, err := kc.Get(secretService, "gemini_api_key"); err == nil && key != "" {
			cfg.Gemini.APIKey = key
		}
	}

	return cfg, nil
}

const secretService = "mentormatch"

// keychainReader reads from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
