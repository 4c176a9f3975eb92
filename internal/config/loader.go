package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvConfigPath overrides the config file location.
	EnvConfigPath = "RAGNCHAT_CONFIG"
	// EnvDotEnvPath overrides the .env file location.
	EnvDotEnvPath = "RAGNCHAT_ENV_FILE"
)

// sections lists the top-level keys environment variables may target.
var sections = map[string]bool{
	"server":        true,
	"github":        true,
	"openai":        true,
	"anthropic":     true,
	"embeddings":    true,
	"vectorstore":   true,
	"llm":           true,
	"timeouts":      true,
	"observability": true,
	"logging":       true,
}

// listKeys are decoded from comma-separated environment values.
var listKeys = map[string]bool{
	"embeddings.extensions": true,
}

// DefaultPath returns ~/.config/ragnchat/config.yaml, or the value of
// RAGNCHAT_CONFIG when set.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ragnchat", "config.yaml"), nil
}

// LoadWithFile loads configuration from a YAML file, then overrides it with
// environment variables.
//
// Precedence (highest first):
//  1. Environment variables (GITHUB_TOKEN, OPENAI_API_KEY, VECTORSTORE_PROVIDER, ...)
//  2. Variables from a .env file (never overriding the real environment)
//  3. YAML config file
//  4. Defaults
//
// Environment names map to keys by splitting on the first underscore:
//
//	OPENAI_API_KEY          -> openai.api_key
//	VECTORSTORE_QDRANT_HOST -> vectorstore.qdrant_host
//	EMBEDDINGS_EXTENSIONS   -> embeddings.extensions (comma separated)
//
// A missing config file is not an error. An existing one must not be group-
// or world-writable and must be smaller than 1MB.
func LoadWithFile(configPath string) (*Config, error) {
	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	if content != nil {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps SECTION_FIELD to section.field and drops variables that do not
// target a known section.
func envKey(name, value string) (string, interface{}) {
	lower := strings.ToLower(name)
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) != 2 || !sections[parts[0]] || parts[1] == "" {
		return "", nil
	}

	key := parts[0] + "." + parts[1]
	if listKeys[key] {
		var items []string
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return key, items
	}
	return key, value
}

// loadDotEnv loads .env (or RAGNCHAT_ENV_FILE) into the process environment
// without overriding variables that are already set.
func loadDotEnv() error {
	path := os.Getenv(EnvDotEnvPath)
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// readConfigFile returns nil content when the file does not exist.
func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if err := validateConfigFileProperties(info); err != nil {
		return nil, fmt.Errorf("config file validation failed: %w", err)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// validateConfigFileProperties checks file permissions and size.
func validateConfigFileProperties(info os.FileInfo) error {
	if runtime.GOOS != "windows" {
		if perm := info.Mode().Perm(); perm&0o022 != 0 {
			return fmt.Errorf("insecure config file permissions: %v (must not be group or world writable)", perm)
		}
	}
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	return nil
}
